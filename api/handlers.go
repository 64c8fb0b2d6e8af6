/*
handlers.go - HTTP API handlers for the discount reconciler

PURPOSE:
  Exposes a Reconciler over a loaded dataset via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to report.Reconciler.

ENDPOINTS:
  Suppliers:
    GET    /api/suppliers              Supplier master with eligibility
    GET    /api/suppliers/{id}/tables  Last emitted Rotación/Teleferia tables

  Runs:
    POST   /api/runs                   Base pass
    POST   /api/runs/allowance         Allowance pass (manual allowances)
    GET    /api/runs                   Run log, newest first (?limit=N)

  Summary:
    GET    /api/summary                Cross-supplier summary

ARCHITECTURE:
  Handler struct holds the Reconciler. The Reconciler serializes runs, so
  concurrent POSTs are processed one after the other.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed body, failed validation
  - 404: Unknown supplier, no report emitted yet
  - 500: Store failures
  Supplier-scoped failures are not HTTP errors; they are listed in the
  run response under "failures".

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/warp/discount-reconciler/discount"
	"github.com/warp/discount-reconciler/generic"
	"github.com/warp/discount-reconciler/logging"
	"github.com/warp/discount-reconciler/report"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Reconciler *report.Reconciler
	Logger     *logrus.Logger

	validate *validator.Validate
}

// NewHandler creates a new handler over a reconciler.
func NewHandler(rec *report.Reconciler, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Handler{
		Reconciler: rec,
		Logger:     logger,
		validate:   validator.New(),
	}
}

// =============================================================================
// SUPPLIER HANDLERS
// =============================================================================

// ListSuppliers returns the supplier master in load order.
// GET /api/suppliers
func (h *Handler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	ds := h.Reconciler.Dataset()
	suppliers := ds.Suppliers()

	dtos := make([]SupplierDTO, len(suppliers))
	for i, s := range suppliers {
		dtos[i] = SupplierDTO{
			ID:          string(s.ID),
			PricingMode: string(s.Mode),
			Eligible:    s.Eligible,
			Rules:       len(ds.RulesFor(s.ID)),
			Lines:       len(ds.LinesFor(s.ID)),
		}
		if c := h.Reconciler.ConsolidatedAs(s.ID); c != s.ID {
			dtos[i].Consolidated = string(c)
		}
	}

	writeJSON(w, http.StatusOK, dtos)
}

// GetSupplierTables returns the tables of the last report emitted for a
// supplier. Members of a joined group resolve to the group's report.
// GET /api/suppliers/{id}/tables
func (h *Handler) GetSupplierTables(w http.ResponseWriter, r *http.Request) {
	id := generic.SupplierID(chi.URLParam(r, "id"))

	if _, ok := h.Reconciler.Dataset().Supplier(id); !ok {
		writeError(w, http.StatusNotFound, "Supplier not found", generic.ErrUnknownSupplier)
		return
	}

	rep, ok := h.Reconciler.LastReport(h.Reconciler.ConsolidatedAs(id))
	if !ok {
		writeError(w, http.StatusNotFound, "No report emitted for supplier yet", nil)
		return
	}

	dto := SupplierTablesDTO{
		Supplier: string(rep.Supplier),
		Rotation: toTableDTO(rep.Rotation),
	}
	if len(rep.Members) > 0 {
		dto.Members = supplierStrings(rep.Members)
	}
	if rep.IncludeFairPeriod {
		fair := toTableDTO(rep.FairPeriod)
		dto.FairPeriod = &fair
	}

	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// RUN HANDLERS
// =============================================================================

// StartRun runs the base pass.
// POST /api/runs
func (h *Handler) StartRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.Reconciler.Run(r.Context(), report.RunRequest{
		Suppliers:      supplierIDs(req.Suppliers),
		Mode:           generic.RunBase,
		IncludeReports: req.IncludeReports,
	})
	if err != nil {
		logging.LogError(h.Logger, "api", "StartRun", "run", req.Suppliers, err)
		writeError(w, http.StatusInternalServerError, "Run failed", err)
		return
	}

	writeJSON(w, http.StatusOK, toRunResponse(result))
}

// StartAllowanceRun reruns suppliers with manual allowances. Unparsable
// allowance texts count as 0.
// POST /api/runs/allowance
func (h *Handler) StartAllowanceRun(w http.ResponseWriter, r *http.Request) {
	var req AllowanceRunRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	allowances := make(discount.Allowances, len(req.Allowances))
	for id, text := range req.Allowances {
		v, err := discount.ParseAllowance(text)
		if err != nil {
			logging.LogError(h.Logger, "api", "StartAllowanceRun", "parse allowance", id, err)
		}
		allowances[generic.SupplierID(id)] = v
	}

	suppliers := supplierIDs(req.Suppliers)
	if len(suppliers) == 0 {
		suppliers = allowances.Suppliers()
	}

	result, err := h.Reconciler.IncludeAllowance(r.Context(), suppliers, allowances)
	if err != nil {
		logging.LogError(h.Logger, "api", "StartAllowanceRun", "run", req.Suppliers, err)
		writeError(w, http.StatusInternalServerError, "Allowance run failed", err)
		return
	}

	writeJSON(w, http.StatusOK, toRunResponse(result))
}

// ListRuns returns the run log.
// GET /api/runs?limit=N
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	runs, err := h.Reconciler.Runs(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}

	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// SUMMARY HANDLERS
// =============================================================================

// GetSummary returns the summary rows; ?all=true includes ineligible suppliers.
// GET /api/summary
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Reconciler.Summary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load summary", err)
		return
	}

	if r.URL.Query().Get("all") != "true" {
		eligible := h.Reconciler.Suppliers()
		filtered := rows[:0]
		for _, row := range rows {
			if eligible[row.Supplier] {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	writeJSON(w, http.StatusOK, toSummaryDTOs(rows))
}

// =============================================================================
// HELPERS
// =============================================================================

func toRunResponse(result *report.RunResult) RunResponse {
	resp := RunResponse{
		Run:      toRunDTO(result.Record),
		Reports:  make([]ReportDTO, len(result.Reports)),
		Failures: make([]FailureDTO, len(result.Failures)),
		Summary:  toSummaryDTOs(result.Summary),
	}
	for i, rep := range result.Reports {
		resp.Reports[i] = toReportDTO(rep)
	}
	for i, err := range result.Failures {
		f := FailureDTO{Error: err.Error()}
		var serr *generic.SupplierError
		if errors.As(err, &serr) {
			f.Supplier = string(serr.Supplier)
		}
		resp.Failures[i] = f
	}
	return resp
}

// decodeAndValidate reads a JSON body into dst. An empty body leaves dst
// zero-valued. It writes a 400 and returns false on failure.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return false
		}
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = fe.Namespace() + ": " + fe.Tag()
			}
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Details: fields})
			return false
		}
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
