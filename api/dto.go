/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the reconciliation engine's types from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Suppliers:
    SupplierDTO

  Runs:
    RunRequest, AllowanceRunRequest, RunResponse, RunDTO, ReportDTO, ResultDTO

  Summary:
    SummaryRowDTO, SummaryDisplayDTO

  Tables:
    TableDTO, SupplierTablesDTO

VALIDATION:
  Request types carry validator/v10 struct tags, checked by decodeAndValidate
  in handlers.go.

SEE ALSO:
  - handlers.go: Uses these types
  - export/format.go: Display strings
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/discount-reconciler/export"
	"github.com/warp/discount-reconciler/generic"
	"github.com/warp/discount-reconciler/report"
)

// =============================================================================
// SUPPLIERS
// =============================================================================

// SupplierDTO represents one supplier of the master table.
type SupplierDTO struct {
	ID           string `json:"id"`
	PricingMode  string `json:"pricing_mode"`
	Eligible     bool   `json:"eligible"`
	Rules        int    `json:"rules"`
	Lines        int    `json:"lines"`
	Consolidated string `json:"consolidated,omitempty"`
}

// =============================================================================
// RUNS
// =============================================================================

// RunRequest starts a base pass.
type RunRequest struct {
	Suppliers      []string `json:"suppliers" validate:"omitempty,dive,required"`
	IncludeReports bool     `json:"include_reports"`
}

// AllowanceRunRequest starts an allowance pass. Allowances are the texts a
// user types: "50%" or "300".
type AllowanceRunRequest struct {
	Suppliers  []string          `json:"suppliers" validate:"omitempty,dive,required"`
	Allowances map[string]string `json:"allowances" validate:"required,min=1,dive,keys,required,endkeys,required"`
}

// RunDTO represents one entry of the run log.
type RunDTO struct {
	ID          string     `json:"id"`
	Mode        string     `json:"mode"`
	Year        int        `json:"year"`
	Month       int        `json:"month"`
	Suppliers   []string   `json:"suppliers"`
	Failed      []string   `json:"failed"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ResultDTO carries one supplier's figures.
type ResultDTO struct {
	Supplier    string          `json:"supplier"`
	PricingMode string          `json:"pricing_mode"`
	Blanket     bool            `json:"blanket"`
	InPeriod    int             `json:"in_period_lines"`
	OutOfPeriod int             `json:"out_of_period_lines"`
	Moved       int             `json:"moved_lines"`
	Reported    decimal.Decimal `json:"reported"`
	Computed    decimal.Decimal `json:"computed"`
	Real        decimal.Decimal `json:"real"`
	Discrepancy decimal.Decimal `json:"discrepancy"`
	Allowance   decimal.Decimal `json:"allowance"`
	Budget      decimal.Decimal `json:"budget"`
}

// ReportDTO is an emitted report (a supplier or a joined group).
type ReportDTO struct {
	Supplier          string      `json:"supplier"`
	Members           []string    `json:"members,omitempty"`
	Eligible          bool        `json:"eligible"`
	IncludeFairPeriod bool        `json:"include_fair_period"`
	Results           []ResultDTO `json:"results"`
}

// FailureDTO is a supplier-scoped failure of a run.
type FailureDTO struct {
	Supplier string `json:"supplier,omitempty"`
	Error    string `json:"error"`
}

// RunResponse is returned by both run endpoints.
type RunResponse struct {
	Run      RunDTO          `json:"run"`
	Reports  []ReportDTO     `json:"reports"`
	Failures []FailureDTO    `json:"failures"`
	Summary  []SummaryRowDTO `json:"summary"`
}

// =============================================================================
// SUMMARY
// =============================================================================

// SummaryRowDTO is one row of the cross-supplier summary.
type SummaryRowDTO struct {
	Supplier    string            `json:"supplier"`
	Reported    decimal.Decimal   `json:"reported"`
	Feria       decimal.Decimal   `json:"feria"`
	FeriaDiff   decimal.Decimal   `json:"feria_diff"`
	Real        decimal.Decimal   `json:"real"`
	RealDiff    decimal.Decimal   `json:"real_diff"`
	RealDiffPct decimal.Decimal   `json:"real_diff_pct"`
	HasBase     bool              `json:"has_base"`
	HasReal     bool              `json:"has_real"`
	Display     SummaryDisplayDTO `json:"display"`
}

// SummaryDisplayDTO holds the formatted strings the workbook shows.
type SummaryDisplayDTO struct {
	Reported    string `json:"reported"`
	Feria       string `json:"feria"`
	FeriaDiff   string `json:"feria_diff"`
	Real        string `json:"real"`
	RealDiff    string `json:"real_diff"`
	RealDiffPct string `json:"real_diff_pct"`
}

// =============================================================================
// TABLES
// =============================================================================

// TableDTO is a line-level table as rows of cells.
type TableDTO struct {
	Kind    string   `json:"kind"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// SupplierTablesDTO is the last report emitted for a supplier.
type SupplierTablesDTO struct {
	Supplier   string    `json:"supplier"`
	Members    []string  `json:"members,omitempty"`
	Rotation   TableDTO  `json:"rotation"`
	FairPeriod *TableDTO `json:"fair_period,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toRunDTO(r generic.RunRecord) RunDTO {
	dto := RunDTO{
		ID:        r.ID,
		Mode:      string(r.Mode),
		Year:      r.Year,
		Month:     int(r.Month),
		Suppliers: supplierStrings(r.Suppliers),
		Failed:    supplierStrings(r.Failed),
		StartedAt: r.StartedAt,
	}
	if !r.CompletedAt.IsZero() {
		c := r.CompletedAt
		dto.CompletedAt = &c
	}
	return dto
}

func toReportDTO(rep report.SupplierReport) ReportDTO {
	dto := ReportDTO{
		Supplier:          string(rep.Supplier),
		Members:           supplierStrings(rep.Members),
		Eligible:          rep.Eligible,
		IncludeFairPeriod: rep.IncludeFairPeriod,
		Results:           make([]ResultDTO, len(rep.Results)),
	}
	if len(rep.Members) == 0 {
		dto.Members = nil
	}
	for i, res := range rep.Results {
		dto.Results[i] = ResultDTO{
			Supplier:    string(res.Supplier),
			PricingMode: string(res.Mode),
			Blanket:     res.Blanket,
			InPeriod:    len(res.InPeriod),
			OutOfPeriod: len(res.OutOfPeriod),
			Moved:       len(res.Moved),
			Reported:    res.Reported,
			Computed:    res.Computed,
			Real:        res.Real,
			Discrepancy: res.Discrepancy,
			Allowance:   res.Allowance,
			Budget:      res.Budget,
		}
	}
	return dto
}

func toSummaryRowDTO(row generic.SummaryRow) SummaryRowDTO {
	return SummaryRowDTO{
		Supplier:    string(row.Supplier),
		Reported:    row.Reported,
		Feria:       row.Feria,
		FeriaDiff:   row.FeriaDiff,
		Real:        row.Real,
		RealDiff:    row.RealDiff,
		RealDiffPct: row.RealDiffPct,
		HasBase:     row.HasBase,
		HasReal:     row.HasReal,
		Display: SummaryDisplayDTO{
			Reported:    export.FormatCurrency(row.Reported),
			Feria:       export.FormatCurrency(row.Feria),
			FeriaDiff:   export.FormatCurrency(row.FeriaDiff),
			Real:        export.FormatCurrency(row.Real),
			RealDiff:    export.FormatCurrency(row.RealDiff),
			RealDiffPct: export.FormatPercent(row.RealDiffPct),
		},
	}
}

func toSummaryDTOs(rows []generic.SummaryRow) []SummaryRowDTO {
	out := make([]SummaryRowDTO, len(rows))
	for i, row := range rows {
		out[i] = toSummaryRowDTO(row)
	}
	return out
}

func toTableDTO(t report.Table) TableDTO {
	cols := t.Columns()
	dto := TableDTO{
		Kind:    string(t.Kind),
		Columns: make([]string, len(cols)),
		Rows:    make([][]any, len(t.Lines)),
	}
	for i, c := range cols {
		dto.Columns[i] = c.Name
	}
	for i := range t.Lines {
		dto.Rows[i] = t.Row(i)
	}
	return dto
}

func supplierStrings(ids []generic.SupplierID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func supplierIDs(ids []string) []generic.SupplierID {
	out := make([]generic.SupplierID, len(ids))
	for i, id := range ids {
		out[i] = generic.SupplierID(id)
	}
	return out
}
