/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Supplier listing and result tables
- Base and allowance runs, request validation
- Summary filtering and the run log
*/
package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/discount-reconciler/api"
	"github.com/warp/discount-reconciler/discount"
	"github.com/warp/discount-reconciler/generic"
	"github.com/warp/discount-reconciler/logging"
	"github.com/warp/discount-reconciler/report"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func dec(s string) decimal.Decimal { return generic.MustParseDecimal(s) }

func saleLine(supplier, desc string, day int, cost string) discount.TransactionLine {
	return discount.TransactionLine{
		Supplier:      generic.SupplierID(supplier),
		Code:          generic.ProductCode("C-" + desc),
		Description:   desc,
		Date:          generic.NewDay(2023, time.March, day),
		Quantity:      dec("1"),
		NetPrice:      dec(cost),
		TotalCost:     dec(cost),
		DiscountValue: dec("100"),
		DiscountPct:   dec("0.1"),
	}
}

// testDataset: S1 has a blanket 50% rule on 1_5, five in-period lines with
// notes of 100 and out-of-period notes [300, 250, 100]; reported is 800.
// S2 has no rules. 206-MK belongs to the default joined group.
func testDataset() *discount.Dataset {
	suppliers := []discount.SupplierRecord{
		{ID: "S1", Mode: discount.TotalCost},
		{ID: "S2", Mode: discount.NetPrice},
		{ID: "206-MK", Mode: discount.TotalCost},
	}
	rules := []discount.DiscountRule{
		{Supplier: "S1", Code: generic.AllProducts, Percent: dec("0.5"), Descriptor: "1_5"},
		{Supplier: "206-MK", Code: generic.AllProducts, Percent: dec("0.1"), Descriptor: "1_5"},
	}
	var lines []discount.TransactionLine
	for _, d := range []string{"a", "b", "c", "d", "e"} {
		lines = append(lines, saleLine("S1", d, 2, "200"))
	}
	lines = append(lines,
		saleLine("S1", "f", 10, "600"),
		saleLine("S1", "g", 10, "500"),
		saleLine("S1", "h", 10, "200"),
		saleLine("S2", "x", 3, "50"),
		saleLine("206-MK", "m", 3, "100"),
	)
	return discount.NewDataset(suppliers, rules, lines, 2023, time.March)
}

func newServer(t *testing.T) http.Handler {
	t.Helper()
	opts := report.DefaultOptions()
	opts.Logger = logging.NewDiscardLogger()
	rec, err := report.New(testDataset(), opts)
	require.NoError(t, err)
	return api.NewRouter(api.NewHandler(rec, opts.Logger))
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

// =============================================================================
// SUPPLIERS
// =============================================================================

func TestListSuppliers(t *testing.T) {
	h := newServer(t)

	rr := do(t, h, http.MethodGet, "/api/suppliers", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[[]api.SupplierDTO](t, rr)
	require.Len(t, got, 3)
	assert.Equal(t, api.SupplierDTO{ID: "S1", PricingMode: string(discount.TotalCost), Eligible: true, Rules: 1, Lines: 8}, got[0])
	assert.False(t, got[1].Eligible)
	assert.Equal(t, "248-TECNOQUIMICAS", got[2].Consolidated)
}

func TestGetSupplierTables_BeforeAnyRun_NotFound(t *testing.T) {
	h := newServer(t)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/suppliers/S1/tables", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/suppliers/NOPE/tables", nil).Code)
}

func TestGetSupplierTables_AfterRun(t *testing.T) {
	// GIVEN: A completed base pass
	// WHEN: Fetching the tables of S1 and of a joined-group member
	// THEN: S1 returns both tables; the member resolves to the group report

	h := newServer(t)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/runs", nil).Code)

	rr := do(t, h, http.MethodGet, "/api/suppliers/S1/tables", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	tables := decode[api.SupplierTablesDTO](t, rr)
	assert.Equal(t, "Rotación", tables.Rotation.Kind)
	assert.Len(t, tables.Rotation.Rows, 8)
	require.NotNil(t, tables.FairPeriod)
	assert.Len(t, tables.FairPeriod.Rows, 7)
	assert.Contains(t, tables.FairPeriod.Columns, "Nota")
	assert.Len(t, tables.FairPeriod.Rows[0], len(tables.FairPeriod.Columns))

	rr = do(t, h, http.MethodGet, "/api/suppliers/206-MK/tables", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	member := decode[api.SupplierTablesDTO](t, rr)
	assert.Equal(t, "248-TECNOQUIMICAS", member.Supplier)
	assert.Equal(t, []string{"206-MK"}, member.Members)
}

// =============================================================================
// RUNS
// =============================================================================

func TestStartRun_EmptyBody_AllEligible(t *testing.T) {
	// GIVEN: Reported 800, computed 500, out-of-period notes [300, 250, 100]
	// WHEN: Posting a base run with no body
	// THEN: Both eligible suppliers are processed and S1 moves f and g

	h := newServer(t)

	rr := do(t, h, http.MethodPost, "/api/runs", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[api.RunResponse](t, rr)
	assert.Equal(t, "base", resp.Run.Mode)
	assert.Equal(t, []string{"S1", "206-MK"}, resp.Run.Suppliers)
	assert.Empty(t, resp.Failures)
	require.Len(t, resp.Reports, 2)

	s1 := resp.Reports[0].Results[0]
	assert.Equal(t, "S1", s1.Supplier)
	assert.True(t, s1.Reported.Equal(dec("800")))
	assert.True(t, s1.Computed.Equal(dec("500")))
	assert.True(t, s1.Discrepancy.Equal(dec("300")))
	assert.Equal(t, 2, s1.Moved)
	assert.True(t, s1.Real.Equal(dec("1050")))
}

func TestStartRun_UnknownSupplier_ListedAsFailure(t *testing.T) {
	h := newServer(t)

	rr := do(t, h, http.MethodPost, "/api/runs", api.RunRequest{Suppliers: []string{"NOPE", "S1"}})

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[api.RunResponse](t, rr)
	require.Len(t, resp.Failures, 1)
	assert.Equal(t, "NOPE", resp.Failures[0].Supplier)
	assert.Equal(t, []string{"NOPE"}, resp.Run.Failed)
	assert.Len(t, resp.Reports, 1)
}

func TestStartRun_BadRequests(t *testing.T) {
	h := newServer(t)

	rr := do(t, h, http.MethodPost, "/api/runs", "{not json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPost, "/api/runs", api.RunRequest{Suppliers: []string{""}})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	errResp := decode[api.ErrorResponse](t, rr)
	assert.Equal(t, "Validation failed", errResp.Error)
	assert.NotNil(t, errResp.Details)
}

func TestStartAllowanceRun(t *testing.T) {
	// GIVEN: A base pass, then an allowance of "300" for S1
	// WHEN: Posting the allowance run without a supplier list
	// THEN: Only S1 is rerun, budget is 600 and the real columns are filled

	h := newServer(t)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/runs", nil).Code)

	rr := do(t, h, http.MethodPost, "/api/runs/allowance", api.AllowanceRunRequest{
		Allowances: map[string]string{"S1": "300"},
	})

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[api.RunResponse](t, rr)
	assert.Equal(t, "with_allowance", resp.Run.Mode)
	assert.Equal(t, []string{"S1"}, resp.Run.Suppliers)
	require.Len(t, resp.Reports, 1)
	res := resp.Reports[0].Results[0]
	assert.True(t, res.Budget.Equal(dec("600")))
	assert.True(t, res.Real.Equal(dec("1150")))

	var s1 api.SummaryRowDTO
	for _, row := range resp.Summary {
		if row.Supplier == "S1" {
			s1 = row
		}
	}
	assert.True(t, s1.HasBase)
	assert.True(t, s1.HasReal)
	assert.True(t, s1.RealDiff.Equal(dec("350")))
	assert.Equal(t, "$350.00", s1.Display.RealDiff)
	assert.Equal(t, "43.75%", s1.Display.RealDiffPct)
}

func TestStartAllowanceRun_PercentAndUnparsable(t *testing.T) {
	h := newServer(t)

	rr := do(t, h, http.MethodPost, "/api/runs/allowance", api.AllowanceRunRequest{
		Suppliers:  []string{"S1", "206-MK"},
		Allowances: map[string]string{"S1": "50%", "206-MK": "lots"},
	})

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[api.RunResponse](t, rr)
	require.Len(t, resp.Reports, 2)
	assert.True(t, resp.Reports[0].Results[0].Allowance.Equal(dec("150")))
	assert.True(t, resp.Reports[1].Results[0].Allowance.IsZero())
}

func TestStartAllowanceRun_MissingAllowances(t *testing.T) {
	h := newServer(t)

	rr := do(t, h, http.MethodPost, "/api/runs/allowance", api.AllowanceRunRequest{Suppliers: []string{"S1"}})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListRuns_NewestFirstWithLimit(t *testing.T) {
	h := newServer(t)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/runs", nil).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/runs/allowance",
		api.AllowanceRunRequest{Allowances: map[string]string{"S1": "10"}}).Code)

	rr := do(t, h, http.MethodGet, "/api/runs?limit=1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	runs := decode[[]api.RunDTO](t, rr)
	require.Len(t, runs, 1)
	assert.Equal(t, "with_allowance", runs[0].Mode)
	assert.Equal(t, 3, runs[0].Month)
	assert.NotNil(t, runs[0].CompletedAt)

	rr = do(t, h, http.MethodGet, "/api/runs", nil)
	assert.Len(t, decode[[]api.RunDTO](t, rr), 2)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/runs?limit=x", nil).Code)
}

// =============================================================================
// SUMMARY
// =============================================================================

func TestGetSummary_EligibleOnlyUnlessAll(t *testing.T) {
	// GIVEN: A run that also processed the ineligible supplier S2
	// WHEN: Fetching the summary with and without ?all=true
	// THEN: S2 only appears in the unfiltered listing

	h := newServer(t)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/runs",
		api.RunRequest{Suppliers: []string{"S1", "S2"}}).Code)

	rr := do(t, h, http.MethodGet, "/api/summary", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rows := decode[[]api.SummaryRowDTO](t, rr)
	require.Len(t, rows, 1)
	assert.Equal(t, "S1", rows[0].Supplier)
	assert.Equal(t, "$800.00", rows[0].Display.Reported)
	assert.Equal(t, "-$300.00", rows[0].Display.FeriaDiff)

	rr = do(t, h, http.MethodGet, "/api/summary?all=true", nil)
	assert.Len(t, decode[[]api.SummaryRowDTO](t, rr), 2)
}
