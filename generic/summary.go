package generic

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SUMMARY ROW - Per-supplier aggregate across the base and allowance passes
// =============================================================================

// SummaryRow is the cross-supplier summary line for one supplier.
// The base pass fills Reported/Feria/FeriaDiff; the allowance pass fills
// Real/RealDiff/RealDiffPct on the same row.
type SummaryRow struct {
	Supplier SupplierID

	Reported  decimal.Decimal // "Descuento sistema"
	Feria     decimal.Decimal // "Descuento feria"
	FeriaDiff decimal.Decimal // "Diferencia feria $" = Feria - Reported

	Real        decimal.Decimal // "Descuento real"
	RealDiff    decimal.Decimal // "Diferencia real $" = Real - Reported
	RealDiffPct decimal.Decimal // "Diferencia real %" = RealDiff / Reported

	HasBase bool
	HasReal bool

	UpdatedAt time.Time
}

// FillMode selects which columns of a SummaryRow a pass writes.
type FillMode string

const (
	FillBase          FillMode = "base"
	FillWithAllowance FillMode = "with_allowance"
)

// Fill writes one pass worth of totals into row. Calling it again with the
// same mode overwrites the previous values for that mode.
func Fill(row *SummaryRow, supplier SupplierID, reported, computed, realTotal decimal.Decimal, mode FillMode) {
	row.Supplier = supplier
	row.UpdatedAt = time.Now().UTC()

	switch mode {
	case FillWithAllowance:
		row.Real = realTotal
		row.RealDiff = realTotal.Sub(reported)
		row.RealDiffPct = SafeRatio(row.RealDiff, reported)
		row.HasReal = true
		// The allowance pass may run before any base pass.
		if !row.HasBase {
			row.Reported = reported
		}
	default:
		row.Reported = reported
		row.Feria = computed
		row.FeriaDiff = computed.Sub(reported)
		row.HasBase = true
	}
}
