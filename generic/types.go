/*
Package generic provides the domain-agnostic core of the discount reconciler.

PURPOSE:
  Calendar days, promotional periods and their resolver, money helpers,
  the error taxonomy, the per-supplier summary row and the persistence
  interfaces. Nothing here knows how a transaction line looks; that lives
  in the discount and report packages.

KEY CONCEPTS IN THIS FILE (types.go):
  - SupplierID / ProductCode: type-safe identifiers
  - Money helpers on decimal.Decimal (no floating point in totals)

DESIGN PRINCIPLES:
  1. Precision: every monetary value and percent is a decimal.Decimal
  2. Determinism: sets are ordered, sorts are stable
  3. Type Safety: supplier ids and product codes cannot be mixed up

SEE ALSO:
  - period.go: ResolvePeriod and DateSet
  - summary.go: SummaryRow and Fill
  - store.go: SummaryStore and RunStore
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type SupplierID string
type ProductCode string

// AllProducts is the sentinel product code of a blanket rule.
const AllProducts ProductCode = "ALL"

// =============================================================================
// MONEY HELPERS
// =============================================================================

// Hundred is used to convert between fractions and percentages.
var Hundred = decimal.NewFromInt(100)

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Sum adds all values; an empty input sums to zero.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// SafeRatio returns num/den, or zero when den is zero.
func SafeRatio(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den)
}
