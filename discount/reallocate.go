/*
reallocate.go - Greedy budget reallocation

PURPOSE:
  When the discount the promotional system reports exceeds what the
  in-period rules account for, the surplus is explained by moving the
  highest-value out-of-period lines into the eligible set, up to the
  surplus plus any manual allowance.

ALGORITHM:
  1. discrepancy = reported - computed; <= 0 means nothing moves
  2. budget = discrepancy + ResolveAllowance(discrepancy, allowance)
  3. cumulative sums over the note-descending out-of-period lines
  4. SelectionPolicy picks the indexes to move
  5. selected lines with a negative percent are dropped
  6. the rest is appended to the in-period set

EXAMPLE (OvershootOne):
  notes [300, 250, 100], budget 500 -> cumulative [300, 550, 650]
  k = 0, so lines 0 and 1 move (550 total).
*/
package discount

import (
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warp/discount-reconciler/generic"
	"github.com/warp/discount-reconciler/logging"
)

// ReallocationInput carries one supplier's partition and totals.
type ReallocationInput struct {
	Supplier    generic.SupplierID
	InPeriod    []PricedLine
	OutOfPeriod []PricedLine // note-descending
	Reported    decimal.Decimal
	Computed    decimal.Decimal
	Allowance   Allowance
}

// Reallocation is the outcome for one supplier.
type Reallocation struct {
	Final       []PricedLine // InPeriod followed by Moved
	Moved       []PricedLine
	Discrepancy decimal.Decimal
	Allowance   decimal.Decimal // resolved currency amount
	Budget      decimal.Decimal
}

// Reallocator runs the greedy selection with a pluggable SelectionPolicy.
type Reallocator struct {
	Selection SelectionPolicy
	Logger    *logrus.Logger
}

func NewReallocator() *Reallocator {
	return &Reallocator{Selection: OvershootOne{}, Logger: logging.GetLogger()}
}

// Reallocate moves out-of-period lines into the in-period set. With a
// non-positive discrepancy the in-period set is returned unchanged.
func (r *Reallocator) Reallocate(in ReallocationInput) Reallocation {
	discrepancy := in.Reported.Sub(in.Computed)
	result := Reallocation{Final: in.InPeriod, Discrepancy: discrepancy}
	if !discrepancy.IsPositive() {
		return result
	}

	extra, err := ResolveAllowance(discrepancy, in.Allowance)
	if err != nil {
		logging.LogError(r.logger(), "discount", "Reallocate", "resolve allowance", in.Supplier, err)
	}
	result.Allowance = extra
	result.Budget = discrepancy.Add(extra)
	if len(in.OutOfPeriod) == 0 {
		return result
	}

	cumulative := make([]decimal.Decimal, len(in.OutOfPeriod))
	running := decimal.Zero
	for i, p := range in.OutOfPeriod {
		running = running.Add(p.Note)
		cumulative[i] = running
	}

	selection := r.Selection
	if selection == nil {
		selection = OvershootOne{}
	}
	for _, i := range selection.Select(cumulative, result.Budget) {
		if in.OutOfPeriod[i].Percent.IsNegative() {
			continue
		}
		result.Moved = append(result.Moved, in.OutOfPeriod[i])
	}
	if len(result.Moved) == 0 {
		return result
	}

	final := make([]PricedLine, 0, len(in.InPeriod)+len(result.Moved))
	final = append(final, in.InPeriod...)
	final = append(final, result.Moved...)
	result.Final = final
	return result
}

func (r *Reallocator) logger() *logrus.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return logging.GetLogger()
}
