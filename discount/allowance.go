package discount

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/discount-reconciler/generic"
)

// Allowance is the optional manual extra budget ("aprovechamiento") of one
// supplier. Values in (0,1] are fractions of the base discrepancy, values
// above 1 are absolute currency amounts.
type Allowance struct {
	Value decimal.Decimal
	Set   bool
}

func NoAllowance() Allowance { return Allowance{} }

func NewAllowance(v decimal.Decimal) Allowance { return Allowance{Value: v, Set: true} }

// Allowances maps supplier ids to their manual allowance value.
type Allowances map[generic.SupplierID]decimal.Decimal

// For returns the allowance of a supplier, unset when absent.
func (a Allowances) For(id generic.SupplierID) Allowance {
	v, ok := a[id]
	if !ok {
		return NoAllowance()
	}
	return NewAllowance(v)
}

// Suppliers returns the ids carrying an allowance, sorted.
func (a Allowances) Suppliers() []generic.SupplierID {
	ids := make([]generic.SupplierID, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ResolveAllowance converts an allowance into a currency amount for the
// given discrepancy. A negative value resolves to 0 and returns
// ErrNegativeAllowance so the caller can log it.
func ResolveAllowance(discrepancy decimal.Decimal, a Allowance) (decimal.Decimal, error) {
	if !a.Set || a.Value.IsZero() {
		return decimal.Zero, nil
	}
	if a.Value.IsNegative() {
		return decimal.Zero, fmt.Errorf("allowance %s: %w", a.Value, generic.ErrNegativeAllowance)
	}
	if a.Value.GreaterThan(decimal.NewFromInt(1)) {
		return a.Value, nil
	}
	return discrepancy.Mul(a.Value), nil
}

// ParseAllowance reads the text a user types for an allowance: "50%" is a
// fraction (0.5), "300" or "$1,200.50" an absolute amount. Unparsable text
// yields 0 together with the parse error.
func ParseAllowance(text string) (decimal.Decimal, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return decimal.Zero, nil
	}

	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse allowance %q: %w", text, err)
	}
	if percent {
		v = v.Div(generic.Hundred)
	}
	return v, nil
}
