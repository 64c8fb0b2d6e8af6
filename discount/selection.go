package discount

import "github.com/shopspring/decimal"

// SelectionPolicy decides which out-of-period lines are moved into the
// eligible set, given the running cumulative sum of their notes (already
// sorted note-descending) and the budget. It returns ascending indexes.
type SelectionPolicy interface {
	Name() string
	Select(cumulative []decimal.Decimal, budget decimal.Decimal) []int
}

const (
	SelectionOvershootOne = "overshoot_one"
	SelectionStrict       = "strict"
)

// lastWithin returns the largest index whose cumulative sum is <= budget,
// or -1 when there is none.
func lastWithin(cumulative []decimal.Decimal, budget decimal.Decimal) int {
	k := -1
	for i, c := range cumulative {
		if c.LessThanOrEqual(budget) {
			k = i
		}
	}
	return k
}

func within(cumulative []decimal.Decimal, budget decimal.Decimal) []int {
	var idx []int
	for i, c := range cumulative {
		if c.LessThanOrEqual(budget) {
			idx = append(idx, i)
		}
	}
	return idx
}

func prefix(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// OvershootOne moves lines 0..k+1, one line past the budget crossing. When
// k is already the last line there is nothing to overshoot into, so only
// the lines whose cumulative sum fits the budget are moved.
type OvershootOne struct{}

func (OvershootOne) Name() string { return SelectionOvershootOne }

func (OvershootOne) Select(cumulative []decimal.Decimal, budget decimal.Decimal) []int {
	k := lastWithin(cumulative, budget)
	if k < 0 {
		return nil
	}
	if k+2 > len(cumulative) {
		return within(cumulative, budget)
	}
	return prefix(k + 2)
}

// StrictThreshold moves lines 0..k only, so the moved notes never exceed
// the budget.
type StrictThreshold struct{}

func (StrictThreshold) Name() string { return SelectionStrict }

func (StrictThreshold) Select(cumulative []decimal.Decimal, budget decimal.Decimal) []int {
	k := lastWithin(cumulative, budget)
	if k < 0 {
		return nil
	}
	return prefix(k + 1)
}
