package discount_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/discount-reconciler/discount"
	"github.com/warp/discount-reconciler/generic"
	"github.com/warp/discount-reconciler/logging"
)

func newReallocator(sel discount.SelectionPolicy) *discount.Reallocator {
	return &discount.Reallocator{Selection: sel, Logger: logging.NewDiscardLogger()}
}

// =============================================================================
// GREEDY REALLOCATION
// =============================================================================

func TestReallocate_OvershootOne_MovesOnePastBudget(t *testing.T) {
	// GIVEN: Discrepancy 500, out-of-period notes [300, 250, 100]
	// WHEN: Reallocating with the overshoot-one policy
	// THEN: The first two lines move (cumulative 550)

	r := newReallocator(discount.OvershootOne{})
	result := r.Reallocate(discount.ReallocationInput{
		Supplier:    "S1",
		InPeriod:    nil,
		OutOfPeriod: outOfPeriod("300", "250", "100"),
		Reported:    dec("1500"),
		Computed:    dec("1000"),
	})

	assert.True(t, result.Discrepancy.Equal(dec("500")))
	assert.True(t, result.Budget.Equal(dec("500")))
	assert.Equal(t, []int{1, 2}, seqs(result.Moved))
	assert.True(t, discount.TotalNotes(result.Final).Equal(dec("550")))
}

func TestReallocate_StrictThreshold_NeverExceedsBudget(t *testing.T) {
	// GIVEN: The same scenario
	// WHEN: Reallocating with the strict policy
	// THEN: Only the first line moves and the moved total fits the budget

	r := newReallocator(discount.StrictThreshold{})
	result := r.Reallocate(discount.ReallocationInput{
		Supplier:    "S1",
		OutOfPeriod: outOfPeriod("300", "250", "100"),
		Reported:    dec("1500"),
		Computed:    dec("1000"),
	})

	assert.Equal(t, []int{1}, seqs(result.Moved))
	assert.True(t, discount.TotalNotes(result.Moved).LessThanOrEqual(result.Budget))
}

func TestReallocate_StrictThreshold_BudgetPropertyHolds(t *testing.T) {
	cases := [][]string{
		{"300", "250", "100"},
		{"600"},
		{"100", "100", "100", "100", "100", "100"},
		{"499", "1", "1"},
	}
	for _, notes := range cases {
		result := newReallocator(discount.StrictThreshold{}).Reallocate(discount.ReallocationInput{
			OutOfPeriod: outOfPeriod(notes...),
			Reported:    dec("500"),
			Computed:    decimal.Zero,
		})
		assert.True(t, discount.TotalNotes(result.Moved).LessThanOrEqual(dec("500")), "notes %v", notes)
	}
}

func TestReallocate_OvershootOne_NearListEnd_OnlyWithinBudget(t *testing.T) {
	// GIVEN: cumulative [100, 200, 300] and budget 250
	// WHEN: k = 1 and k+2 == len, so the overshoot index would be valid
	// THEN: lines 0..2 move
	result := newReallocator(discount.OvershootOne{}).Reallocate(discount.ReallocationInput{
		OutOfPeriod: outOfPeriod("100", "100", "100"),
		Reported:    dec("250"),
	})
	assert.Equal(t, []int{1, 2, 3}, seqs(result.Moved))

	// GIVEN: budget covering every line, k is the last index
	// THEN: only the lines within budget move
	result = newReallocator(discount.OvershootOne{}).Reallocate(discount.ReallocationInput{
		OutOfPeriod: outOfPeriod("100", "100", "100"),
		Reported:    dec("1000"),
	})
	assert.Equal(t, []int{1, 2, 3}, seqs(result.Moved))
}

func TestReallocate_FirstLineAboveBudget_NothingMoves(t *testing.T) {
	result := newReallocator(discount.OvershootOne{}).Reallocate(discount.ReallocationInput{
		OutOfPeriod: outOfPeriod("900", "10"),
		Reported:    dec("100"),
	})

	assert.Empty(t, result.Moved)
	assert.Empty(t, result.Final)
}

func TestReallocate_NonPositiveDiscrepancy_Unchanged(t *testing.T) {
	// GIVEN: Computed already covers reported
	// THEN: The in-period set comes back unchanged and nothing moves

	in := outOfPeriod("50")
	result := newReallocator(discount.OvershootOne{}).Reallocate(discount.ReallocationInput{
		InPeriod:    in,
		OutOfPeriod: outOfPeriod("300", "250"),
		Reported:    dec("100"),
		Computed:    dec("100"),
		Allowance:   discount.NewAllowance(dec("1000")),
	})

	assert.Equal(t, in, result.Final)
	assert.Empty(t, result.Moved)
	assert.True(t, result.Budget.IsZero())
}

func TestReallocate_NegativePercentLines_Skipped(t *testing.T) {
	lines := outOfPeriod("300", "250", "100")
	lines[1].Percent = dec("-0.1")

	result := newReallocator(discount.OvershootOne{}).Reallocate(discount.ReallocationInput{
		OutOfPeriod: lines,
		Reported:    dec("500"),
	})

	assert.Equal(t, []int{1}, seqs(result.Moved))
}

func TestReallocate_AppendsMovedAfterInPeriod(t *testing.T) {
	in := []discount.PricedLine{{TransactionLine: line(99, "IN", 1, "10"), Note: dec("10")}}

	result := newReallocator(discount.OvershootOne{}).Reallocate(discount.ReallocationInput{
		InPeriod:    in,
		OutOfPeriod: outOfPeriod("300", "250", "100"),
		Reported:    dec("510"),
		Computed:    dec("10"),
	})

	assert.Equal(t, []int{99, 1, 2}, seqs(result.Final))
}

// =============================================================================
// ALLOWANCE
// =============================================================================

func TestReallocate_FractionAllowance_ExtendsBudget(t *testing.T) {
	// GIVEN: Base discrepancy 200 and an allowance of 0.5
	// THEN: Effective budget is 200 + 100 = 300

	result := newReallocator(discount.OvershootOne{}).Reallocate(discount.ReallocationInput{
		Reported:  dec("1200"),
		Computed:  dec("1000"),
		Allowance: discount.NewAllowance(dec("0.5")),
	})

	assert.True(t, result.Allowance.Equal(dec("100")))
	assert.True(t, result.Budget.Equal(dec("300")))
}

func TestResolveAllowance(t *testing.T) {
	discrepancy := dec("200")
	cases := []struct {
		name  string
		value discount.Allowance
		want  string
	}{
		{"unset", discount.NoAllowance(), "0"},
		{"zero", discount.NewAllowance(dec("0")), "0"},
		{"fraction", discount.NewAllowance(dec("0.25")), "50"},
		{"one is a fraction", discount.NewAllowance(dec("1")), "200"},
		{"absolute", discount.NewAllowance(dec("300")), "300"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := discount.ResolveAllowance(discrepancy, tc.value)
			require.NoError(t, err)
			assert.True(t, got.Equal(dec(tc.want)), "got %s", got)
		})
	}
}

func TestResolveAllowance_Negative_ZeroWithError(t *testing.T) {
	got, err := discount.ResolveAllowance(dec("200"), discount.NewAllowance(dec("-5")))

	assert.ErrorIs(t, err, generic.ErrNegativeAllowance)
	assert.True(t, got.IsZero())
}

func TestParseAllowance(t *testing.T) {
	cases := map[string]string{
		"50%":        "0.5",
		" 12.5 % ":   "0.125",
		"300":        "300",
		"$1,200.50":  "1200.5",
		"":           "0",
		"0.3":        "0.3",
	}
	for in, want := range cases {
		got, err := discount.ParseAllowance(in)
		require.NoError(t, err, in)
		assert.True(t, got.Equal(dec(want)), "%q -> %s", in, got)
	}

	_, err := discount.ParseAllowance("abc")
	assert.Error(t, err)
}

func TestAllowances_For(t *testing.T) {
	a := discount.Allowances{"S1": dec("0.5")}

	assert.True(t, a.For("S1").Set)
	assert.False(t, a.For("S2").Set)

	var empty discount.Allowances
	assert.False(t, empty.For("S1").Set)
}

func TestAllowances_SuppliersSorted(t *testing.T) {
	a := discount.Allowances{"S2": dec("300"), "S1": dec("0.5")}

	assert.Equal(t, []generic.SupplierID{"S1", "S2"}, a.Suppliers())
	assert.Empty(t, discount.Allowances{}.Suppliers())
}
