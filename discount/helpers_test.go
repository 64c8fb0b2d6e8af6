package discount_test

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/discount-reconciler/discount"
	"github.com/warp/discount-reconciler/generic"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func dec(s string) decimal.Decimal { return generic.MustParseDecimal(s) }

func march(day int) generic.Day { return generic.NewDay(2023, time.March, day) }

// line builds a TotalCost line whose base is cost.
func line(seq int, code string, day int, cost string) discount.TransactionLine {
	return discount.TransactionLine{
		Seq:         seq,
		Supplier:    "S1",
		Subgroup:    "General",
		Code:        generic.ProductCode(code),
		Description: "Product " + code,
		Date:        march(day),
		Quantity:    dec("1"),
		NetPrice:    dec(cost),
		TotalCost:   dec(cost),
	}
}

func rule(code, pct, descriptor string) discount.DiscountRule {
	return discount.DiscountRule{
		Supplier:   "S1",
		Code:       generic.ProductCode(code),
		Percent:    dec(pct),
		Descriptor: descriptor,
	}
}

func resolve(rules ...discount.DiscountRule) []discount.ResolvedRule {
	resolved, err := discount.ResolveRules(rules, 2023, time.March)
	if err != nil {
		panic(err)
	}
	return resolved
}

// outOfPeriod builds note-descending lines with Percent 1 so note == base.
func outOfPeriod(notes ...string) []discount.PricedLine {
	out := make([]discount.PricedLine, len(notes))
	for i, n := range notes {
		l := line(i+1, "P", 10, n)
		out[i] = discount.PricedLine{TransactionLine: l, Percent: dec("1"), Base: dec(n), Note: dec(n)}
	}
	return out
}

func seqs(lines []discount.PricedLine) []int {
	out := make([]int, len(lines))
	for i, p := range lines {
		out[i] = p.Seq
	}
	return out
}
