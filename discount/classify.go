/*
classify.go - Line classification against a supplier's resolved rules

PURPOSE:
  Prices every line of a supplier (percent + note) and splits the priced
  lines into the in-period set and the out-of-period set.

POLICY:
  No rule at all (ineligible supplier):
    every line keeps its reported percent and is in period; there is no
    out-of-period set, so reallocation cannot happen.

  Blanket (first rule carries the ALL product code):
    every line gets that rule's percent and date set.

  Per product:
    each line takes the rule with its product code. Unmatched lines get
    percent 0 and borrow a date set chosen by the FallbackPolicy, for
    eligibility only.

  Free goods (BonusRule) are dropped from both sets of eligible suppliers.

ORDERING:
  All is sorted by date; OutOfPeriod by note, descending. Both sorts are
  stable on ingestion order.
*/
package discount

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/discount-reconciler/generic"
)

// PricedLine is a TransactionLine with the discount that applies to it.
type PricedLine struct {
	TransactionLine

	Percent decimal.Decimal // applicable discount percent
	Base    decimal.Decimal // base price under the supplier's pricing mode
	Note    decimal.Decimal // Base x Percent
	Dates   generic.DateSet // eligible days of the applicable rule
	Matched bool            // false when no rule matched the product code
}

// InPeriod reports whether the line's date is an eligible day.
func (p PricedLine) InPeriod() bool { return p.Dates.Contains(p.Date) }

// ClassifyInput is everything the classifier needs for one supplier.
type ClassifyInput struct {
	Lines    []TransactionLine
	Rules    []ResolvedRule
	Eligible bool
	Mode     PricingMode
}

// Classification is the outcome for one supplier.
type Classification struct {
	All         []PricedLine // every line, priced, date-sorted
	InPeriod    []PricedLine
	OutOfPeriod []PricedLine // note-descending
	Blanket     bool
}

// Classifier splits lines into in-period and out-of-period sets.
type Classifier struct {
	Fallback FallbackPolicy
	Bonus    BonusRule
}

// NewClassifier returns a classifier with the deterministic fallback and
// the default bonus markers.
func NewClassifier() *Classifier {
	return &Classifier{Fallback: FirstMatchFallback{}, Bonus: DefaultBonusRule}
}

// Classify prices and partitions the lines of one supplier.
func (c *Classifier) Classify(in ClassifyInput) Classification {
	if !in.Eligible || len(in.Rules) == 0 {
		all := priceOwn(in.Lines, in.Mode)
		sortByDate(all)
		inPeriod := make([]PricedLine, len(all))
		copy(inPeriod, all)
		return Classification{All: all, InPeriod: inPeriod}
	}

	var all []PricedLine
	blanket := in.Rules[0].IsBlanket()
	if blanket {
		all = priceBlanket(in.Lines, in.Rules[0], in.Mode)
	} else {
		all = c.pricePerProduct(in.Lines, in.Rules, in.Mode)
	}
	sortByDate(all)

	out := Classification{All: all, Blanket: blanket}
	for _, p := range all {
		if c.Bonus.IsBonus(p.TransactionLine) {
			continue
		}
		if p.InPeriod() {
			out.InPeriod = append(out.InPeriod, p)
		} else {
			out.OutOfPeriod = append(out.OutOfPeriod, p)
		}
	}
	SortByNoteDesc(out.OutOfPeriod)
	return out
}

// =============================================================================
// PRICING
// =============================================================================

func price(l TransactionLine, pct decimal.Decimal, dates generic.DateSet, mode PricingMode, matched bool) PricedLine {
	base := l.Base(mode)
	return PricedLine{
		TransactionLine: l,
		Percent:         pct,
		Base:            base,
		Note:            base.Mul(pct),
		Dates:           dates,
		Matched:         matched,
	}
}

func priceOwn(lines []TransactionLine, mode PricingMode) []PricedLine {
	out := make([]PricedLine, len(lines))
	for i, l := range lines {
		out[i] = price(l, l.DiscountPct, generic.DateSet{}, mode, false)
	}
	return out
}

func priceBlanket(lines []TransactionLine, rule ResolvedRule, mode PricingMode) []PricedLine {
	out := make([]PricedLine, len(lines))
	for i, l := range lines {
		out[i] = price(l, rule.Percent, rule.Dates, mode, true)
	}
	return out
}

func (c *Classifier) pricePerProduct(lines []TransactionLine, rules []ResolvedRule, mode PricingMode) []PricedLine {
	byCode := make(map[generic.ProductCode]ResolvedRule, len(rules))
	for _, r := range rules {
		if _, seen := byCode[r.Code]; !seen {
			byCode[r.Code] = r
		}
	}

	// Candidates for the fallback are the rules that matched at least one line.
	var candidates []ResolvedRule
	used := make(map[generic.ProductCode]bool)
	for _, l := range lines {
		if r, ok := byCode[l.Code]; ok && !used[r.Code] {
			used[r.Code] = true
			candidates = append(candidates, r)
		}
	}

	fallback := c.Fallback
	if fallback == nil {
		fallback = NoFallback{}
	}

	out := make([]PricedLine, len(lines))
	for i, l := range lines {
		if r, ok := byCode[l.Code]; ok {
			out[i] = price(l, r.Percent, r.Dates, mode, true)
			continue
		}
		dates, _ := fallback.Select(l.Code, candidates)
		out[i] = price(l, decimal.Zero, dates, mode, false)
	}
	return out
}

// =============================================================================
// SORTING
// =============================================================================

func sortByDate(lines []PricedLine) {
	sort.SliceStable(lines, func(i, j int) bool {
		if !lines[i].Date.Equal(lines[j].Date) {
			return lines[i].Date.Before(lines[j].Date)
		}
		return lines[i].Seq < lines[j].Seq
	})
}

// SortByNoteDesc orders lines by note, highest first; ties keep their
// relative order.
func SortByNoteDesc(lines []PricedLine) {
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Note.GreaterThan(lines[j].Note)
	})
}

// TotalNotes sums the notes of the lines.
func TotalNotes(lines []PricedLine) decimal.Decimal {
	total := decimal.Zero
	for _, p := range lines {
		total = total.Add(p.Note)
	}
	return total
}

// TotalReported sums reported discount value x quantity.
func TotalReported(lines []TransactionLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.ReportedDiscount())
	}
	return total
}
