/*
Package discount implements the per-supplier discount accounting: the
ingested data model, rule resolution, line classification and the
greedy budget reallocation.

KEY CONCEPTS IN THIS FILE (types.go):
  - TransactionLine: one sale record, immutable once ingested
  - SupplierRecord:  pricing mode + derived eligibility
  - DiscountRule:    supplier (+ product code or ALL) -> percent + period descriptor
  - Dataset:         the three loaded sources, indexed by supplier

NOTE VALUE:
  The "note" of a line is base price x applicable discount percent, where
  the base price is the net price or the total cost depending on the
  supplier's PricingMode. Percents are fractions (0.10 == 10%).

SEE ALSO:
  - classify.go:   in-period / out-of-period split
  - reallocate.go: moving out-of-period lines into the eligible set
*/
package discount

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/discount-reconciler/generic"
)

// =============================================================================
// PRICING MODE
// =============================================================================

// PricingMode selects which monetary column is the discount base.
type PricingMode string

const (
	NetPrice  PricingMode = "net_price"
	TotalCost PricingMode = "total_cost"
)

// =============================================================================
// TRANSACTION LINE
// =============================================================================

// TransactionLine is one sale record of the monthly report.
type TransactionLine struct {
	Seq int // ingestion order; breaks ties in every sort

	Supplier    generic.SupplierID
	Subgroup    string
	Code        generic.ProductCode
	Description string
	Warehouse   string
	ClientID    string
	Client      string
	DocType     string
	DocNumber   string
	Date        generic.Day

	Quantity      decimal.Decimal
	NetPrice      decimal.Decimal
	TotalCost     decimal.Decimal
	DiscountValue decimal.Decimal // reported discount per unit
	DiscountPct   decimal.Decimal // reported discount, as a fraction

	Vendor       string
	TaxID        string
	Abbreviation string
}

// Base returns the discount base for the given pricing mode.
func (l TransactionLine) Base(mode PricingMode) decimal.Decimal {
	if mode == NetPrice {
		return l.NetPrice
	}
	return l.TotalCost
}

// ReportedDiscount is the discount the promotional system paid for the line.
func (l TransactionLine) ReportedDiscount() decimal.Decimal {
	return l.DiscountValue.Mul(l.Quantity)
}

// BonusRule identifies free-goods lines, which never take part in discount accounting.
type BonusRule struct {
	Subgroup   string
	CodeSuffix string
}

var DefaultBonusRule = BonusRule{Subgroup: "Bonificados", CodeSuffix: "BOF"}

func (b BonusRule) IsBonus(l TransactionLine) bool {
	if b.Subgroup != "" && l.Subgroup == b.Subgroup {
		return true
	}
	return b.CodeSuffix != "" && strings.HasSuffix(string(l.Code), b.CodeSuffix)
}

// =============================================================================
// SUPPLIERS AND RULES
// =============================================================================

type SupplierRecord struct {
	ID       generic.SupplierID
	Mode     PricingMode
	Eligible bool // derived: at least one rule exists for the supplier
}

type DiscountRule struct {
	Supplier    generic.SupplierID
	Code        generic.ProductCode // generic.AllProducts for a blanket rule
	Description string
	Percent     decimal.Decimal // real discount, as a fraction
	Descriptor  string          // raw period descriptor, e.g. "1_5;20_25"
}

// IsBlanket reports whether the rule applies to every product.
func (r DiscountRule) IsBlanket() bool { return r.Code == generic.AllProducts }

// ResolvedRule is a DiscountRule with its eligible days materialized.
type ResolvedRule struct {
	DiscountRule
	Dates generic.DateSet
}

// =============================================================================
// DATASET
// =============================================================================

// Dataset holds the three loaded sources for one report month. It is
// read-only after NewDataset and can be reconciled any number of times.
type Dataset struct {
	Year  int
	Month time.Month

	suppliers []SupplierRecord
	byID      map[generic.SupplierID]int
	rules     map[generic.SupplierID][]DiscountRule
	lines     map[generic.SupplierID][]TransactionLine
}

// NewDataset indexes the sources by supplier. Eligibility is derived from
// the rules, and lines of suppliers missing from the master are dropped.
func NewDataset(suppliers []SupplierRecord, rules []DiscountRule, lines []TransactionLine, year int, month time.Month) *Dataset {
	ds := &Dataset{
		Year:      year,
		Month:     month,
		suppliers: make([]SupplierRecord, 0, len(suppliers)),
		byID:      make(map[generic.SupplierID]int, len(suppliers)),
		rules:     make(map[generic.SupplierID][]DiscountRule),
		lines:     make(map[generic.SupplierID][]TransactionLine),
	}

	for _, r := range rules {
		ds.rules[r.Supplier] = append(ds.rules[r.Supplier], r)
	}
	for _, s := range suppliers {
		if _, dup := ds.byID[s.ID]; dup {
			continue
		}
		s.Eligible = len(ds.rules[s.ID]) > 0
		ds.byID[s.ID] = len(ds.suppliers)
		ds.suppliers = append(ds.suppliers, s)
	}
	for i, l := range lines {
		if _, ok := ds.byID[l.Supplier]; !ok {
			continue
		}
		if l.Seq == 0 {
			l.Seq = i + 1
		}
		ds.lines[l.Supplier] = append(ds.lines[l.Supplier], l)
	}
	return ds
}

// Suppliers returns the master table in load order.
func (ds *Dataset) Suppliers() []SupplierRecord {
	out := make([]SupplierRecord, len(ds.suppliers))
	copy(out, ds.suppliers)
	return out
}

func (ds *Dataset) Supplier(id generic.SupplierID) (SupplierRecord, bool) {
	i, ok := ds.byID[id]
	if !ok {
		return SupplierRecord{}, false
	}
	return ds.suppliers[i], true
}

func (ds *Dataset) RulesFor(id generic.SupplierID) []DiscountRule { return ds.rules[id] }

func (ds *Dataset) LinesFor(id generic.SupplierID) []TransactionLine { return ds.lines[id] }

// Eligibility maps every supplier id to whether any rule exists for it.
func (ds *Dataset) Eligibility() map[generic.SupplierID]bool {
	out := make(map[generic.SupplierID]bool, len(ds.suppliers))
	for _, s := range ds.suppliers {
		out[s.ID] = s.Eligible
	}
	return out
}

// EligibleSuppliers returns the ids with at least one rule, in load order.
func (ds *Dataset) EligibleSuppliers() []generic.SupplierID {
	var out []generic.SupplierID
	for _, s := range ds.suppliers {
		if s.Eligible {
			out = append(out, s.ID)
		}
	}
	return out
}
