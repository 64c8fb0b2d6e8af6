package ingest

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"github.com/warp/discount-reconciler/generic"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// spanishMonths maps the abbreviations the sales system prints in dates.
var spanishMonths = map[string]time.Month{
	"ene.": time.January,
	"feb.": time.February,
	"mar.": time.March,
	"abr.": time.April,
	"may.": time.May,
	"jun.": time.June,
	"jul.": time.July,
	"ago.": time.August,
	"sep.": time.September,
	"oct.": time.October,
	"nov.": time.November,
	"dic.": time.December,
}

// ParseCurrency reads a report amount: "$1,234.50", "(300)" for -300,
// and "" for 0.
func ParseCurrency(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}

	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	if neg {
		v = v.Neg()
	}
	return v, nil
}

// ParseReportDate reads "05-mar.-2023" (optionally followed by a time) and
// falls back to the canonical "05/03/2023".
func ParseReportDate(s string) (generic.Day, error) {
	s = strings.TrimSpace(s)
	if fields := strings.Fields(s); len(fields) > 0 {
		s = fields[0]
	}
	if day, err := generic.ParseDay(s); err == nil {
		return day, nil
	}

	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return generic.Day{}, fmt.Errorf("invalid date %q", s)
	}
	month, ok := spanishMonths[strings.ToLower(parts[1])]
	if !ok {
		return generic.Day{}, fmt.Errorf("invalid month %q in date %q", parts[1], s)
	}
	var d, y int
	if _, err := fmt.Sscanf(parts[0]+" "+parts[2], "%d %d", &d, &y); err != nil {
		return generic.Day{}, fmt.Errorf("invalid date %q", s)
	}
	if d < 1 || d > generic.DaysIn(y, month) {
		return generic.Day{}, fmt.Errorf("day %d out of range in %q", d, s)
	}
	return generic.NewDay(y, month, d), nil
}

// parsePercent reads "10%", "0.1" or "10" style percent cells into a
// fraction. Values above 1 without a % sign are read as percentages.
func parsePercent(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	percent := strings.HasSuffix(s, "%")
	v, err := ParseCurrency(strings.TrimSuffix(s, "%"))
	if err != nil {
		return decimal.Zero, err
	}
	if percent || v.GreaterThan(decimal.NewFromInt(1)) {
		v = v.Div(generic.Hundred)
	}
	return v, nil
}

// normalizeHeader folds case and accents so "Código", "codigo" and
// " CODIGO " address the same column.
func normalizeHeader(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// headerIndex maps normalized header names to their column position.
type headerIndex map[string]int

func newHeaderIndex(header []string) headerIndex {
	idx := make(headerIndex, len(header))
	for i, h := range header {
		key := normalizeHeader(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// find returns the position of the first alias present.
func (h headerIndex) find(aliases ...string) (int, bool) {
	for _, a := range aliases {
		if i, ok := h[normalizeHeader(a)]; ok {
			return i, true
		}
	}
	return -1, false
}

// cell returns row[i], or "" for a missing or trimmed trailing cell.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
