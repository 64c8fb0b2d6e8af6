package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/warp/discount-reconciler/discount"
	"github.com/warp/discount-reconciler/generic"
)

// parseSupplierList splits "S1, S2" into ids; blanks are dropped.
func parseSupplierList(s string) []generic.SupplierID {
	var out []generic.SupplierID
	for _, part := range strings.Split(s, ",") {
		if id := strings.TrimSpace(part); id != "" {
			out = append(out, generic.SupplierID(id))
		}
	}
	return out
}

// allowanceFlag collects repeated -allowance "<supplier>=<text>" values.
// Supplier ids may contain spaces but not "=".
type allowanceFlag struct {
	values discount.Allowances
	errs   []error
}

func (a *allowanceFlag) String() string {
	if a == nil {
		return ""
	}
	parts := make([]string, 0, len(a.values))
	for _, id := range a.values.Suppliers() {
		parts = append(parts, fmt.Sprintf("%s=%s", id, a.values[id]))
	}
	return strings.Join(parts, ",")
}

// Set parses one entry. Unparsable amounts count as 0 and are kept in errs
// so main can log them.
func (a *allowanceFlag) Set(s string) error {
	id, text, ok := strings.Cut(s, "=")
	id = strings.TrimSpace(id)
	if !ok || id == "" {
		return fmt.Errorf("allowance %q: want <supplier>=<amount>", s)
	}
	if a.values == nil {
		a.values = make(discount.Allowances)
	}
	v, err := discount.ParseAllowance(text)
	if err != nil {
		a.errs = append(a.errs, err)
	}
	a.values[generic.SupplierID(id)] = v
	return nil
}

// parsePeriod reads "2006-01"; empty yields zero values.
func parsePeriod(s string) (int, time.Month, error) {
	if strings.TrimSpace(s) == "" {
		return 0, 0, nil
	}
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("period %q: want YYYY-MM", s)
	}
	return t.Year(), t.Month(), nil
}
