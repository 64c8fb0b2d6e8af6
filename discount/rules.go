package discount

import (
	"fmt"
	"time"

	"github.com/warp/discount-reconciler/generic"
)

// ResolveRules materializes the eligible days of every rule for the report
// month. The first invalid descriptor aborts resolution for the whole set,
// since a supplier cannot be reconciled against a partial rule table.
func ResolveRules(rules []DiscountRule, year int, month time.Month) ([]ResolvedRule, error) {
	resolved := make([]ResolvedRule, 0, len(rules))
	for _, r := range rules {
		dates, err := generic.ResolvePeriod(r.Descriptor, year, month)
		if err != nil {
			return nil, fmt.Errorf("rule %s/%s: %w", r.Supplier, r.Code, err)
		}
		resolved = append(resolved, ResolvedRule{DiscountRule: r, Dates: dates})
	}
	return resolved, nil
}
