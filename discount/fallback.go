package discount

import (
	"math/rand"
	"sync"

	"github.com/warp/discount-reconciler/generic"
)

// FallbackPolicy picks the date set an unmatched product code borrows in
// per-product mode. The borrowed set only decides eligibility; the line's
// percent stays 0. ok is false when nothing is borrowed.
type FallbackPolicy interface {
	Name() string
	Select(code generic.ProductCode, candidates []ResolvedRule) (dates generic.DateSet, ok bool)
}

const (
	FallbackFirst  = "first"
	FallbackRandom = "random"
	FallbackNone   = "none"
)

// FirstMatchFallback borrows the first matched rule with a non-empty date set.
type FirstMatchFallback struct{}

func (FirstMatchFallback) Name() string { return FallbackFirst }

func (FirstMatchFallback) Select(_ generic.ProductCode, candidates []ResolvedRule) (generic.DateSet, bool) {
	for _, c := range candidates {
		if !c.Dates.IsEmpty() {
			return c.Dates, true
		}
	}
	return generic.DateSet{}, false
}

// RandomFallback borrows a uniformly chosen matched rule.
type RandomFallback struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomFallback(seed int64) *RandomFallback {
	return &RandomFallback{rng: rand.New(rand.NewSource(seed))}
}

func (*RandomFallback) Name() string { return FallbackRandom }

func (f *RandomFallback) Select(_ generic.ProductCode, candidates []ResolvedRule) (generic.DateSet, bool) {
	if len(candidates) == 0 {
		return generic.DateSet{}, false
	}
	f.mu.Lock()
	i := f.rng.Intn(len(candidates))
	f.mu.Unlock()
	return candidates[i].Dates, true
}

// NoFallback never borrows: unmatched lines are always out of period.
type NoFallback struct{}

func (NoFallback) Name() string { return FallbackNone }

func (NoFallback) Select(generic.ProductCode, []ResolvedRule) (generic.DateSet, bool) {
	return generic.DateSet{}, false
}
