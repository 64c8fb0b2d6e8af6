package report

import (
	"fmt"

	"github.com/warp/discount-reconciler/generic"
)

// JoinedGroup consolidates several supplier ids into one reported entity.
type JoinedGroup struct {
	Consolidated generic.SupplierID
	Members      []generic.SupplierID
}

// DefaultJoinedGroups is the consolidation the business runs with.
func DefaultJoinedGroups() []JoinedGroup {
	return []JoinedGroup{{
		Consolidated: "248-TECNOQUIMICAS",
		Members:      []generic.SupplierID{"248-TECNOQUIMICAS", "115-BAXTER", "206-MK", "254-WASSER CH"},
	}}
}

// groupIndex maps every member id to its group; built once at construction.
type groupIndex map[generic.SupplierID]*JoinedGroup

func newGroupIndex(groups []JoinedGroup) (groupIndex, error) {
	idx := make(groupIndex)
	for i := range groups {
		g := &groups[i]
		if g.Consolidated == "" {
			return nil, fmt.Errorf("joined group %d: consolidated id is required", i)
		}
		for _, m := range g.Members {
			if other, dup := idx[m]; dup {
				return nil, fmt.Errorf("supplier %s is in joined groups %s and %s", m, other.Consolidated, g.Consolidated)
			}
			idx[m] = g
		}
	}
	return idx, nil
}

// =============================================================================
// GROUP BUFFER - Per-run accumulation keyed by group
// =============================================================================

// groupBuffer collects member reports of one group during a run and
// releases the merged report once every expected member was processed.
type groupBuffer struct {
	group     *JoinedGroup
	expected  map[generic.SupplierID]bool
	processed map[generic.SupplierID]bool
	reports   []SupplierReport
}

func newGroupBuffer(g *JoinedGroup, requested []generic.SupplierID) *groupBuffer {
	b := &groupBuffer{
		group:     g,
		expected:  make(map[generic.SupplierID]bool),
		processed: make(map[generic.SupplierID]bool),
	}
	members := make(map[generic.SupplierID]bool, len(g.Members))
	for _, m := range g.Members {
		members[m] = true
	}
	for _, id := range requested {
		if members[id] {
			b.expected[id] = true
		}
	}
	return b
}

// add records a processed member; report is nil when the member failed.
// It returns the merged report once the group is complete.
func (b *groupBuffer) add(id generic.SupplierID, report *SupplierReport) (SupplierReport, bool) {
	b.processed[id] = true
	if report != nil {
		b.reports = append(b.reports, *report)
	}
	if len(b.processed) < len(b.expected) || len(b.reports) == 0 {
		return SupplierReport{}, false
	}
	return b.merge(), true
}

func (b *groupBuffer) merge() SupplierReport {
	merged := SupplierReport{Supplier: b.group.Consolidated}
	rotation := make([]Table, 0, len(b.reports))
	fair := make([]Table, 0, len(b.reports))
	for _, r := range b.reports {
		merged.Members = append(merged.Members, r.Supplier)
		merged.Eligible = merged.Eligible || r.Eligible
		rotation = append(rotation, r.Rotation)
		fair = append(fair, r.FairPeriod)
		merged.Results = append(merged.Results, r.Results...)
	}
	merged.Rotation = mergeTables(TableRotation, rotation...)
	merged.FairPeriod = mergeTables(TableFairPeriod, fair...)
	return merged
}
