// Package store provides in-memory SummaryStore and RunStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/discount-reconciler/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	summary map[generic.SupplierID]generic.SummaryRow
	runs    []generic.RunRecord
}

func NewMemory() *Memory {
	return &Memory{
		summary: make(map[generic.SupplierID]generic.SummaryRow),
	}
}

// Upsert replaces the row keyed by its supplier id.
func (m *Memory) Upsert(_ context.Context, row generic.SummaryRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summary[row.Supplier] = row
	return nil
}

func (m *Memory) Get(_ context.Context, supplier generic.SupplierID) (generic.SummaryRow, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.summary[supplier]
	return row, ok, nil
}

func (m *Memory) List(_ context.Context) ([]generic.SummaryRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := make([]generic.SummaryRow, 0, len(m.summary))
	for _, row := range m.summary {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Supplier < rows[j].Supplier })
	return rows, nil
}

// SaveRun appends a run record.
func (m *Memory) SaveRun(_ context.Context, run generic.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

// ListRuns returns the most recent runs first. limit <= 0 means all.
func (m *Memory) ListRuns(_ context.Context, limit int) ([]generic.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]generic.RunRecord, 0, len(m.runs))
	for i := len(m.runs) - 1; i >= 0; i-- {
		out = append(out, m.runs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
