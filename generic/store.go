/*
store.go - Persistence interfaces for summary rows and run records

PURPOSE:
  The engine itself is in-memory. The summary table is the one piece of
  state that lives across invocations (base pass, then allowance pass),
  so it sits behind an explicit keyed store with upsert semantics instead
  of being a side effect of call order.

KEY INTERFACES:
  SummaryStore: supplier id -> SummaryRow, upsert only, rows never removed
  RunStore:     append-only log of orchestrator runs

IMPLEMENTATIONS:
  - generic/store/memory.go: In-memory (default, tests)
  - store/sqlite/sqlite.go:  SQLite-backed (server, CLI with -db)
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// SUMMARY STORE
// =============================================================================

// SummaryStore keeps one SummaryRow per supplier.
type SummaryStore interface {
	// Upsert inserts the row or replaces the row with the same supplier id.
	Upsert(ctx context.Context, row SummaryRow) error

	// Get returns the row for a supplier; ok is false when none exists yet.
	Get(ctx context.Context, supplier SupplierID) (row SummaryRow, ok bool, err error)

	// List returns all rows ordered by supplier id.
	List(ctx context.Context) ([]SummaryRow, error)
}

// =============================================================================
// RUN STORE
// =============================================================================

type RunMode string

const (
	RunBase          RunMode = "base"
	RunWithAllowance RunMode = "with_allowance"
)

// RunRecord documents one orchestrator invocation.
type RunRecord struct {
	ID          string
	Mode        RunMode
	Year        int
	Month       time.Month
	Suppliers   []SupplierID
	Failed      []SupplierID
	StartedAt   time.Time
	CompletedAt time.Time
}

// RunStore is an append-only log of runs.
type RunStore interface {
	SaveRun(ctx context.Context, run RunRecord) error
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}
