/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Persists the cross-supplier summary and the run log so the base pass and
  the allowance pass can run in separate processes (CLI today, HTTP server
  tomorrow) and still fill the same summary rows.

INTERFACES IMPLEMENTED:
  generic.SummaryStore: per-supplier summary rows (upsert by supplier)
  generic.RunStore:     reconciliation run log

KEY TABLES:
  summary_rows:        one row per supplier, amounts stored as decimal text
  reconciliation_runs: one row per orchestrator run

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single open connection, so
  ":memory:" databases behave like file databases.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency.

USAGE:
  store, err := sqlite.New("./reconciler.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  opts.Summary, opts.Runs = store, store

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/discount-reconciler/generic"
)

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements generic.SummaryStore and generic.RunStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS summary_rows (
		supplier_id TEXT PRIMARY KEY,
		reported TEXT NOT NULL,
		feria TEXT NOT NULL,
		feria_diff TEXT NOT NULL,
		real_total TEXT NOT NULL,
		real_diff TEXT NOT NULL,
		real_diff_pct TEXT NOT NULL,
		has_base INTEGER NOT NULL DEFAULT 0,
		has_real INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reconciliation_runs (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		report_year INTEGER NOT NULL,
		report_month INTEGER NOT NULL,
		suppliers_json TEXT NOT NULL,
		failed_json TEXT NOT NULL,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_reconciliation_runs_started
		ON reconciliation_runs(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SUMMARY ROWS
// =============================================================================

// Upsert inserts or replaces the summary row of a supplier.
func (s *Store) Upsert(ctx context.Context, row generic.SummaryRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedAt := row.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO summary_rows (supplier_id, reported, feria, feria_diff, real_total, real_diff,
			real_diff_pct, has_base, has_real, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(supplier_id) DO UPDATE SET
			reported = excluded.reported,
			feria = excluded.feria,
			feria_diff = excluded.feria_diff,
			real_total = excluded.real_total,
			real_diff = excluded.real_diff,
			real_diff_pct = excluded.real_diff_pct,
			has_base = excluded.has_base,
			has_real = excluded.has_real,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		string(row.Supplier),
		row.Reported.String(), row.Feria.String(), row.FeriaDiff.String(),
		row.Real.String(), row.RealDiff.String(), row.RealDiffPct.String(),
		row.HasBase, row.HasReal,
		updatedAt.Format(timeLayout),
	)
	return err
}

// Get returns the summary row of a supplier; ok is false when absent.
func (s *Store) Get(ctx context.Context, supplier generic.SupplierID) (generic.SummaryRow, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, selectSummary+` WHERE supplier_id = ?`, string(supplier))
	r, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.SummaryRow{}, false, nil
	}
	if err != nil {
		return generic.SummaryRow{}, false, err
	}
	return r, true, nil
}

// List returns every summary row ordered by supplier id.
func (s *Store) List(ctx context.Context) ([]generic.SummaryRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectSummary+` ORDER BY supplier_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []generic.SummaryRow
	for rows.Next() {
		r, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const selectSummary = `
	SELECT supplier_id, reported, feria, feria_diff, real_total, real_diff, real_diff_pct,
		has_base, has_real, updated_at
	FROM summary_rows`

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(sc scanner) (generic.SummaryRow, error) {
	var r generic.SummaryRow
	var supplier, updatedAt string
	var amounts [6]string

	if err := sc.Scan(&supplier, &amounts[0], &amounts[1], &amounts[2], &amounts[3], &amounts[4], &amounts[5],
		&r.HasBase, &r.HasReal, &updatedAt); err != nil {
		return generic.SummaryRow{}, err
	}

	targets := []*decimal.Decimal{&r.Reported, &r.Feria, &r.FeriaDiff, &r.Real, &r.RealDiff, &r.RealDiffPct}
	for i, text := range amounts {
		v, err := decimal.NewFromString(text)
		if err != nil {
			return generic.SummaryRow{}, fmt.Errorf("summary %s: %w", supplier, err)
		}
		*targets[i] = v
	}
	r.Supplier = generic.SupplierID(supplier)
	r.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return r, nil
}

// =============================================================================
// RUN LOG
// =============================================================================

// SaveRun stores a run record; saving the same id again replaces it.
func (s *Store) SaveRun(ctx context.Context, run generic.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	suppliersJSON, err := json.Marshal(run.Suppliers)
	if err != nil {
		return err
	}
	failedJSON, err := json.Marshal(run.Failed)
	if err != nil {
		return err
	}

	var completedAt *string
	if !run.CompletedAt.IsZero() {
		c := run.CompletedAt.Format(timeLayout)
		completedAt = &c
	}

	query := `
		INSERT INTO reconciliation_runs (id, mode, report_year, report_month, suppliers_json,
			failed_json, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			failed_json = excluded.failed_json,
			completed_at = excluded.completed_at
	`

	_, err = s.db.ExecContext(ctx, query,
		run.ID, string(run.Mode), run.Year, int(run.Month),
		string(suppliersJSON), string(failedJSON),
		run.StartedAt.Format(timeLayout), completedAt,
	)
	return err
}

// ListRuns returns runs newest first; limit <= 0 returns all of them.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]generic.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, mode, report_year, report_month, suppliers_json, failed_json,
			started_at, completed_at
		FROM reconciliation_runs
		ORDER BY started_at DESC
	`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []generic.RunRecord
	for rows.Next() {
		var r generic.RunRecord
		var mode, suppliersJSON, failedJSON, startedAt string
		var month int
		var completedAt sql.NullString
		if err := rows.Scan(&r.ID, &mode, &r.Year, &month, &suppliersJSON, &failedJSON,
			&startedAt, &completedAt); err != nil {
			return nil, err
		}

		r.Mode = generic.RunMode(mode)
		r.Month = time.Month(month)
		if err := json.Unmarshal([]byte(suppliersJSON), &r.Suppliers); err != nil {
			return nil, fmt.Errorf("run %s suppliers: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(failedJSON), &r.Failed); err != nil {
			return nil, fmt.Errorf("run %s failures: %w", r.ID, err)
		}
		r.StartedAt, _ = time.Parse(timeLayout, startedAt)
		if completedAt.Valid {
			r.CompletedAt, _ = time.Parse(timeLayout, completedAt.String)
		}

		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"summary_rows", "reconciliation_runs"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}
