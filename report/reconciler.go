/*
reconciler.go - Reconciliation orchestrator

PURPOSE:
  Iterates the requested suppliers of a loaded Dataset and, for each one,
  resolves its rules, classifies its lines, reallocates budget, upserts
  its summary row and emits its two line-level tables. Joined supplier
  groups are buffered and emitted once, merged, under the consolidated id.

STATE MACHINE (per run):
  Idle -> ProcessingSupplier(i) -> [joined merge?] -> Exporting -> Idle

ENTRY POINTS:
  Run:              base pass (or any mode, explicit RunRequest)
  IncludeAllowance: allowance pass with manual allowances per supplier

PARTIAL FAILURE:
  A supplier whose processing fails is logged and skipped; its summary row
  is not touched and no table is emitted for it. Other suppliers complete.

CONCURRENCY:
  Suppliers are processed strictly in order because the joined-group merge
  carries state across iterations. Runs are serialized with a mutex so the
  Reconciler can sit behind an HTTP handler; it never starts goroutines.

SEE ALSO:
  - discount/classify.go:   Classifier
  - discount/reallocate.go: Reallocator
  - generic/summary.go:     Fill
  - joined.go:              group buffering
*/
package report

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warp/discount-reconciler/discount"
	"github.com/warp/discount-reconciler/generic"
	"github.com/warp/discount-reconciler/generic/store"
	"github.com/warp/discount-reconciler/logging"
)

// =============================================================================
// RESULTS
// =============================================================================

// ReconciliationResult holds one supplier's figures for one run.
type ReconciliationResult struct {
	Supplier generic.SupplierID
	Mode     discount.PricingMode
	Blanket  bool

	InPeriod    []discount.PricedLine // final fair-period set
	OutOfPeriod []discount.PricedLine // note-descending, before reallocation
	Moved       []discount.PricedLine

	Reported    decimal.Decimal
	Computed    decimal.Decimal
	Real        decimal.Decimal
	Discrepancy decimal.Decimal
	Allowance   decimal.Decimal
	Budget      decimal.Decimal

	FeriaDiff   decimal.Decimal
	RealDiff    decimal.Decimal
	RealDiffPct decimal.Decimal
}

// SupplierReport is what gets emitted for a supplier or a joined group.
type SupplierReport struct {
	Supplier   generic.SupplierID
	Members    []generic.SupplierID // set for joined groups
	Eligible   bool
	Rotation   Table
	FairPeriod Table
	// IncludeFairPeriod is false for ineligible and rotation-only suppliers.
	IncludeFairPeriod bool
	Results           []ReconciliationResult
}

// RunRequest selects suppliers and the pass to run.
type RunRequest struct {
	Suppliers      []generic.SupplierID // empty: every eligible supplier
	Mode           generic.RunMode
	IncludeReports bool // emit base-pass reports too
	Allowances     discount.Allowances
}

// RunResult is returned by Run and IncludeAllowance.
type RunResult struct {
	Record   generic.RunRecord
	Reports  []SupplierReport
	Failures []error
	Summary  []generic.SummaryRow
}

// Sink receives emitted reports; the xlsx exporter implements it.
type Sink interface {
	WriteSupplier(ctx context.Context, report SupplierReport, mode generic.RunMode) error
	WriteSummary(ctx context.Context, rows []generic.SummaryRow) error
}

// =============================================================================
// OPTIONS
// =============================================================================

type Options struct {
	JoinedGroups []JoinedGroup
	RotationOnly []generic.SupplierID

	Fallback  discount.FallbackPolicy
	Selection discount.SelectionPolicy
	Bonus     *discount.BonusRule // nil: DefaultBonusRule; zero rule: no exclusion

	Summary generic.SummaryStore
	Runs    generic.RunStore
	Sink    Sink // nil: nothing is exported

	Logger *logrus.Logger
	Now    func() time.Time
}

// DefaultOptions mirrors the production setup with in-memory stores.
func DefaultOptions() Options {
	mem := store.NewMemory()
	bonus := discount.DefaultBonusRule
	return Options{
		JoinedGroups: DefaultJoinedGroups(),
		RotationOnly: []generic.SupplierID{"134-COASPHARMA"},
		Fallback:     discount.FirstMatchFallback{},
		Selection:    discount.OvershootOne{},
		Bonus:        &bonus,
		Summary:      mem,
		Runs:         mem,
	}
}

// =============================================================================
// RECONCILER
// =============================================================================

type Reconciler struct {
	mu sync.Mutex

	data         *discount.Dataset
	groups       []JoinedGroup
	groupOf      groupIndex
	rotationOnly map[generic.SupplierID]bool

	classifier  *discount.Classifier
	reallocator *discount.Reallocator

	summary generic.SummaryStore
	runs    generic.RunStore
	sink    Sink
	logger  *logrus.Logger
	now     func() time.Time

	last map[generic.SupplierID]SupplierReport
}

// New builds a Reconciler over a loaded dataset. Zero-valued options fall
// back to DefaultOptions.
func New(data *discount.Dataset, opts Options) (*Reconciler, error) {
	if data == nil {
		return nil, generic.ErrNotLoaded
	}
	def := DefaultOptions()
	if opts.Summary == nil {
		opts.Summary = def.Summary
	}
	if opts.Runs == nil {
		opts.Runs = def.Runs
	}
	if opts.Fallback == nil {
		opts.Fallback = def.Fallback
	}
	if opts.Selection == nil {
		opts.Selection = def.Selection
	}
	if opts.Bonus == nil {
		opts.Bonus = def.Bonus
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	groups := append([]JoinedGroup(nil), opts.JoinedGroups...)
	groupOf, err := newGroupIndex(groups)
	if err != nil {
		return nil, err
	}
	rotationOnly := make(map[generic.SupplierID]bool, len(opts.RotationOnly))
	for _, id := range opts.RotationOnly {
		rotationOnly[id] = true
	}

	return &Reconciler{
		data:         data,
		groups:       groups,
		groupOf:      groupOf,
		rotationOnly: rotationOnly,
		classifier:   &discount.Classifier{Fallback: opts.Fallback, Bonus: *opts.Bonus},
		reallocator:  &discount.Reallocator{Selection: opts.Selection, Logger: opts.Logger},
		summary:      opts.Summary,
		runs:         opts.Runs,
		sink:         opts.Sink,
		logger:       opts.Logger,
		now:          opts.Now,
		last:         make(map[generic.SupplierID]SupplierReport),
	}, nil
}

// Suppliers maps every supplier id to its eligibility, for selection prompts.
func (r *Reconciler) Suppliers() map[generic.SupplierID]bool { return r.data.Eligibility() }

// Dataset exposes the loaded sources (read-only).
func (r *Reconciler) Dataset() *discount.Dataset { return r.data }

// Summary returns the current summary table.
func (r *Reconciler) Summary(ctx context.Context) ([]generic.SummaryRow, error) {
	return r.summary.List(ctx)
}

// Runs returns the run log, newest first.
func (r *Reconciler) Runs(ctx context.Context, limit int) ([]generic.RunRecord, error) {
	return r.runs.ListRuns(ctx, limit)
}

// ConsolidatedAs returns the id a supplier is reported under.
func (r *Reconciler) ConsolidatedAs(id generic.SupplierID) generic.SupplierID {
	if g, ok := r.groupOf[id]; ok {
		return g.Consolidated
	}
	return id
}

// LastReport returns the most recent report emitted under the given id.
func (r *Reconciler) LastReport(id generic.SupplierID) (SupplierReport, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.last[id]
	return rep, ok
}

// IncludeAllowance reruns the suppliers with manual allowances and exports
// every report plus the summary.
func (r *Reconciler) IncludeAllowance(ctx context.Context, suppliers []generic.SupplierID, allowances discount.Allowances) (*RunResult, error) {
	return r.Run(ctx, RunRequest{
		Suppliers:      suppliers,
		Mode:           generic.RunWithAllowance,
		IncludeReports: true,
		Allowances:     allowances,
	})
}

// Run processes the requested suppliers in order. Supplier failures are
// collected in RunResult.Failures; only store failures abort the run.
func (r *Reconciler) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if req.Mode == "" {
		req.Mode = generic.RunBase
	}
	suppliers := r.requested(req.Suppliers)

	result := &RunResult{Record: generic.RunRecord{
		ID:        uuid.NewString(),
		Mode:      req.Mode,
		Year:      r.data.Year,
		Month:     r.data.Month,
		Suppliers: suppliers,
		StartedAt: r.now().UTC(),
	}}

	buffers := make(map[generic.SupplierID]*groupBuffer)
	for _, g := range r.groups {
		g := g
		buffers[g.Consolidated] = newGroupBuffer(&g, suppliers)
	}

	for _, id := range suppliers {
		report, err := r.processSupplier(ctx, id, req)
		if err != nil {
			r.fail(result, id, err)
		}

		var emit *SupplierReport
		if g, joined := r.groupOf[id]; joined {
			var rp *SupplierReport
			if err == nil {
				rp = &report
			}
			if merged, ready := buffers[g.Consolidated].add(id, rp); ready {
				merged.IncludeFairPeriod = merged.Eligible && !r.rotationOnly[merged.Supplier]
				emit = &merged
			}
		} else if err == nil {
			emit = &report
		}

		if emit != nil {
			if err := r.emit(ctx, *emit, req); err != nil {
				r.fail(result, emit.Supplier, err)
			}
			result.Reports = append(result.Reports, *emit)
		}
	}

	rows, err := r.summary.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list summary: %w", err)
	}
	result.Summary = rows

	if req.Mode == generic.RunWithAllowance && r.sink != nil {
		if err := r.sink.WriteSummary(ctx, r.eligibleRows(rows)); err != nil {
			logging.LogError(r.logger, "report", "Run", "write summary", result.Record.ID, err)
			result.Failures = append(result.Failures, err)
		}
	}

	result.Record.CompletedAt = r.now().UTC()
	if err := r.runs.SaveRun(ctx, result.Record); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"run":       result.Record.ID,
		"mode":      req.Mode,
		"suppliers": len(suppliers),
		"failed":    len(result.Record.Failed),
	}).Info("reconciliation run completed")

	return result, nil
}

// requested resolves the supplier list: empty means every eligible
// supplier; duplicates are dropped and order is kept.
func (r *Reconciler) requested(ids []generic.SupplierID) []generic.SupplierID {
	if len(ids) == 0 {
		return r.data.EligibleSuppliers()
	}
	seen := make(map[generic.SupplierID]bool, len(ids))
	out := make([]generic.SupplierID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (r *Reconciler) fail(result *RunResult, id generic.SupplierID, err error) {
	var serr *generic.SupplierError
	if !errors.As(err, &serr) {
		serr = &generic.SupplierError{Supplier: id, Err: err}
	}
	logging.LogError(r.logger, "report", "Run", "process supplier", id, serr)
	result.Failures = append(result.Failures, serr)
	result.Record.Failed = append(result.Record.Failed, id)
}

func (r *Reconciler) emit(ctx context.Context, rep SupplierReport, req RunRequest) error {
	r.last[rep.Supplier] = rep
	if r.sink == nil {
		return nil
	}
	if req.Mode != generic.RunWithAllowance && !req.IncludeReports {
		return nil
	}
	return r.sink.WriteSupplier(ctx, rep, req.Mode)
}

func (r *Reconciler) eligibleRows(rows []generic.SummaryRow) []generic.SummaryRow {
	eligible := r.data.Eligibility()
	out := make([]generic.SummaryRow, 0, len(rows))
	for _, row := range rows {
		if eligible[row.Supplier] {
			out = append(out, row)
		}
	}
	return out
}

// =============================================================================
// PER-SUPPLIER PIPELINE
// =============================================================================

func (r *Reconciler) processSupplier(ctx context.Context, id generic.SupplierID, req RunRequest) (SupplierReport, error) {
	supplier, ok := r.data.Supplier(id)
	if !ok {
		return SupplierReport{}, &generic.SupplierError{Supplier: id, Err: generic.ErrUnknownSupplier}
	}

	res, all, err := r.reconcile(supplier, req)
	if err != nil {
		return SupplierReport{}, &generic.SupplierError{Supplier: id, Err: err}
	}

	row, _, err := r.summary.Get(ctx, id)
	if err != nil {
		return SupplierReport{}, &generic.SupplierError{Supplier: id, Err: err}
	}
	fillMode := generic.FillBase
	if req.Mode == generic.RunWithAllowance {
		fillMode = generic.FillWithAllowance
	}
	generic.Fill(&row, id, res.Reported, res.Computed, res.Real, fillMode)
	if err := r.summary.Upsert(ctx, row); err != nil {
		return SupplierReport{}, &generic.SupplierError{Supplier: id, Err: err}
	}

	return SupplierReport{
		Supplier:          id,
		Eligible:          supplier.Eligible,
		Rotation:          newTable(TableRotation, supplier.Mode, all),
		FairPeriod:        newTable(TableFairPeriod, supplier.Mode, res.InPeriod),
		IncludeFairPeriod: supplier.Eligible && !r.rotationOnly[id],
		Results:           []ReconciliationResult{res},
	}, nil
}

// reconcile runs resolve -> classify -> reallocate for one supplier and
// returns its figures plus the full priced line set.
func (r *Reconciler) reconcile(supplier discount.SupplierRecord, req RunRequest) (ReconciliationResult, []discount.PricedLine, error) {
	lines := r.data.LinesFor(supplier.ID)

	rules, err := discount.ResolveRules(r.data.RulesFor(supplier.ID), r.data.Year, r.data.Month)
	if err != nil {
		return ReconciliationResult{}, nil, err
	}

	cls := r.classifier.Classify(discount.ClassifyInput{
		Lines:    lines,
		Rules:    rules,
		Eligible: supplier.Eligible,
		Mode:     supplier.Mode,
	})

	reported := discount.TotalReported(lines)
	computed := discount.TotalNotes(cls.InPeriod)

	allowance := discount.NoAllowance()
	if req.Mode == generic.RunWithAllowance {
		allowance = req.Allowances.For(supplier.ID)
	}
	re := r.reallocator.Reallocate(discount.ReallocationInput{
		Supplier:    supplier.ID,
		InPeriod:    cls.InPeriod,
		OutOfPeriod: cls.OutOfPeriod,
		Reported:    reported,
		Computed:    computed,
		Allowance:   allowance,
	})

	final := keepDiscounted(re.Final)
	if len(final) == 0 {
		final = cls.All
	}
	realTotal := discount.TotalNotes(final)
	realDiff := realTotal.Sub(reported)

	return ReconciliationResult{
		Supplier:    supplier.ID,
		Mode:        supplier.Mode,
		Blanket:     cls.Blanket,
		InPeriod:    final,
		OutOfPeriod: cls.OutOfPeriod,
		Moved:       re.Moved,
		Reported:    reported,
		Computed:    computed,
		Real:        realTotal,
		Discrepancy: re.Discrepancy,
		Allowance:   re.Allowance,
		Budget:      re.Budget,
		FeriaDiff:   computed.Sub(reported),
		RealDiff:    realDiff,
		RealDiffPct: generic.SafeRatio(realDiff, reported),
	}, cls.All, nil
}

// keepDiscounted drops lines with a non-positive base price or percent.
func keepDiscounted(lines []discount.PricedLine) []discount.PricedLine {
	out := make([]discount.PricedLine, 0, len(lines))
	for _, p := range lines {
		if p.Base.IsPositive() && p.Percent.IsPositive() {
			out = append(out, p)
		}
	}
	return out
}
