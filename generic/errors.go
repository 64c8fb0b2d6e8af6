/*
errors.go - Centralized error types for the reconciliation engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with supplier or table context.

ERROR CATEGORIES:
  1. Validation errors - malformed or calendar-inconsistent period descriptors
  2. Schema errors     - an expected sheet/column/attribute is absent
  3. Supplier errors   - any failure while processing one supplier
  4. Arithmetic guards - clamped to zero and logged, never returned

PARTIAL FAILURE:
  Only construction-time failures (the three data sources cannot be
  loaded) abort a run. Everything else is caught at the per-supplier
  boundary and reported as a *SupplierError.

SEE ALSO:
  - period.go: returns *ValidationError
  - ingest/: returns *SchemaError
  - report/reconciler.go: wraps failures in *SupplierError
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when a period descriptor cannot be resolved.
	ErrValidation = errors.New("invalid period descriptor")

	// ErrSchema is returned when an expected column or sheet is missing.
	ErrSchema = errors.New("schema mismatch")

	// ErrSupplierProcessing marks a failure scoped to a single supplier.
	ErrSupplierProcessing = errors.New("supplier processing failed")

	// ErrNegativeAllowance is logged (never returned) when a manual allowance is below zero.
	ErrNegativeAllowance = errors.New("manual allowance must be greater than or equal to 0")

	// ErrUnknownSupplier is returned when a supplier id is not in the master table.
	ErrUnknownSupplier = errors.New("unknown supplier")

	// ErrNotLoaded is returned when an operation needs a dataset that was never loaded.
	ErrNotLoaded = errors.New("dataset not loaded")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes why a period descriptor was rejected.
type ValidationError struct {
	Descriptor string
	Segment    string // offending "start_end" segment, empty when the whole descriptor is bad
	Reason     string
}

func (e *ValidationError) Error() string {
	if e.Segment != "" {
		return fmt.Sprintf("invalid period descriptor %q: segment %q: %s", e.Descriptor, e.Segment, e.Reason)
	}
	return fmt.Sprintf("invalid period descriptor %q: %s", e.Descriptor, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// SchemaError reports a missing column (or sheet) in an ingested table.
type SchemaError struct {
	Table  string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("table %q: missing column %q", e.Table, e.Column)
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// SupplierError wraps any failure raised while one supplier was processed.
type SupplierError struct {
	Supplier SupplierID
	Err      error
}

func (e *SupplierError) Error() string {
	return fmt.Sprintf("supplier %s: %v", e.Supplier, e.Err)
}

// Unwrap exposes both the category and the cause, so errors.Is works for
// ErrSupplierProcessing as well as for the underlying error.
func (e *SupplierError) Unwrap() []error {
	return []error{ErrSupplierProcessing, e.Err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

func IsSchema(err error) bool { return errors.Is(err, ErrSchema) }

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrUnknownSupplier) ||
		errors.Is(err, ErrSchema)
}
