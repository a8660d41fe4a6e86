// Package errors holds the error catalogue shared by every zonalseries
// component.
//
// This file provides:
// - Sentinel errors for all error conditions
// - Error category checking functions
// - Error wrapping utilities
// - A collector for configuration validation errors

package errors

import (
	"errors"
	"fmt"
)

// ============================================================================
// Sentinel errors
// ============================================================================

var (
	// Configuration errors: missing directories, empty snapshot sets, bad
	// YAML values.
	ErrConfiguration = errors.New("configuration error")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingField  = errors.New("missing required field")
	ErrNoSnapshots   = errors.New("no raster snapshots found")

	// Parse errors: a snapshot file name does not follow
	// <prefix><YYYY-MM-DD><extension>.
	ErrParse = errors.New("parse error")

	// Aggregation errors: the zonal aggregator could not process a snapshot.
	ErrAggregation        = errors.New("aggregation error")
	ErrUnsupportedRaster  = errors.New("unsupported raster format")
	ErrUnknownStatistic   = errors.New("unknown statistic")
	ErrDuplicateTimestamp = errors.New("duplicate snapshot timestamp")

	// Pipeline errors: the whole run was aborted.
	ErrPipeline = errors.New("pipeline run failed")

	// Cache misses: no persisted table for a statistic.
	ErrNotFound = errors.New("not found")

	// Query errors.
	ErrInvalidIndex = errors.New("invalid row index")

	// Storage errors.
	ErrCorruptSeries = errors.New("corrupt series file")
	ErrShapeMismatch = errors.New("table shape mismatch")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// New is a convenience wrapper for errors.New
var New = errors.New

// Join is a convenience wrapper for errors.Join
var Join = errors.Join

// IsNotFound returns true if err is a cache miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsParse returns true if err comes from a malformed snapshot name.
func IsParse(err error) bool {
	return errors.Is(err, ErrParse)
}

// IsConfiguration returns true if err is a configuration problem.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrNoSnapshots)
}

// IsAggregation returns true if err was raised while aggregating a snapshot.
func IsAggregation(err error) bool {
	return errors.Is(err, ErrAggregation) ||
		errors.Is(err, ErrUnsupportedRaster) ||
		errors.Is(err, ErrUnknownStatistic)
}

// IsPipeline returns true if err aborted a pipeline run. Such runs produce
// no tables; the caller may retry the whole run.
func IsPipeline(err error) bool {
	return errors.Is(err, ErrPipeline)
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ============================================================================
// Error constructors with context
// ============================================================================

// NewNotFound creates a not-found error with context.
func NewNotFound(entityType, identifier string) error {
	return fmt.Errorf("%s '%s': %w", entityType, identifier, ErrNotFound)
}

// NewParse creates a parse error for a value that does not match layout.
func NewParse(value, layout string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%q does not match %q: %w", value, layout, ErrParse)
	}
	return fmt.Errorf("%q does not match %q: %w", value, layout, errors.Join(ErrParse, cause))
}

// NewValidation creates a validation error with context.
func NewValidation(field, reason string) error {
	return fmt.Errorf("invalid %s: %s: %w", field, reason, ErrInvalidConfig)
}

// NewMissingField creates a missing field error.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// NewInvalidValue creates an invalid value error.
func NewInvalidValue(field string, value interface{}, reason string) error {
	return fmt.Errorf("invalid %s '%v': %s: %w", field, value, reason, ErrInvalidConfig)
}

// ============================================================================
// Validation Errors Collection
// ============================================================================

// ValidationErrors collects multiple validation errors.
type ValidationErrors struct {
	Errors []error
}

// NewValidationErrors creates a new ValidationErrors collector.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

// Add adds an error to the collection.
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// AddField adds a field validation error.
func (v *ValidationErrors) AddField(field, reason string) {
	v.Errors = append(v.Errors, NewValidation(field, reason))
}

// AddMissing adds a missing field error.
func (v *ValidationErrors) AddMissing(field string) {
	v.Errors = append(v.Errors, NewMissingField(field))
}

// HasErrors returns true if there are any errors.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	msg := fmt.Sprintf("validation failed with %d errors:", len(v.Errors))
	for _, err := range v.Errors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Err returns nil if no errors, otherwise returns the ValidationErrors.
func (v *ValidationErrors) Err() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Unwrap returns the collected errors for errors.Is/As support.
func (v *ValidationErrors) Unwrap() []error {
	return v.Errors
}
