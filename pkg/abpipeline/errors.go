package abpipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors for pipeline construction and execution.
var (
	// ErrNilConfig indicates New() was called with a nil configuration.
	ErrNilConfig = errors.New("config cannot be nil")

	// ErrUnknownExposureEvent indicates the configured exposure event does not
	// resolve to the canonical vocabulary.
	ErrUnknownExposureEvent = errors.New("exposure event not in canonical vocabulary")

	// ErrUnknownGoalEvent indicates the configured goal event does not resolve
	// to the canonical vocabulary.
	ErrUnknownGoalEvent = errors.New("goal event not in canonical vocabulary")
)

// SchemaMappingError indicates a raw record is missing the source field the
// schema configuration maps onto a canonical column. The record is skipped
// and counted; the normalization pass continues.
type SchemaMappingError struct {
	// Field is the source column name that was expected.
	Field string
	// EventID identifies the offending record when the extract carries one.
	EventID string
}

// Error implements the error interface.
func (e *SchemaMappingError) Error() string {
	if e.EventID != "" {
		return fmt.Sprintf("schema mapping: field %q absent on event %s", e.Field, e.EventID)
	}
	return fmt.Sprintf("schema mapping: field %q absent", e.Field)
}

// UnknownEventTypeError indicates a raw event-type value has no canonical
// counterpart in the alias table. The record is skipped and counted, never
// silently dropped.
type UnknownEventTypeError struct {
	// Value is the raw event-type spelling.
	Value string
	// EventID identifies the offending record.
	EventID string
}

// Error implements the error interface.
func (e *UnknownEventTypeError) Error() string {
	return fmt.Sprintf("unknown event type %q on event %s", e.Value, e.EventID)
}

// AssignmentVariantError indicates an assignment row carries a variant
// outside {control, treatment}. The schema should prevent this; hitting it
// is fatal for the run.
type AssignmentVariantError struct {
	Experiment string
	UserID     int64
	Variant    string
}

// Error implements the error interface.
func (e *AssignmentVariantError) Error() string {
	return fmt.Sprintf("experiment %s user %d: invalid variant %q", e.Experiment, e.UserID, e.Variant)
}

// MartIntegrityError indicates an exposure row has no matching outcome row.
// The windower runs for every exposed user, so this signals an engine bug,
// not a legitimate data state. Fatal.
type MartIntegrityError struct {
	Experiment string
	UserID     int64
}

// Error implements the error interface.
func (e *MartIntegrityError) Error() string {
	return fmt.Sprintf("mart integrity: exposure row (%s, %d) has no outcome row", e.Experiment, e.UserID)
}
