/*
errors.go - Centralized error types for the accounting engine

PURPOSE:
  All validation outcomes in one place. Every error here is a
  caller-recoverable business result, not a crash: validators raise the
  first violated rule and stop, and the controller layer maps each kind
  to a stable HTTP status.

ERROR CATEGORIES:
  1. Field errors   - required fields missing or malformed
  2. Range errors   - date/time/hours/break rule violations
  3. Conflict errors - overlapping entries or absence requests
  4. Approval errors - missing targets, terminal-state transitions

USAGE:
  Callers classify with errors.Is:

    if errors.Is(err, engine.ErrOverlappingEntry) { ... }

  or extract context with errors.As:

    var conflict *engine.HolidayOverlapError
    if errors.As(err, &conflict) {
        // conflict.Start, conflict.End, conflict.TypeCode
    }

SEE ALSO:
  - tracking/validator.go: raises entry errors
  - absence/validator.go: raises request errors
  - api/handlers.go: maps kinds to HTTP statuses
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingRequiredField is returned when a draft lacks a mandatory field.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrEntityNotFound is returned when a referenced employee, project or
	// holiday type does not exist.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrInvalidDateRange is returned for date ordering or window violations.
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrInvalidTimeRange is returned when start/end clock times are malformed.
	ErrInvalidTimeRange = errors.New("invalid time range")

	// ErrInvalidHours is returned when derived hours leave [0, 24].
	ErrInvalidHours = errors.New("invalid hours")

	// ErrInvalidBreak is returned for break placement or duration violations.
	ErrInvalidBreak = errors.New("invalid break")

	// ErrOverlappingEntry is returned when a new entry's time range collides
	// with an existing entry for the same employee and date.
	ErrOverlappingEntry = errors.New("duplicate or overlapping entry")

	// ErrHolidayOverlap is returned when an absence request intersects an
	// existing pending or approved request.
	ErrHolidayOverlap = errors.New("overlapping holiday request")

	// ErrBusinessRule is returned for remaining business constraints such as
	// the 30-day maximum absence duration.
	ErrBusinessRule = errors.New("business rule violation")

	// ErrApprovalTargetNotFound is returned when an approval operation names
	// a missing entry, request, employee or approver. Bulk operations abort
	// entirely on this error.
	ErrApprovalTargetNotFound = errors.New("approval target not found")

	// ErrAlreadyFinalized is returned when a transition is attempted out of
	// a terminal approval state. In a race, exactly one caller wins and the
	// others receive this error.
	ErrAlreadyFinalized = errors.New("already approved or rejected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry context for caller display
// =============================================================================

// MissingFieldError names the field a draft is missing.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingRequiredField }

// NotFoundError identifies the missing referenced entity.
type NotFoundError struct {
	Kind string // "employee", "project", "holiday type", ...
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrEntityNotFound }

// DateRangeError describes a date rule violation.
type DateRangeError struct {
	Field  string
	Value  Date
	Reason string
}

func (e *DateRangeError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Field, e.Value, e.Reason)
}

func (e *DateRangeError) Unwrap() error { return ErrInvalidDateRange }

// TimeRangeError describes a clock-time rule violation.
type TimeRangeError struct {
	Start  ClockTime
	End    ClockTime
	Reason string
}

func (e *TimeRangeError) Error() string {
	return fmt.Sprintf("time range %s-%s: %s", e.Start, e.End, e.Reason)
}

func (e *TimeRangeError) Unwrap() error { return ErrInvalidTimeRange }

// HoursError describes an out-of-bounds derived hours value.
type HoursError struct {
	Minutes int
	Reason  string
}

func (e *HoursError) Error() string {
	return fmt.Sprintf("worked minutes %d: %s", e.Minutes, e.Reason)
}

func (e *HoursError) Unwrap() error { return ErrInvalidHours }

// BreakError points at the offending break by index.
type BreakError struct {
	Index  int
	Break  BreakInterval
	Reason string
}

func (e *BreakError) Error() string {
	return fmt.Sprintf("break %d (%s-%s): %s", e.Index, e.Break.Start, e.Break.End, e.Reason)
}

func (e *BreakError) Unwrap() error { return ErrInvalidBreak }

// OverlapError carries the existing entry a new one collides with.
type OverlapError struct {
	ExistingID EntryID
	Date       Date
	Start      ClockTime
	End        ClockTime
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("entry overlaps existing %s on %s (%s-%s)",
		e.ExistingID, e.Date, e.Start, e.End)
}

func (e *OverlapError) Unwrap() error { return ErrOverlappingEntry }

// HolidayOverlapError carries the conflicting request's own range and type
// so the caller can display what is in the way.
type HolidayOverlapError struct {
	ConflictID RequestID
	Start      Date
	End        Date
	TypeCode   string
	Status     ApprovalStatus
}

func (e *HolidayOverlapError) Error() string {
	return fmt.Sprintf("request overlaps %s %s (%s to %s, %s)",
		e.Status, e.ConflictID, e.Start, e.End, e.TypeCode)
}

func (e *HolidayOverlapError) Unwrap() error { return ErrHolidayOverlap }

// RuleError names the violated business rule.
type RuleError struct {
	Rule   string
	Detail string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Detail)
}

func (e *RuleError) Unwrap() error { return ErrBusinessRule }

// ApprovalTargetError names the entity a batch could not resolve.
type ApprovalTargetError struct {
	Kind string
	ID   string
}

func (e *ApprovalTargetError) Error() string {
	return fmt.Sprintf("approval target %s not found: %s", e.Kind, e.ID)
}

func (e *ApprovalTargetError) Unwrap() error { return ErrApprovalTargetNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation reports whether the error is a recoverable validation outcome
// as opposed to an infrastructure failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingRequiredField) ||
		errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrInvalidTimeRange) ||
		errors.Is(err, ErrInvalidHours) ||
		errors.Is(err, ErrInvalidBreak) ||
		errors.Is(err, ErrOverlappingEntry) ||
		errors.Is(err, ErrHolidayOverlap) ||
		errors.Is(err, ErrBusinessRule)
}

// IsNotFound reports whether the error indicates a missing entity of any kind.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound) ||
		errors.Is(err, ErrApprovalTargetNotFound)
}

// IsConflict reports whether the error is a state conflict the caller can
// resolve by reloading.
func IsConflict(err error) bool {
	return errors.Is(err, ErrOverlappingEntry) ||
		errors.Is(err, ErrHolidayOverlap) ||
		errors.Is(err, ErrAlreadyFinalized)
}
