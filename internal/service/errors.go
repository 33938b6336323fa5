package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/space-booking/internal/repository"
)

// Sentinels matched with errors.Is by the HTTP layer.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("not found")
)

// Validation codes carried by ValidationError.
const (
	CodePastDate          = "past_date"
	CodeInvalidTimeRange  = "invalid_time_range"
	CodeSpaceUnavailable  = "space_unavailable"
	CodeOverlap           = "overlap"
	CodeReasonRequired    = "reason_required"
	CodeDuplicate         = "duplicate_reservation"
	CodeApproverRequired  = "approver_required"
	CodeApproverScope     = "approver_scope"
	CodeInvalidTransition = "invalid_transition"
	CodeInvalidField      = "invalid_field"
)

// ValidationError is a rule violation the caller can fix by changing the
// input. It matches ErrValidation.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(code, format string, args ...any) error {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ConflictError reports a constraint the storage layer enforced after the
// application checks passed, typically a concurrent write. It matches
// ErrConflict and is safe to retry.
type ConflictError struct {
	Message string
	Err     error
}

func (e *ConflictError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ConflictError) Unwrap() []error { return []error{ErrConflict, e.Err} }

// storageError translates repository sentinels into service errors.
func storageError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrDuplicate):
		return &ConflictError{Message: "a record with the same key already exists", Err: err}
	case errors.Is(err, repository.ErrOverlap):
		return &ConflictError{Message: "overlaps an approved reservation", Err: err}
	case errors.Is(err, repository.ErrConflict):
		return &ConflictError{Message: "record is still referenced", Err: err}
	case errors.Is(err, repository.ErrCheckViolation):
		return &ValidationError{Code: CodeInvalidField, Message: "value outside the allowed range"}
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
