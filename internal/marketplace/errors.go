package marketplace

import (
	"errors"
	"fmt"
)

var (
	ErrValidation             = errors.New("validation failed")
	ErrInvalidState           = errors.New("invalid state")
	ErrDuplicateApplication   = errors.New("already applied to this task")
	ErrNotAssigned            = errors.New("not assigned to this task")
	ErrSelfAssignment         = errors.New("task owner cannot apply to own task")
	ErrConcurrentModification = errors.New("task was modified concurrently")
	ErrAlreadyTerminal        = errors.New("task is already completed")
	ErrNotFound               = errors.New("not found")
	ErrForbidden              = errors.New("not allowed")
)

// ValidationError reports malformed input for one field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func stateErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

func notFound(what, id string) error {
	return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
}

// Error codes, stable for API clients.
const (
	CodeValidation             = "VALIDATION_ERROR"
	CodeInvalidState           = "INVALID_STATE"
	CodeDuplicateApplication   = "DUPLICATE_APPLICATION"
	CodeNotAssigned            = "NOT_ASSIGNED"
	CodeSelfAssignment         = "SELF_ASSIGNMENT"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeAlreadyTerminal        = "ALREADY_TERMINAL"
	CodeNotFound               = "NOT_FOUND"
	CodeForbidden              = "FORBIDDEN"
	CodeInternal               = "INTERNAL_ERROR"
)

// Code returns the API code for err.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrDuplicateApplication):
		return CodeDuplicateApplication
	case errors.Is(err, ErrNotAssigned):
		return CodeNotAssigned
	case errors.Is(err, ErrSelfAssignment):
		return CodeSelfAssignment
	case errors.Is(err, ErrConcurrentModification):
		return CodeConcurrentModification
	case errors.Is(err, ErrAlreadyTerminal):
		return CodeAlreadyTerminal
	case errors.Is(err, ErrInvalidState):
		return CodeInvalidState
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	}
	return CodeInternal
}
