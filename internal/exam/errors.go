package exam

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or missing input. Nothing was read or written.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a test, question or result that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrTransient marks a datastore failure the caller may retry as a whole.
	ErrTransient = errors.New("datastore unavailable")
	// ErrIntegrity marks a constraint violation. Retrying will not help.
	ErrIntegrity = errors.New("data integrity violation")
)

// Validationf builds an ErrValidation carrying a caller-facing message.
func Validationf(format string, args ...any) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}

type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }
func (e *validationError) Unwrap() error { return ErrValidation }

func notFound(what string, id any) error {
	return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
}
