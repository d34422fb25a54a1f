package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by a Store when no row matches.
var ErrNotFound = errors.New("not found")

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// BackendError is a non-2xx answer of the hosted backend.
type BackendError struct {
	Status  int
	Message string
}

func (err BackendError) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("backend responded with status %d", err.Status)
	}
	return err.Message
}

// IsNotFound reports whether err was caused by ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Cause(err) == ErrNotFound
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
