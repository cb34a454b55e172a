// Package domainerrors defines the coded error taxonomy shared by all
// services. Every error crossing a service boundary carries a Code so
// callers can branch on category without string matching, and the HTTP
// layer can translate it to a status without knowing the caller.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for programmatic handling. Codes are stable
// wire values; renaming one is a breaking change for API clients.
type Code string

const (
	// CodeInternal marks unexpected faults. Details are logged, never
	// returned to clients.
	CodeInternal Code = "internal_error"

	// CodeInvariantViolation marks a broken internal assumption. Like
	// CodeInternal it maps to a 500, but it signals a bug rather than a
	// dependency failure.
	CodeInvariantViolation Code = "invariant_violation"

	// CodeValidation marks well-formed input that fails a business rule.
	CodeValidation Code = "validation_error"

	// CodeInvalidInput marks malformed input rejected before any
	// business logic runs.
	CodeInvalidInput Code = "invalid_input"

	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeTimeout      Code = "timeout"

	// CodeUnavailable marks an operation that is recognized but not
	// currently serviceable.
	CodeUnavailable Code = "unavailable"
)

// Error is the concrete coded error. Use New or Wrap; the zero value is
// not meaningful.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving it
// for errors.Is/As. A nil err behaves like New.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return &Error{Code: code, Message: message}
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var dErr *Error
		if !errors.As(err, &dErr) {
			return false
		}
		if dErr.Code == code {
			return true
		}
		err = dErr.Err
	}
	return false
}

// Is is HasCode under a name that reads naturally in conditionals.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}
