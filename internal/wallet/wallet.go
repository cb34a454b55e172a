// Package wallet binds a blockchain wallet address to a gateway session:
// silent enumeration of already-authorized accounts at session open, and an
// idempotent interactive connect.
package wallet

import (
	"context"
	"errors"
	"fmt"
)

// Provider is the injected wallet capability. It is optionally absent: a
// deployment without a configured wallet endpoint passes a nil Provider and
// every connect fails with ErrorMissing while enumeration resolves absent.
type Provider interface {
	// ListAuthorizedAccounts enumerates accounts already authorized for
	// this origin without prompting the user.
	ListAuthorizedAccounts(ctx context.Context) ([]string, error)

	// RequestAccess interactively asks the user to authorize an account.
	// It may block on user interaction and may be rejected.
	RequestAccess(ctx context.Context) error

	Health(ctx context.Context) error
}

// ErrorCategory classifies wallet provider failures.
type ErrorCategory string

const (
	// ErrorMissing: no wallet provider is injected in this environment.
	ErrorMissing ErrorCategory = "missing"

	// ErrorRejected: the user declined the authorization prompt.
	ErrorRejected ErrorCategory = "rejected"

	// ErrorLocked: the provider answered but exposed no account.
	ErrorLocked ErrorCategory = "locked"

	// ErrorPending: an authorization prompt is already open.
	ErrorPending ErrorCategory = "pending"

	// ErrorTransport: the provider could not be reached.
	ErrorTransport ErrorCategory = "transport"
)

// DefaultFailureMessage is shown when a provider failure carries no usable
// message of its own.
const DefaultFailureMessage = "wallet unavailable or locked"

// ProviderError is a classified wallet failure with a human-readable
// message suitable for a notification.
type ProviderError struct {
	Category   ErrorCategory
	Message    string
	Underlying error
}

func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("wallet [%s]: %s: %v", e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("wallet [%s]: %s", e.Category, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// NewProviderError creates a classified wallet error, defaulting the
// message when the failure carries none.
func NewProviderError(category ErrorCategory, message string, underlying error) *ProviderError {
	if message == "" {
		message = DefaultFailureMessage
	}
	return &ProviderError{Category: category, Message: message, Underlying: underlying}
}

// UserMessage extracts the human-readable message from a wallet error,
// falling back to the default.
func UserMessage(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return DefaultFailureMessage
}

// CategoryOf extracts the category; unclassified errors count as transport.
func CategoryOf(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorTransport
}
