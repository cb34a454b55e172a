package shipment

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy for shipment lookups.
type ErrorCategory string

const (
	// ErrorNotFound: the store answered but holds no record for the id.
	ErrorNotFound ErrorCategory = "not_found"

	// ErrorTransport: the remote call failed (non-success status or
	// network fault).
	ErrorTransport ErrorCategory = "transport"

	// ErrorBadData: the store returned a body that does not decode into a
	// valid record.
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorTimeout: the lookup exceeded its deadline.
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorInternal: an unexpected fault inside the resolver.
	ErrorInternal ErrorCategory = "internal"
)

// LookupError wraps lookup failures with normalized categorization.
// Retryable means a fresh user-initiated retry is worth attempting; the
// resolver itself never retries.
type LookupError struct {
	Category   ErrorCategory
	Message    string
	Underlying error
	Retryable  bool
}

func (e *LookupError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("shipment lookup [%s]: %s: %v", e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("shipment lookup [%s]: %s", e.Category, e.Message)
}

func (e *LookupError) Unwrap() error {
	return e.Underlying
}

// NewLookupError creates a categorized lookup error. Transport faults and
// timeouts are retryable; bad data and not-found are not.
func NewLookupError(category ErrorCategory, message string, underlying error) *LookupError {
	retryable := category == ErrorTransport || category == ErrorTimeout

	return &LookupError{
		Category:   category,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var le *LookupError
	if errors.As(err, &le) {
		return le.Retryable
	}
	return false
}

// CategoryOf extracts the error category from an error.
func CategoryOf(err error) ErrorCategory {
	var le *LookupError
	if errors.As(err, &le) {
		return le.Category
	}
	return ErrorInternal
}

// IsNotFound reports whether the error is the absence signal, as opposed to
// a transport or decode failure.
func IsNotFound(err error) bool {
	return CategoryOf(err) == ErrorNotFound
}
