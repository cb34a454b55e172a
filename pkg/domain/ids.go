package domain

import (
	"github.com/google/uuid"

	dErrors "blockship/pkg/domain-errors"
)

// Typed identifiers for the core entities. Wrapping uuid.UUID in distinct
// types makes cross-entity assignment a compile error, so a notification ID
// can never be passed where a session ID is expected.
type (
	// SessionID identifies one gateway session (one connected client).
	SessionID uuid.UUID

	// NotificationID identifies a transient notification within a session.
	NotificationID uuid.UUID
)

// parseUUID enforces the shared parsing invariant: IDs must be valid,
// non-nil UUIDs. Inputs arrive from untrusted sources (URL params, tokens),
// so parsing failures map to CodeInvalidInput.
func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id cannot be nil")
	}
	return u, nil
}

// ParseSessionID constructs a SessionID from external input.
func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID(s, "session")
	if err != nil {
		return SessionID(uuid.Nil), err
	}
	return SessionID(u), nil
}

// NewSessionID returns a freshly generated session identifier.
func NewSessionID() SessionID {
	return SessionID(uuid.New())
}

func (id SessionID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether the ID is the zero UUID.
func (id SessionID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

// ParseNotificationID constructs a NotificationID from external input.
func ParseNotificationID(s string) (NotificationID, error) {
	u, err := parseUUID(s, "notification")
	if err != nil {
		return NotificationID(uuid.Nil), err
	}
	return NotificationID(u), nil
}

// NewNotificationID returns a freshly generated notification identifier.
func NewNotificationID() NotificationID {
	return NotificationID(uuid.New())
}

func (id NotificationID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether the ID is the zero UUID.
func (id NotificationID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}
