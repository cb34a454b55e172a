// Package store persists gateway sessions. Two implementations exist: an
// in-memory store for single-instance and test use, and a Redis store for
// deployments with more than one gateway instance.
package store

import (
	"context"
	"time"

	"blockship/internal/session"
	id "blockship/pkg/domain"
)

// Store is the session persistence contract. Update is the serialization
// primitive: implementations must run the mutation atomically with respect
// to other Update calls for the same session (a mutex in memory, a WATCH
// transaction in Redis), so per-session operations never interleave.
type Store interface {
	Create(ctx context.Context, sess *session.Session) error

	// FindByID returns sentinel.ErrNotFound for unknown sessions and
	// sentinel.ErrExpired for sessions past their TTL.
	FindByID(ctx context.Context, sessionID id.SessionID) (*session.Session, error)

	// Update applies fn to the current session state and persists the
	// result. fn may be invoked more than once under optimistic
	// concurrency; it must be free of side effects beyond the session.
	Update(ctx context.Context, sessionID id.SessionID, fn func(*session.Session) error) (*session.Session, error)

	Delete(ctx context.Context, sessionID id.SessionID) error

	// DeleteExpired removes sessions past their TTL as of now and returns
	// the removed sessions so the caller can release per-session resources.
	DeleteExpired(ctx context.Context, now time.Time) ([]*session.Session, error)

	// IsSessionClosed reports whether the session behind a still-valid
	// token is gone (deleted or expired). Used by the auth middleware.
	IsSessionClosed(ctx context.Context, sessionID id.SessionID) (bool, error)
}
