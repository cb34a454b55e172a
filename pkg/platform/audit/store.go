package audit

import (
	"context"

	id "blockship/pkg/domain"
)

// Store persists audit events. Implementations must be safe for concurrent
// use; the publishers emit from request handlers and background workers.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySession(ctx context.Context, sessionID id.SessionID) ([]Event, error)
	ListAll(ctx context.Context) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
