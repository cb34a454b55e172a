// Package notification keeps a small per-session feed of user-facing
// toasts: wallet connected, shipment located, claim rejected. The feed is
// advisory UI state, not an audit trail, so it lives in memory and dies
// with the session.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	id "blockship/pkg/domain"
	dErrors "blockship/pkg/domain-errors"
)

// Variant selects the toast styling.
type Variant string

const (
	VariantSuccess     Variant = "success"
	VariantDestructive Variant = "destructive"
)

// Notification is one entry in a session's feed.
type Notification struct {
	ID          uuid.UUID `json:"id"`
	Variant     Variant   `json:"variant"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// maxPerSession bounds each session's feed; the oldest entry is evicted
// when a push would exceed it.
const maxPerSession = 50

// Center holds the feeds for all live sessions.
type Center struct {
	mu    sync.Mutex
	feeds map[id.SessionID][]Notification
	now   func() time.Time
}

func NewCenter() *Center {
	return &Center{
		feeds: make(map[id.SessionID][]Notification),
		now:   time.Now,
	}
}

// Push appends a notification to the session's feed and returns it.
func (c *Center) Push(_ context.Context, sessionID id.SessionID, variant Variant, title, description string) Notification {
	n := Notification{
		ID:          uuid.New(),
		Variant:     variant,
		Title:       title,
		Description: description,
		CreatedAt:   c.now(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	feed := append(c.feeds[sessionID], n)
	if len(feed) > maxPerSession {
		feed = feed[len(feed)-maxPerSession:]
	}
	c.feeds[sessionID] = feed
	return n
}

// List returns the session's feed newest-first. An unknown session has an
// empty feed, not an error.
func (c *Center) List(_ context.Context, sessionID id.SessionID) []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	feed := c.feeds[sessionID]
	out := make([]Notification, len(feed))
	for i, n := range feed {
		out[len(feed)-1-i] = n
	}
	return out
}

// Dismiss removes one notification from the session's feed.
func (c *Center) Dismiss(_ context.Context, sessionID id.SessionID, notificationID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	feed := c.feeds[sessionID]
	for i, n := range feed {
		if n.ID == notificationID {
			c.feeds[sessionID] = append(feed[:i], feed[i+1:]...)
			return nil
		}
	}
	return dErrors.New(dErrors.CodeNotFound, "notification not found")
}

// DropSession discards a session's entire feed at teardown.
func (c *Center) DropSession(_ context.Context, sessionID id.SessionID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.feeds, sessionID)
}
