// Package publisher provides the audit publisher. It persists events
// through an audit.Store either synchronously or through a bounded
// in-process buffer; durability past the store is the outbox relay's job.
package publisher

import (
	"context"
	"errors"
	"sync"
	"time"

	id "blockship/pkg/domain"
	audit "blockship/pkg/platform/audit"
)

var errBufferFull = errors.New("audit buffer full")

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store audit.Store

	// Async mode. inbox is nil in synchronous mode.
	inbox  chan audit.Event
	done   chan struct{}
	closed bool
	mu     sync.RWMutex
	once   sync.Once
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to asynchronous mode with the
// given buffer size. Events are persisted by a background goroutine; when
// the buffer is full, Emit drops the event rather than blocking the caller.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.inbox = make(chan audit.Event, size)
		}
	}
}

// NewPublisher creates a publisher backed by the given store. Without
// options every Emit writes through synchronously.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store: store,
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.inbox != nil {
		go p.run()
	}
	return p
}

// run drains the inbox until Close closes it. Store failures are dropped;
// an audit write must never take a session operation down with it.
func (p *Publisher) run() {
	defer close(p.done)
	for event := range p.inbox {
		_ = p.store.Append(context.Background(), event)
	}
}

// Emit records an audit event. A zero timestamp is stamped with the current
// time. In async mode a full buffer drops the event and returns an error;
// the caller's operation should proceed regardless.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errBufferFull
	}

	select {
	case p.inbox <- event:
		return nil
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return errBufferFull
}

// List returns the events recorded for a session.
func (p *Publisher) List(ctx context.Context, sessionID id.SessionID) ([]audit.Event, error) {
	return p.store.ListBySession(ctx, sessionID)
}

// Close drains buffered events and stops the background goroutine. Safe to
// call more than once.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.inbox == nil {
			return
		}
		p.mu.Lock()
		p.closed = true
		close(p.inbox)
		p.mu.Unlock()
		<-p.done
	})
}
