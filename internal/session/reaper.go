package session

import (
	"context"
	"log/slog"
	"time"
)

// ExpiredDeleter is the slice of the session store the reaper needs.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) ([]*Session, error)
}

// Reaper removes expired sessions on an interval and hands each one to the
// OnExpire hook so per-session resources (identity subscriptions,
// notification rings) are released. Sessions closed explicitly go through
// the same hook from the close handler, not through the reaper.
type Reaper struct {
	store    ExpiredDeleter
	interval time.Duration
	logger   *slog.Logger

	// OnExpire runs for every reaped session. Optional.
	OnExpire func(ctx context.Context, sess *Session)
}

func NewReaper(store ExpiredDeleter, interval time.Duration, logger *slog.Logger) *Reaper {
	return &Reaper{
		store:    store,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reap(ctx)
		}
	}
}

func (r *Reaper) reap(ctx context.Context) {
	removed, err := r.store.DeleteExpired(ctx, time.Now())
	if err != nil {
		r.logger.ErrorContext(ctx, "session reap failed", "error", err)
		return
	}
	if len(removed) == 0 {
		return
	}

	r.logger.InfoContext(ctx, "reaped expired sessions", "count", len(removed))
	if r.OnExpire != nil {
		for _, sess := range removed {
			r.OnExpire(ctx, sess)
		}
	}
}
