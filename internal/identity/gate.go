package identity

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"blockship/internal/session"
	id "blockship/pkg/domain"
	dErrors "blockship/pkg/domain-errors"
)

// SessionStore is the slice of the session store the gate needs.
type SessionStore interface {
	Update(ctx context.Context, sessionID id.SessionID, fn func(*session.Session) error) (*session.Session, error)
}

// Gate tracks account authentication for one session. It subscribes to the
// provider's session-change events at session open and releases the
// subscription at teardown; every matching event synchronously updates the
// session's accountAuthenticated flag.
type Gate struct {
	provider Provider
	sessions SessionStore
	logger   *slog.Logger

	sessionID id.SessionID

	mu          sync.Mutex
	subject     string
	unsubscribe func()
}

func NewGate(provider Provider, sessions SessionStore, logger *slog.Logger, sessionID id.SessionID) *Gate {
	return &Gate{
		provider:  provider,
		sessions:  sessions,
		logger:    logger,
		sessionID: sessionID,
	}
}

// Start subscribes to session-change events. Called once at session open.
func (g *Gate) Start(ctx context.Context) error {
	unsubscribe, err := g.provider.Subscribe(g.onEvent)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "identity provider subscription failed")
	}

	g.mu.Lock()
	g.unsubscribe = unsubscribe
	g.mu.Unlock()

	g.logger.DebugContext(ctx, "identity subscription established",
		"session_id", g.sessionID.String(),
	)
	return nil
}

// Release drops the provider subscription. Safe to call more than once.
func (g *Gate) Release() {
	g.mu.Lock()
	unsubscribe := g.unsubscribe
	g.unsubscribe = nil
	g.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// SignIn binds the subject to this session and delegates to the provider's
// interactive flow. The subject is bound before the provider call so the
// resulting session event is applied and not discarded as foreign.
func (g *Gate) SignIn(ctx context.Context, req SignInRequest) error {
	if req.Subject == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "subject cannot be empty")
	}

	g.mu.Lock()
	g.subject = req.Subject
	g.mu.Unlock()

	if err := g.provider.InteractiveSignIn(ctx, req); err != nil {
		// Surface the provider's own message when it carries one; the
		// caller falls back to a generic message otherwise.
		var dErr *dErrors.Error
		if errors.As(err, &dErr) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeUnauthorized, "")
	}
	return nil
}

// onEvent applies a provider event to the bound session. Events for other
// subjects, or arriving before any subject is bound, are ignored.
func (g *Gate) onEvent(event SessionEvent) {
	g.mu.Lock()
	subject := g.subject
	g.mu.Unlock()

	if subject == "" || event.Subject != subject {
		return
	}

	ctx := context.Background()
	_, err := g.sessions.Update(ctx, g.sessionID, func(sess *session.Session) error {
		sess.AccountAuthenticated = event.UserPresent
		if event.UserPresent {
			sess.Subject = event.Subject
		}
		return nil
	})
	if err != nil {
		// The session may already be gone; a late event must not fail
		// anything, only log.
		g.logger.WarnContext(ctx, "identity event dropped",
			"session_id", g.sessionID.String(),
			"error", err,
		)
	}
}
