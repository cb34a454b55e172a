package wallet

import (
	"context"
	"errors"
	"log/slog"

	"blockship/internal/session"
	id "blockship/pkg/domain"
	strutil "blockship/pkg/platform/strings"
)

// SessionStore is the slice of the session store the gate needs. All wallet
// state changes go through Update so they serialize with other mutations of
// the same session.
type SessionStore interface {
	Update(ctx context.Context, sessionID id.SessionID, fn func(*session.Session) error) (*session.Session, error)
}

// Info is the wallet state returned to callers: the canonical address plus
// its display truncation.
type Info struct {
	Address   string
	Truncated string
}

// Gate tracks whether a wallet address is bound to a session. provider may
// be nil (no wallet injected in this environment).
type Gate struct {
	provider Provider
	sessions SessionStore
	logger   *slog.Logger
}

func NewGate(provider Provider, sessions SessionStore, logger *slog.Logger) *Gate {
	return &Gate{
		provider: provider,
		sessions: sessions,
		logger:   logger,
	}
}

// ProviderConfigured reports whether a wallet provider is injected.
func (g *Gate) ProviderConfigured() bool {
	return g.provider != nil
}

// Health checks the provider, reporting healthy when none is configured
// (an absent provider is a valid deployment, not a failure).
func (g *Gate) Health(ctx context.Context) error {
	if g.provider == nil {
		return nil
	}
	return g.provider.Health(ctx)
}

// CheckExistingConnection runs once at session open. It silently enumerates
// already-authorized accounts; an absent provider, an empty account list,
// or any provider failure resolve to absent without error — enumeration
// failures are logged and never fatal.
func (g *Gate) CheckExistingConnection(ctx context.Context, sessionID id.SessionID) (*Info, error) {
	if g.provider == nil {
		return nil, nil
	}

	accounts, err := g.provider.ListAuthorizedAccounts(ctx)
	if err != nil {
		g.logger.WarnContext(ctx, "wallet enumeration failed, treating as absent",
			"session_id", sessionID.String(),
			"error", err,
		)
		return nil, nil
	}
	// Providers may repeat an account across injected wallets.
	accounts = strutil.DedupeAndTrim(accounts)
	if len(accounts) == 0 {
		return nil, nil
	}

	address, err := NormalizeAddress(accounts[0])
	if err != nil {
		g.logger.WarnContext(ctx, "wallet returned malformed address, treating as absent",
			"session_id", sessionID.String(),
			"error", err,
		)
		return nil, nil
	}

	_, err = g.sessions.Update(ctx, sessionID, func(sess *session.Session) error {
		sess.WalletAddress = address
		sess.WalletConnected = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Info{Address: address, Truncated: TruncateAddress(address)}, nil
}

// Connect binds an address interactively. Idempotent while connected: it
// returns the current address without prompting again. Otherwise it asks
// the provider for authorization, then enumerates a second time to obtain
// the bound address. The WalletConnecting flag is held across both steps
// and cleared on every exit path, including failure.
func (g *Gate) Connect(ctx context.Context, sessionID id.SessionID) (*Info, error) {
	var existing string
	_, err := g.sessions.Update(ctx, sessionID, func(sess *session.Session) error {
		if sess.WalletConnected {
			existing = sess.WalletAddress
			return nil
		}
		sess.WalletConnecting = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if existing != "" {
		return &Info{Address: existing, Truncated: TruncateAddress(existing)}, nil
	}

	info, connectErr := g.connect(ctx)

	// Clear the loading flag regardless of outcome; bind on success.
	_, updateErr := g.sessions.Update(ctx, sessionID, func(sess *session.Session) error {
		sess.WalletConnecting = false
		if connectErr == nil {
			sess.WalletAddress = info.Address
			sess.WalletConnected = true
		}
		return nil
	})

	if connectErr != nil {
		return nil, connectErr
	}
	if updateErr != nil {
		return nil, updateErr
	}
	return info, nil
}

func (g *Gate) connect(ctx context.Context) (*Info, error) {
	if g.provider == nil {
		return nil, NewProviderError(ErrorMissing, "no wallet provider detected", nil)
	}

	if err := g.provider.RequestAccess(ctx); err != nil {
		return nil, classify(err)
	}

	accounts, err := g.provider.ListAuthorizedAccounts(ctx)
	if err != nil {
		return nil, classify(err)
	}
	accounts = strutil.DedupeAndTrim(accounts)
	if len(accounts) == 0 {
		return nil, NewProviderError(ErrorLocked, "", nil)
	}

	address, err := NormalizeAddress(accounts[0])
	if err != nil {
		return nil, NewProviderError(ErrorTransport, "wallet returned a malformed address", err)
	}

	return &Info{Address: address, Truncated: TruncateAddress(address)}, nil
}

// classify keeps already-classified provider errors and wraps anything else
// as a transport failure with the default message.
func classify(err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return NewProviderError(ErrorTransport, "", err)
}
