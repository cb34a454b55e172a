package disclosure

import (
	"time"

	"blockship/internal/session"
	"blockship/internal/shipment"
	"blockship/internal/wallet"
	id "blockship/pkg/domain"
)

// SessionView is the client-facing projection of a session. It never
// exposes store internals like the search token or the fingerprint.
type SessionView struct {
	SessionID string
	Device    string
	CreatedAt time.Time
	ExpiresAt time.Time

	AccountAuthenticated bool
	Subject              string

	Wallet WalletView

	Disclosure DisclosureView
}

// WalletView is the wallet slice of the projection.
type WalletView struct {
	ProviderConfigured bool
	Connected          bool
	Connecting         bool
	Address            string
	Truncated          string
}

// DisclosureView is the search/disclosure slice of the projection.
type DisclosureView struct {
	State     id.DisclosureState
	LastQuery string
	Record    *shipment.Record

	// ClaimAllowed reflects the claim guards against the current state;
	// MissingGuards lists what still blocks a claim.
	ClaimAllowed  bool
	MissingGuards []ClaimGuard
}

func newSessionView(sess *session.Session, providerConfigured bool) *SessionView {
	decision := EvaluateClaim(sess)
	return &SessionView{
		SessionID:            sess.ID.String(),
		Device:               sess.Device,
		CreatedAt:            sess.CreatedAt,
		ExpiresAt:            sess.ExpiresAt,
		AccountAuthenticated: sess.AccountAuthenticated,
		Subject:              sess.Subject,
		Wallet:               *newWalletView(sess, providerConfigured),
		Disclosure: DisclosureView{
			State:         sess.Disclosure.State,
			LastQuery:     sess.Disclosure.LastQuery,
			Record:        sess.Disclosure.Record,
			ClaimAllowed:  decision.Allowed,
			MissingGuards: decision.Missing,
		},
	}
}

func newWalletView(sess *session.Session, providerConfigured bool) *WalletView {
	view := &WalletView{
		ProviderConfigured: providerConfigured,
		Connected:          sess.WalletConnected,
		Connecting:         sess.WalletConnecting,
		Address:            sess.WalletAddress,
	}
	if sess.WalletAddress != "" {
		view.Truncated = wallet.TruncateAddress(sess.WalletAddress)
	}
	return view
}
