// Package session holds the per-client gateway session: the two identity
// proofs, the disclosure sub-state, and lifecycle metadata. A session is
// created at open with everything absent, populated asynchronously by the
// identity and wallet gates, and discarded on explicit close or TTL expiry.
package session

import (
	"time"

	"blockship/internal/shipment"
	id "blockship/pkg/domain"
)

// Session is the unit the store persists. All mutation goes through
// Store.Update so concurrent requests against one session are serialized.
type Session struct {
	ID id.SessionID `json:"id"`

	// Subject is the identity-provider subject bound at sign-in. Identity
	// session events for other subjects are ignored by this session's gate.
	Subject string `json:"subject,omitempty"`

	// Client metadata captured at open, display-only.
	Device      string `json:"device,omitempty"`
	IPAddress   string `json:"ip_address,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	// Identity proofs. WalletConnected is true iff WalletAddress is present
	// and was produced by a successful connect or an already-authorized
	// enumeration. WalletConnecting is the loading flag held across the
	// two-step connect sequence.
	AccountAuthenticated bool   `json:"account_authenticated"`
	WalletAddress        string `json:"wallet_address,omitempty"`
	WalletConnected      bool   `json:"wallet_connected"`
	WalletConnecting     bool   `json:"wallet_connecting"`

	Disclosure Disclosure `json:"disclosure"`
}

// Disclosure is the search/disclosure sub-state of a session.
type Disclosure struct {
	State id.DisclosureState `json:"state"`

	// LastQuery is retained so the search box stays pre-filled after a
	// failed lookup.
	LastQuery string `json:"last_query,omitempty"`

	// Record is the resolved shipment, the sole source of truth for the
	// summary and action panel while in StateFound. Immutable once set for
	// a given search.
	Record *shipment.Record `json:"record,omitempty"`

	// SearchToken is the monotonically increasing token of the latest
	// issued search. Only the in-flight resolution holding the latest
	// token may apply its outcome; stale results are discarded.
	SearchToken uint64 `json:"search_token"`
}

// New returns a fresh session in the initial state.
func New(sessionID id.SessionID, now time.Time, ttl time.Duration) *Session {
	return &Session{
		ID:        sessionID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Disclosure: Disclosure{
			State: id.StateIdle,
		},
	}
}

// Expired reports whether the session passed its TTL.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
