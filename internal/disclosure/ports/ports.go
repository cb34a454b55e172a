// Package ports declares the capabilities the disclosure service consumes.
// The service orchestrates; every effectful dependency arrives through one
// of these interfaces so tests substitute mocks and main wires the real
// implementations.
package ports

import (
	"context"
	"time"

	"blockship/internal/identity"
	"blockship/internal/notification"
	"blockship/internal/session"
	"blockship/internal/shipment"
	"blockship/internal/wallet"
	id "blockship/pkg/domain"
	"blockship/pkg/platform/audit"
)

//go:generate mockgen -source=ports.go -destination=../mocks/mocks.go -package=mocks

// SessionStore is the session persistence slice the service needs. Update
// is the per-session serialization primitive.
type SessionStore interface {
	Create(ctx context.Context, sess *session.Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*session.Session, error)
	Update(ctx context.Context, sessionID id.SessionID, fn func(*session.Session) error) (*session.Session, error)
	Delete(ctx context.Context, sessionID id.SessionID) error
}

// Resolver looks up one shipment record. Failures are shipment.LookupError
// values carrying their category.
type Resolver interface {
	Resolve(ctx context.Context, shipmentID id.ShipmentID) (*shipment.Record, error)
}

// WalletGate tracks wallet connection state for sessions.
type WalletGate interface {
	ProviderConfigured() bool
	CheckExistingConnection(ctx context.Context, sessionID id.SessionID) (*wallet.Info, error)
	Connect(ctx context.Context, sessionID id.SessionID) (*wallet.Info, error)
}

// IdentityGate tracks account authentication for one session.
type IdentityGate interface {
	Start(ctx context.Context) error
	Release()
	SignIn(ctx context.Context, req identity.SignInRequest) error
}

// IdentityGateFactory builds the per-session identity gate at session open.
type IdentityGateFactory func(sessionID id.SessionID) IdentityGate

// Notifier is the per-session notification feed.
type Notifier interface {
	Push(ctx context.Context, sessionID id.SessionID, variant notification.Variant, title, description string) notification.Notification
	DropSession(ctx context.Context, sessionID id.SessionID)
}

// AuditSink receives audit events. Emission failures are logged by the
// service, never surfaced to the client.
type AuditSink interface {
	Emit(ctx context.Context, event audit.Event) error
}

// TokenIssuer mints the session token returned at open.
type TokenIssuer interface {
	GenerateSessionToken(sessionID id.SessionID, version id.APIVersion, expiresIn time.Duration) (string, error)
}

// ExplorerLinks builds block-explorer URLs for NFT-backed records.
type ExplorerLinks interface {
	TokenURL(tokenID string) (string, error)
}
