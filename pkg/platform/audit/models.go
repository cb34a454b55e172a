package audit

import (
	"time"

	id "blockship/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention (e.g., 7 years).
	// Examples: wallet bindings, provenance disclosures.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring and forensics.
	// These feed into SIEM systems and alerting pipelines.
	// Examples: sign-in failures, rejected claim attempts, session closures.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational visibility.
	// These can be sampled or aggregated with shorter retention.
	// Examples: session creation, shipment searches, routine lookups.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	SessionID id.SessionID
	Subject   string
	Action    string
	Decision  string
	Reason    string
	// Enrichment fields for audit trail completeness
	WalletAddress string // Checksummed wallet address when one is bound to the session
	ShipmentID    string // Shipment identifier for search and disclosure events
	RequestID     string // Correlation ID from HTTP request context
	// ActorID tracks who performed the action when different from the session
	// owner. Used for admin operations performed on a session's behalf.
	// This is a string to support various actor identification schemes.
	ActorID string
	// SubjectIDHash is a SHA-256 hash of the subject identifier being
	// disclosed. Used for compliance traceability without storing the raw
	// identifier in every sink.
	SubjectIDHash string
}

type AuditEvent string

const (
	// Session events
	EventSessionOpened  AuditEvent = "session_opened"
	EventSessionClosed  AuditEvent = "session_closed"
	EventSessionExpired AuditEvent = "session_expired"

	// Identity events
	EventSignInSucceeded AuditEvent = "signin_succeeded"
	EventSignInFailed    AuditEvent = "signin_failed"

	// Wallet events
	EventWalletDetected      AuditEvent = "wallet_detected"
	EventWalletConnected     AuditEvent = "wallet_connected"
	EventWalletConnectFailed AuditEvent = "wallet_connect_failed"

	// Shipment search events
	EventShipmentSearched     AuditEvent = "shipment_searched"
	EventShipmentFound        AuditEvent = "shipment_found"
	EventShipmentLookupFailed AuditEvent = "shipment_lookup_failed"
	EventSearchSuperseded     AuditEvent = "search_superseded"

	// Disclosure events
	EventDocumentOpened  AuditEvent = "document_opened"
	EventTokenLinkOpened AuditEvent = "token_link_opened"

	// Claim events
	EventClaimDenied  AuditEvent = "claim_denied"
	EventClaimBlocked AuditEvent = "claim_blocked"
)

// eventCategories maps each audit event to its category.
// Compliance: legal/regulatory significance, long retention required.
// Security: security monitoring, SIEM integration, alerting.
// Operations: debugging, operational visibility, can be sampled.
var eventCategories = map[AuditEvent]EventCategory{
	// Compliance events - require tamper-proof storage
	EventWalletConnected: CategoryCompliance,
	EventDocumentOpened:  CategoryCompliance,
	EventTokenLinkOpened: CategoryCompliance,

	// Security events - feed into SIEM and alerting
	EventSignInFailed:        CategorySecurity,
	EventSessionClosed:       CategorySecurity,
	EventWalletConnectFailed: CategorySecurity,
	EventClaimDenied:         CategorySecurity,

	// Operations events - routine activity, can be sampled
	EventSessionOpened:        CategoryOperations,
	EventSessionExpired:       CategoryOperations,
	EventSignInSucceeded:      CategoryOperations,
	EventWalletDetected:       CategoryOperations,
	EventShipmentSearched:     CategoryOperations,
	EventShipmentFound:        CategoryOperations,
	EventShipmentLookupFailed: CategoryOperations,
	EventSearchSuperseded:     CategoryOperations,
	EventClaimBlocked:         CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

