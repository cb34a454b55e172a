// Package receipts records an operational receipt for every resolver
// invocation: what outcome a lookup had and how long it took, keyed by a
// hash of the identifier so raw shipment ids never land in ops storage.
package receipts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Receipt is one resolver invocation.
type Receipt struct {
	ID             uuid.UUID
	ShipmentIDHash string
	Outcome        string
	Duration       time.Duration
	CreatedAt      time.Time
}

// Store persists receipts. Implementations must be safe for concurrent use.
type Store interface {
	Record(ctx context.Context, receipt Receipt) error
	ListRecent(ctx context.Context, limit int) ([]Receipt, error)

	// Prune deletes receipts created before the cutoff and returns how
	// many were removed.
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// HashShipmentID produces the stable hash under which a lookup is recorded.
func HashShipmentID(shipmentID string) string {
	sum := sha256.Sum256([]byte(shipmentID))
	return hex.EncodeToString(sum[:])
}

// NewReceipt builds a receipt for one lookup.
func NewReceipt(shipmentID, outcome string, duration time.Duration, now time.Time) Receipt {
	return Receipt{
		ID:             uuid.New(),
		ShipmentIDHash: HashShipmentID(shipmentID),
		Outcome:        outcome,
		Duration:       duration,
		CreatedAt:      now,
	}
}
