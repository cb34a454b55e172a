package domain

import (
	"strings"

	dErrors "blockship/pkg/domain-errors"
)

// ShipmentID is the externally supplied, opaque, case-sensitive identifier a
// recipient types into the search box. It is also the lookup key against the
// remote shipment store.
//
// Invariant: non-empty after trimming surrounding whitespace. Interior case
// and characters are preserved exactly; the store treats the key opaquely.
type ShipmentID string

// maxShipmentIDLength bounds attacker-controlled input before it reaches the
// lookup URL. Real identifiers are short (e.g. "SHIP-001").
const maxShipmentIDLength = 128

// ParseShipmentID constructs a ShipmentID from external input.
//
// Empty and whitespace-only values are rejected with CodeInvalidInput: this
// is the local rejection path — callers must not issue a remote lookup when
// parsing fails.
func ParseShipmentID(s string) (ShipmentID, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "shipment id cannot be empty")
	}
	if len(trimmed) > maxShipmentIDLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "shipment id is too long")
	}
	return ShipmentID(trimmed), nil
}

func (id ShipmentID) String() string {
	return string(id)
}

// IsNil reports whether the ID is empty.
func (id ShipmentID) IsNil() bool {
	return id == ""
}
