// Package shipment resolves shipment records from the remote read-only
// store and classifies every failure mode of the single-attempt lookup.
package shipment

import (
	"bytes"
	"encoding/json"

	id "blockship/pkg/domain"
)

// Record is the unit of disclosure, immutable once resolved. A new search
// with the same identifier is a fresh lookup; records are never cached or
// reconciled for staleness.
//
// Only ShipmentID is validated at the boundary. The descriptive fields stay
// permissive on purpose: schema enforcement is delegated to the producer,
// and the view layer presence-checks what it renders.
type Record struct {
	ShipmentID  string `json:"shipmentId"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Contents    string `json:"contents"`

	// DocumentURL locates the custody document. Treated opaquely; it is
	// expected to live in content-addressed storage but any URL passes.
	DocumentURL string `json:"documentUrl"`

	// IPFSHash is the content address of the document. Informational only:
	// it is not cross-checked against the DocumentURL contents.
	IPFSHash string `json:"ipfsHash,omitempty"`

	// NFTTokenID identifies the on-chain custody token. Presence gates
	// whether a token-explorer link is offered.
	NFTTokenID string `json:"nftTokenId,omitempty"`

	Timestamp  string `json:"timestamp"`
	Status     string `json:"status,omitempty"`
	ReceiverID string `json:"receiverId,omitempty"`
}

// HasDocument reports whether a document action can be offered.
func (r *Record) HasDocument() bool {
	return r != nil && r.DocumentURL != ""
}

// HasToken reports whether a token action can be offered.
func (r *Record) HasToken() bool {
	return r != nil && r.NFTTokenID != ""
}

// DecodeRecord turns a response body into a validated Record. The decode is
// deliberately shallow: malformed JSON, a non-object shape, and a
// missing/empty shipmentId are classified as ErrorBadData; everything else
// passes through verbatim. An empty or JSON-null body is the absence
// signal, classified as ErrorNotFound by the caller, not here.
func DecodeRecord(body []byte) (*Record, error) {
	var record Record
	decoder := json.NewDecoder(bytes.NewReader(body))
	if err := decoder.Decode(&record); err != nil {
		return nil, NewLookupError(ErrorBadData, "record body is not valid JSON", err)
	}
	if record.ShipmentID == "" {
		return nil, NewLookupError(ErrorBadData, "record is missing its shipment id", nil)
	}
	return &record, nil
}

// IsAbsentBody reports whether a 2xx body is the store's absence signal: an
// empty body, whitespace, or JSON null.
func IsAbsentBody(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// MatchesQuery reports whether the resolved record echoes the requested
// identifier. The store keys records by id, so a mismatch indicates a
// misbehaving producer; callers log it but still disclose the record.
func (r *Record) MatchesQuery(query id.ShipmentID) bool {
	return r != nil && r.ShipmentID == query.String()
}
