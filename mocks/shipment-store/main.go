// Command shipment-store is a mock of the remote read-only shipment store
// used by local development and the end-to-end suite. It serves seeded
// records on GET /shipments/{id}; unknown ids get an empty 200 body, which
// is how the real store signals absence.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
)

type record struct {
	ShipmentID  string `json:"shipmentId"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Contents    string `json:"contents"`
	DocumentURL string `json:"documentUrl,omitempty"`
	IPFSHash    string `json:"ipfsHash,omitempty"`
	NFTTokenID  string `json:"nftTokenId,omitempty"`
	Timestamp   string `json:"timestamp"`
	Status      string `json:"status,omitempty"`
	ReceiverID  string `json:"receiverId,omitempty"`
}

// defaultRecords seed the store when no fixture file is given. SHIP-001 is
// the fully-populated happy path the e2e features search for.
var defaultRecords = []record{
	{
		ShipmentID:  "SHIP-001",
		Source:      "Rotterdam",
		Destination: "Singapore",
		Contents:    "electronics",
		DocumentURL: "https://ipfs.example/QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
		IPFSHash:    "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
		NFTTokenID:  "42",
		Timestamp:   "2026-08-01T09:30:00Z",
		Status:      "in_transit",
	},
	{
		ShipmentID:  "SHIP-002",
		Source:      "Hamburg",
		Destination: "Oslo",
		Contents:    "machine parts",
		Timestamp:   "2026-08-03T14:00:00Z",
		Status:      "delivered",
	},
}

func main() {
	addr := flag.String("addr", ":9090", "listen address")
	fixtures := flag.String("fixtures", "", "optional JSON file with an array of records")
	flag.Parse()

	records, err := load(*fixtures)
	if err != nil {
		log.Fatalf("loading fixtures: %v", err)
	}

	byID := make(map[string]record, len(records))
	for _, r := range records {
		byID[r.ShipmentID] = r
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/shipments/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/shipments/")
		w.Header().Set("Content-Type", "application/json")
		rec, ok := byID[id]
		if !ok {
			// Absence is an empty success body, not a 404.
			return
		}
		_ = json.NewEncoder(w).Encode(rec)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, "ok")
	})

	log.Printf("mock shipment store listening on %s with %d records", *addr, len(byID))
	log.Fatal(http.ListenAndServe(*addr, mux))
}

func load(path string) ([]record, error) {
	if path == "" {
		return defaultRecords, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}
