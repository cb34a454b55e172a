package shipment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "blockship/pkg/domain"
)

func TestDecodeRecord(t *testing.T) {
	t.Run("decodes a full record", func(t *testing.T) {
		record, err := DecodeRecord([]byte(`{
			"shipmentId": "SHIP-002",
			"source": "Hamburg",
			"destination": "Oslo",
			"contents": "Electronics",
			"documentUrl": "https://store.example/doc2",
			"ipfsHash": "QmT5NvUtoM5nWFfrQdVrFtvGfKFmG7AHE8P34isapyhCxX",
			"nftTokenId": "42",
			"timestamp": "2026-02-01T10:00:00Z",
			"status": "in_transit",
			"receiverId": "recv-7"
		}`))
		require.NoError(t, err)
		assert.Equal(t, "SHIP-002", record.ShipmentID)
		assert.Equal(t, "42", record.NFTTokenID)
		assert.True(t, record.HasToken())
		assert.True(t, record.HasDocument())
	})

	t.Run("descriptive fields stay permissive", func(t *testing.T) {
		// Missing source/destination/documentUrl pass through; the view
		// layer presence-checks at render time.
		record, err := DecodeRecord([]byte(`{"shipmentId": "SHIP-003"}`))
		require.NoError(t, err)
		assert.False(t, record.HasDocument())
		assert.False(t, record.HasToken())
	})

	t.Run("missing shipmentId is rejected", func(t *testing.T) {
		_, err := DecodeRecord([]byte(`{"source": "Hamburg"}`))
		require.Error(t, err)
		assert.Equal(t, ErrorBadData, CategoryOf(err))
	})

	t.Run("non-object body is rejected", func(t *testing.T) {
		_, err := DecodeRecord([]byte(`[1,2,3]`))
		require.Error(t, err)
		assert.Equal(t, ErrorBadData, CategoryOf(err))
	})
}

func TestMatchesQuery(t *testing.T) {
	query, err := id.ParseShipmentID("SHIP-001")
	require.NoError(t, err)

	assert.True(t, (&Record{ShipmentID: "SHIP-001"}).MatchesQuery(query))
	assert.False(t, (&Record{ShipmentID: "SHIP-002"}).MatchesQuery(query))

	var absent *Record
	assert.False(t, absent.MatchesQuery(query))
}

func TestIsAbsentBody(t *testing.T) {
	assert.True(t, IsAbsentBody(nil))
	assert.True(t, IsAbsentBody([]byte("")))
	assert.True(t, IsAbsentBody([]byte("  \n\t")))
	assert.True(t, IsAbsentBody([]byte("null")))
	assert.False(t, IsAbsentBody([]byte("{}")))
	assert.False(t, IsAbsentBody([]byte(`"null"`)))
}
