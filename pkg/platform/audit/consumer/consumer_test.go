package consumer

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"blockship/pkg/platform/audit"
)

type captureStore struct {
	ids    []uuid.UUID
	events []audit.Event
}

func (s *captureStore) AppendWithID(_ context.Context, eventID uuid.UUID, event audit.Event) error {
	s.ids = append(s.ids, eventID)
	s.events = append(s.events, event)
	return nil
}

func newConsumer(store Materializer) *Consumer {
	return &Consumer{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestMaterialize(t *testing.T) {
	t.Run("well-formed payload is persisted under its id", func(t *testing.T) {
		store := &captureStore{}
		c := newConsumer(store)

		eventID := uuid.New()
		record := &kgo.Record{Value: []byte(`{
			"ID": "` + eventID.String() + `",
			"Category": "compliance",
			"Timestamp": "` + time.Now().Format(time.RFC3339Nano) + `",
			"Action": "wallet_connected",
			"Decision": "connected",
			"WalletAddress": "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
		}`)}

		require.NoError(t, c.materialize(context.Background(), record))
		require.Len(t, store.events, 1)
		assert.Equal(t, eventID, store.ids[0])
		assert.Equal(t, "wallet_connected", store.events[0].Action)
		assert.Equal(t, audit.CategoryCompliance, store.events[0].Category)
	})

	t.Run("malformed payload is dropped, not retried", func(t *testing.T) {
		store := &captureStore{}
		c := newConsumer(store)

		record := &kgo.Record{Value: []byte(`{not json`)}
		require.NoError(t, c.materialize(context.Background(), record))
		assert.Empty(t, store.events)
	})

	t.Run("payload without a valid id is dropped", func(t *testing.T) {
		store := &captureStore{}
		c := newConsumer(store)

		record := &kgo.Record{Value: []byte(`{"ID": "nope", "Action": "session_opened"}`)}
		require.NoError(t, c.materialize(context.Background(), record))
		assert.Empty(t, store.events)
	})
}
