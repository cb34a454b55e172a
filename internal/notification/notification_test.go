package notification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "blockship/pkg/domain"
)

func TestCenter(t *testing.T) {
	ctx := context.Background()

	t.Run("list returns newest first", func(t *testing.T) {
		c := NewCenter()
		sessionID := id.NewSessionID()

		tick := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
		c.now = func() time.Time {
			tick = tick.Add(time.Second)
			return tick
		}

		c.Push(ctx, sessionID, VariantSuccess, "Wallet Connected", "0x5aAe...eAed")
		c.Push(ctx, sessionID, VariantSuccess, "Shipment Found", "SHIP-001")

		feed := c.List(ctx, sessionID)
		require.Len(t, feed, 2)
		assert.Equal(t, "Shipment Found", feed[0].Title)
		assert.Equal(t, "Wallet Connected", feed[1].Title)
	})

	t.Run("feeds are isolated per session", func(t *testing.T) {
		c := NewCenter()
		a, b := id.NewSessionID(), id.NewSessionID()

		c.Push(ctx, a, VariantDestructive, "Claim Rejected", "")

		assert.Len(t, c.List(ctx, a), 1)
		assert.Empty(t, c.List(ctx, b))
	})

	t.Run("dismiss removes only the targeted entry", func(t *testing.T) {
		c := NewCenter()
		sessionID := id.NewSessionID()

		first := c.Push(ctx, sessionID, VariantSuccess, "first", "")
		second := c.Push(ctx, sessionID, VariantSuccess, "second", "")

		require.NoError(t, c.Dismiss(ctx, sessionID, first.ID))

		feed := c.List(ctx, sessionID)
		require.Len(t, feed, 1)
		assert.Equal(t, second.ID, feed[0].ID)
	})

	t.Run("dismissing an unknown id fails", func(t *testing.T) {
		c := NewCenter()
		sessionID := id.NewSessionID()

		err := c.Dismiss(ctx, sessionID, uuid.New())
		require.Error(t, err)
	})

	t.Run("feed is bounded and evicts oldest", func(t *testing.T) {
		c := NewCenter()
		sessionID := id.NewSessionID()

		for i := 0; i < maxPerSession+10; i++ {
			c.Push(ctx, sessionID, VariantSuccess, "n", "")
		}
		assert.Len(t, c.List(ctx, sessionID), maxPerSession)
	})

	t.Run("drop session clears the feed", func(t *testing.T) {
		c := NewCenter()
		sessionID := id.NewSessionID()

		c.Push(ctx, sessionID, VariantSuccess, "n", "")
		c.DropSession(ctx, sessionID)
		assert.Empty(t, c.List(ctx, sessionID))
	})
}
