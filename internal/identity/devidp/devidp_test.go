package devidp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockship/internal/identity"
	dErrors "blockship/pkg/domain-errors"
)

func newProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := New(map[string]string{
		"alice.recipient@example.com": "correct horse",
	})
	require.NoError(t, err)
	return p
}

func TestInteractiveSignIn(t *testing.T) {
	t.Run("valid credentials emit a user-present event", func(t *testing.T) {
		p := newProvider(t)

		var got []identity.SessionEvent
		unsubscribe, err := p.Subscribe(func(e identity.SessionEvent) { got = append(got, e) })
		require.NoError(t, err)
		defer unsubscribe()

		err = p.InteractiveSignIn(context.Background(), identity.SignInRequest{
			Subject:  "alice.recipient@example.com",
			Password: "correct horse",
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "alice.recipient@example.com", got[0].Subject)
		assert.True(t, got[0].UserPresent)
	})

	t.Run("wrong password and unknown subject fail identically", func(t *testing.T) {
		p := newProvider(t)

		badPassword := p.InteractiveSignIn(context.Background(), identity.SignInRequest{
			Subject:  "alice.recipient@example.com",
			Password: "wrong",
		})
		unknownSubject := p.InteractiveSignIn(context.Background(), identity.SignInRequest{
			Subject:  "nobody@example.com",
			Password: "correct horse",
		})

		require.Error(t, badPassword)
		require.Error(t, unknownSubject)
		assert.True(t, dErrors.Is(badPassword, dErrors.CodeUnauthorized))
		// Same message in both cases so responses don't enumerate accounts.
		assert.Equal(t, badPassword.Error(), unknownSubject.Error())
	})

	t.Run("failed sign-in emits no event", func(t *testing.T) {
		p := newProvider(t)

		events := 0
		unsubscribe, err := p.Subscribe(func(identity.SessionEvent) { events++ })
		require.NoError(t, err)
		defer unsubscribe()

		_ = p.InteractiveSignIn(context.Background(), identity.SignInRequest{
			Subject:  "alice.recipient@example.com",
			Password: "wrong",
		})
		assert.Zero(t, events)
	})
}

func TestSubscribe(t *testing.T) {
	t.Run("unsubscribed listeners stop receiving events", func(t *testing.T) {
		p := newProvider(t)

		events := 0
		unsubscribe, err := p.Subscribe(func(identity.SessionEvent) { events++ })
		require.NoError(t, err)
		unsubscribe()

		require.NoError(t, p.InteractiveSignIn(context.Background(), identity.SignInRequest{
			Subject:  "alice.recipient@example.com",
			Password: "correct horse",
		}))
		assert.Zero(t, events)
	})
}

func TestDisplayName(t *testing.T) {
	p := newProvider(t)
	assert.Equal(t, "Alice Recipient", p.DisplayName("alice.recipient@example.com"))
	assert.Empty(t, p.DisplayName("nobody@example.com"))
}
