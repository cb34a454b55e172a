package explorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "blockship/pkg/domain-errors"
)

func TestTokenURL(t *testing.T) {
	t.Run("builds the token page URL", func(t *testing.T) {
		l := New("https://explorer.example.com/", "0xAbCd000000000000000000000000000000000001")

		got, err := l.TokenURL("42")
		require.NoError(t, err)
		assert.Equal(t, "https://explorer.example.com/token/0xAbCd000000000000000000000000000000000001?a=42", got)
	})

	t.Run("escapes the token id", func(t *testing.T) {
		l := New("https://explorer.example.com", "0xAbCd")

		got, err := l.TokenURL("a&b")
		require.NoError(t, err)
		assert.Equal(t, "https://explorer.example.com/token/0xAbCd?a=a%26b", got)
	})

	t.Run("empty token id is invalid input", func(t *testing.T) {
		l := New("https://explorer.example.com", "0xAbCd")

		_, err := l.TokenURL("")
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeInvalidInput))
	})

	t.Run("unconfigured explorer is unavailable", func(t *testing.T) {
		l := New("", "")

		_, err := l.TokenURL("42")
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeUnavailable))
	})
}
