package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "blockship/pkg/domain"
	dErrors "blockship/pkg/domain-errors"
)

func newTestService() *JWTService {
	return NewJWTService("test-signing-key", "blockship", "blockship-api")
}

func TestGenerateAndValidate(t *testing.T) {
	svc := newTestService()
	sessionID := id.NewSessionID()

	token, err := svc.GenerateSessionToken(sessionID, id.APIVersionV1, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, sessionID.String(), claims.SessionID)
	assert.Equal(t, "v1", claims.APIVersion)
	assert.NotEmpty(t, claims.ID, "jti must be set for tracing")
}

func TestValidateToken(t *testing.T) {
	svc := newTestService()

	t.Run("expired token is rejected", func(t *testing.T) {
		token, err := svc.GenerateSessionToken(id.NewSessionID(), id.APIVersionV1, -time.Minute)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("token signed with a different key is rejected", func(t *testing.T) {
		other := NewJWTService("another-key", "blockship", "blockship-api")
		token, err := other.GenerateSessionToken(id.NewSessionID(), id.APIVersionV1, time.Hour)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.token")
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
	})
}

func TestExtractSessionID(t *testing.T) {
	svc := newTestService()
	sessionID := id.NewSessionID()

	token, err := svc.GenerateSessionToken(sessionID, id.APIVersionV1, time.Hour)
	require.NoError(t, err)

	got, err := svc.ExtractSessionID(token)
	require.NoError(t, err)
	assert.Equal(t, sessionID, got)
}

func TestValidatorAdapter(t *testing.T) {
	svc := newTestService()
	sessionID := id.NewSessionID()

	token, err := svc.GenerateSessionToken(sessionID, id.APIVersionV1, time.Hour)
	require.NoError(t, err)

	adapter := NewValidatorAdapter(svc)
	claims, err := adapter.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, sessionID.String(), claims.SessionID)
	assert.Equal(t, "v1", claims.APIVersion)
	assert.NotEmpty(t, claims.JTI)
}
