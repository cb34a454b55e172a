package jwttoken

import (
	"blockship/pkg/platform/middleware/auth"
)

// ValidatorAdapter adapts JWTService to the middleware's TokenValidator
// interface so the middleware package never imports jwt internals.
type ValidatorAdapter struct {
	svc *JWTService
}

func NewValidatorAdapter(svc *JWTService) *ValidatorAdapter {
	return &ValidatorAdapter{svc: svc}
}

func (a *ValidatorAdapter) ValidateToken(tokenString string) (*auth.SessionClaims, error) {
	claims, err := a.svc.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &auth.SessionClaims{
		SessionID:  claims.SessionID,
		APIVersion: claims.APIVersion,
		JTI:        claims.ID,
	}, nil
}
