package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	id "blockship/pkg/domain"
	request "blockship/pkg/platform/middleware/request"
	"blockship/pkg/requestcontext"
)

// TokenValidator defines the interface for validating session tokens
type TokenValidator interface {
	ValidateToken(tokenString string) (*SessionClaims, error)
}

// SessionLivenessChecker defines the interface for checking whether the
// session behind a token is still open
type SessionLivenessChecker interface {
	IsSessionClosed(ctx context.Context, sessionID id.SessionID) (bool, error)
}

// SessionClaims represents the claims we expect from the token validator
type SessionClaims struct {
	SessionID  string
	APIVersion string
	JTI        string // token ID for tracing
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireSession validates the bearer token, confirms the session is still
// open, and injects the session ID and token API version into the request
// context. Handlers behind this middleware can rely on
// requestcontext.SessionID being non-nil.
func RequireSession(validator TokenValidator, livenessChecker SessionLivenessChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			if after, ok := strings.CutPrefix(authHeader, bearerPrefix); ok {
				token := after
				claims, err := validator.ValidateToken(token)
				if err != nil {
					ctx := r.Context()
					requestID := request.GetRequestID(ctx)
					logger.WarnContext(ctx, "unauthorized access - invalid token",
						"error", err,
						"request_id", requestID,
					)
					writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
					return
				}

				ctx := r.Context()

				sessionID, err := id.ParseSessionID(claims.SessionID)
				if err != nil {
					requestID := request.GetRequestID(ctx)
					logger.WarnContext(ctx, "unauthorized access - malformed session claim",
						"error", err,
						"request_id", requestID,
					)
					writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
					return
				}

				if livenessChecker != nil {
					closed, err := livenessChecker.IsSessionClosed(ctx, sessionID)
					if err != nil {
						requestID := request.GetRequestID(ctx)
						logger.ErrorContext(ctx, "failed to check session liveness",
							"error", err,
							"request_id", requestID,
						)
						writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to validate session")
						return
					}
					if closed {
						requestID := request.GetRequestID(ctx)
						logger.WarnContext(ctx, "unauthorized access - session closed",
							"session_id", sessionID.String(),
							"request_id", requestID,
						)
						writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Session has been closed")
						return
					}
				}

				ctx = requestcontext.WithSessionID(ctx, sessionID)
				if claims.APIVersion != "" {
					if v, err := id.ParseAPIVersion(claims.APIVersion); err == nil {
						ctx = requestcontext.WithTokenAPIVersion(ctx, v)
					}
				}

				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			// No Authorization header or invalid format
			ctx := r.Context()
			requestID := request.GetRequestID(ctx)
			logger.WarnContext(ctx, "unauthorized access - missing token",
				"request_id", requestID,
			)
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
		})
	}
}
