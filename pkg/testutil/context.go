package testutil

import (
	"context"
	"net/http"

	id "blockship/pkg/domain"
	"blockship/pkg/requestcontext"
)

// WithSessionID adds a session ID to the request context.
// This simulates what the session middleware would do for authenticated requests.
// If the sessionID is not a valid UUID, it will not be added to the context.
func WithSessionID(req *http.Request, sessionID string) *http.Request {
	if parsedSessionID, err := id.ParseSessionID(sessionID); err == nil {
		ctx := requestcontext.WithSessionID(req.Context(), parsedSessionID)
		return req.WithContext(ctx)
	}
	return req
}

// WithRequestID adds a request ID to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	ctx := requestcontext.WithRequestID(req.Context(), requestID)
	return req.WithContext(ctx)
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
