// Package request provides request ID middleware and accessors.
// Every request gets a stable ID, either propagated from the client via
// X-Request-ID or generated here, so one value threads through logs,
// audit events, and error responses.
package request

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"blockship/pkg/requestcontext"
)

// HeaderName is the request ID header read from clients and echoed back
// on responses.
const HeaderName = "X-Request-ID"

// Middleware assigns the request ID. A client-supplied X-Request-ID is
// trusted as-is for correlation; anything missing gets a fresh UUID.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderName)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(HeaderName, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context. Kept for callers
// that already import this package; equivalent to requestcontext.RequestID.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
