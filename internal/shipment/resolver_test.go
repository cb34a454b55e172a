package shipment

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "blockship/pkg/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustShipmentID(t *testing.T, s string) id.ShipmentID {
	t.Helper()
	parsed, err := id.ParseShipmentID(s)
	require.NoError(t, err)
	return parsed
}

const recordBody = `{
	"shipmentId": "SHIP-001",
	"source": "Rotterdam",
	"destination": "Singapore",
	"contents": "Machine parts",
	"documentUrl": "https://store.example/doc1",
	"timestamp": "2026-01-12T09:30:00Z"
}`

func TestResolve(t *testing.T) {
	t.Run("returns the record on success", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			assert.Equal(t, "/shipments/SHIP-001", r.URL.Path)
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Empty(t, r.Header.Get("Authorization"), "lookup must be unauthenticated")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(recordBody))
		}))
		defer server.Close()

		resolver := NewResolver(server.URL, 5*time.Second, testLogger(), nil)
		record, err := resolver.Resolve(context.Background(), mustShipmentID(t, "SHIP-001"))
		require.NoError(t, err)
		assert.Equal(t, "SHIP-001", record.ShipmentID)
		assert.Equal(t, "https://store.example/doc1", record.DocumentURL)
		assert.True(t, record.HasDocument())
		assert.False(t, record.HasToken())
		assert.Equal(t, int32(1), calls.Load(), "exactly one remote call per invocation")
	})

	t.Run("repeat resolution yields structurally equal records", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(recordBody))
		}))
		defer server.Close()

		resolver := NewResolver(server.URL, 5*time.Second, testLogger(), nil)
		first, err := resolver.Resolve(context.Background(), mustShipmentID(t, "SHIP-001"))
		require.NoError(t, err)
		second, err := resolver.Resolve(context.Background(), mustShipmentID(t, "SHIP-001"))
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("empty body is classified as not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		resolver := NewResolver(server.URL, 5*time.Second, testLogger(), nil)
		_, err := resolver.Resolve(context.Background(), mustShipmentID(t, "SHIP-404"))
		require.Error(t, err)
		assert.Equal(t, ErrorNotFound, CategoryOf(err))
		assert.True(t, IsNotFound(err))
		assert.False(t, IsRetryable(err))
	})

	t.Run("JSON null body is classified as not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("null"))
		}))
		defer server.Close()

		resolver := NewResolver(server.URL, 5*time.Second, testLogger(), nil)
		_, err := resolver.Resolve(context.Background(), mustShipmentID(t, "SHIP-404"))
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})

	t.Run("HTTP 404 is a transport error, not absence", func(t *testing.T) {
		// The store signals absence with an empty success body; a 404 means
		// the store itself misbehaved.
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer server.Close()

		resolver := NewResolver(server.URL, 5*time.Second, testLogger(), nil)
		_, err := resolver.Resolve(context.Background(), mustShipmentID(t, "SHIP-404"))
		require.Error(t, err)
		assert.Equal(t, ErrorTransport, CategoryOf(err))
		assert.False(t, IsNotFound(err))
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("HTTP 500 is a retryable transport error carrying the status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer server.Close()

		resolver := NewResolver(server.URL, 5*time.Second, testLogger(), nil)
		_, err := resolver.Resolve(context.Background(), mustShipmentID(t, "SHIP-001"))
		require.Error(t, err)
		assert.Equal(t, ErrorTransport, CategoryOf(err))
		assert.True(t, IsRetryable(err))
		assert.Contains(t, err.Error(), "500")
	})

	t.Run("unreachable store is a transport error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close() // closed before use

		resolver := NewResolver(server.URL, time.Second, testLogger(), nil)
		_, err := resolver.Resolve(context.Background(), mustShipmentID(t, "SHIP-001"))
		require.Error(t, err)
		assert.Equal(t, ErrorTransport, CategoryOf(err))
	})

	t.Run("malformed body is bad data, not not-found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("{not json"))
		}))
		defer server.Close()

		resolver := NewResolver(server.URL, 5*time.Second, testLogger(), nil)
		_, err := resolver.Resolve(context.Background(), mustShipmentID(t, "SHIP-001"))
		require.Error(t, err)
		assert.Equal(t, ErrorBadData, CategoryOf(err))
		assert.False(t, IsRetryable(err))
	})

	t.Run("record without shipmentId is bad data", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"source":"Rotterdam"}`))
		}))
		defer server.Close()

		resolver := NewResolver(server.URL, 5*time.Second, testLogger(), nil)
		_, err := resolver.Resolve(context.Background(), mustShipmentID(t, "SHIP-001"))
		require.Error(t, err)
		assert.Equal(t, ErrorBadData, CategoryOf(err))
	})

	t.Run("slow store is a timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(300 * time.Millisecond)
			_, _ = w.Write([]byte(recordBody))
		}))
		defer server.Close()

		resolver := NewResolver(server.URL, 50*time.Millisecond, testLogger(), nil)
		_, err := resolver.Resolve(context.Background(), mustShipmentID(t, "SHIP-001"))
		require.Error(t, err)
		assert.Equal(t, ErrorTimeout, CategoryOf(err))
		assert.True(t, IsRetryable(err))
	})

	t.Run("identifier with path characters is escaped", func(t *testing.T) {
		var gotPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.EscapedPath()
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		resolver := NewResolver(server.URL, 5*time.Second, testLogger(), nil)
		_, _ = resolver.Resolve(context.Background(), mustShipmentID(t, "a/b c"))
		assert.Equal(t, "/shipments/a%2Fb%20c", gotPath)
	})
}
