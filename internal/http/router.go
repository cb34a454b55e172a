// Package http assembles the gateway's HTTP surface: the public session
// open route, the authenticated v1 API, and the operational endpoints.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	dischandler "blockship/internal/disclosure/handler"
	notifhandler "blockship/internal/notification/handler"
	"blockship/internal/platform/metrics"
	"blockship/internal/platform/middleware"
	id "blockship/pkg/domain"
	"blockship/pkg/platform/httputil"
	"blockship/pkg/platform/middleware/auth"
	"blockship/pkg/platform/middleware/metadata"
	"blockship/pkg/platform/middleware/request"
	"blockship/pkg/platform/middleware/requesttime"
	"blockship/pkg/platform/middleware/version"
)

// HealthCheck is one named readiness probe.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps carries everything the router mounts.
type Deps struct {
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
	Disclosure    *dischandler.Handler
	Notifications *notifhandler.Handler
	Validator     auth.TokenValidator
	Liveness      auth.SessionLivenessChecker
	HealthChecks  []HealthCheck

	// RequestTimeout bounds each request. It must exceed the shipment store
	// timeout or every slow lookup turns into a gateway timeout.
	RequestTimeout time.Duration
}

// NewRouter builds the full route tree.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", handleReadyz(d.HealthChecks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	base := func(router chi.Router) {
		router.Use(middleware.Recovery(d.Logger))
		router.Use(request.Middleware)
		router.Use(metadata.ClientMetadata)
		router.Use(requesttime.Middleware)
		router.Use(middleware.Logger(d.Logger))
		router.Use(middleware.Timeout(d.RequestTimeout))
		router.Use(middleware.ContentTypeJSON)
		router.Use(version.ExtractVersion(id.APIVersionV1))
		router.Use(middleware.Latency(d.Metrics))
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Group(func(public chi.Router) {
			base(public)
			d.Disclosure.RegisterPublic(public)
		})

		v1.Group(func(authed chi.Router) {
			base(authed)
			authed.Use(auth.RequireSession(d.Validator, d.Liveness, d.Logger))
			authed.Use(version.ValidateTokenVersion(d.Logger))
			d.Disclosure.Register(authed)
			d.Notifications.Register(authed)
		})
	})

	return r
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz runs every registered probe. Any failure flips the endpoint
// to 503 with the failing components named, so orchestrators stop routing.
func handleReadyz(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		failing := map[string]string{}
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				failing[c.Name] = err.Error()
			}
		}

		if len(failing) > 0 {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":  "degraded",
				"failing": failing,
			})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
