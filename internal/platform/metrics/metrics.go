package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP-level Prometheus metrics shared by the router
// middleware. Domain modules register their own metrics packages.
type Metrics struct {
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	SessionsOpen     prometheus.Gauge
}

// New creates and registers the shared application metrics.
func New() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "blockship_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route and status class",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"route", "status"}),

		RequestsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "blockship_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		}),

		SessionsOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "blockship_sessions_open",
			Help: "Number of currently open gateway sessions",
		}),
	}
}

// ObserveRequest records one served request. Nil-safe so handlers can run
// without metrics in tests.
func (m *Metrics) ObserveRequest(route, status string, d time.Duration) {
	if m != nil {
		m.RequestDuration.WithLabelValues(route, status).Observe(d.Seconds())
	}
}
