package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for shipment resolution.
type Metrics struct {
	// Lookup outcomes by category: found, not_found, transport, bad_data, timeout.
	LookupOutcome *prometheus.CounterVec

	// Remote lookup latency.
	LookupLatency prometheus.Histogram
}

// New creates a new Metrics instance with all resolver metrics registered.
func New() *Metrics {
	return &Metrics{
		LookupOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "blockship_shipment_lookups_total",
			Help: "Total shipment lookups by outcome category",
		}, []string{"outcome"}),

		LookupLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "blockship_shipment_lookup_duration_seconds",
			Help:    "Duration of remote shipment store lookups",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

// IncrementOutcome records one lookup outcome. Nil-safe.
func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.LookupOutcome.WithLabelValues(outcome).Inc()
	}
}

// ObserveLookupLatency records the remote lookup duration. Nil-safe.
func (m *Metrics) ObserveLookupLatency(d time.Duration) {
	if m != nil {
		m.LookupLatency.Observe(d.Seconds())
	}
}
