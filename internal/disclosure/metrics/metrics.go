// Package metrics exposes Prometheus instruments for the disclosure flow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SessionsOpened prometheus.Counter
	SessionsActive prometheus.Gauge
	SearchOutcomes *prometheus.CounterVec
	SignInOutcomes *prometheus.CounterVec
	WalletConnects *prometheus.CounterVec
	ClaimRejected  *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		SessionsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Name: "blockship_sessions_opened_total",
			Help: "Gateway sessions opened.",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "blockship_sessions_active",
			Help: "Gateway sessions currently live.",
		}),
		SearchOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "blockship_searches_total",
			Help: "Shipment searches by terminal outcome.",
		}, []string{"outcome"}),
		SignInOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "blockship_signins_total",
			Help: "Interactive sign-in attempts by outcome.",
		}, []string{"outcome"}),
		WalletConnects: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "blockship_wallet_connects_total",
			Help: "Wallet connect attempts by outcome.",
		}, []string{"outcome"}),
		ClaimRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "blockship_claims_rejected_total",
			Help: "Claim attempts rejected, by reason.",
		}, []string{"reason"}),
	}
}

// Nil-safe helpers so tests can pass a nil *Metrics.

func (m *Metrics) IncSessionOpened() {
	if m == nil {
		return
	}
	m.SessionsOpened.Inc()
	m.SessionsActive.Inc()
}

func (m *Metrics) DecSessionsActive() {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
}

func (m *Metrics) IncSearch(outcome string) {
	if m == nil {
		return
	}
	m.SearchOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncSignIn(outcome string) {
	if m == nil {
		return
	}
	m.SignInOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncWalletConnect(outcome string) {
	if m == nil {
		return
	}
	m.WalletConnects.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncClaimRejected(reason string) {
	if m == nil {
		return
	}
	m.ClaimRejected.WithLabelValues(reason).Inc()
}
