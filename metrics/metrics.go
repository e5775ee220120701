// Package metrics exposes prometheus collectors for the storefront client:
// remote call outcomes, menu load sources and logout results.
//
// All methods are safe to call on a nil *Metrics, so components can take
// an optional *Metrics without guarding every call site.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Menu load sources.
const (
	SourceCache   = "cache"
	SourceNetwork = "network"
	SourceError   = "error"
)

// Metrics groups the collectors registered for one client.
type Metrics struct {
	GatewayCalls   *prometheus.CounterVec
	GatewayLatency *prometheus.HistogramVec
	MenuLoads      *prometheus.CounterVec
	Logouts        *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		GatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "calls_total",
			Help:      "Remote order service calls by operation and outcome.",
		}, []string{"op", "outcome"}),
		GatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "call_duration_seconds",
			Help:      "Remote order service call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		MenuLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "menu",
			Name:      "loads_total",
			Help:      "Menu loads by source (cache, network, error).",
		}, []string{"source"}),
		Logouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "logouts_total",
			Help:      "Completed logouts by order flush and token revoke outcome.",
		}, []string{"order", "revoke"}),
	}

	reg.MustRegister(m.GatewayCalls, m.GatewayLatency, m.MenuLoads, m.Logouts)
	return m
}

// ObserveCall records one remote call.
func (m *Metrics) ObserveCall(op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.GatewayCalls.WithLabelValues(op, outcome).Inc()
	m.GatewayLatency.WithLabelValues(op).Observe(d.Seconds())
}

// MenuLoad records where a menu load was served from.
func (m *Metrics) MenuLoad(source string) {
	if m == nil {
		return
	}
	m.MenuLoads.WithLabelValues(source).Inc()
}

// Logout records a completed logout.
func (m *Metrics) Logout(order, revoke string) {
	if m == nil {
		return
	}
	m.Logouts.WithLabelValues(order, revoke).Inc()
}

// Handler serves the collectors gathered by g in the prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
