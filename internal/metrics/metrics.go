// Package metrics holds the Prometheus collectors of the coordination engine.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "floodrescue"

type Metrics struct {
	intents     *prometheus.CounterVec
	claims      *prometheus.CounterVec
	broadcasts  prometheus.Counter
	subscribers prometheus.Gauge
	fallbacks   *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		intents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intents_total",
			Help:      "Intents handled by the request store, by intent and outcome.",
		}, []string{"intent", "outcome"}),
		claims: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_total",
			Help:      "Claim attempts by result.",
		}, []string{"result"}),
		broadcasts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_broadcasts_total",
			Help:      "Snapshots pushed to subscribers.",
		}),
		subscribers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscribers",
			Help:      "Active snapshot subscribers.",
		}),
		fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "External collaborator calls answered by the local fallback.",
		}, []string{"service"}),
	}
}

// Intent counts one intent. outcome is "ok" or an error kind.
func (m *Metrics) Intent(intent, outcome string) {
	if m == nil {
		return
	}
	m.intents.WithLabelValues(intent, outcome).Inc()
}

// Claim counts one claim attempt: "won", "conflict" or "error".
func (m *Metrics) Claim(result string) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(result).Inc()
}

func (m *Metrics) Broadcast() {
	if m == nil {
		return
	}
	m.broadcasts.Inc()
}

func (m *Metrics) SubscriberAdded() {
	if m == nil {
		return
	}
	m.subscribers.Inc()
}

func (m *Metrics) SubscriberRemoved() {
	if m == nil {
		return
	}
	m.subscribers.Dec()
}

// Fallback counts a fallback answer from service ("route", "advisory", "geocode").
func (m *Metrics) Fallback(service string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(service).Inc()
}
