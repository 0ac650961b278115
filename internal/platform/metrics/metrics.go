package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dogmatch"

// Outcomes usados como label.
const (
	OutcomeOK           = "ok"
	OutcomeUnauthorized = "unauthorized"
	OutcomeNetwork      = "network"
	OutcomeError        = "error"
)

// Metrics agrupa los collectors del proceso. Se registra en un Registry propio
// para que los tests no choquen con el registry global.
type Metrics struct {
	registry *prometheus.Registry

	RemoteRequests   *prometheus.CounterVec
	StaleResponses   prometheus.Counter
	MatchRequests    *prometheus.CounterVec
	SessionTeardowns *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		RemoteRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_requests_total",
			Help:      "Requests sent to the dogs service, by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		StaleResponses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_stale_responses_total",
			Help:      "Search responses discarded because a newer request was issued.",
		}),
		MatchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_requests_total",
			Help:      "Match requests by outcome.",
		}, []string{"outcome"}),
		SessionTeardowns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_teardowns_total",
			Help:      "Sessions dropped, by reason (logout, expired).",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		m.RemoteRequests,
		m.StaleResponses,
		m.MatchRequests,
		m.SessionTeardowns,
	)
	return m
}

// Registry expone el registry (para tests con testutil).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler sirve /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRemote cuenta un request remoto. Nil-safe.
func (m *Metrics) ObserveRemote(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.RemoteRequests.WithLabelValues(endpoint, outcome).Inc()
}

func (m *Metrics) ObserveStale() {
	if m == nil {
		return
	}
	m.StaleResponses.Inc()
}

func (m *Metrics) ObserveMatch(outcome string) {
	if m == nil {
		return
	}
	m.MatchRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveTeardown(reason string) {
	if m == nil {
		return
	}
	m.SessionTeardowns.WithLabelValues(reason).Inc()
}
