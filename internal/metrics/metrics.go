// Package metrics holds the Prometheus counters for token issuance, validation, and revocation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tokengate"

// Metrics is safe for concurrent use. A nil *Metrics records nothing.
type Metrics struct {
	registry    *prometheus.Registry
	issued      prometheus.Counter
	validations *prometheus.CounterVec
	revocations *prometheus.CounterVec
}

// New registers the counters and the Go/process collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		issued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Session tokens issued.",
		}),
		validations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Credential validations by outcome.",
		}, []string{"outcome"}),
		revocations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revocations_total",
			Help:      "Revoke calls by result (revoked or noop).",
		}, []string{"result"}),
	}
}

// TokenIssued counts one issued token.
func (m *Metrics) TokenIssued() {
	if m == nil {
		return
	}
	m.issued.Inc()
}

// Validation counts one validation. outcome is "accepted", "error", or a reject kind.
func (m *Metrics) Validation(outcome string) {
	if m == nil {
		return
	}
	m.validations.WithLabelValues(outcome).Inc()
}

// Revocation counts one revoke call.
func (m *Metrics) Revocation(revoked bool) {
	if m == nil {
		return
	}
	result := "noop"
	if revoked {
		result = "revoked"
	}
	m.revocations.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
