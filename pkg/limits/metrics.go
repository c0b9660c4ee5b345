package limits

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains Prometheus metrics for admission decisions.
type Metrics struct {
	decisions   *prometheus.CounterVec
	storeErrors prometheus.Counter
}

// NewMetrics creates and registers limiter metrics with the registry.
func NewMetrics(namespace string, registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "limits",
				Name:      "decisions_total",
				Help:      "Admission decisions by tier and outcome",
			},
			[]string{"tier", "outcome"},
		),
		storeErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "limits",
				Name:      "store_errors_total",
				Help:      "Quota store failures (requests fail open)",
			},
		),
	}

	registry.MustRegister(m.decisions, m.storeErrors)
	return m
}

func (m *Metrics) recordDecision(tier Tier, allowed bool) {
	if m == nil {
		return
	}
	outcome := "allowed"
	if !allowed {
		outcome = "rejected"
	}
	m.decisions.WithLabelValues(string(tier), outcome).Inc()
}

func (m *Metrics) recordStoreError() {
	if m == nil {
		return
	}
	m.storeErrors.Inc()
}
