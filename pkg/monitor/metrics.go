package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains Prometheus metrics for the stress monitor.
type Metrics struct {
	alerts       prometheus.Counter
	fetchSamples *prometheus.CounterVec
}

// NewMetrics creates and registers monitor metrics with the registry.
func NewMetrics(namespace string, registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		alerts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "monitor",
				Name:      "alerts_total",
				Help:      "Stress alerts sent to the notification sink",
			},
		),
		fetchSamples: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "monitor",
				Name:      "samples_total",
				Help:      "Metric polls by completeness of the sample",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(m.alerts, m.fetchSamples)
	return m
}

func (m *Metrics) recordAlert() {
	if m == nil {
		return
	}
	m.alerts.Inc()
}

func (m *Metrics) recordSample(complete bool) {
	if m == nil {
		return
	}
	outcome := "complete"
	if !complete {
		outcome = "partial"
	}
	m.fetchSamples.WithLabelValues(outcome).Inc()
}
