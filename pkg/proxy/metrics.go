package proxy

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains Prometheus metrics for proxied upstream exchanges.
type Metrics struct {
	upstreamRequests *prometheus.CounterVec
}

// NewMetrics creates and registers proxy metrics with the registry.
func NewMetrics(namespace string, registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		upstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "proxy",
				Name:      "upstream_requests_total",
				Help:      "Proxied upstream exchanges by status code",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(m.upstreamRequests)
	return m
}

func (m *Metrics) recordUpstream(statusCode int) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

func (m *Metrics) recordUpstreamError() {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues("error").Inc()
}
