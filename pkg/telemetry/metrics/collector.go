package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/lumenhq/sentinel/pkg/config"
)

// Collector owns the Prometheus registry and every metric family the
// gateway exports. Components receive the registry at construction and
// register their own families on it; the collector itself carries the
// HTTP request metrics.
type Collector struct {
	config   config.MetricsConfig
	registry *prometheus.Registry

	requestMetrics *RequestMetrics
}

// NewCollector creates a collector with the given configuration. If
// registry is nil a fresh one is created, pre-loaded with the standard
// Go runtime and process collectors.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return &Collector{
		config:         cfg,
		registry:       registry,
		requestMetrics: NewRequestMetrics(cfg, registry),
	}
}

// Registry exposes the underlying registry so other components can
// register their own metric families.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Requests returns the HTTP request metrics.
func (c *Collector) Requests() *RequestMetrics {
	return c.requestMetrics
}
