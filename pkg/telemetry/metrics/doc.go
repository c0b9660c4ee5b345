// Package metrics provides Prometheus instrumentation for the gateway.
//
// A single Collector owns the registry; request metrics live here and
// other packages register their own families through Registry().
package metrics
