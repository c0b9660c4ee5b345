package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/lumenhq/sentinel/pkg/telemetry/metrics"
)

// Metrics records request count, latency and in-flight gauge for every
// request. Paths are collapsed to route labels so proxied asset paths
// and per-token admin URLs do not explode metric cardinality.
func Metrics(rm *metrics.RequestMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rm.IncInFlight()
			defer rm.DecInFlight()

			startTime := time.Now()
			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)

			rm.RecordRequest(routeLabel(r.URL.Path), r.Method, rw.statusCode, time.Since(startTime))
		})
	}
}

// routeLabel maps a request path to a bounded route label.
func routeLabel(path string) string {
	switch {
	case strings.HasPrefix(path, "/netdata"):
		return "/netdata/*"
	case strings.HasPrefix(path, "/admin/tokens"):
		return "/admin/tokens"
	case path == "/api/detect", path == "/api/isnude", path == "/api/list_labels",
		path == "/auth/login", path == "/auth/logout", path == "/auth/login_form",
		path == "/", path == "/health", path == "/metrics",
		path == "/detect_form", path == "/isnude_form", path == "/admin":
		return path
	default:
		return "other"
	}
}
