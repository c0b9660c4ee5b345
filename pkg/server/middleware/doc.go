// Package middleware provides the HTTP middleware chain: panic
// recovery, request IDs, structured request logging, Prometheus
// instrumentation, rate limiting and admin session authentication.
//
// Each middleware is a func(http.Handler) http.Handler so chains
// compose by plain wrapping, outermost last.
package middleware
