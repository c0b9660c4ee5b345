package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/lumenhq/sentinel/pkg/limits"
)

// RateLimit guards a route with the dual-keyspace moving-window
// limiter. Over-quota requests get a 429 with a Retry-After hint.
func RateLimit(limiter *limits.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, err := limiter.Admit(r.Context(), r)
			if err != nil {
				if errors.Is(err, limits.ErrRateLimitExceeded) {
					w.Header().Set("Content-Type", "application/json")
					w.Header().Set("Retry-After", strconv.Itoa(int(decision.RetryAfter.Seconds())))
					w.WriteHeader(http.StatusTooManyRequests)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"detail": "Rate limit exceeded",
					})
					return
				}
				// Unexpected classification failures admit; the limiter
				// already logged the cause.
			}
			next.ServeHTTP(w, r)
		})
	}
}
