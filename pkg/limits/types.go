package limits

import (
	"errors"
	"fmt"
	"time"
)

// Tier identifies which quota governs a request.
type Tier string

const (
	// TierIP is the anonymous tier, keyed by remote address.
	TierIP Tier = "ip"

	// TierToken is the authenticated tier, keyed by the presented token.
	TierToken Tier = "token"
)

// RateKey identifies one quota bucket: the tier plus the caller's
// address or token. Built per request, never persisted.
type RateKey struct {
	Tier  Tier
	Value string
}

// String returns the composite storage key.
func (k RateKey) String() string {
	return fmt.Sprintf("%s:%s", k.Tier, k.Value)
}

// Decision is the outcome of an admission check.
type Decision struct {
	// Allowed indicates whether the request may proceed.
	Allowed bool

	// Key is the quota bucket the request was counted against.
	Key RateKey

	// Limit is the per-window quota that applied.
	Limit int

	// Window is the moving-window length that applied.
	Window time.Duration

	// RetryAfter is a hint for rejected requests. It is the full window
	// length, a safe upper bound, since the store does not report when
	// the oldest in-window entry expires.
	RetryAfter time.Duration
}

// ErrRateLimitExceeded is returned when a request is over quota.
// Maps to HTTP 429 at the boundary.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")
