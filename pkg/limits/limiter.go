package limits

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/lumenhq/sentinel/pkg/config"
	"github.com/lumenhq/sentinel/pkg/limits/storage"
	"github.com/lumenhq/sentinel/pkg/tokens"
)

// Limiter performs the per-request admission check.
//
// Tier selection: a request presenting a known, active API token is
// governed by the (higher) token quota, keyed by the token itself.
// Everything else, including requests with malformed, unknown, or
// disabled tokens, is governed by the (lower) anonymous quota, keyed by
// remote address. Quotas and the window length are snapshotted from the
// config store on every call, so hot-reloaded values apply immediately.
type Limiter struct {
	store     *config.Store
	backend   storage.Backend
	validator tokens.Validator
	metrics   *Metrics
	logger    *slog.Logger
}

// NewLimiter creates a limiter. metrics may be nil to disable recording.
func NewLimiter(store *config.Store, backend storage.Backend, validator tokens.Validator, metrics *Metrics, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{
		store:     store,
		backend:   backend,
		validator: validator,
		metrics:   metrics,
		logger:    logger.With("component", "limits"),
	}
}

// Admit checks the request against its tier's moving-window quota and
// records the admission. Returns ErrRateLimitExceeded when over quota.
//
// Quota store failures fail open: the request is admitted and the error
// is logged, on the grounds that shedding all traffic because the
// counter store is down is worse than briefly not limiting.
func (l *Limiter) Admit(ctx context.Context, r *http.Request) (Decision, error) {
	cfg := l.store.Limits()
	window := time.Duration(cfg.WindowSeconds) * time.Second

	key := l.classify(ctx, r)
	limit := cfg.IPPerWindow
	if key.Tier == TierToken {
		limit = cfg.TokenPerWindow
	}

	decision := Decision{
		Key:    key,
		Limit:  limit,
		Window: window,
	}

	allowed, err := l.backend.Admit(ctx, key.String(), limit, window)
	if err != nil {
		l.logger.Error("quota store unavailable, admitting request",
			"tier", key.Tier,
			"error", err,
		)
		l.metrics.recordStoreError()
		decision.Allowed = true
		return decision, nil
	}

	decision.Allowed = allowed
	l.metrics.recordDecision(key.Tier, allowed)

	if !allowed {
		decision.RetryAfter = window
		return decision, ErrRateLimitExceeded
	}
	return decision, nil
}

// classify resolves the request to its quota bucket.
func (l *Limiter) classify(ctx context.Context, r *http.Request) RateKey {
	token := ExtractToken(r)
	if token != "" && l.validator != nil {
		active, err := l.validator.Active(ctx, token)
		if err != nil {
			// Registry outage degrades to the anonymous tier rather
			// than failing the request.
			l.logger.Warn("token validation unavailable, treating caller as anonymous", "error", err)
		} else if active {
			return RateKey{Tier: TierToken, Value: token}
		}
	}
	return RateKey{Tier: TierIP, Value: clientAddr(r)}
}

// ExtractToken pulls the candidate API token from the request headers.
// Two forms are accepted: an X-API-Key header, or an Authorization
// header with the Bearer scheme. Absent or malformed credentials yield
// the empty string.
func ExtractToken(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("X-API-Key")); v != "" {
		return v
	}
	auth := r.Header.Get("Authorization")
	parts := strings.Fields(auth)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// clientAddr extracts the caller's address without the ephemeral port.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
	return host
}
