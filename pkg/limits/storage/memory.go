package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// MemoryBackend implements Backend with in-process timestamp windows.
// This is the default backend and is suitable for a single-process
// deployment; counters do not survive restarts and are not shared across
// workers.
//
// Each key holds an ordered slice of request timestamps. Entries outside
// the window are purged lazily on each Admit, and a cron-scheduled sweep
// evicts keys that have sat idle longer than the retention period, so an
// adversary rotating addresses cannot grow the map without bound.
type MemoryBackend struct {
	mu      sync.Mutex
	windows map[string]*window

	retention time.Duration
	cron      *cron.Cron
	clock     func() time.Time
	closeOnce sync.Once
}

// window holds the retained timestamps and last touch time for one key.
type window struct {
	stamps   []time.Time
	lastSeen time.Time
}

// MemoryBackendConfig configures the memory backend.
type MemoryBackendConfig struct {
	// Retention is how long an untouched key survives before the sweep
	// removes it. Default: 10 minutes.
	Retention time.Duration

	// SweepSchedule is a cron expression for the eviction sweep.
	// Default: "*/5 * * * *". Empty with Retention=0 disables sweeping.
	SweepSchedule string

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// NewMemoryBackend creates an in-memory quota store with default settings.
func NewMemoryBackend() *MemoryBackend {
	b, _ := NewMemoryBackendWithConfig(MemoryBackendConfig{})
	return b
}

// NewMemoryBackendWithConfig creates an in-memory quota store with custom
// configuration. The eviction sweep starts immediately.
func NewMemoryBackendWithConfig(cfg MemoryBackendConfig) (*MemoryBackend, error) {
	if cfg.Retention == 0 {
		cfg.Retention = 10 * time.Minute
	}
	if cfg.SweepSchedule == "" {
		cfg.SweepSchedule = "*/5 * * * *"
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	b := &MemoryBackend{
		windows:   make(map[string]*window),
		retention: cfg.Retention,
		clock:     cfg.Clock,
	}

	b.cron = cron.New()
	if _, err := b.cron.AddFunc(cfg.SweepSchedule, b.sweep); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", cfg.SweepSchedule, err)
	}
	b.cron.Start()

	return b, nil
}

// Admit implements Backend. The whole read-modify-write runs under the
// store mutex, which serializes concurrent requests touching the same key.
func (b *MemoryBackend) Admit(ctx context.Context, key string, limit int, windowLen time.Duration) (bool, error) {
	now := b.clock()
	cutoff := now.Add(-windowLen)

	b.mu.Lock()
	defer b.mu.Unlock()

	w := b.windows[key]
	if w == nil {
		w = &window{}
		b.windows[key] = w
	}
	w.lastSeen = now

	// Drop timestamps that have left the window.
	keep := 0
	for keep < len(w.stamps) && !w.stamps[keep].After(cutoff) {
		keep++
	}
	if keep > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[keep:]...)
	}

	if len(w.stamps) >= limit {
		return false, nil
	}
	w.stamps = append(w.stamps, now)
	return true, nil
}

// sweep removes keys that have not been touched within the retention
// period. Runs on the cron schedule.
func (b *MemoryBackend) sweep() {
	cutoff := b.clock().Add(-b.retention)

	b.mu.Lock()
	evicted := 0
	for key, w := range b.windows {
		if w.lastSeen.Before(cutoff) {
			delete(b.windows, key)
			evicted++
		}
	}
	remaining := len(b.windows)
	b.mu.Unlock()

	if evicted > 0 {
		slog.Debug("quota store sweep", "evicted", evicted, "remaining", remaining)
	}
}

// Sweep runs an eviction pass immediately. Exposed for tests and for
// operators who want an on-demand sweep.
func (b *MemoryBackend) Sweep() {
	b.sweep()
}

// Len returns the number of tracked keys.
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.windows)
}

// Close stops the eviction sweep.
func (b *MemoryBackend) Close() error {
	b.closeOnce.Do(func() {
		ctx := b.cron.Stop()
		<-ctx.Done()
	})
	return nil
}
