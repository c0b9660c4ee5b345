package config

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Store holds the current configuration behind an atomic pointer so that
// request-path code can take a consistent snapshot on every call without
// locking. The rate limiter reads Limits() on each admission check, which
// is what makes quota changes take effect without a restart.
type Store struct {
	current atomic.Pointer[Config]
}

// NewStore creates a store seeded with the given configuration.
func NewStore(cfg *Config) *Store {
	s := &Store{}
	s.current.Store(cfg)
	return s
}

// Snapshot returns the current configuration. The returned value must be
// treated as read-only.
func (s *Store) Snapshot() *Config {
	return s.current.Load()
}

// Limits returns the current rate limiting section.
func (s *Store) Limits() LimitsConfig {
	return s.current.Load().Limits
}

// Replace swaps in a new configuration.
func (s *Store) Replace(cfg *Config) {
	s.current.Store(cfg)
}

// Watcher watches the configuration file and swaps reloaded snapshots
// into a Store. Only the hot-reloadable sections (currently limits) are
// taken from the reloaded file; the rest of the running config is kept,
// since server/monitor settings are applied once at startup.
//
// Changes are debounced so editors that write multiple events per save
// trigger a single reload.
type Watcher struct {
	path     string
	store    *Store
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
	debounce *debouncer

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a watcher for the configuration file at path.
func NewWatcher(path string, store *Store, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		path:     path,
		store:    store,
		logger:   logger.With("component", "config.watcher"),
		watcher:  fsw,
		debounce: newDebouncer(200 * time.Millisecond),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks processing file events until the context is cancelled or
// Stop is called.
func (w *Watcher) Watch(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.doneCh)
	}()

	if err := w.watcher.Add(w.path); err != nil {
		return fmt.Errorf("failed to watch %q: %w", w.path, err)
	}

	w.logger.Info("config watcher started", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-w.stopCh:
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.debounce.trigger(func() { w.reload() })

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			// Keep watching despite errors.
			w.logger.Error("config watcher error", "error", err)
		}
	}
}

// Stop stops the watcher and waits for Watch to return.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.debounce.stop()
	return w.watcher.Close()
}

// reload re-reads the file and swaps the hot sections into the store.
// A file that fails to load or validate leaves the running config as-is.
func (w *Watcher) reload() {
	loaded, err := LoadWithEnvOverrides(w.path)
	if err != nil {
		w.logger.Error("config reload failed, keeping previous config", "error", err)
		return
	}

	next := *w.store.Snapshot()
	next.Limits = loaded.Limits
	w.store.Replace(&next)

	w.logger.Info("rate limit config reloaded",
		"ip_per_window", next.Limits.IPPerWindow,
		"token_per_window", next.Limits.TokenPerWindow,
		"window_seconds", next.Limits.WindowSeconds,
	)
}

// debouncer coalesces bursts of events into a single callback.
type debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	timer    *time.Timer
	stopped  bool
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{interval: interval}
}

func (d *debouncer) trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, callback)
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
