package config

import (
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func TestStore_SnapshotAndReplace(t *testing.T) {
	first := NewDefault()
	store := NewStore(first)

	if got := store.Snapshot(); got != first {
		t.Fatal("snapshot should return the seeded config")
	}
	if store.Limits().IPPerWindow != DefaultIPPerWindow {
		t.Errorf("expected default ip quota, got %d", store.Limits().IPPerWindow)
	}

	second := NewDefault()
	second.Limits.IPPerWindow = 5
	store.Replace(second)

	if store.Limits().IPPerWindow != 5 {
		t.Errorf("expected replaced quota 5, got %d", store.Limits().IPPerWindow)
	}
}

func TestWatcher_ReloadSwapsLimitsOnly(t *testing.T) {
	path := writeConfigFile(t, `
limits:
  ip_per_window: 10
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cfg.Server.ListenAddress = "10.1.2.3:9999" // runtime override, not in file
	store := NewStore(cfg)

	w, err := NewWatcher(path, store, nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.watcher.Close()

	if err := os.WriteFile(path, []byte("limits:\n  ip_per_window: 42\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	w.reload()

	if got := store.Limits().IPPerWindow; got != 42 {
		t.Errorf("expected reloaded quota 42, got %d", got)
	}
	// Non-limits sections keep their running values.
	if got := store.Snapshot().Server.ListenAddress; got != "10.1.2.3:9999" {
		t.Errorf("reload must not touch server section, got %q", got)
	}
}

func TestWatcher_ReloadKeepsConfigOnError(t *testing.T) {
	path := writeConfigFile(t, "limits:\n  ip_per_window: 10\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	store := NewStore(cfg)

	w, err := NewWatcher(path, store, nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.watcher.Close()

	if err := os.WriteFile(path, []byte("limits: [broken\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	w.reload()

	if got := store.Limits().IPPerWindow; got != 10 {
		t.Errorf("broken reload must keep previous quota, got %d", got)
	}
}

func TestDebouncer_CoalescesBursts(t *testing.T) {
	d := newDebouncer(50 * time.Millisecond)
	defer d.stop()

	var calls atomic.Int32
	for i := 0; i < 10; i++ {
		d.trigger(func() { calls.Add(1) })
	}

	time.Sleep(150 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 coalesced call, got %d", got)
	}
}
