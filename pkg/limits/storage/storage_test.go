package storage

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// fakeClock is a manually advanced clock for window tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestMemoryBackend(t *testing.T, clock *fakeClock) *MemoryBackend {
	t.Helper()
	b, err := NewMemoryBackendWithConfig(MemoryBackendConfig{
		Retention:     time.Minute,
		SweepSchedule: "@every 1h", // sweeps run manually in tests
		Clock:         clock.Now,
	})
	if err != nil {
		t.Fatalf("NewMemoryBackendWithConfig failed: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestMemoryBackend_LimitPlusOneRejected(t *testing.T) {
	clock := newFakeClock()
	b := newTestMemoryBackend(t, clock)
	ctx := context.Background()

	const limit = 5
	for i := 0; i < limit; i++ {
		ok, err := b.Admit(ctx, "ip:1.2.3.4", limit, time.Minute)
		if err != nil {
			t.Fatalf("Admit %d failed: %v", i, err)
		}
		if !ok {
			t.Fatalf("request %d should be admitted", i)
		}
	}

	ok, err := b.Admit(ctx, "ip:1.2.3.4", limit, time.Minute)
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if ok {
		t.Error("request limit+1 should be rejected")
	}
}

func TestMemoryBackend_WindowSlides(t *testing.T) {
	clock := newFakeClock()
	b := newTestMemoryBackend(t, clock)
	ctx := context.Background()

	const limit = 3
	window := 30 * time.Second

	for i := 0; i < limit; i++ {
		if ok, _ := b.Admit(ctx, "k", limit, window); !ok {
			t.Fatalf("request %d should be admitted", i)
		}
	}
	if ok, _ := b.Admit(ctx, "k", limit, window); ok {
		t.Fatal("over-quota request should be rejected")
	}

	// Once the first timestamps leave the trailing window, capacity returns.
	clock.Advance(window + time.Second)
	if ok, _ := b.Admit(ctx, "k", limit, window); !ok {
		t.Error("request after window slide should be admitted")
	}
}

func TestMemoryBackend_EvenSpacingNeverOverRejects(t *testing.T) {
	clock := newFakeClock()
	b := newTestMemoryBackend(t, clock)
	ctx := context.Background()

	// limit requests spaced evenly across 2*window must all be admitted:
	// no trailing window ever contains more than limit of them.
	const limit = 6
	window := time.Minute
	spacing := 2 * window / limit

	for i := 0; i < limit; i++ {
		ok, err := b.Admit(ctx, "spaced", limit, window)
		if err != nil {
			t.Fatalf("Admit failed: %v", err)
		}
		if !ok {
			t.Errorf("evenly spaced request %d was rejected", i)
		}
		clock.Advance(spacing)
	}
}

func TestMemoryBackend_KeysAreIndependent(t *testing.T) {
	clock := newFakeClock()
	b := newTestMemoryBackend(t, clock)
	ctx := context.Background()

	if ok, _ := b.Admit(ctx, "a", 1, time.Minute); !ok {
		t.Fatal("first request on key a should be admitted")
	}
	if ok, _ := b.Admit(ctx, "a", 1, time.Minute); ok {
		t.Fatal("second request on key a should be rejected")
	}
	if ok, _ := b.Admit(ctx, "b", 1, time.Minute); !ok {
		t.Error("key b has its own window")
	}
}

func TestMemoryBackend_SweepEvictsIdleKeys(t *testing.T) {
	clock := newFakeClock()
	b := newTestMemoryBackend(t, clock)
	ctx := context.Background()

	b.Admit(ctx, "idle", 10, time.Minute)
	b.Admit(ctx, "busy", 10, time.Minute)
	if b.Len() != 2 {
		t.Fatalf("expected 2 keys, got %d", b.Len())
	}

	// Retention for the test backend is one minute. Touch only "busy".
	clock.Advance(59 * time.Second)
	b.Admit(ctx, "busy", 10, time.Minute)
	clock.Advance(2 * time.Second)
	b.Sweep()

	if b.Len() != 1 {
		t.Errorf("expected idle key evicted, have %d keys", b.Len())
	}
}

func TestMemoryBackend_ConcurrentSameKey(t *testing.T) {
	b := NewMemoryBackend()
	defer b.Close()
	ctx := context.Background()

	const limit = 50
	const workers = 200

	var wg sync.WaitGroup
	var admitted sync.Map
	count := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ok, err := b.Admit(ctx, "contended", limit, time.Minute)
			if err != nil {
				t.Errorf("Admit failed: %v", err)
				return
			}
			if ok {
				admitted.Store(n, true)
				count <- struct{}{}
			}
		}(i)
	}
	wg.Wait()
	close(count)

	total := 0
	for range count {
		total++
	}
	if total != limit {
		t.Errorf("expected exactly %d admitted under contention, got %d", limit, total)
	}
}

// Redis conformance runs only when a server is available.
func TestRedisBackend_Admit(t *testing.T) {
	addr := os.Getenv("SENTINEL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SENTINEL_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	b := NewRedisBackendFromClient(client, "sentinel:test:")
	ctx := context.Background()

	key := "redis-conformance"
	client.Del(ctx, "sentinel:test:"+key)

	const limit = 4
	for i := 0; i < limit; i++ {
		ok, err := b.Admit(ctx, key, limit, 2*time.Second)
		if err != nil {
			t.Fatalf("Admit failed: %v", err)
		}
		if !ok {
			t.Fatalf("request %d should be admitted", i)
		}
	}
	if ok, _ := b.Admit(ctx, key, limit, 2*time.Second); ok {
		t.Error("over-quota request should be rejected")
	}

	time.Sleep(2100 * time.Millisecond)
	if ok, _ := b.Admit(ctx, key, limit, 2*time.Second); !ok {
		t.Error("request after window expiry should be admitted")
	}
}
