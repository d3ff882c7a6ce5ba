package metadata

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestTTLCacheFreshnessWindow(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)}
	cache := NewTTLCache[string, int](DefaultCacheTTL, clock.now)

	cache.Set("k", 1)
	if v, ok := cache.Get("k"); !ok || v != 1 {
		t.Fatalf("fresh entry missing")
	}

	clock.advance(DefaultCacheTTL)
	if _, ok := cache.Get("k"); !ok {
		t.Fatalf("entry at exactly ttl should be served")
	}

	clock.advance(time.Millisecond)
	if _, ok := cache.Get("k"); ok {
		t.Fatalf("expired entry served")
	}

	cache.Set("k", 2)
	clock.advance(-time.Minute)
	if _, ok := cache.Get("k"); ok {
		t.Fatalf("entry with negative age served")
	}

	if removed := cache.Prune(); removed != 1 || cache.Len() != 0 {
		t.Fatalf("prune removed %d, len %d", removed, cache.Len())
	}
}

func TestTTLCacheGetOrLoad(t *testing.T) {
	cache := NewTTLCache[int, string](time.Hour, nil)
	var loads int32

	load := func(context.Context) (string, error) {
		atomic.AddInt32(&loads, 1)
		return "value", nil
	}
	for i := 0; i < 3; i++ {
		v, err := cache.GetOrLoad(context.Background(), 7, load)
		if err != nil || v != "value" {
			t.Fatalf("GetOrLoad = %q, %v", v, err)
		}
	}
	if loads != 1 {
		t.Fatalf("loads = %d, want 1", loads)
	}

	boom := errors.New("boom")
	if _, err := cache.GetOrLoad(context.Background(), 8, func(context.Context) (string, error) { return "", boom }); !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
	if _, ok := cache.Get(8); ok {
		t.Fatalf("failed load was cached")
	}
}

func TestTTLCacheCollapsesConcurrentMisses(t *testing.T) {
	cache := NewTTLCache[string, int](time.Hour, nil)
	var loads int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = cache.GetOrLoad(context.Background(), "k", func(context.Context) (int, error) {
				atomic.AddInt32(&loads, 1)
				<-release
				return 1, nil
			})
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if loads != 1 {
		t.Fatalf("loads = %d, want 1", loads)
	}
}

func TestTTLCacheSharedLoadSurvivesFirstCaller(t *testing.T) {
	cache := NewTTLCache[string, int](time.Hour, nil)
	started := make(chan struct{})
	release := make(chan struct{})
	load := func(ctx context.Context) (int, error) {
		close(started)
		select {
		case <-release:
			return 7, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := cache.GetOrLoad(firstCtx, "k", load)
		firstErr <- err
	}()
	<-started

	type result struct {
		v   int
		err error
	}
	second := make(chan result, 1)
	go func() {
		v, err := cache.GetOrLoad(context.Background(), "k", func(context.Context) (int, error) {
			t.Error("second caller should join the running load")
			return 0, nil
		})
		second <- result{v, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("first caller should see its own cancellation, got %v", err)
	}

	close(release)
	got := <-second
	if got.err != nil || got.v != 7 {
		t.Fatalf("second caller = %d, %v; want 7, nil", got.v, got.err)
	}
	if v, ok := cache.Get("k"); !ok || v != 7 {
		t.Fatalf("loaded value should be cached, got %d/%v", v, ok)
	}
}
