package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestLRUCache_SetGet(t *testing.T) {
	cache := NewLRUCache(DefaultConfig())
	ctx := context.Background()

	key := PopularKey(10, "")
	value := []byte(`[{"item_id":1}]`)
	if err := cache.Set(ctx, key, value); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	retrieved, found := cache.Get(ctx, key)
	if !found {
		t.Fatal("Expected to find key in cache")
	}

	if string(retrieved) != string(value) {
		t.Fatalf("Expected %s, got %s", value, retrieved)
	}
}

func TestLRUCache_Expiration(t *testing.T) {
	clock := newFakeClock()
	cache := NewLRUCache(&Config{TTL: DefaultTTL, Now: clock.Now})
	ctx := context.Background()

	key := SimilarKey(7, 10)
	cache.Set(ctx, key, []byte("[]"))

	clock.Advance(DefaultTTL - time.Nanosecond)
	if _, found := cache.Get(ctx, key); !found {
		t.Fatal("Expected entry to be valid just before TTL")
	}

	clock.Advance(time.Nanosecond)
	if _, found := cache.Get(ctx, key); found {
		t.Fatal("Expected entry to be expired at TTL")
	}
}

func TestLRUCache_SetRefreshesStoredAt(t *testing.T) {
	clock := newFakeClock()
	cache := NewLRUCache(&Config{TTL: time.Minute, Now: clock.Now})
	ctx := context.Background()

	key := UserKey(1, 10, nil)
	cache.Set(ctx, key, []byte("a"))
	clock.Advance(50 * time.Second)
	cache.Set(ctx, key, []byte("b"))
	clock.Advance(50 * time.Second)

	value, found := cache.Get(ctx, key)
	if !found {
		t.Fatal("Expected overwritten entry to be valid")
	}
	if string(value) != "b" {
		t.Fatalf("Expected b, got %s", value)
	}
}

func TestLRUCache_LRUEviction(t *testing.T) {
	cache := NewLRUCache(&Config{TTL: DefaultTTL, MaxItems: 2})
	ctx := context.Background()

	k1, k2, k3 := SimilarKey(1, 10), SimilarKey(2, 10), SimilarKey(3, 10)
	cache.Set(ctx, k1, []byte("value1"))
	cache.Set(ctx, k2, []byte("value2"))
	cache.Set(ctx, k3, []byte("value3"))

	if _, found := cache.Get(ctx, k1); found {
		t.Fatal("Expected key1 to be evicted")
	}
	if _, found := cache.Get(ctx, k2); !found {
		t.Fatal("Expected key2 to exist")
	}
	if _, found := cache.Get(ctx, k3); !found {
		t.Fatal("Expected key3 to exist")
	}
}

func TestLRUCache_Unbounded(t *testing.T) {
	cache := NewLRUCache(DefaultConfig())
	ctx := context.Background()

	for i := int64(0); i < 1000; i++ {
		cache.Set(ctx, SimilarKey(i, 10), []byte("[]"))
	}
	if items := cache.Stats().Items; items != 1000 {
		t.Fatalf("Expected 1000 items, got %d", items)
	}
}

func TestLRUCache_DeleteAndClear(t *testing.T) {
	cache := NewLRUCache(DefaultConfig())
	ctx := context.Background()

	cache.Set(ctx, PopularKey(10, ""), []byte("a"))
	cache.Set(ctx, PopularKey(10, "Tools"), []byte("b"))

	cache.Delete(ctx, PopularKey(10, ""))
	if _, found := cache.Get(ctx, PopularKey(10, "")); found {
		t.Fatal("Expected deleted key to be absent")
	}

	cache.Clear(ctx)
	if _, found := cache.Get(ctx, PopularKey(10, "Tools")); found {
		t.Fatal("Expected cache to be empty after Clear")
	}
	if items := cache.Stats().Items; items != 0 {
		t.Fatalf("Expected 0 items, got %d", items)
	}
}

func TestLRUCache_Stats(t *testing.T) {
	cache := NewLRUCache(DefaultConfig())
	ctx := context.Background()

	stats := cache.Stats()
	if stats.Hits != 0 || stats.Misses != 0 {
		t.Fatal("Expected zero stats initially")
	}

	cache.Set(ctx, SimilarKey(1, 10), []byte("value1"))
	cache.Get(ctx, SimilarKey(1, 10)) // hit
	cache.Get(ctx, SimilarKey(2, 10)) // miss

	stats = cache.Stats()
	if stats.Hits != 1 {
		t.Fatalf("Expected 1 hit, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Fatalf("Expected 1 miss, got %d", stats.Misses)
	}
	if stats.HitRate() != 0.5 {
		t.Fatalf("Expected hit rate 0.5, got %f", stats.HitRate())
	}
}

func TestLRUCache_ConcurrentAccess(t *testing.T) {
	cache := NewLRUCache(&Config{TTL: DefaultTTL, MaxItems: 16})
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := SimilarKey(int64(i%32), g)
				cache.Set(ctx, key, []byte("x"))
				cache.Get(ctx, key)
			}
		}(g)
	}
	wg.Wait()

	if items := cache.Stats().Items; items > 16 {
		t.Fatalf("Expected at most 16 items, got %d", items)
	}
}
