package ratelimit

import (
	"context"
	"testing"
	"time"
)

// stepClock is a manually advanced clock
type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time { return c.now }

func TestTokenBucket_Allow(t *testing.T) {
	clock := &stepClock{now: time.Unix(0, 0)}
	limiter := NewTokenBucket(&Config{
		EventsPerSecond: 10,
		Burst:           20,
		Enabled:         true,
		Now:             clock.Now,
	})
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		if !limiter.Allow(ctx, "click") {
			t.Fatalf("Expected event %d to be allowed", i+1)
		}
	}

	if limiter.Allow(ctx, "click") {
		t.Fatal("Expected event to be denied after burst")
	}

	// Other keys have their own bucket
	if !limiter.Allow(ctx, "impressions") {
		t.Fatal("Expected other key to be allowed")
	}
}

func TestTokenBucket_Refill(t *testing.T) {
	clock := &stepClock{now: time.Unix(0, 0)}
	limiter := NewTokenBucket(&Config{
		EventsPerSecond: 10,
		Burst:           10,
		Enabled:         true,
		Now:             clock.Now,
	})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		limiter.Allow(ctx, "click")
	}
	if limiter.Allow(ctx, "click") {
		t.Fatal("Expected event to be denied")
	}

	clock.now = clock.now.Add(250 * time.Millisecond)

	for i := 0; i < 2; i++ {
		if !limiter.Allow(ctx, "click") {
			t.Fatalf("Expected refilled event %d to be allowed", i+1)
		}
	}
	if limiter.Allow(ctx, "click") {
		t.Fatal("Expected event to be denied after refill consumed")
	}
}

func TestTokenBucket_IdleBucketsAreDropped(t *testing.T) {
	clock := &stepClock{now: time.Unix(0, 0)}
	limiter := NewTokenBucket(&Config{EventsPerSecond: 0.001, Burst: 1, Enabled: true, Now: clock.Now})
	ctx := context.Background()

	limiter.Allow(ctx, "click")
	if limiter.Allow(ctx, "click") {
		t.Fatal("Expected event to be denied")
	}

	// After cleanup the key starts again from a full bucket
	clock.now = clock.now.Add(11 * time.Minute)
	if !limiter.Allow(ctx, "click") {
		t.Fatal("Expected event to be allowed after the idle bucket was dropped")
	}
	if n := len(limiter.(*tokenBucket).buckets); n != 1 {
		t.Fatalf("Expected 1 bucket, got %d", n)
	}
}

func TestTokenBucket_Disabled(t *testing.T) {
	limiter := NewTokenBucket(&Config{EventsPerSecond: 1, Burst: 1, Enabled: false})
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		if !limiter.Allow(ctx, "click") {
			t.Fatal("Expected disabled limiter to allow everything")
		}
	}
}
