package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestRateLimiterAdmitsUnderLimit(t *testing.T) {
	limiter := NewDomainRateLimiter(3, time.Minute, noopLogger())

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(context.Background(), "example.com"); err != nil {
			t.Fatalf("admission %d should not fail: %v", i+1, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("admissions under the limit should be immediate, took %s", elapsed)
	}
}

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	window := 200 * time.Millisecond
	limiter := NewDomainRateLimiter(2, window, noopLogger())

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(context.Background(), "example.com"); err != nil {
			t.Fatalf("admission %d should not fail: %v", i+1, err)
		}
	}
	if elapsed := time.Since(start); elapsed < window/2 {
		t.Fatalf("third admission should wait for the window, elapsed %s", elapsed)
	}
}

func TestRateLimiterDomainsAreIndependent(t *testing.T) {
	limiter := NewDomainRateLimiter(1, time.Minute, noopLogger())

	if err := limiter.Wait(context.Background(), "a.example.com"); err != nil {
		t.Fatalf("first domain should be admitted: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(context.Background(), "b.example.com"); err != nil {
		t.Fatalf("second domain should be admitted: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("a full ledger must not block other domains, took %s", elapsed)
	}
}

func TestRateLimiterContextCancellation(t *testing.T) {
	limiter := NewDomainRateLimiter(1, time.Minute, noopLogger())

	if err := limiter.Wait(context.Background(), "example.com"); err != nil {
		t.Fatalf("first admission should succeed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.Wait(ctx, "example.com"); err == nil {
		t.Fatal("cancelled context should abort the wait")
	}
}

func TestRateLimiterDefaults(t *testing.T) {
	limiter := NewDomainRateLimiter(0, 0, noopLogger())
	if limiter.limit != DefaultRateLimitPerDomain {
		t.Fatalf("expected default limit %d, got %d", DefaultRateLimitPerDomain, limiter.limit)
	}
	if limiter.window != DefaultRateLimitWindow {
		t.Fatalf("expected default window %s, got %s", DefaultRateLimitWindow, limiter.window)
	}
}
