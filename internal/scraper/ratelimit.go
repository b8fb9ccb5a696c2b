package scraper

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultRateLimitPerDomain caps admitted requests per domain per window.
	DefaultRateLimitPerDomain = 10
	// DefaultRateLimitWindow is the trailing window the cap applies to.
	DefaultRateLimitWindow = time.Minute
)

// DomainRateLimiter admits at most limit requests to each domain within the
// trailing window. It is a sliding-window limiter: a caller over the cap is
// suspended until the oldest ledger entry ages out, then its own admission is
// appended. Ledgers are created lazily per domain and kept for the process
// lifetime.
type DomainRateLimiter struct {
	mu      sync.Mutex
	ledgers map[string][]time.Time
	limit   int
	window  time.Duration
	logger  zerolog.Logger
}

// NewDomainRateLimiter constructs a limiter. Non-positive limit or window
// fall back to the defaults.
func NewDomainRateLimiter(limit int, window time.Duration, logger zerolog.Logger) *DomainRateLimiter {
	if limit <= 0 {
		limit = DefaultRateLimitPerDomain
	}
	if window <= 0 {
		window = DefaultRateLimitWindow
	}
	return &DomainRateLimiter{
		ledgers: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		logger:  logger.With().Str("component", "rate_limiter").Logger(),
	}
}

// Wait blocks the calling goroutine until a request to domain fits inside the
// window, then records the admission. It returns early only when ctx is done.
func (l *DomainRateLimiter) Wait(ctx context.Context, domain string) error {
	if wait := l.slotDelay(domain); wait > 0 {
		l.logger.Debug().
			Str("domain", domain).
			Dur("wait", wait).
			Msg("rate limit reached, waiting for slot")

		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	l.mu.Lock()
	l.ledgers[domain] = append(l.ledgers[domain], time.Now())
	l.mu.Unlock()
	return nil
}

// slotDelay prunes the domain ledger and returns how long the caller must
// wait before its admission stays under the limit. Zero means go ahead.
func (l *DomainRateLimiter) slotDelay(domain string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-l.window)

	ledger := l.ledgers[domain]
	kept := ledger[:0]
	for _, ts := range ledger {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.ledgers[domain] = kept

	if len(kept) < l.limit {
		return 0
	}
	return kept[0].Add(l.window).Sub(now)
}
