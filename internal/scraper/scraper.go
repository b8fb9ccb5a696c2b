package scraper

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"price-scout/internal/registry"
)

const (
	// DefaultMaxRetries is the retry budget after the first attempt.
	DefaultMaxRetries = 3
	// DefaultBackoffBase is the first retry delay; each retry doubles it.
	DefaultBackoffBase = time.Second
	// DefaultMaxConcurrent bounds in-flight source scrapes per batch.
	DefaultMaxConcurrent = 3
	// DefaultMaxSources caps how many sources one batch attempts.
	DefaultMaxSources = 5
)

// Options tune the scraping engine.
type Options struct {
	RateLimitPerDomain int
	RateLimitWindow    time.Duration
	RequestTimeout     time.Duration
	MaxRetries         int
	BackoffBase        time.Duration
	MaxConcurrent      int
	MaxSources         int
}

// Scraper coordinates rate limiting, connection reuse, fetching, and price
// extraction across sources. One instance owns the per-domain client and
// ledger maps and is shared by all concurrent batches.
type Scraper struct {
	opts     Options
	registry *registry.Registry
	limiter  *DomainRateLimiter
	clients  *ConnectionManager
	metrics  *Metrics
	logger   zerolog.Logger
}

// New constructs a Scraper. Zero option fields take the package defaults.
func New(opts Options, reg *registry.Registry, metrics *Metrics, logger zerolog.Logger) *Scraper {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = DefaultBackoffBase
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if opts.MaxSources <= 0 {
		opts.MaxSources = DefaultMaxSources
	}

	scraperLogger := logger.With().Str("component", "scraper").Logger()
	return &Scraper{
		opts:     opts,
		registry: reg,
		limiter:  NewDomainRateLimiter(opts.RateLimitPerDomain, opts.RateLimitWindow, logger),
		clients:  NewConnectionManager(opts.RequestTimeout),
		metrics:  metrics,
		logger:   scraperLogger,
	}
}

// Close releases pooled HTTP connections.
func (s *Scraper) Close() {
	s.clients.CloseAll()
}

// Per-attempt outcome variant. The retry state machine branches on these
// instead of caught errors.
type attemptOutcome int

const (
	attemptSuccess attemptOutcome = iota
	attemptRetryable
	attemptTerminal
)

type attemptResult struct {
	outcome  attemptOutcome
	price    decimal.Decimal
	currency string
	rawText  string
	reason   string
}

// ScrapeSource runs the full retry loop for one source and always returns a
// snapshot; it never fails the caller. At most MaxRetries+1 attempts are
// made, separated by exponential backoff.
func (s *Scraper) ScrapeSource(ctx context.Context, source registry.MarketSource, product, correlationID string) PriceSnapshot {
	started := time.Now()
	domain := domainOf(source.BaseURL)
	client := s.clients.ClientFor(domain)

	logger := s.logger.With().
		Str("correlation_id", correlationID).
		Str("source", source.Name).
		Str("country", source.CountryCode).
		Logger()

	snapshot := PriceSnapshot{
		CorrelationID: correlationID,
		ProductName:   product,
		CountryCode:   strings.ToUpper(source.CountryCode),
		SourceName:    source.Name,
		CollectedAt:   time.Now().UTC(),
		UserAgent:     client.UserAgent,
	}

	searchURL := BuildSearchURL(source, product)
	if searchURL == "" {
		logger.Warn().Str("base_url", source.BaseURL).Msg("search URL could not be built, skipping source")
		snapshot.ErrorMessage = "URL de recherche invalide"
		snapshot.DurationMS = time.Since(started).Milliseconds()
		return snapshot
	}
	snapshot.SourceURL = searchURL

	attempts := s.opts.MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		result := s.attempt(ctx, client, domain, source, searchURL, attempt, logger)
		if result.outcome == attemptSuccess {
			snapshot.Success = true
			snapshot.Price = result.price
			snapshot.Currency = result.currency
			snapshot.DurationMS = time.Since(started).Milliseconds()
			return snapshot
		}
		if result.outcome == attemptTerminal {
			break
		}
		if attempt < attempts-1 {
			backoff := s.opts.BackoffBase << attempt
			logger.Debug().
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Str("reason", result.reason).
				Msg("attempt failed, backing off before retry")
			s.metrics.IncRetry()
			if !sleepContext(ctx, backoff) {
				break
			}
		}
	}

	snapshot.Success = false
	snapshot.Price = decimal.Zero
	snapshot.Currency = ""
	snapshot.ErrorMessage = fmt.Sprintf("Échec après %d tentatives", attempts)
	snapshot.DurationMS = time.Since(started).Milliseconds()
	logger.Warn().Int("attempts", attempts).Int64("duration_ms", snapshot.DurationMS).Msg("source exhausted all attempts")
	return snapshot
}

// attempt performs one Build→Rate-limit→Fetch→Extract pass.
func (s *Scraper) attempt(ctx context.Context, client *Client, domain string, source registry.MarketSource, searchURL string, attempt int, logger zerolog.Logger) attemptResult {
	waitStart := time.Now()
	if err := s.limiter.Wait(ctx, domain); err != nil {
		return attemptResult{outcome: attemptTerminal, reason: err.Error()}
	}
	s.metrics.ObserveRateLimitWait(time.Since(waitStart))

	fetchStart := time.Now()
	status, body, err := s.fetch(ctx, client, searchURL)
	fetchDuration := time.Since(fetchStart)
	s.metrics.ObserveRequest(fetchDuration)

	if err != nil {
		if ctx.Err() != nil {
			return attemptResult{outcome: attemptTerminal, reason: ctx.Err().Error()}
		}
		s.metrics.IncAttempt(source.Name, "network_error")
		logger.Warn().Err(err).Int("attempt", attempt+1).Dur("duration", fetchDuration).Msg("fetch failed")
		return attemptResult{outcome: attemptRetryable, reason: err.Error()}
	}

	if status != http.StatusOK {
		s.metrics.IncAttempt(source.Name, "http_error")
		logger.Warn().Int("attempt", attempt+1).Int("status", status).Dur("duration", fetchDuration).Msg("unexpected status code")
		return attemptResult{outcome: attemptRetryable, reason: fmt.Sprintf("HTTP %d", status)}
	}

	extraction := ExtractPrice(body, source, logger)
	if extraction == nil {
		s.metrics.IncAttempt(source.Name, "extraction_miss")
		logger.Warn().Int("attempt", attempt+1).Dur("duration", fetchDuration).Msg("no price found in markup")
		return attemptResult{outcome: attemptRetryable, reason: "no price found in markup"}
	}

	s.metrics.IncAttempt(source.Name, "success")
	logger.Info().
		Int("attempt", attempt+1).
		Str("price", extraction.Price.String()).
		Str("currency", extraction.Currency).
		Dur("duration", fetchDuration).
		Msg("price extracted")

	return attemptResult{
		outcome:  attemptSuccess,
		price:    extraction.Price,
		currency: extraction.Currency,
		rawText:  extraction.RawText,
	}
}

// fetch performs a single GET with browser-like headers. It returns an error
// only on network-level failure; any completed exchange returns normally.
func (s *Scraper) fetch(ctx context.Context, client *Client, rawURL string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", client.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Connection", "keep-alive")

	resp, err := client.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	reader := io.Reader(resp.Body)
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, gzErr := gzip.NewReader(resp.Body)
		if gzErr != nil {
			return 0, nil, fmt.Errorf("open gzip body: %w", gzErr)
		}
		defer gz.Close()
		reader = gz
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return 0, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// sleepContext waits for d and reports false when ctx ended first.
func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
