package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"price-scout/internal/registry"
)

func testScraper(opts Options) *Scraper {
	if opts.RateLimitPerDomain == 0 {
		opts.RateLimitPerDomain = 1000
	}
	if opts.BackoffBase == 0 {
		opts.BackoffBase = time.Millisecond
	}
	reg := registry.New(nil, noopLogger())
	return New(opts, reg, nil, noopLogger())
}

func serverSource(url string, selectors ...string) registry.MarketSource {
	return registry.MarketSource{
		CountryCode:    "FR",
		Name:           "test_source",
		BaseURL:        url,
		PriceSelectors: selectors,
		Priority:       1,
		Weight:         1,
		Enabled:        true,
	}
}

func TestScrapeSourceSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("request should carry a browser user agent")
		}
		fmt.Fprint(w, `<html><body><span class="sale-price">1199,00 €</span></body></html>`)
	}))
	defer srv.Close()

	s := testScraper(Options{MaxRetries: 0})
	defer s.Close()

	snapshot := s.ScrapeSource(context.Background(), serverSource(srv.URL, ".sale-price"), "iPhone 15 Pro", "corr-1")

	if !snapshot.Success {
		t.Fatalf("expected success, got %+v", snapshot)
	}
	if !snapshot.Price.Equal(decimal.RequireFromString("1199.00")) {
		t.Fatalf("expected price 1199.00, got %s", snapshot.Price)
	}
	if snapshot.Currency != "EUR" {
		t.Fatalf("expected EUR, got %s", snapshot.Currency)
	}
	if snapshot.CorrelationID != "corr-1" || snapshot.SourceName != "test_source" {
		t.Fatalf("snapshot provenance incomplete: %+v", snapshot)
	}
	if snapshot.SourceURL == "" || snapshot.UserAgent == "" {
		t.Fatalf("snapshot should record URL and user agent: %+v", snapshot)
	}
	if snapshot.ErrorMessage != "" {
		t.Fatalf("successful snapshot should carry no error, got %q", snapshot.ErrorMessage)
	}
}

func TestScrapeSourceRetriesThenFails(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := testScraper(Options{MaxRetries: 2})
	defer s.Close()

	snapshot := s.ScrapeSource(context.Background(), serverSource(srv.URL, ".price"), "iphone", "corr-2")

	if got := hits.Load(); got != 3 {
		t.Fatalf("expected 3 attempts (1 + 2 retries), got %d", got)
	}
	if snapshot.Success {
		t.Fatal("exhausted source should not be successful")
	}
	if !snapshot.Price.IsZero() {
		t.Fatalf("failed snapshot should have zero price, got %s", snapshot.Price)
	}
	if snapshot.ErrorMessage != "Échec après 3 tentatives" {
		t.Fatalf("unexpected failure message: %q", snapshot.ErrorMessage)
	}
}

func TestScrapeSourceRecoversAfterTransientError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `<html><body><span class="price">42,00 €</span></body></html>`)
	}))
	defer srv.Close()

	s := testScraper(Options{MaxRetries: 2})
	defer s.Close()

	snapshot := s.ScrapeSource(context.Background(), serverSource(srv.URL, ".price"), "chaussure", "corr-3")

	if !snapshot.Success {
		t.Fatalf("second attempt should have recovered: %+v", snapshot)
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", got)
	}
}

func TestScrapeSourceUnusableURL(t *testing.T) {
	s := testScraper(Options{MaxRetries: 3})
	defer s.Close()

	snapshot := s.ScrapeSource(context.Background(), serverSource("not a url", ".price"), "iphone", "corr-4")

	if snapshot.Success {
		t.Fatal("unusable base URL should fail immediately")
	}
	if snapshot.ErrorMessage != "URL de recherche invalide" {
		t.Fatalf("unexpected error message: %q", snapshot.ErrorMessage)
	}
	if snapshot.SourceURL != "" {
		t.Fatalf("no URL should be recorded, got %q", snapshot.SourceURL)
	}
}

func TestScrapeSourceExtractionMissIsRetryable(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `<html><body><p>aucun résultat</p></body></html>`)
	}))
	defer srv.Close()

	s := testScraper(Options{MaxRetries: 1})
	defer s.Close()

	snapshot := s.ScrapeSource(context.Background(), serverSource(srv.URL, ".price"), "iphone", "corr-5")

	if snapshot.Success {
		t.Fatal("markup without a price should not succeed")
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("extraction misses should be retried, got %d attempts", got)
	}
	if snapshot.ErrorMessage != "Échec après 2 tentatives" {
		t.Fatalf("unexpected failure message: %q", snapshot.ErrorMessage)
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	s := testScraper(Options{MaxRetries: -1})
	defer s.Close()

	if s.opts.MaxRetries != DefaultMaxRetries {
		t.Fatalf("expected default retries %d, got %d", DefaultMaxRetries, s.opts.MaxRetries)
	}
	if s.opts.MaxConcurrent != DefaultMaxConcurrent {
		t.Fatalf("expected default concurrency %d, got %d", DefaultMaxConcurrent, s.opts.MaxConcurrent)
	}
	if s.opts.RequestTimeout != DefaultRequestTimeout {
		t.Fatalf("expected default timeout %s, got %s", DefaultRequestTimeout, s.opts.RequestTimeout)
	}
	if s.opts.MaxSources != DefaultMaxSources {
		t.Fatalf("expected default max sources %d, got %d", DefaultMaxSources, s.opts.MaxSources)
	}
}
