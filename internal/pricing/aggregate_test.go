package pricing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"price-scout/internal/registry"
	"price-scout/internal/scraper"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type staticCatalog struct {
	sources []registry.MarketSource
}

func (c *staticCatalog) ListSources(ctx context.Context, countryCode string) ([]registry.MarketSource, error) {
	return c.sources, nil
}

type recordingSink struct {
	snapshots []scraper.PriceSnapshot
	reports   []AggregationResult
}

func (s *recordingSink) InsertSnapshots(ctx context.Context, snapshots []scraper.PriceSnapshot) error {
	s.snapshots = append(s.snapshots, snapshots...)
	return nil
}

func (s *recordingSink) InsertReport(ctx context.Context, result AggregationResult) error {
	s.reports = append(s.reports, result)
	return nil
}

func priceServer(t *testing.T, price string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body><span class="price">%s €</span></body></html>`, price)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newAggregator(catalog registry.Catalog, sink Sink) *Aggregator {
	opts := scraper.Options{
		RateLimitPerDomain: 1000,
		BackoffBase:        time.Millisecond,
		MaxRetries:         0,
	}
	engine := scraper.New(opts, registry.New(catalog, testLogger()), nil, testLogger())
	return NewAggregator(engine, sink, nil, testLogger())
}

func TestScrapeProductPricesMedianOfThree(t *testing.T) {
	prices := []string{"999,00", "1049,99", "1029,50"}
	catalog := &staticCatalog{}
	for i, price := range prices {
		srv := priceServer(t, price)
		catalog.sources = append(catalog.sources, registry.MarketSource{
			CountryCode:    "FR",
			Name:           fmt.Sprintf("source_%d", i),
			BaseURL:        srv.URL,
			PriceSelectors: []string{".price"},
			Priority:       i + 1,
			Weight:         1,
			Enabled:        true,
		})
	}

	sink := &recordingSink{}
	aggregator := newAggregator(catalog, sink)

	result := aggregator.ScrapeProductPrices(context.Background(), "iPhone 15 Pro", "FR", "EUR", 0)

	if result.SimulationMode {
		t.Fatalf("three live sources should not simulate: %+v", result)
	}
	if !result.ReferencePrice.Equal(decimal.RequireFromString("1029.50")) {
		t.Fatalf("expected median 1029.50, got %s", result.ReferencePrice)
	}
	if result.SourceCount != 3 {
		t.Fatalf("expected 3 contributing sources, got %d", result.SourceCount)
	}
	if result.SuccessRate != 1.0 {
		t.Fatalf("expected success rate 1.0, got %f", result.SuccessRate)
	}
	if result.CorrelationID == "" {
		t.Fatal("result must carry a correlation id")
	}
	if len(sink.snapshots) != 3 {
		t.Fatalf("all snapshots should be persisted, got %d", len(sink.snapshots))
	}
	if len(sink.reports) != 1 {
		t.Fatalf("the final report should be persisted once, got %d", len(sink.reports))
	}
}

func TestScrapeProductPricesPartialFailure(t *testing.T) {
	okSrv := priceServer(t, "500,00")
	failSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(failSrv.Close)

	catalog := &staticCatalog{sources: []registry.MarketSource{
		{CountryCode: "FR", Name: "live", BaseURL: okSrv.URL, PriceSelectors: []string{".price"}, Priority: 1, Weight: 1, Enabled: true},
		{CountryCode: "FR", Name: "blocked", BaseURL: failSrv.URL, PriceSelectors: []string{".price"}, Priority: 2, Weight: 1, Enabled: true},
	}}

	aggregator := newAggregator(catalog, nil)
	result := aggregator.ScrapeProductPrices(context.Background(), "galaxy s24", "FR", "EUR", 0)

	if result.SimulationMode {
		t.Fatalf("one live source is enough: %+v", result)
	}
	if !result.ReferencePrice.Equal(decimal.RequireFromString("500.00")) {
		t.Fatalf("expected 500.00, got %s", result.ReferencePrice)
	}
	if result.SourceCount != 1 {
		t.Fatalf("expected 1 contributing source, got %d", result.SourceCount)
	}
	if result.SuccessRate != 0.5 {
		t.Fatalf("expected success rate 0.5, got %f", result.SuccessRate)
	}
}

func TestScrapeProductPricesAllSourcesFailSimulates(t *testing.T) {
	failSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(failSrv.Close)

	catalog := &staticCatalog{sources: []registry.MarketSource{
		{CountryCode: "FR", Name: "down", BaseURL: failSrv.URL, PriceSelectors: []string{".price"}, Priority: 1, Weight: 1, Enabled: true},
	}}

	sink := &recordingSink{}
	aggregator := newAggregator(catalog, sink)
	result := aggregator.ScrapeProductPrices(context.Background(), "iphone 15 pro", "FR", "EUR", 0)

	if !result.SimulationMode {
		t.Fatalf("total failure must degrade to simulation: %+v", result)
	}
	if result.SimulationReason != "no real price found" {
		t.Fatalf("unexpected simulation reason: %q", result.SimulationReason)
	}
	if result.SourceCount != 0 || len(result.Sources) != 0 {
		t.Fatalf("simulated results carry no sources: %+v", result)
	}
	if !result.ReferencePrice.IsPositive() {
		t.Fatalf("simulated price must be positive, got %s", result.ReferencePrice)
	}
	min := decimal.NewFromInt(950)
	max := decimal.NewFromInt(1200)
	if result.ReferencePrice.LessThan(min) || result.ReferencePrice.GreaterThan(max) {
		t.Fatalf("simulated iphone 15 pro price should fall in its band, got %s", result.ReferencePrice)
	}
	if len(sink.reports) != 1 {
		t.Fatalf("simulated reports are persisted too, got %d", len(sink.reports))
	}
	if len(sink.snapshots) != 1 {
		t.Fatalf("failed snapshots are persisted for statistics, got %d", len(sink.snapshots))
	}
}

func TestScrapeProductPricesUnknownCountrySimulates(t *testing.T) {
	aggregator := newAggregator(nil, nil)
	result := aggregator.ScrapeProductPrices(context.Background(), "parfum", "ZZ", "EUR", 0)

	if !result.SimulationMode {
		t.Fatalf("a country without sources must simulate: %+v", result)
	}
	if !result.ReferencePrice.IsPositive() {
		t.Fatalf("simulated price must be positive, got %s", result.ReferencePrice)
	}
}

func TestMedian(t *testing.T) {
	cases := []struct {
		prices []string
		want   string
	}{
		{[]string{"42"}, "42"},
		{[]string{"30", "10", "20"}, "20"},
		{[]string{"40", "10", "30", "20"}, "25"},
		{[]string{"999.00", "1049.99", "1029.50"}, "1029.50"},
	}

	for _, tc := range cases {
		prices := make([]decimal.Decimal, len(tc.prices))
		for i, raw := range tc.prices {
			prices[i] = decimal.RequireFromString(raw)
		}
		got := median(prices)
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("median(%v) = %s, want %s", tc.prices, got, tc.want)
		}
	}
}
