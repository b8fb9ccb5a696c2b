package pricing

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"price-scout/internal/scraper"
)

// SourcePrice is the per-source entry exposed to the pricing pipeline.
type SourcePrice struct {
	SourceName  string          `json:"source_name"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	URL         string          `json:"url"`
	CollectedAt time.Time       `json:"collected_at"`
}

// AggregationResult is the engine's sole outbound contract: a reference price
// with provenance. ReferencePrice is always positive; when SimulationMode is
// set, Sources is empty and SourceCount is zero.
type AggregationResult struct {
	ProductName      string          `json:"product_name"`
	CountryCode      string          `json:"country_code"`
	Sources          []SourcePrice   `json:"sources"`
	ReferencePrice   decimal.Decimal `json:"reference_price"`
	Currency         string          `json:"currency"`
	SourceCount      int             `json:"source_count"`
	SuccessRate      float64         `json:"success_rate"`
	SimulationMode   bool            `json:"simulation_mode"`
	SimulationReason string          `json:"simulation_reason,omitempty"`
	CorrelationID    string          `json:"correlation_id"`
	ScrapedAt        time.Time       `json:"scraped_at"`
}

// Sink receives every attempted snapshot and the final result. Persistence is
// fire-and-forget: sink errors are logged by the aggregator and never fail
// the scrape.
type Sink interface {
	InsertSnapshots(ctx context.Context, snapshots []scraper.PriceSnapshot) error
	InsertReport(ctx context.Context, result AggregationResult) error
}

// Aggregator fans a product out across sources and reduces the snapshots to
// one reference price, simulating when no real price can be obtained.
type Aggregator struct {
	scraper *scraper.Scraper
	sink    Sink
	metrics *scraper.Metrics
	logger  zerolog.Logger
}

// NewAggregator constructs an Aggregator. sink may be nil (no persistence).
func NewAggregator(engine *scraper.Scraper, sink Sink, metrics *scraper.Metrics, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		scraper: engine,
		sink:    sink,
		metrics: metrics,
		logger:  logger.With().Str("component", "aggregator").Logger(),
	}
}

// ScrapeProductPrices produces a reference price for a product in a country.
// It never returns an error: total scraping failure, and even a panic escaping
// the pipeline, degrade to a clearly flagged simulated price.
func (a *Aggregator) ScrapeProductPrices(ctx context.Context, product, countryCode, currency string, maxSources int) (result AggregationResult) {
	correlationID := uuid.NewString()

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().
				Str("correlation_id", correlationID).
				Interface("panic", r).
				Msg("scraping pipeline panicked, falling back to simulation")
			result = a.simulated(ctx, product, countryCode, currency, correlationID, "pipeline failure")
		}
	}()

	snapshots := a.scraper.ScrapeAllSources(ctx, countryCode, product, correlationID, maxSources)

	if a.sink != nil && len(snapshots) > 0 {
		if err := a.sink.InsertSnapshots(ctx, snapshots); err != nil {
			a.logger.Error().Err(err).Str("correlation_id", correlationID).Msg("failed to persist snapshots")
		}
	}

	usable := make([]scraper.PriceSnapshot, 0, len(snapshots))
	for _, snapshot := range snapshots {
		if snapshot.Success && snapshot.Price.IsPositive() {
			usable = append(usable, snapshot)
		}
	}

	if len(usable) == 0 {
		return a.simulated(ctx, product, countryCode, currency, correlationID, "no real price found")
	}

	prices := make([]decimal.Decimal, len(usable))
	sources := make([]SourcePrice, len(usable))
	for i, snapshot := range usable {
		prices[i] = snapshot.Price
		sources[i] = SourcePrice{
			SourceName:  snapshot.SourceName,
			Price:       snapshot.Price,
			Currency:    snapshot.Currency,
			URL:         snapshot.SourceURL,
			CollectedAt: snapshot.CollectedAt,
		}
	}

	result = AggregationResult{
		ProductName:    product,
		CountryCode:    countryCode,
		Sources:        sources,
		ReferencePrice: median(prices),
		Currency:       currency,
		SourceCount:    len(usable),
		SuccessRate:    float64(len(usable)) / float64(len(snapshots)),
		CorrelationID:  correlationID,
		ScrapedAt:      time.Now().UTC(),
	}

	a.logger.Info().
		Str("correlation_id", correlationID).
		Str("product", product).
		Str("country", countryCode).
		Str("reference_price", result.ReferencePrice.String()).
		Int("source_count", result.SourceCount).
		Float64("success_rate", result.SuccessRate).
		Msg("batch completed")

	a.persistReport(ctx, result)
	return result
}

func (a *Aggregator) simulated(ctx context.Context, product, countryCode, currency, correlationID, reason string) AggregationResult {
	a.metrics.IncSimulation()
	a.logger.Warn().
		Str("correlation_id", correlationID).
		Str("product", product).
		Str("country", countryCode).
		Str("reason", reason).
		Msg("simulation fallback activated")

	result := AggregationResult{
		ProductName:      product,
		CountryCode:      countryCode,
		Sources:          []SourcePrice{},
		ReferencePrice:   SimulatePrice(product, currency),
		Currency:         currency,
		SourceCount:      0,
		SuccessRate:      0,
		SimulationMode:   true,
		SimulationReason: reason,
		CorrelationID:    correlationID,
		ScrapedAt:        time.Now().UTC(),
	}

	a.persistReport(ctx, result)
	return result
}

func (a *Aggregator) persistReport(ctx context.Context, result AggregationResult) {
	if a.sink == nil {
		return
	}
	if err := a.sink.InsertReport(ctx, result); err != nil {
		a.logger.Error().Err(err).Str("correlation_id", result.CorrelationID).Msg("failed to persist report")
	}
}

// median returns the statistical median of the given prices: the middle
// element for odd counts, the mean of the two middle elements for even counts.
func median(prices []decimal.Decimal) decimal.Decimal {
	sorted := make([]decimal.Decimal, len(prices))
	copy(sorted, prices)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LessThan(sorted[j])
	})

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return sorted[mid-1].Add(sorted[mid]).Div(decimal.NewFromInt(2))
}
