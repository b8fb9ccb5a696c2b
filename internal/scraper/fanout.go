package scraper

import (
	"context"
	"sync"

	"price-scout/internal/registry"
)

// ScrapeAllSources resolves the country's sources, truncates to maxSources,
// and scrapes them concurrently with at most MaxConcurrent in flight. Every
// source yields a snapshot except ones whose goroutine panicked; those are
// logged and omitted so the rest of the batch still completes. The returned
// order is arbitrary.
func (s *Scraper) ScrapeAllSources(ctx context.Context, countryCode, product, correlationID string, maxSources int) []PriceSnapshot {
	sources := s.registry.SourcesForCountry(ctx, countryCode)
	if maxSources <= 0 {
		maxSources = s.opts.MaxSources
	}
	if len(sources) > maxSources {
		sources = sources[:maxSources]
	}
	if len(sources) == 0 {
		s.logger.Warn().
			Str("correlation_id", correlationID).
			Str("country", countryCode).
			Msg("no sources available for country")
		return nil
	}

	semaphore := make(chan struct{}, s.opts.MaxConcurrent)
	results := make(chan PriceSnapshot, len(sources))

	var wg sync.WaitGroup
	for _, source := range sources {
		wg.Add(1)
		go func(source registry.MarketSource) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error().
						Str("correlation_id", correlationID).
						Str("source", source.Name).
						Interface("panic", r).
						Msg("source scrape panicked")
				}
			}()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			results <- s.ScrapeSource(ctx, source, product, correlationID)
		}(source)
	}

	wg.Wait()
	close(results)

	snapshots := make([]PriceSnapshot, 0, len(sources))
	for snapshot := range results {
		snapshots = append(snapshots, snapshot)
	}
	return snapshots
}
