package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"price-scout/internal/alerting"
	"price-scout/internal/config"
	"price-scout/internal/pricing"
	"price-scout/internal/scheduler"
)

// Watcher re-prices the tracked products on every scheduler cycle, persists
// the outcomes through the aggregator's sink, and raises a degradation alert
// whenever a product falls back to simulation.
type Watcher struct {
	scheduler  *scheduler.Scheduler
	aggregator *pricing.Aggregator
	notifier   alerting.Notifier
	products   []config.TrackedProduct
	alertsOn   bool
	logger     zerolog.Logger
}

// New constructs the watch service.
func New(cfg *config.Config, sched *scheduler.Scheduler, aggregator *pricing.Aggregator, notifier alerting.Notifier, logger zerolog.Logger) *Watcher {
	return &Watcher{
		scheduler:  sched,
		aggregator: aggregator,
		notifier:   notifier,
		products:   cfg.Watch.Products,
		alertsOn:   cfg.Alerting.Enabled,
		logger:     logger.With().Str("component", "watcher").Logger(),
	}
}

// Run begins the aligned scraping loop.
func (w *Watcher) Run(ctx context.Context) error {
	if w.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	if len(w.products) == 0 {
		return fmt.Errorf("no tracked products configured")
	}
	return w.scheduler.Run(ctx, w.ProcessCycle)
}

// ProcessCycle prices every tracked product once.
func (w *Watcher) ProcessCycle(ctx context.Context, cycle time.Time) error {
	for _, product := range w.products {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		currency := product.Currency
		if currency == "" {
			currency = "EUR"
		}

		result := w.aggregator.ScrapeProductPrices(ctx, product.Name, product.Country, currency, product.MaxSources)

		w.logger.Info().
			Time("cycle", cycle).
			Str("product", product.Name).
			Str("country", product.Country).
			Str("reference_price", result.ReferencePrice.String()).
			Bool("simulation_mode", result.SimulationMode).
			Float64("success_rate", result.SuccessRate).
			Msg("product priced")

		if result.SimulationMode && w.alertsOn && w.notifier != nil {
			note := alerting.Notification{
				ProductName:      result.ProductName,
				CountryCode:      result.CountryCode,
				CorrelationID:    result.CorrelationID,
				SuccessRate:      result.SuccessRate,
				SimulationReason: result.SimulationReason,
				ScrapedAt:        result.ScrapedAt,
			}
			if err := w.notifier.Notify(ctx, note); err != nil {
				w.logger.Error().Err(err).Str("product", product.Name).Msg("failed to dispatch degradation alert")
			}
		}
	}
	return nil
}
