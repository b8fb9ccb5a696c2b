package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Scrape runs the engine once for a product and prints the aggregation
// result as JSON.
func (a *App) Scrape(ctx context.Context, opts ScrapeOptions) error {
	engine, cleanup, err := a.newEngine(ctx, false)
	if err != nil {
		return err
	}
	defer cleanup()

	currency := strings.ToUpper(opts.Currency)
	if currency == "" {
		currency = "EUR"
	}

	result := engine.Aggregator.ScrapeProductPrices(ctx, opts.Product, opts.Country, currency, opts.MaxSources)

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}
