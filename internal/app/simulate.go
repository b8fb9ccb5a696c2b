package app

import (
	"fmt"
	"os"
	"strings"

	"price-scout/internal/pricing"
)

// SimulatePrice prints a synthetic category-band price for a product, the
// same heuristic the engine falls back to when every source fails.
func (a *App) SimulatePrice(product, currency string) error {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "EUR"
	}

	price := pricing.SimulatePrice(product, currency)
	fmt.Fprintf(os.Stdout, "%s %s\n", price.StringFixed(2), currency)
	return nil
}
