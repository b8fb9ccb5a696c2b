package pricing

import (
	"math/rand"
	"strings"

	"github.com/shopspring/decimal"
)

// priceBand is a plausible price range for a product category.
type priceBand struct {
	keyword string
	min     float64
	max     float64
}

// Ordered category table matched by case-insensitive substring; the first hit
// wins, so more specific keywords come first.
var priceBands = []priceBand{
	{"iphone 15 pro max", 1100, 1400},
	{"iphone 15 pro", 950, 1200},
	{"iphone 15", 750, 950},
	{"iphone", 550, 900},
	{"galaxy s24 ultra", 1000, 1300},
	{"galaxy s24", 800, 1100},
	{"galaxy", 500, 900},
	{"macbook pro", 1800, 2800},
	{"macbook", 1100, 1800},
	{"laptop", 500, 1500},
	{"ordinateur portable", 500, 1500},
	{"ipad", 350, 900},
	{"tablette", 250, 700},
	{"téléviseur", 300, 1500},
	{"tv", 300, 1500},
	{"réfrigérateur", 450, 1200},
	{"fridge", 450, 1200},
	{"lave-linge", 350, 900},
	{"washing machine", 350, 900},
	{"sneaker", 60, 180},
	{"chaussure", 60, 180},
	{"shoe", 60, 180},
	{"parfum", 40, 120},
	{"perfume", 40, 120},
}

var fallbackBand = priceBand{min: 25, max: 400}

// SimulatePrice produces a plausible synthetic price for a product when no
// real price could be scraped. It always returns a positive value: the
// category band bounds the draw and the currency multiplier keeps the result
// in the caller's currency ballpark.
func SimulatePrice(product, currency string) decimal.Decimal {
	band := matchBand(strings.ToLower(product))
	value := band.min + rand.Float64()*(band.max-band.min)

	switch strings.ToUpper(currency) {
	case "USD":
		value *= 1.1
	case "GBP":
		value *= 0.85
	}

	return decimal.NewFromFloat(value).Round(2)
}

func matchBand(product string) priceBand {
	for _, band := range priceBands {
		if strings.Contains(product, band.keyword) {
			return band
		}
	}
	return fallbackBand
}
