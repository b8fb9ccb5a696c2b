package scraper

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"price-scout/internal/registry"
)

// Generic price-like selectors tried when none of a source's configured
// selectors match. Ordered from most to least specific.
var genericPriceSelectors = []string{
	"[itemprop=\"price\"]",
	"[data-price]",
	"span.a-price-whole",
	".price-current",
	".product-price",
	".price",
	"[class*=\"price\"]",
	"[id*=\"price\"]",
}

var currencyDefaults = map[string]string{
	"FR": "EUR",
	"GB": "GBP",
	"US": "USD",
}

var (
	priceTokenPattern = regexp.MustCompile(`\d+(?:[.,]\d+)*`)
	// French retailers group thousands with regular, no-break, or narrow
	// no-break spaces ("1 199,00 €").
	groupSpacePattern = regexp.MustCompile(`(\d)[ \x{00A0}\x{202F}](\d)`)
)

// Extraction is the parsed outcome of one markup document.
type Extraction struct {
	Price    decimal.Decimal
	Currency string
	RawText  string
}

// ExtractPrice parses markup and pulls a positive price using the source's
// selectors, falling back to the generic ones. It returns nil when nothing
// usable is found; extraction problems are logged, never propagated.
func ExtractPrice(markup []byte, source registry.MarketSource, logger zerolog.Logger) (extraction *Extraction) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Str("source", source.Name).
				Interface("panic", r).
				Msg("price extraction panicked")
			extraction = nil
		}
	}()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		logger.Error().Err(err).Str("source", source.Name).Msg("markup parse failed")
		return nil
	}

	text := firstMatchText(doc, source.PriceSelectors)
	if text == "" {
		text = firstMatchText(doc, genericPriceSelectors)
	}
	if text == "" {
		return nil
	}

	price, ok := parsePriceToken(text)
	if !ok {
		return nil
	}

	return &Extraction{
		Price:    price,
		Currency: detectCurrency(text, source.CountryCode),
		RawText:  text,
	}
}

// firstMatchText returns the trimmed text of the first element matched by the
// first selector that matches anything. Invalid selectors are skipped; goquery
// panics on those, so each lookup is isolated.
func firstMatchText(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		text := selectText(doc, selector)
		if text != "" {
			return text
		}
	}
	return ""
}

func selectText(doc *goquery.Document, selector string) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()
	return strings.TrimSpace(doc.Find(selector).First().Text())
}

// parsePriceToken extracts the first numeric token from the matched text.
// Commas act as decimal separators; when both comma and dot are present the
// earlier one is treated as a thousands separator.
func parsePriceToken(text string) (decimal.Decimal, bool) {
	for groupSpacePattern.MatchString(text) {
		text = groupSpacePattern.ReplaceAllString(text, "$1$2")
	}

	token := priceTokenPattern.FindString(text)
	if token == "" {
		return decimal.Decimal{}, false
	}

	comma := strings.Index(token, ",")
	dot := strings.Index(token, ".")
	switch {
	case comma >= 0 && dot >= 0 && comma < dot:
		token = strings.ReplaceAll(token, ",", "")
	case comma >= 0 && dot >= 0:
		token = strings.ReplaceAll(token, ".", "")
		token = strings.ReplaceAll(token, ",", ".")
	case comma >= 0:
		token = strings.ReplaceAll(token, ",", ".")
	}

	price, err := decimal.NewFromString(token)
	if err != nil || !price.IsPositive() {
		return decimal.Decimal{}, false
	}
	return price, true
}

// detectCurrency scans the matched text for currency markers, defaulting to
// the country's currency when none is present.
func detectCurrency(text, countryCode string) string {
	switch {
	case strings.Contains(text, "€"):
		return "EUR"
	case strings.Contains(text, "£"):
		return "GBP"
	case strings.Contains(text, "$"):
		return "USD"
	}

	upper := strings.ToUpper(text)
	for _, code := range []string{"EUR", "GBP", "USD"} {
		if strings.Contains(upper, code) {
			return code
		}
	}

	if currency, ok := currencyDefaults[strings.ToUpper(countryCode)]; ok {
		return currency
	}
	return "EUR"
}
