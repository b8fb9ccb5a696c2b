package scraper

import (
	"testing"

	"github.com/shopspring/decimal"

	"price-scout/internal/registry"
)

func frenchSource(selectors ...string) registry.MarketSource {
	return registry.MarketSource{
		CountryCode:    "FR",
		Name:           "test_source",
		BaseURL:        "https://shop.example.fr",
		PriceSelectors: selectors,
	}
}

func TestExtractPriceConfiguredSelector(t *testing.T) {
	markup := []byte(`<html><body><div class="offer"><span class="sale-price">1 199,00 €</span></div></body></html>`)

	extraction := ExtractPrice(markup, frenchSource(".sale-price"), noopLogger())
	if extraction == nil {
		t.Fatal("configured selector should match")
	}
	if !extraction.Price.Equal(decimal.RequireFromString("1199.00")) {
		t.Fatalf("expected 1199.00, got %s", extraction.Price)
	}
	if extraction.Currency != "EUR" {
		t.Fatalf("expected EUR from the € symbol, got %s", extraction.Currency)
	}
}

func TestExtractPriceSelectorFallbackOrder(t *testing.T) {
	markup := []byte(`<html><body><span class="second">20,00 €</span><span class="first">10,00 €</span></body></html>`)

	extraction := ExtractPrice(markup, frenchSource(".missing", ".first", ".second"), noopLogger())
	if extraction == nil {
		t.Fatal("fallback selector should match")
	}
	if !extraction.Price.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("first matching selector should win, got %s", extraction.Price)
	}
}

func TestExtractPriceGenericFallback(t *testing.T) {
	markup := []byte(`<html><body><div class="product-price">$249.99</div></body></html>`)

	extraction := ExtractPrice(markup, frenchSource(".configured-miss"), noopLogger())
	if extraction == nil {
		t.Fatal("generic selectors should catch price-like classes")
	}
	if !extraction.Price.Equal(decimal.RequireFromString("249.99")) {
		t.Fatalf("expected 249.99, got %s", extraction.Price)
	}
	if extraction.Currency != "USD" {
		t.Fatalf("expected USD from the $ symbol, got %s", extraction.Currency)
	}
}

func TestExtractPriceNoMatch(t *testing.T) {
	markup := []byte(`<html><body><p>Aucun article trouvé</p></body></html>`)

	if extraction := ExtractPrice(markup, frenchSource(".sale-price"), noopLogger()); extraction != nil {
		t.Fatalf("markup without prices should yield nil, got %+v", extraction)
	}
}

func TestExtractPriceInvalidSelectorRecovered(t *testing.T) {
	markup := []byte(`<html><body><span class="price">15,50 €</span></body></html>`)

	extraction := ExtractPrice(markup, frenchSource(":::not-a-selector", ".price"), noopLogger())
	if extraction == nil {
		t.Fatal("an invalid selector must not poison later selectors")
	}
	if !extraction.Price.Equal(decimal.RequireFromString("15.50")) {
		t.Fatalf("expected 15.50, got %s", extraction.Price)
	}
}

func TestParsePriceToken(t *testing.T) {
	cases := []struct {
		text string
		want string
		ok   bool
	}{
		{"1 199,00 €", "1199.00", true},
		{"1199,00 €", "1199.00", true},
		{"1 199,00 €", "1199.00", true},
		{"1,199.99", "1199.99", true},
		{"1.199,99", "1199.99", true},
		{"249.99", "249.99", true},
		{"42", "42", true},
		{"prix indisponible", "", false},
		{"0,00 €", "", false},
	}

	for _, tc := range cases {
		price, ok := parsePriceToken(tc.text)
		if ok != tc.ok {
			t.Fatalf("parsePriceToken(%q) ok=%v, want %v", tc.text, ok, tc.ok)
		}
		if !ok {
			continue
		}
		if !price.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("parsePriceToken(%q) = %s, want %s", tc.text, price, tc.want)
		}
	}
}

func TestDetectCurrency(t *testing.T) {
	cases := []struct {
		text    string
		country string
		want    string
	}{
		{"1199,00 €", "FR", "EUR"},
		{"£899.00", "GB", "GBP"},
		{"$1,099.00", "US", "USD"},
		{"1099.00 USD", "FR", "USD"},
		{"1099.00", "GB", "GBP"},
		{"1099.00", "XX", "EUR"},
	}

	for _, tc := range cases {
		if got := detectCurrency(tc.text, tc.country); got != tc.want {
			t.Fatalf("detectCurrency(%q, %q) = %s, want %s", tc.text, tc.country, got, tc.want)
		}
	}
}
