package scraper

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSnapshot is the immutable record of one source's scrape outcome.
// A failed snapshot carries a zero price and a non-empty error message; a
// successful one carries a positive price and a resolved currency.
type PriceSnapshot struct {
	CorrelationID string          `json:"correlation_id"`
	ProductName   string          `json:"product_name"`
	CountryCode   string          `json:"country_code"`
	SourceName    string          `json:"source_name"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
	CollectedAt   time.Time       `json:"collected_at"`
	DurationMS    int64           `json:"scrape_duration_ms"`
	Success       bool            `json:"success"`
	SourceURL     string          `json:"source_url"`
	UserAgent     string          `json:"user_agent"`
	ErrorMessage  string          `json:"error_message,omitempty"`
}
