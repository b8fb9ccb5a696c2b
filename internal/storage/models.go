package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportRecord is a persisted aggregation outcome, the reference-price
// history consumed by reporting and export.
type ReportRecord struct {
	ID               int64
	CorrelationID    string
	ProductName      string
	CountryCode      string
	ReferencePrice   decimal.Decimal
	Currency         string
	SourceCount      int
	SuccessRate      float64
	SimulationMode   bool
	SimulationReason string
	ScrapedAt        time.Time
	CreatedAt        time.Time
}

// SourceStatistics aggregates recent attempts for one (source, country) pair.
type SourceStatistics struct {
	SourceName    string  `json:"source_name"`
	CountryCode   string  `json:"country_code"`
	Attempts      int64   `json:"attempts"`
	Successes     int64   `json:"successes"`
	SuccessRate   float64 `json:"success_rate"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
}

// Statistics is the diagnostic payload of the statistics reporter. When the
// persistence sink is unavailable, Available is false and Error explains why;
// the reporter never raises into the scraping path.
type Statistics struct {
	Available      bool               `json:"available"`
	Error          string             `json:"error,omitempty"`
	WindowHours    int                `json:"window_hours"`
	TotalAttempts  int64              `json:"total_attempts"`
	TotalSuccesses int64              `json:"total_successes"`
	SuccessRate    float64            `json:"success_rate"`
	AvgDurationMS  float64            `json:"avg_duration_ms"`
	Sources        []SourceStatistics `json:"sources"`
}
