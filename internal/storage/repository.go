package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"price-scout/internal/pricing"
	"price-scout/internal/registry"
	"price-scout/internal/scraper"
)

// ErrNotConfigured indicates the storage pool was not initialised.
var ErrNotConfigured = errors.New("storage: pool not configured")

const statisticsWindow = 24 * time.Hour

const (
	insertSnapshotSQL = `INSERT INTO price_snapshots (
        correlation_id,
        product_name,
        country_code,
        source_name,
        price,
        currency,
        collected_at,
        duration_ms,
        success,
        source_url,
        user_agent,
        error_message
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
    );`

	listRecentSnapshotsSQL = `SELECT
        correlation_id,
        product_name,
        country_code,
        source_name,
        price::text,
        currency,
        collected_at,
        duration_ms,
        success,
        source_url,
        user_agent,
        COALESCE(error_message, '')
    FROM price_snapshots
    ORDER BY collected_at DESC
    LIMIT $1;`

	insertReportSQL = `INSERT INTO price_reports (
        correlation_id,
        product_name,
        country_code,
        reference_price,
        currency,
        source_count,
        success_rate,
        simulation_mode,
        simulation_reason,
        scraped_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
    );`

	listReportsBetweenSQL = `SELECT
        id,
        correlation_id,
        product_name,
        country_code,
        reference_price::text,
        currency,
        source_count,
        success_rate,
        simulation_mode,
        COALESCE(simulation_reason, ''),
        scraped_at,
        created_at
    FROM price_reports
    WHERE product_name = $1
      AND country_code = $2
      AND scraped_at >= $3
      AND scraped_at < $4
    ORDER BY scraped_at;`

	listSourcesSQL = `SELECT
        country_code,
        name,
        base_url,
        price_selectors,
        priority,
        weight,
        enabled
    FROM market_sources
    WHERE country_code = $1
      AND enabled
    ORDER BY priority;`

	statisticsOverallSQL = `SELECT
        COUNT(*),
        COUNT(*) FILTER (WHERE success),
        COALESCE(AVG(duration_ms), 0)
    FROM price_snapshots
    WHERE collected_at >= $1
      AND ($2 = '' OR country_code = $2);`

	statisticsBySourceSQL = `SELECT
        source_name,
        country_code,
        COUNT(*),
        COUNT(*) FILTER (WHERE success),
        COALESCE(AVG(duration_ms), 0)
    FROM price_snapshots
    WHERE collected_at >= $1
      AND ($2 = '' OR country_code = $2)
    GROUP BY source_name, country_code
    ORDER BY source_name, country_code;`
)

// SnapshotStore defines snapshot persistence operations.
type SnapshotStore interface {
	InsertSnapshots(ctx context.Context, snapshots []scraper.PriceSnapshot) error
	ListRecentSnapshots(ctx context.Context, limit int) ([]scraper.PriceSnapshot, error)
}

// ReportStore defines aggregation-result persistence operations.
type ReportStore interface {
	InsertReport(ctx context.Context, result pricing.AggregationResult) error
	ListReportsBetween(ctx context.Context, product, countryCode string, from, to time.Time) ([]ReportRecord, error)
}

// StatisticsReader computes attempt statistics over the trailing window.
type StatisticsReader interface {
	GetStatistics(ctx context.Context, countryCode string) (Statistics, error)
}

// Store aggregates access to snapshots, reports, and the source catalog.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertSnapshots persists every attempted snapshot of one batch.
func (s *Store) InsertSnapshots(ctx context.Context, snapshots []scraper.PriceSnapshot) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, snapshot := range snapshots {
		var errMsg interface{}
		if snapshot.ErrorMessage != "" {
			errMsg = snapshot.ErrorMessage
		}
		batch.Queue(insertSnapshotSQL,
			snapshot.CorrelationID,
			snapshot.ProductName,
			snapshot.CountryCode,
			snapshot.SourceName,
			snapshot.Price.String(),
			snapshot.Currency,
			snapshot.CollectedAt,
			snapshot.DurationMS,
			snapshot.Success,
			snapshot.SourceURL,
			snapshot.UserAgent,
			errMsg,
		)
	}

	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert snapshots: %w", err)
	}
	return nil
}

// ListRecentSnapshots lists the most recent snapshots, newest first.
func (s *Store) ListRecentSnapshots(ctx context.Context, limit int) ([]scraper.PriceSnapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSnapshotsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent snapshots: %w", queryErr)
	}
	defer rows.Close()

	snapshots := make([]scraper.PriceSnapshot, 0, limit)
	for rows.Next() {
		snapshot, scanErr := scanSnapshot(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		snapshots = append(snapshots, snapshot)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return snapshots, nil
}

// InsertReport persists one aggregation result.
func (s *Store) InsertReport(ctx context.Context, result pricing.AggregationResult) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var reason interface{}
	if result.SimulationReason != "" {
		reason = result.SimulationReason
	}

	if _, execErr := pool.Exec(ctx, insertReportSQL,
		result.CorrelationID,
		result.ProductName,
		result.CountryCode,
		result.ReferencePrice.String(),
		result.Currency,
		result.SourceCount,
		result.SuccessRate,
		result.SimulationMode,
		reason,
		result.ScrapedAt,
	); execErr != nil {
		return fmt.Errorf("insert report: %w", execErr)
	}
	return nil
}

// ListReportsBetween lists reports for one product/country within a window.
func (s *Store) ListReportsBetween(ctx context.Context, product, countryCode string, from, to time.Time) ([]ReportRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listReportsBetweenSQL, product, countryCode, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list reports between: %w", queryErr)
	}
	defer rows.Close()

	reports := make([]ReportRecord, 0)
	for rows.Next() {
		report, scanErr := scanReport(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		reports = append(reports, report)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return reports, nil
}

// ListSources implements the registry catalog lookup.
func (s *Store) ListSources(ctx context.Context, countryCode string) ([]registry.MarketSource, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSourcesSQL, countryCode)
	if queryErr != nil {
		return nil, fmt.Errorf("list sources: %w", queryErr)
	}
	defer rows.Close()

	sources := make([]registry.MarketSource, 0)
	for rows.Next() {
		var source registry.MarketSource
		if scanErr := rows.Scan(
			&source.CountryCode,
			&source.Name,
			&source.BaseURL,
			&source.PriceSelectors,
			&source.Priority,
			&source.Weight,
			&source.Enabled,
		); scanErr != nil {
			return nil, fmt.Errorf("scan source: %w", scanErr)
		}
		sources = append(sources, source)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return sources, nil
}

// GetStatistics summarises the trailing 24 hours of snapshots, overall and
// per (source, country). countryCode narrows the window when non-empty.
func (s *Store) GetStatistics(ctx context.Context, countryCode string) (Statistics, error) {
	pool, err := s.getPool()
	if err != nil {
		return Statistics{}, err
	}

	since := time.Now().UTC().Add(-statisticsWindow)
	stats := Statistics{
		Available:   true,
		WindowHours: int(statisticsWindow.Hours()),
	}

	if scanErr := pool.QueryRow(ctx, statisticsOverallSQL, since, countryCode).Scan(
		&stats.TotalAttempts,
		&stats.TotalSuccesses,
		&stats.AvgDurationMS,
	); scanErr != nil {
		return Statistics{}, fmt.Errorf("overall statistics: %w", scanErr)
	}
	if stats.TotalAttempts > 0 {
		stats.SuccessRate = float64(stats.TotalSuccesses) / float64(stats.TotalAttempts)
	}

	rows, queryErr := pool.Query(ctx, statisticsBySourceSQL, since, countryCode)
	if queryErr != nil {
		return Statistics{}, fmt.Errorf("per-source statistics: %w", queryErr)
	}
	defer rows.Close()

	for rows.Next() {
		var entry SourceStatistics
		if scanErr := rows.Scan(
			&entry.SourceName,
			&entry.CountryCode,
			&entry.Attempts,
			&entry.Successes,
			&entry.AvgDurationMS,
		); scanErr != nil {
			return Statistics{}, fmt.Errorf("scan source statistics: %w", scanErr)
		}
		if entry.Attempts > 0 {
			entry.SuccessRate = float64(entry.Successes) / float64(entry.Attempts)
		}
		stats.Sources = append(stats.Sources, entry)
	}
	if rows.Err() != nil {
		return Statistics{}, rows.Err()
	}

	return stats, nil
}

func scanSnapshot(rows pgx.Rows) (scraper.PriceSnapshot, error) {
	var (
		snapshot scraper.PriceSnapshot
		priceStr string
	)
	if err := rows.Scan(
		&snapshot.CorrelationID,
		&snapshot.ProductName,
		&snapshot.CountryCode,
		&snapshot.SourceName,
		&priceStr,
		&snapshot.Currency,
		&snapshot.CollectedAt,
		&snapshot.DurationMS,
		&snapshot.Success,
		&snapshot.SourceURL,
		&snapshot.UserAgent,
		&snapshot.ErrorMessage,
	); err != nil {
		return scraper.PriceSnapshot{}, err
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return scraper.PriceSnapshot{}, fmt.Errorf("parse snapshot price: %w", err)
	}
	snapshot.Price = price
	return snapshot, nil
}

func scanReport(rows pgx.Rows) (ReportRecord, error) {
	var (
		report   ReportRecord
		priceStr string
	)
	if err := rows.Scan(
		&report.ID,
		&report.CorrelationID,
		&report.ProductName,
		&report.CountryCode,
		&priceStr,
		&report.Currency,
		&report.SourceCount,
		&report.SuccessRate,
		&report.SimulationMode,
		&report.SimulationReason,
		&report.ScrapedAt,
		&report.CreatedAt,
	); err != nil {
		return ReportRecord{}, err
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return ReportRecord{}, fmt.Errorf("parse reference price: %w", err)
	}
	report.ReferencePrice = price
	return report, nil
}

var (
	_ SnapshotStore    = (*Store)(nil)
	_ ReportStore      = (*Store)(nil)
	_ StatisticsReader = (*Store)(nil)
	_ registry.Catalog = (*Store)(nil)
	_ pricing.Sink     = (*Store)(nil)
)
