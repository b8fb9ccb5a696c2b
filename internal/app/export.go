package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"price-scout/internal/storage"
)

// Export renders one product's reference-price history as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	if opts.Product == "" || opts.Country == "" {
		return errors.New("--product and --country are required")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)
	country := strings.ToUpper(opts.Country)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.Add(-30 * 24 * time.Hour)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	reports, err := store.ListReportsBetween(ctx, opts.Product, country, from, to)
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		a.Logger.Info().Msg("no reports found for export window")
		return nil
	}

	downsampled := downsampleReports(reports, opts.MaxPoints)
	a.Logger.Info().Int("total", len(reports)).Int("exported", len(downsampled)).Msg("exporting reports")

	if opts.CSVPath != "" {
		if err := writeReportsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeReportsPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleReports(reports []storage.ReportRecord, max int) []storage.ReportRecord {
	if max <= 0 || len(reports) <= max {
		return reports
	}

	result := make([]storage.ReportRecord, 0, max)
	step := float64(len(reports)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(reports) {
			idx = len(reports) - 1
		}
		result = append(result, reports[idx])
	}
	return result
}

func writeReportsCSV(path string, reports []storage.ReportRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"scraped_at", "reference_price", "currency", "source_count", "success_rate", "simulation_mode"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, report := range reports {
		record := []string{
			report.ScrapedAt.Format(time.RFC3339),
			report.ReferencePrice.String(),
			report.Currency,
			strconv.Itoa(report.SourceCount),
			strconv.FormatFloat(report.SuccessRate, 'f', 3, 64),
			strconv.FormatBool(report.SimulationMode),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeReportsPNG(path string, reports []storage.ReportRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(reports))
	price := make([]float64, len(reports))
	successRate := make([]float64, len(reports))

	for i, report := range reports {
		x[i] = report.ScrapedAt
		price[i] = report.ReferencePrice.InexactFloat64()
		successRate[i] = report.SuccessRate * 100
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Reference price",
			ValueFormatter: priceFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Success rate (%)",
			ValueFormatter: priceFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Reference price",
				XValues: x,
				YValues: price,
			},
			chart.TimeSeries{
				Name:    "Success rate %",
				XValues: x,
				YValues: successRate,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
