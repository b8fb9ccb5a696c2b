package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"price-scout/internal/storage"
)

// Statistics summarises recent scrape attempts. The sink being unavailable
// yields an explicit error payload, never a failure.
func (a *App) Statistics(ctx context.Context, countryCode string) storage.Statistics {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return storage.Statistics{Error: err.Error()}
	}
	if store == nil {
		return storage.Statistics{Error: "database not configured"}
	}
	if closeStore != nil {
		defer closeStore()
	}

	stats, err := store.GetStatistics(ctx, countryCode)
	if err != nil {
		return storage.Statistics{Error: err.Error()}
	}
	return stats
}

// Stats prints the statistics summary.
func (a *App) Stats(ctx context.Context, countryCode string) error {
	stats := a.Statistics(ctx, countryCode)
	if !stats.Available {
		fmt.Fprintf(os.Stdout, "statistics unavailable: %s\n", stats.Error)
		return nil
	}

	fmt.Fprintf(os.Stdout, "Trailing %dh: %d attempts, %d successes (%.1f%%), avg %.0f ms\n\n",
		stats.WindowHours,
		stats.TotalAttempts,
		stats.TotalSuccesses,
		stats.SuccessRate*100,
		stats.AvgDurationMS,
	)

	if len(stats.Sources) == 0 {
		fmt.Fprintln(os.Stdout, "no per-source data")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Source\tCountry\tAttempts\tSuccesses\tRate\tAvg ms")
	for _, entry := range stats.Sources {
		fmt.Fprintf(writer, "%s\t%s\t%d\t%d\t%.1f%%\t%.0f\n",
			entry.SourceName,
			entry.CountryCode,
			entry.Attempts,
			entry.Successes,
			entry.SuccessRate*100,
			entry.AvgDurationMS,
		)
	}
	return writer.Flush()
}
