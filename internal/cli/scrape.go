package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"price-scout/internal/app"
)

var (
	scrapeProduct    string
	scrapeCountry    string
	scrapeCurrency   string
	scrapeMaxSources int
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape one product once and print the aggregation result",
	RunE: func(cmd *cobra.Command, args []string) error {
		if scrapeProduct == "" {
			return errors.New("--product is required")
		}

		opts := app.ScrapeOptions{
			Product:    scrapeProduct,
			Country:    scrapeCountry,
			Currency:   scrapeCurrency,
			MaxSources: scrapeMaxSources,
		}

		return getApp().Scrape(cmd.Context(), opts)
	},
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeProduct, "product", "", "Product name to search for")
	scrapeCmd.Flags().StringVar(&scrapeCountry, "country", "FR", "ISO country code selecting the source table")
	scrapeCmd.Flags().StringVar(&scrapeCurrency, "currency", "", "Preferred currency (defaults per country)")
	scrapeCmd.Flags().IntVar(&scrapeMaxSources, "max-sources", 0, "Maximum sources to query (defaults to config)")
}
