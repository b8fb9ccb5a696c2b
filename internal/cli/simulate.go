package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var (
	simulateProduct  string
	simulateCurrency string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-price",
	Short: "Generate a category-band simulated price without scraping",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateProduct == "" {
			return errors.New("--product is required")
		}

		return getApp().SimulatePrice(simulateProduct, simulateCurrency)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateProduct, "product", "", "Product name used for band matching")
	simulateCmd.Flags().StringVar(&simulateCurrency, "currency", "EUR", "Currency for the simulated price")
}
