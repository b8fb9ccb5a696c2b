package cli

import (
	"github.com/spf13/cobra"
)

var statsCountry string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display scraping statistics for the trailing 24 hours",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Stats(cmd.Context(), statsCountry)
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsCountry, "country", "", "Restrict statistics to one country code")
}
