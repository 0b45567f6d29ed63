package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "trader",
	Short: "An event replay and order matching simulator",
	Long: `Trader replays historical market data through a simulated broker.

It provides tools for:
  - Merging CSV price files into one time ordered event stream
  - Matching market, limit, stop, trailing and composite orders
  - Multi-currency position and P/L accounting
  - Journaling executions and equity to CSV or SQLite
  - Org-mode run reports`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
