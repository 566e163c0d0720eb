package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "optiinvest",
	Short: "Opti-Invest - portfolio optimization service",
	Long: `Opti-Invest Unified CLI

Mean-variance portfolio optimization over live market data.
Tracks holdings, fetches price history, and serves optimization
results over a REST API.

Usage:
  go run ./cmd/optiinvest [command]

Examples:
  go run ./cmd/optiinvest api
  go run ./cmd/optiinvest optimize --profile aggressive`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
