package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "crossarb",
	Short: "Cross-venue prediction market arbitrage engine",
	Long: `Paper-trading arbitrage engine for binary and categorical prediction
markets spanning two venues: one that permits short sales and one that
is long-only.

Each iteration the engine ingests market snapshots from both venues,
runs the detector suite (parity, exclusive-sum, ladder, duplicate,
time-lag, consistency, composite), gates the results through the strict
dual-venue validator and the risk rules, simulates execution against a
paper broker, and appends deduplicated incremental reports.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	// A local .env is a convenience for development; absence is fine.
	_ = godotenv.Load()
}
