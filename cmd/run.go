package cmd

import (
	"fmt"

	"github.com/quantfish/crossarb/internal/app"
	"github.com/quantfish/crossarb/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the arbitrage engine loop",
	Long: `Starts the engine loop: fetch snapshots from both venues, detect
mispricings, validate cross-venue legality, apply the risk gate, and
simulate fills against the paper broker. Reports accumulate in the
configured reports directory.

Market input comes from JSON fixture files per venue; a venue without a
fixture contributes an empty snapshot.`,
	RunE: runEngine,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("fixture-a", "", "JSON market fixture for venue A")
	runCmd.Flags().String("fixture-b", "", "JSON market fixture for venue B")
	runCmd.Flags().IntP("iterations", "n", 0, "Override ENGINE_ITERATIONS (0 keeps the configured value)")
}

func runEngine(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	fixtureA, _ := cmd.Flags().GetString("fixture-a")
	fixtureB, _ := cmd.Flags().GetString("fixture-b")
	iterations, _ := cmd.Flags().GetInt("iterations")

	application, err := app.New(cfg, logger, &app.Options{
		FixtureA:   fixtureA,
		FixtureB:   fixtureB,
		Iterations: iterations,
	})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	if err := application.Run(); err != nil {
		return fmt.Errorf("run app: %w", err)
	}
	return nil
}
