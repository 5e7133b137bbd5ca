package cmd

import (
	"context"
	"fmt"

	"github.com/quantfish/crossarb/internal/detectors"
	"github.com/quantfish/crossarb/internal/matcher"
	"github.com/quantfish/crossarb/internal/source"
	"github.com/quantfish/crossarb/pkg/config"
	"github.com/quantfish/crossarb/pkg/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // Cobra boilerplate
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one detector sweep and print the opportunities",
	Long: `Loads the venue fixtures, runs every enabled detector over the unified
snapshot once, and prints the detected opportunities without gating or
executing anything. Useful for inspecting fixtures and thresholds.`,
	RunE: runScan,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().String("fixture-a", "", "JSON market fixture for venue A")
	scanCmd.Flags().String("fixture-b", "", "JSON market fixture for venue B")
}

func runScan(cmd *cobra.Command, args []string) error {
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

	markets, opps, err := sweepFixtures(context.Background(), cfg, logger, fixtureA, fixtureB)
	if err != nil {
		return err
	}

	fmt.Printf("scanned %d markets\n\n", len(markets))
	for _, opp := range opps {
		fmt.Printf("%-14s edge=%.4f  %s\n", opp.Type, opp.NetEdge, opp.Description)
		for _, a := range opp.Actions {
			fmt.Printf("               %-4s %.4f x %s/%s @ %.4f\n",
				a.Side, a.Amount, a.MarketID, a.OutcomeID, a.LimitPrice)
		}
	}
	fmt.Printf("\n%d opportunity(ies) detected\n", len(opps))
	return nil
}

// sweepFixtures loads the venue fixtures and runs one sweep of the
// enabled stateless detectors over the combined snapshot.
func sweepFixtures(ctx context.Context, cfg *config.Config, logger *zap.Logger,
	fixtureA, fixtureB string) ([]types.Market, []types.Opportunity, error) {
	var markets []types.Market
	for _, fixture := range []struct {
		meta source.Metadata
		path string
	}{
		{source.Metadata{Venue: types.VenueA, Name: cfg.VenueAName}, fixtureA},
		{source.Metadata{Venue: types.VenueB, Name: cfg.VenueBName}, fixtureB},
	} {
		if fixture.path == "" {
			continue
		}
		src, err := source.NewFromFile(fixture.meta, fixture.path)
		if err != nil {
			return nil, nil, err
		}
		fetched, err := src.Fetch(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("fetching %s fixture: %w", fixture.meta.Name, err)
		}
		markets = append(markets, fetched...)
	}

	m := matcher.New(matcher.Lexical{}, matcher.Config{
		SimilarityThreshold: cfg.SimilarityThreshold,
		RelatedWindowDays:   cfg.RelatedWindowDays,
	}, logger)

	suite := []detectors.Detector{
		detectors.NewParity(cfg.Detectors, logger),
		detectors.NewExclusiveSum(cfg.Detectors, logger),
		detectors.NewLadder(cfg.Detectors, logger),
		detectors.NewDuplicate(cfg.Detectors, m, logger),
		detectors.NewConsistency(cfg.Detectors, logger),
		detectors.NewComposite(cfg.Detectors, logger),
	}

	var opps []types.Opportunity
	for _, det := range suite {
		found, err := det.Detect(ctx, markets)
		if err != nil {
			logger.Warn("detector-failed", zap.String("detector", det.Name()), zap.Error(err))
			continue
		}
		opps = append(opps, found...)
	}
	return markets, opps, nil
}
