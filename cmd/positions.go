package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/quantfish/crossarb/internal/broker"
	"github.com/quantfish/crossarb/internal/risk"
	"github.com/quantfish/crossarb/internal/validator"
	"github.com/quantfish/crossarb/pkg/config"
	"github.com/quantfish/crossarb/pkg/types"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "Dry-run one sweep and print the resulting book",
	Long: `Runs one detect-validate-gate-execute sweep against the venue fixtures
on a fresh paper book and prints the resulting cash, positions and fills.
Nothing is reported or persisted.`,
	RunE: runPositions,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(positionsCmd)
	positionsCmd.Flags().String("fixture-a", "", "JSON market fixture for venue A")
	positionsCmd.Flags().String("fixture-b", "", "JSON market fixture for venue B")
}

func runPositions(cmd *cobra.Command, args []string) error {
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

	ctx := context.Background()
	markets, opps, err := sweepFixtures(ctx, cfg, logger, fixtureA, fixtureB)
	if err != nil {
		return err
	}
	lookup := types.BuildLookup(markets)

	sort.Slice(opps, func(i, j int) bool { return opps[i].DerivedID() < opps[j].DerivedID() })

	book := broker.NewPaper(cfg.Broker, logger)
	gate := risk.NewGate(cfg.Risk, logger)
	var strictAB *validator.Validator
	if cfg.DualVenueMode {
		strictAB = validator.New(nil, logger)
	}

	executed := 0
	for i := range opps {
		opp := &opps[i]
		if strictAB != nil {
			if res := strictAB.Validate(opp, lookup, book.Positions()); !res.Allowed {
				continue
			}
		}
		decision := gate.Approve(opp, lookup, book.Positions(), book.Equity(lookup))
		if !decision.Allowed {
			continue
		}
		result := book.Execute(opp, lookup)
		executed += len(result.Trades)
	}

	fmt.Printf("markets: %d   opportunities: %d   fills: %d\n\n", len(markets), len(opps), executed)
	fmt.Printf("cash:   %.2f\nequity: %.2f\n\n", book.Cash(), book.Equity(lookup))

	positions := book.Positions()
	if len(positions) == 0 {
		fmt.Println("no open positions")
	} else {
		keys := make([]types.PositionKey, 0, len(positions))
		for k := range positions {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].MarketID != keys[j].MarketID {
				return keys[i].MarketID < keys[j].MarketID
			}
			return keys[i].OutcomeID < keys[j].OutcomeID
		})
		for _, k := range keys {
			fmt.Printf("%-20s %-20s %10.4f\n", k.MarketID, k.OutcomeID, positions[k])
		}
	}

	for _, tr := range book.Trades() {
		fmt.Printf("%-4s %10.4f x %s/%s @ %.4f  fee=%.4f slip=%.4f\n",
			tr.Side, tr.AmountFilled, tr.MarketID, tr.OutcomeID, tr.Price, tr.Fees, tr.Slippage)
	}
	return nil
}
