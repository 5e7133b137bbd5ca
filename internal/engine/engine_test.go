package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quantfish/crossarb/internal/broker"
	"github.com/quantfish/crossarb/internal/detectors"
	"github.com/quantfish/crossarb/internal/matcher"
	"github.com/quantfish/crossarb/internal/report"
	"github.com/quantfish/crossarb/internal/risk"
	"github.com/quantfish/crossarb/internal/source"
	"github.com/quantfish/crossarb/internal/validator"
	"github.com/quantfish/crossarb/pkg/config"
	"github.com/quantfish/crossarb/pkg/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func engineConfig(iterations int) *config.Config {
	return &config.Config{
		DualVenueMode:   true,
		RefreshInterval: time.Millisecond,
		Iterations:      iterations,
		FetchTimeout:    time.Second,
		Detectors: config.DetectorConfig{
			ParityEnabled:               true,
			ParityThreshold:             0.99,
			DuplicateEnabled:            true,
			DuplicatePriceDiffThreshold: 0.05,
			FeeBPS:                      10,
			SlippageBPS:                 20,
		},
		Risk: config.RiskConfig{
			AllowShorts:            true,
			MinNetEdge:             0.01,
			MinBuyPrice:            0.02,
			MinLiquidityMultiple:   5,
			MinExpiryHours:         0,
			MaxOpenPositions:       20,
			MaxAllocationPerMarket: 0.10,
		},
		Broker: config.BrokerConfig{
			InitialCash:   10000,
			FeeBPS:        10,
			SlippageBPS:   20,
			DepthFraction: 0.10,
		},
	}
}

// duplicateFrame builds one venue-A and one venue-B market that form a
// duplicate pair with an 0.08 price gap.
func duplicateFrame() ([]types.Market, []types.Market) {
	end := time.Now().UTC().Add(30 * 24 * time.Hour)
	venueA := []types.Market{{
		ID: "a-dup", Question: "Will the incumbent win the 2026 election?",
		EndDate: end, Liquidity: 10000,
		Outcomes: []types.Outcome{
			{ID: "a-yes", Label: "Yes", Price: 0.68},
			{ID: "a-no", Label: "No", Price: 0.32},
		},
	}}
	venueB := []types.Market{{
		ID: "b-dup", Question: "Will the incumbent win the 2026 election?",
		EndDate: end, Liquidity: 10000,
		Outcomes: []types.Outcome{
			{ID: "b-yes", Label: "Yes", Price: 0.60},
			{ID: "b-no", Label: "No", Price: 0.40},
		},
	}}
	return venueA, venueB
}

func buildEngine(t *testing.T, cfg *config.Config, dets []detectors.Detector, frameA, frameB []types.Market) (*Engine, *broker.Paper) {
	t.Helper()
	logger := zap.NewNop()

	reporter, err := report.NewReporter(t.TempDir(), logger)
	require.NoError(t, err)

	book := broker.NewPaper(cfg.Broker, logger)
	eng := New(Options{
		Config: cfg,
		Sources: []source.MarketSource{
			source.NewStatic(source.Metadata{Venue: types.VenueA, Name: "alpha"}, frameA),
			source.NewStatic(source.Metadata{Venue: types.VenueB, Name: "beta"}, frameB),
		},
		Detectors: dets,
		Validator: validator.New(nil, logger),
		Gate:      risk.NewGate(cfg.Risk, logger),
		Broker:    book,
		Notifier:  source.NewLogNotifier(logger),
		Reporter:  reporter,
		Logger:    logger,
	})
	return eng, book
}

func defaultDetectors(cfg *config.Config) []detectors.Detector {
	m := matcher.New(matcher.Lexical{}, matcher.Config{SimilarityThreshold: 0.85, RelatedWindowDays: 7}, zap.NewNop())
	return []detectors.Detector{
		detectors.NewParity(cfg.Detectors, zap.NewNop()),
		detectors.NewDuplicate(cfg.Detectors, m, zap.NewNop()),
	}
}

func TestRunExecutesCrossVenueDuplicate(t *testing.T) {
	cfg := engineConfig(1)
	frameA, frameB := duplicateFrame()
	eng, book := buildEngine(t, cfg, defaultDetectors(cfg), frameA, frameB)

	require.NoError(t, eng.Run(context.Background()))

	// The SELL leg has no inventory to clamp against, so only the cheap
	// venue-B BUY leg fills and the execution is partial.
	trades := book.Trades()
	require.Len(t, trades, 1)
	require.Equal(t, "b-dup", trades[0].MarketID)
	require.Equal(t, types.SideBuy, trades[0].Side)
}

func TestRunRejectsSingleVenuePairBeforeRiskGate(t *testing.T) {
	cfg := engineConfig(1)
	_, frameB := duplicateFrame()

	// Same duplicate pair but both listings live on venue B.
	sibling := frameB[0]
	sibling.ID = "b-dup-2"
	sibling.Outcomes = []types.Outcome{
		{ID: "b2-yes", Label: "Yes", Price: 0.68},
		{ID: "b2-no", Label: "No", Price: 0.32},
	}
	frameB = append(frameB, sibling)

	eng, book := buildEngine(t, cfg, defaultDetectors(cfg), nil, frameB)
	gate := eng.opts.Gate

	require.NoError(t, eng.Run(context.Background()))
	require.Empty(t, book.Trades())
	require.Zero(t, gate.Approvals(), "validator rejection must short-circuit the risk gate")
}

type panickyDetector struct{}

func (panickyDetector) Name() string { return "panicky" }
func (panickyDetector) Detect(context.Context, []types.Market) ([]types.Opportunity, error) {
	panic("boom")
}

type failingDetector struct{}

func (failingDetector) Name() string { return "failing" }
func (failingDetector) Detect(context.Context, []types.Market) ([]types.Opportunity, error) {
	return nil, errors.New("venue exploded")
}

func TestRunIsolatesBrokenDetectors(t *testing.T) {
	cfg := engineConfig(1)
	frameA, frameB := duplicateFrame()
	dets := append([]detectors.Detector{panickyDetector{}, failingDetector{}}, defaultDetectors(cfg)...)
	eng, book := buildEngine(t, cfg, dets, frameA, frameB)

	require.NoError(t, eng.Run(context.Background()))
	require.Len(t, book.Trades(), 1, "healthy detectors still execute")
}

func TestRunDeterministicAcrossRuns(t *testing.T) {
	type fill struct {
		market, outcome string
		side            types.Side
		amount, price   float64
	}

	run := func() []fill {
		cfg := engineConfig(2)
		frameA, frameB := duplicateFrame()
		eng, book := buildEngine(t, cfg, defaultDetectors(cfg), frameA, frameB)
		require.NoError(t, eng.Run(context.Background()))

		var fills []fill
		for _, tr := range book.Trades() {
			fills = append(fills, fill{tr.MarketID, tr.OutcomeID, tr.Side, tr.AmountFilled, tr.Price})
		}
		return fills
	}

	first := run()
	second := run()
	require.NotEmpty(t, first)
	require.Equal(t, first, second, "identical snapshots must produce identical fill sequences")
}

func TestRunStopsOnContextCancel(t *testing.T) {
	cfg := engineConfig(0) // unbounded
	frameA, frameB := duplicateFrame()
	eng, _ := buildEngine(t, cfg, defaultDetectors(cfg), frameA, frameB)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop after cancellation")
	}
}

func TestRunReadyAfterFirstIteration(t *testing.T) {
	cfg := engineConfig(1)
	frameA, frameB := duplicateFrame()
	eng, _ := buildEngine(t, cfg, defaultDetectors(cfg), frameA, frameB)

	ready := false
	eng.opts.OnReady = func() { ready = true }

	require.NoError(t, eng.Run(context.Background()))
	require.True(t, ready)
}
