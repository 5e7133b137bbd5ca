package detectors

import (
	"context"
	"testing"

	"github.com/quantfish/crossarb/pkg/config"
	"github.com/quantfish/crossarb/pkg/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func thresholdMarketFixture(id, asset string, cmp types.Comparator, threshold, yes float64) types.Market {
	return types.Market{
		ID:           id,
		Question:     "Threshold question",
		Asset:        asset,
		Comparator:   cmp,
		Threshold:    threshold,
		HasThreshold: true,
		Outcomes: []types.Outcome{
			{ID: id + "-yes", Label: "Yes", Price: yes},
			{ID: id + "-no", Label: "No", Price: 1 - yes},
		},
		Venue: types.VenueA,
	}
}

func TestLadderUpwardViolation(t *testing.T) {
	cfg := config.DetectorConfig{LadderEnabled: true, LadderTolerance: 0.01}
	det := NewLadder(cfg, zap.NewNop())

	markets := []types.Market{
		thresholdMarketFixture("a-90", "btc", types.ComparatorGT, 90000, 0.70),
		thresholdMarketFixture("a-100", "btc", types.ComparatorGT, 100000, 0.75),
		thresholdMarketFixture("a-110", "btc", types.ComparatorGT, 110000, 0.40),
	}

	opps, err := det.Detect(context.Background(), markets)
	require.NoError(t, err)
	require.Len(t, opps, 1, "only the 90k/100k rung pair is inverted")

	opp := opps[0]
	require.Equal(t, types.OpportunityLadder, opp.Type)
	require.InDelta(t, 0.05, opp.NetEdge, 1e-9)
	require.ElementsMatch(t, []string{"a-90", "a-100"}, opp.MarketIDs)

	require.Len(t, opp.Actions, 2)
	require.Equal(t, types.SideBuy, opp.Actions[0].Side)
	require.Equal(t, "a-90", opp.Actions[0].MarketID)
	require.Equal(t, types.SideSell, opp.Actions[1].Side)
	require.Equal(t, "a-100", opp.Actions[1].MarketID)
}

func TestLadderDownwardViolation(t *testing.T) {
	cfg := config.DetectorConfig{LadderEnabled: true, LadderTolerance: 0.01}
	det := NewLadder(cfg, zap.NewNop())

	// P(x < t) must be non-decreasing in t: the lower rung pricing above
	// the higher rung is the violation.
	markets := []types.Market{
		thresholdMarketFixture("a-lo", "eth", types.ComparatorLT, 2000, 0.55),
		thresholdMarketFixture("a-hi", "eth", types.ComparatorLT, 3000, 0.45),
	}

	opps, err := det.Detect(context.Background(), markets)
	require.NoError(t, err)
	require.Len(t, opps, 1)

	opp := opps[0]
	require.InDelta(t, 0.10, opp.NetEdge, 1e-9)
	require.Equal(t, types.SideSell, opp.Actions[0].Side)
	require.Equal(t, "a-lo", opp.Actions[0].MarketID)
	require.Equal(t, types.SideBuy, opp.Actions[1].Side)
	require.Equal(t, "a-hi", opp.Actions[1].MarketID)
}

func TestLadderIgnoresCrossFamilyAndTolerance(t *testing.T) {
	cfg := config.DetectorConfig{LadderEnabled: true, LadderTolerance: 0.01}
	det := NewLadder(cfg, zap.NewNop())

	markets := []types.Market{
		// Mixed comparators never form a family.
		thresholdMarketFixture("a-1", "btc", types.ComparatorGT, 90000, 0.40),
		thresholdMarketFixture("a-2", "btc", types.ComparatorLT, 100000, 0.90),
		// Inversion within tolerance on a separate entity.
		thresholdMarketFixture("a-3", "sol", types.ComparatorGT, 100, 0.50),
		thresholdMarketFixture("a-4", "sol", types.ComparatorGT, 200, 0.505),
	}

	opps, err := det.Detect(context.Background(), markets)
	require.NoError(t, err)
	require.Empty(t, opps)
}
