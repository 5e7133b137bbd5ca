package detectors

import (
	"context"
	"testing"
	"time"

	"github.com/quantfish/crossarb/pkg/config"
	"github.com/quantfish/crossarb/pkg/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func lagFixture(price float64) []types.Market {
	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	return []types.Market{
		{
			ID: "a-lag", Question: "Will BTC close above 100k?", Asset: "btc", EndDate: end,
			Outcomes: []types.Outcome{{ID: "a-yes", Label: "Yes", Price: price}, {ID: "a-no", Label: "No", Price: 1 - price}},
		},
		{
			ID: "b-lag", Question: "Will BTC finish the year above 100k?", Asset: "btc", EndDate: end,
			Outcomes: []types.Outcome{{ID: "b-yes", Label: "Yes", Price: 0.55}, {ID: "b-no", Label: "No", Price: 0.45}},
		},
	}
}

func TestTimeLagDetectsJumpAgainstStaleObservation(t *testing.T) {
	cfg := config.DetectorConfig{
		TimeLagEnabled:            true,
		TimeLagPersistenceMinutes: 5,
		TimeLagJumpThreshold:      0.05,
	}
	det := NewTimeLag(cfg, newTestMatcher(0.85), zap.NewNop())

	base := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	det.now = func() time.Time { return base }

	// First pass only seeds the history.
	opps, err := det.Detect(context.Background(), lagFixture(0.50))
	require.NoError(t, err)
	require.Empty(t, opps)

	// Six minutes later the price rose 0.08: fade the rise with a SELL.
	det.now = func() time.Time { return base.Add(6 * time.Minute) }
	opps, err = det.Detect(context.Background(), lagFixture(0.58))
	require.NoError(t, err)
	require.Len(t, opps, 1)

	opp := opps[0]
	require.Equal(t, types.OpportunityTimeLag, opp.Type)
	require.Equal(t, []string{"a-lag"}, opp.MarketIDs)
	require.InDelta(t, 0.08, opp.NetEdge, 1e-9)
	require.Len(t, opp.Actions, 1)
	require.Equal(t, types.SideSell, opp.Actions[0].Side)
}

func TestTimeLagBuysAfterDrop(t *testing.T) {
	cfg := config.DetectorConfig{
		TimeLagEnabled:            true,
		TimeLagPersistenceMinutes: 5,
		TimeLagJumpThreshold:      0.05,
	}
	det := NewTimeLag(cfg, newTestMatcher(0.85), zap.NewNop())

	base := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	det.now = func() time.Time { return base }
	_, err := det.Detect(context.Background(), lagFixture(0.50))
	require.NoError(t, err)

	det.now = func() time.Time { return base.Add(10 * time.Minute) }
	opps, err := det.Detect(context.Background(), lagFixture(0.42))
	require.NoError(t, err)
	require.Len(t, opps, 1)
	require.Equal(t, types.SideBuy, opps[0].Actions[0].Side)
}

func TestTimeLagRejectsFreshObservationsAndSmallJumps(t *testing.T) {
	cfg := config.DetectorConfig{
		TimeLagEnabled:            true,
		TimeLagPersistenceMinutes: 5,
		TimeLagJumpThreshold:      0.05,
	}
	det := NewTimeLag(cfg, newTestMatcher(0.85), zap.NewNop())

	base := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	det.now = func() time.Time { return base }
	_, err := det.Detect(context.Background(), lagFixture(0.50))
	require.NoError(t, err)

	// Big jump but the prior observation is only a minute old.
	det.now = func() time.Time { return base.Add(time.Minute) }
	opps, err := det.Detect(context.Background(), lagFixture(0.60))
	require.NoError(t, err)
	require.Empty(t, opps)

	// Stale enough now, but the move since the last pass is tiny.
	det.now = func() time.Time { return base.Add(10 * time.Minute) }
	opps, err = det.Detect(context.Background(), lagFixture(0.61))
	require.NoError(t, err)
	require.Empty(t, opps)
}
