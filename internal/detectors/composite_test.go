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

func eventMarket(id, question, asset string, yes float64) types.Market {
	return types.Market{
		ID:       id,
		Question: question,
		Asset:    asset,
		EndDate:  time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		Outcomes: []types.Outcome{
			{ID: id + "-yes", Label: "Yes", Price: yes},
			{ID: id + "-no", Label: "No", Price: 1 - yes},
		},
	}
}

func TestCompositeDetectsHierarchyViolation(t *testing.T) {
	cfg := config.DetectorConfig{CompositeEnabled: true}
	det := NewComposite(cfg, zap.NewNop())

	markets := []types.Market{
		eventMarket("a-title", "Will Arsenal win the championship title?", "arsenal", 0.35),
		eventMarket("b-final", "Will Arsenal reach the final?", "arsenal", 0.30),
	}

	opps, err := det.Detect(context.Background(), markets)
	require.NoError(t, err)
	require.Len(t, opps, 1)

	opp := opps[0]
	require.Equal(t, types.OpportunityComposite, opp.Type)
	require.Equal(t, "title_vs_final", opp.Metadata["hierarchy"])
	require.InDelta(t, 0.05, opp.NetEdge, 1e-9)

	require.Len(t, opp.Actions, 2)
	require.Equal(t, types.SideSell, opp.Actions[0].Side)
	require.Equal(t, "a-title", opp.Actions[0].MarketID)
	require.Equal(t, types.SideBuy, opp.Actions[1].Side)
	require.Equal(t, "b-final", opp.Actions[1].MarketID)
}

func TestCompositeQuietWhenHierarchyConsistent(t *testing.T) {
	cfg := config.DetectorConfig{CompositeEnabled: true}
	det := NewComposite(cfg, zap.NewNop())

	markets := []types.Market{
		eventMarket("a-title", "Will Arsenal win the championship title?", "arsenal", 0.25),
		eventMarket("b-final", "Will Arsenal reach the final?", "arsenal", 0.40),
	}

	opps, err := det.Detect(context.Background(), markets)
	require.NoError(t, err)
	require.Empty(t, opps)
}

func TestCompositeKeywordFallback(t *testing.T) {
	cfg := config.DetectorConfig{CompositeEnabled: true}
	det := NewComposite(cfg, zap.NewNop())

	markets := []types.Market{
		eventMarket("a-champ", "Will the Celtics be champion this season?", "celtics", 0.30),
		eventMarket("b-playoff", "Will the Celtics qualify for the playoffs?", "celtics", 0.20),
	}

	opps, err := det.Detect(context.Background(), markets)
	require.NoError(t, err)
	require.Len(t, opps, 1)
	require.Equal(t, "champion_vs_playoffs", opps[0].Metadata["hierarchy"])
}

func TestMatchHierarchyRegexBeforeKeyword(t *testing.T) {
	rule, ok := matchHierarchy(
		"Will Arsenal win the championship title?",
		"Will Arsenal reach the final?",
	)
	require.True(t, ok)
	require.Equal(t, "title_vs_final", rule)

	_, ok = matchHierarchy("Will it rain tomorrow?", "Will it rain today?")
	require.False(t, ok)
}
