package detectors

import (
	"context"
	"testing"

	"github.com/quantfish/crossarb/pkg/config"
	"github.com/quantfish/crossarb/pkg/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func binaryMarket(id string, yes, no float64) types.Market {
	return types.Market{
		ID:       id,
		Question: "Will it happen?",
		Outcomes: []types.Outcome{
			{ID: id + "-yes", Label: "Yes", Price: yes, Liquidity: 1000},
			{ID: id + "-no", Label: "No", Price: no, Liquidity: 1000},
		},
		Liquidity: 2000,
		Venue:     types.VenueA,
	}
}

func TestParityDetect(t *testing.T) {
	cfg := config.DetectorConfig{
		ParityEnabled:   true,
		ParityThreshold: 0.99,
		FeeBPS:          10,
		SlippageBPS:     20,
	}

	tests := []struct {
		name      string
		market    types.Market
		wantCount int
		wantEdge  float64
	}{
		{
			name:      "underpriced book yields net edge after costs",
			market:    binaryMarket("a-1", 0.45, 0.45),
			wantCount: 1,
			wantEdge:  0.0973, // 1 - (0.90 + 0.90*30/10000)
		},
		{
			name:      "gross at threshold is rejected",
			market:    binaryMarket("a-2", 0.50, 0.49),
			wantCount: 0,
		},
		{
			name:      "fairly priced book is rejected",
			market:    binaryMarket("a-3", 0.60, 0.40),
			wantCount: 0,
		},
		{
			name: "non-binary market is skipped",
			market: types.Market{
				ID: "a-4",
				Outcomes: []types.Outcome{
					{ID: "o1", Label: "Alpha", Price: 0.3},
					{ID: "o2", Label: "Beta", Price: 0.3},
				},
			},
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := NewParity(cfg, zap.NewNop())
			opps, err := det.Detect(context.Background(), []types.Market{tt.market})
			require.NoError(t, err)
			require.Len(t, opps, tt.wantCount)

			if tt.wantCount == 0 {
				return
			}
			opp := opps[0]
			require.Equal(t, types.OpportunityParity, opp.Type)
			require.InDelta(t, tt.wantEdge, opp.NetEdge, 1e-9)
			require.Len(t, opp.Actions, 2)
			for _, a := range opp.Actions {
				require.Equal(t, types.SideBuy, a.Side)
				require.Equal(t, tt.market.ID, a.MarketID)
			}
		})
	}
}

func TestParityNetEdgeExcludesCosts(t *testing.T) {
	// Gross edge 0.02 but 30bps on 0.98 notional still leaves a positive
	// net edge; 1bps of gross edge with heavy costs does not.
	heavy := config.DetectorConfig{ParityThreshold: 0.999, FeeBPS: 100, SlippageBPS: 100}
	det := NewParity(heavy, zap.NewNop())

	opps, err := det.Detect(context.Background(), []types.Market{binaryMarket("a-1", 0.499, 0.499)})
	require.NoError(t, err)
	require.Empty(t, opps, "costs exceed the gross edge")
}
