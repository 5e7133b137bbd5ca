package detectors

import (
	"context"
	"testing"

	"github.com/quantfish/crossarb/pkg/config"
	"github.com/quantfish/crossarb/pkg/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func categoricalMarket(id string, prices ...float64) types.Market {
	m := types.Market{ID: id, Question: "Who wins?", Venue: types.VenueB}
	for i, p := range prices {
		m.Outcomes = append(m.Outcomes, types.Outcome{
			ID:    id + "-o" + string(rune('a'+i)),
			Label: "Candidate " + string(rune('A'+i)),
			Price: p,
		})
	}
	return m
}

func TestExclusiveSumDetect(t *testing.T) {
	cfg := config.DetectorConfig{ExclusiveSumEnabled: true, ExclusiveSumTolerance: 0.02}

	tests := []struct {
		name      string
		market    types.Market
		wantCount int
		wantSide  types.Side
		wantEdge  float64
	}{
		{
			name:      "underpriced book gets BUY legs",
			market:    categoricalMarket("b-1", 0.20, 0.25, 0.25, 0.22),
			wantCount: 1,
			wantSide:  types.SideBuy,
			wantEdge:  0.08,
		},
		{
			name:      "overpriced book gets SELL legs",
			market:    categoricalMarket("b-2", 0.40, 0.40, 0.30),
			wantCount: 1,
			wantSide:  types.SideSell,
			wantEdge:  0.10,
		},
		{
			name:      "deviation within tolerance is rejected",
			market:    categoricalMarket("b-3", 0.33, 0.33, 0.33),
			wantCount: 0,
		},
		{
			name:      "binary market is out of scope",
			market:    categoricalMarket("b-4", 0.40, 0.40),
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := NewExclusiveSum(cfg, zap.NewNop())
			opps, err := det.Detect(context.Background(), []types.Market{tt.market})
			require.NoError(t, err)
			require.Len(t, opps, tt.wantCount)

			if tt.wantCount == 0 {
				return
			}
			opp := opps[0]
			require.Equal(t, types.OpportunityExclusiveSum, opp.Type)
			require.InDelta(t, tt.wantEdge, opp.NetEdge, 1e-9)
			require.Len(t, opp.Actions, len(tt.market.Outcomes))
			for _, a := range opp.Actions {
				require.Equal(t, tt.wantSide, a.Side)
				require.InDelta(t, 1.0/float64(len(tt.market.Outcomes)), a.Amount, 1e-9)
			}
		})
	}
}
