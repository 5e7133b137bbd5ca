package report

import (
	"bufio"
	"os"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/quantfish/crossarb/pkg/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func traceFixture() (*types.Opportunity, types.Lookup) {
	opp := &types.Opportunity{
		Type:      types.OpportunityDuplicate,
		MarketIDs: []string{"a-1", "b-1"},
		NetEdge:   0.08,
		Actions: []types.TradeAction{
			{MarketID: "a-1", OutcomeID: "a1-yes", Side: types.SideSell, Amount: 1, LimitPrice: 0.68},
			{MarketID: "b-1", OutcomeID: "b1-yes", Side: types.SideBuy, Amount: 1, LimitPrice: 0.60},
		},
	}
	lookup := types.BuildLookup([]types.Market{
		{ID: "a-1", Venue: types.VenueA, Outcomes: []types.Outcome{{ID: "a1-yes", Label: "Yes", Price: 0.68}}},
		{ID: "b-1", Venue: types.VenueB, Outcomes: []types.Outcome{{ID: "b1-yes", Label: "Yes", Price: 0.60}}},
	})
	return opp, lookup
}

func TestBuildRecordStatuses(t *testing.T) {
	opp, lookup := traceFixture()
	at := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	rejected := BuildRecord(opp, lookup, types.RiskDecision{Reason: types.RiskBelowMinNetEdge}, nil, at, 3*time.Millisecond)
	require.Equal(t, TraceCancelled, rejected.Status)
	require.Equal(t, "below_min_net_edge", rejected.RiskApproval.Reason)
	require.Empty(t, rejected.Executions)
	require.Equal(t, opp.DerivedID(), rejected.TraceID)
	require.InDelta(t, 0.68, rejected.PricesBefore["a-1/a1-yes"], 1e-9)

	full := &types.ExecutionResult{
		OpportunityID: opp.DerivedID(),
		Trades: []types.Trade{
			{ID: "t1", MarketID: "a-1", OutcomeID: "a1-yes", Side: types.SideSell, AmountFilled: 1, Price: 0.68},
			{ID: "t2", MarketID: "b-1", OutcomeID: "b1-yes", Side: types.SideBuy, AmountFilled: 1, Price: 0.60},
		},
		RealizedPnL: 0.06,
	}
	ok := BuildRecord(opp, lookup, types.RiskDecision{Allowed: true}, full, at, time.Millisecond)
	require.Equal(t, TraceSuccess, ok.Status)
	require.Len(t, ok.Executions, 2)
	require.InDelta(t, 0.06, ok.RealizedPnL, 1e-9)

	partial := &types.ExecutionResult{OpportunityID: opp.DerivedID(), Partial: true}
	part := BuildRecord(opp, lookup, types.RiskDecision{Allowed: true}, partial, at, time.Millisecond)
	require.Equal(t, TracePartial, part.Status)
}

func TestTraceLogAppendsJSONLines(t *testing.T) {
	dir := t.TempDir()
	log := NewTraceLog(dir, zap.NewNop())
	opp, lookup := traceFixture()
	at := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	rec := BuildRecord(opp, lookup, types.RiskDecision{Allowed: true},
		&types.ExecutionResult{OpportunityID: opp.DerivedID()}, at, time.Millisecond)
	require.NoError(t, log.Append(rec))
	require.NoError(t, log.Append(rec))

	f, err := os.Open(log.Path())
	require.NoError(t, err)
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var parsed TraceRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &parsed))
		require.Equal(t, opp.DerivedID(), parsed.TraceID)
		lines++
	}
	require.NoError(t, scanner.Err())
	require.Equal(t, 2, lines)
}
