package detectors

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/quantfish/crossarb/internal/matcher"
	"github.com/quantfish/crossarb/pkg/config"
	"github.com/quantfish/crossarb/pkg/types"
	"go.uber.org/zap"
)

// Ladder detects monotonicity violations across threshold families:
// for ">"-style questions on the same entity, the YES price must be
// non-increasing in the threshold; for "<"-style, non-decreasing.
type Ladder struct {
	cfg    config.DetectorConfig
	logger *zap.Logger
}

// NewLadder creates the ladder detector.
func NewLadder(cfg config.DetectorConfig, logger *zap.Logger) *Ladder {
	return &Ladder{cfg: cfg, logger: logger}
}

// Name returns the detector identifier.
func (l *Ladder) Name() string { return "ladder" }

type rung struct {
	market    *types.Market
	outcome   *types.Outcome
	threshold float64
}

// Detect groups markets by (entity, comparator) and emits a BUY/SELL pair
// for every adjacent rung that breaks monotonicity beyond the tolerance.
func (l *Ladder) Detect(_ context.Context, markets []types.Market) ([]types.Opportunity, error) {
	type familyKey struct {
		entity     string
		comparator types.Comparator
	}

	families := make(map[familyKey][]rung)
	for i := range markets {
		m := &markets[i]
		fp := matcher.FingerprintMarket(m)
		if fp.Entity == "" || !fp.HasThreshold {
			continue
		}
		if !fp.Comparator.IsUpward() && !fp.Comparator.IsDownward() {
			continue
		}
		outcome := m.PrimaryOutcome()
		if outcome == nil {
			continue
		}
		key := familyKey{entity: fp.Entity, comparator: fp.Comparator}
		families[key] = append(families[key], rung{market: m, outcome: outcome, threshold: fp.Threshold})
	}

	keys := make([]familyKey, 0, len(families))
	for key := range families {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].entity != keys[j].entity {
			return keys[i].entity < keys[j].entity
		}
		return keys[i].comparator < keys[j].comparator
	})

	var opps []types.Opportunity
	for _, key := range keys {
		rungs := families[key]
		if len(rungs) < 2 {
			continue
		}
		sort.Slice(rungs, func(i, j int) bool { return rungs[i].threshold < rungs[j].threshold })

		for i := 0; i+1 < len(rungs); i++ {
			low, high := rungs[i], rungs[i+1]
			pLow, pHigh := low.outcome.Price, high.outcome.Price

			var opp *types.Opportunity
			if key.comparator.IsUpward() {
				// P(x > t) must not increase with t.
				if pLow+l.cfg.LadderTolerance < pHigh {
					opp = l.pairOpportunity(key.entity, low, high, types.SideBuy, types.SideSell, pHigh-pLow)
				}
			} else {
				// P(x < t) must not decrease with t.
				if pLow-l.cfg.LadderTolerance > pHigh {
					opp = l.pairOpportunity(key.entity, low, high, types.SideSell, types.SideBuy, pLow-pHigh)
				}
			}

			if opp == nil {
				CandidatesRejectedTotal.WithLabelValues(l.Name(), "monotone").Inc()
				continue
			}

			l.logger.Debug("ladder-violation",
				zap.String("entity", key.entity),
				zap.String("comparator", string(key.comparator)),
				zap.Float64("low-threshold", low.threshold),
				zap.Float64("high-threshold", high.threshold),
				zap.Float64("net-edge", opp.NetEdge))

			OpportunitiesDetectedTotal.WithLabelValues(l.Name()).Inc()
			OpportunityNetEdge.Observe(opp.NetEdge)
			opps = append(opps, *opp)
		}
	}

	return opps, nil
}

func (l *Ladder) pairOpportunity(entity string, low, high rung, lowSide, highSide types.Side, edge float64) *types.Opportunity {
	return &types.Opportunity{
		Type:      types.OpportunityLadder,
		MarketIDs: []string{low.market.ID, high.market.ID},
		Description: fmt.Sprintf("ladder violation on %s: threshold %.0f at %s vs %.0f at %s",
			entity, low.threshold, fmtPrice(low.outcome.Price), high.threshold, fmtPrice(high.outcome.Price)),
		NetEdge: edge,
		Actions: []types.TradeAction{
			{MarketID: low.market.ID, OutcomeID: low.outcome.ID, Side: lowSide, Amount: 1, LimitPrice: low.outcome.Price},
			{MarketID: high.market.ID, OutcomeID: high.outcome.ID, Side: highSide, Amount: 1, LimitPrice: high.outcome.Price},
		},
		DetectedAt: time.Now().UTC(),
		Metadata: map[string]string{
			"entity":         entity,
			"low_threshold":  fmt.Sprintf("%.2f", low.threshold),
			"high_threshold": fmt.Sprintf("%.2f", high.threshold),
		},
	}
}
