package detectors

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/quantfish/crossarb/internal/matcher"
	"github.com/quantfish/crossarb/pkg/config"
	"github.com/quantfish/crossarb/pkg/types"
	"go.uber.org/zap"
)

// Consistency checks cross-market pricing logic on a shared entity:
// complementary threshold questions must price to ~1 (rule A), and
// same-direction questions must be monotone in their thresholds (rule B).
type Consistency struct {
	cfg    config.DetectorConfig
	logger *zap.Logger
}

// NewConsistency creates the consistency detector.
func NewConsistency(cfg config.DetectorConfig, logger *zap.Logger) *Consistency {
	return &Consistency{cfg: cfg, logger: logger}
}

// Name returns the detector identifier.
func (c *Consistency) Name() string { return "consistency" }

type thresholdMarket struct {
	market  *types.Market
	outcome *types.Outcome
	fp      matcher.Fingerprint
}

// Detect walks every market pair sharing an entity and applies both rules.
func (c *Consistency) Detect(_ context.Context, markets []types.Market) ([]types.Opportunity, error) {
	byEntity := make(map[string][]thresholdMarket)
	for i := range markets {
		m := &markets[i]
		fp := matcher.FingerprintMarket(m)
		if fp.Entity == "" || !fp.HasThreshold {
			continue
		}
		outcome := m.PrimaryOutcome()
		if outcome == nil {
			continue
		}
		byEntity[fp.Entity] = append(byEntity[fp.Entity], thresholdMarket{market: m, outcome: outcome, fp: fp})
	}

	var opps []types.Opportunity
	for entity, group := range byEntity {
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				if opp := c.complementary(entity, group[i], group[j]); opp != nil {
					OpportunitiesDetectedTotal.WithLabelValues(c.Name()).Inc()
					OpportunityNetEdge.Observe(opp.NetEdge)
					opps = append(opps, *opp)
				}
				if opp := c.dominance(entity, group[i], group[j]); opp != nil {
					OpportunitiesDetectedTotal.WithLabelValues(c.Name()).Inc()
					OpportunityNetEdge.Observe(opp.NetEdge)
					opps = append(opps, *opp)
				}
			}
		}
	}

	return opps, nil
}

// complementary applies rule A: equal thresholds with opposite comparator
// directions must price to ~1 combined.
func (c *Consistency) complementary(entity string, a, b thresholdMarket) *types.Opportunity {
	if a.fp.Threshold != b.fp.Threshold {
		return nil
	}
	opposite := (a.fp.Comparator.IsUpward() && b.fp.Comparator.IsDownward()) ||
		(a.fp.Comparator.IsDownward() && b.fp.Comparator.IsUpward())
	if !opposite {
		return nil
	}

	sum := a.outcome.Price + b.outcome.Price
	deviation := math.Abs(1.0 - sum)
	if deviation <= c.cfg.ConsistencyTolerance {
		CandidatesRejectedTotal.WithLabelValues(c.Name(), "complementary_within_tolerance").Inc()
		return nil
	}

	side := types.SideBuy
	if sum > 1 {
		side = types.SideSell
	}

	c.logger.Debug("consistency-complementary-violation",
		zap.String("entity", entity),
		zap.Float64("threshold", a.fp.Threshold),
		zap.Float64("price-sum", sum))

	return &types.Opportunity{
		Type:      types.OpportunityConsistency,
		MarketIDs: []string{a.market.ID, b.market.ID},
		Description: fmt.Sprintf("complementary markets on %s at %.0f price to %s",
			entity, a.fp.Threshold, fmtPrice(sum)),
		NetEdge: deviation,
		Actions: []types.TradeAction{
			{MarketID: a.market.ID, OutcomeID: a.outcome.ID, Side: side, Amount: 1, LimitPrice: a.outcome.Price},
			{MarketID: b.market.ID, OutcomeID: b.outcome.ID, Side: side, Amount: 1, LimitPrice: b.outcome.Price},
		},
		DetectedAt: time.Now().UTC(),
		Metadata: map[string]string{
			"rule":      "complementary",
			"price_sum": fmtPrice(sum),
		},
	}
}

// dominance applies rule B: within the same comparator family the easier
// condition must not price below the harder one.
func (c *Consistency) dominance(entity string, a, b thresholdMarket) *types.Opportunity {
	sameUp := a.fp.Comparator.IsUpward() && b.fp.Comparator.IsUpward()
	sameDown := a.fp.Comparator.IsDownward() && b.fp.Comparator.IsDownward()
	if !sameUp && !sameDown {
		return nil
	}
	if a.fp.Threshold == b.fp.Threshold {
		return nil
	}

	// Normalize so low has the smaller threshold.
	low, high := a, b
	if b.fp.Threshold < a.fp.Threshold {
		low, high = b, a
	}

	var cheap, rich thresholdMarket
	var edge float64
	if sameUp {
		// P(x > tLow) >= P(x > tHigh); violated when the low rung is cheap.
		edge = high.outcome.Price - low.outcome.Price
		cheap, rich = low, high
	} else {
		// P(x < tLow) <= P(x < tHigh); violated when the high rung is cheap.
		edge = low.outcome.Price - high.outcome.Price
		cheap, rich = high, low
	}

	if edge <= c.cfg.ConsistencyTolerance {
		CandidatesRejectedTotal.WithLabelValues(c.Name(), "dominance_within_tolerance").Inc()
		return nil
	}

	c.logger.Debug("consistency-dominance-violation",
		zap.String("entity", entity),
		zap.Float64("low-threshold", low.fp.Threshold),
		zap.Float64("high-threshold", high.fp.Threshold),
		zap.Float64("edge", edge))

	return &types.Opportunity{
		Type:      types.OpportunityConsistency,
		MarketIDs: []string{a.market.ID, b.market.ID},
		Description: fmt.Sprintf("dominance violation on %s: %.0f priced %s vs %.0f priced %s",
			entity, low.fp.Threshold, fmtPrice(low.outcome.Price),
			high.fp.Threshold, fmtPrice(high.outcome.Price)),
		NetEdge: edge,
		Actions: []types.TradeAction{
			{MarketID: cheap.market.ID, OutcomeID: cheap.outcome.ID, Side: types.SideBuy, Amount: 1, LimitPrice: cheap.outcome.Price},
			{MarketID: rich.market.ID, OutcomeID: rich.outcome.ID, Side: types.SideSell, Amount: 1, LimitPrice: rich.outcome.Price},
		},
		DetectedAt: time.Now().UTC(),
		Metadata: map[string]string{
			"rule": "dominance",
		},
	}
}
