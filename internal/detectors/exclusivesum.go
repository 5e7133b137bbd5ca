package detectors

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/quantfish/crossarb/pkg/config"
	"github.com/quantfish/crossarb/pkg/types"
	"go.uber.org/zap"
)

// ExclusiveSum detects multi-outcome markets whose mutually exclusive
// outcome prices do not sum to 1 within tolerance.
type ExclusiveSum struct {
	cfg    config.DetectorConfig
	logger *zap.Logger
}

// NewExclusiveSum creates the exclusive-sum detector.
func NewExclusiveSum(cfg config.DetectorConfig, logger *zap.Logger) *ExclusiveSum {
	return &ExclusiveSum{cfg: cfg, logger: logger}
}

// Name returns the detector identifier.
func (e *ExclusiveSum) Name() string { return "exclusive_sum" }

// Detect emits one opportunity per market with >= 3 outcomes where
// |1 - sum(prices)| exceeds the tolerance. Under-priced books get BUY legs
// of 1/n each, over-priced books get SELL legs.
func (e *ExclusiveSum) Detect(_ context.Context, markets []types.Market) ([]types.Opportunity, error) {
	var opps []types.Opportunity

	for i := range markets {
		m := &markets[i]
		if len(m.Outcomes) < 3 {
			continue
		}

		total := m.OutcomeSum()
		deviation := math.Abs(1.0 - total)
		if deviation <= e.cfg.ExclusiveSumTolerance {
			CandidatesRejectedTotal.WithLabelValues(e.Name(), "within_tolerance").Inc()
			continue
		}

		side := types.SideBuy
		if total > 1 {
			side = types.SideSell
		}

		amount := 1.0 / float64(len(m.Outcomes))
		actions := make([]types.TradeAction, len(m.Outcomes))
		for j, o := range m.Outcomes {
			actions[j] = types.TradeAction{
				MarketID:   m.ID,
				OutcomeID:  o.ID,
				Side:       side,
				Amount:     amount,
				LimitPrice: o.Price,
			}
		}

		opp := types.Opportunity{
			Type:      types.OpportunityExclusiveSum,
			MarketIDs: []string{m.ID},
			Description: fmt.Sprintf("exclusive outcomes of %q sum to %s across %d legs",
				m.Question, fmtPrice(total), len(m.Outcomes)),
			NetEdge:    deviation,
			Actions:    actions,
			DetectedAt: time.Now().UTC(),
			Metadata: map[string]string{
				"outcome_sum": fmtPrice(total),
				"gross_edge":  fmtPrice(deviation),
			},
		}

		e.logger.Debug("exclusive-sum-opportunity",
			zap.String("market-id", m.ID),
			zap.Float64("outcome-sum", total),
			zap.String("side", string(side)))

		OpportunitiesDetectedTotal.WithLabelValues(e.Name()).Inc()
		OpportunityNetEdge.Observe(deviation)
		opps = append(opps, opp)
	}

	return opps, nil
}
