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

// Duplicate detects price gaps between markets that resolve the same
// event, typically listed on different venues.
type Duplicate struct {
	cfg     config.DetectorConfig
	matcher *matcher.Matcher
	logger  *zap.Logger
}

// NewDuplicate creates the duplicate detector.
func NewDuplicate(cfg config.DetectorConfig, m *matcher.Matcher, logger *zap.Logger) *Duplicate {
	return &Duplicate{cfg: cfg, matcher: m, logger: logger}
}

// Name returns the detector identifier.
func (d *Duplicate) Name() string { return "duplicate" }

// Detect emits SELL-high/BUY-low pairs for candidate duplicates whose
// primary-outcome prices diverge by at least the configured threshold.
func (d *Duplicate) Detect(ctx context.Context, markets []types.Market) ([]types.Opportunity, error) {
	pairs := d.matcher.DuplicatePairs(ctx, markets)

	var opps []types.Opportunity
	for _, pair := range pairs {
		first := pair.First.PrimaryOutcome()
		second := pair.Second.PrimaryOutcome()
		if first == nil || second == nil {
			continue
		}

		diff := math.Abs(first.Price - second.Price)
		if diff < d.cfg.DuplicatePriceDiffThreshold {
			CandidatesRejectedTotal.WithLabelValues(d.Name(), "price_diff_too_small").Inc()
			continue
		}

		// SELL the rich leg, BUY the cheap leg.
		highMarket, highOutcome := pair.First, first
		lowMarket, lowOutcome := pair.Second, second
		if second.Price > first.Price {
			highMarket, highOutcome = pair.Second, second
			lowMarket, lowOutcome = pair.First, first
		}

		opp := types.Opportunity{
			Type:      types.OpportunityDuplicate,
			MarketIDs: []string{pair.First.ID, pair.Second.ID},
			Description: fmt.Sprintf("duplicate markets priced %s vs %s (similarity %.2f)",
				fmtPrice(lowOutcome.Price), fmtPrice(highOutcome.Price), pair.Score),
			NetEdge: diff,
			Actions: []types.TradeAction{
				{MarketID: highMarket.ID, OutcomeID: highOutcome.ID, Side: types.SideSell, Amount: 1, LimitPrice: highOutcome.Price},
				{MarketID: lowMarket.ID, OutcomeID: lowOutcome.ID, Side: types.SideBuy, Amount: 1, LimitPrice: lowOutcome.Price},
			},
			DetectedAt: time.Now().UTC(),
			Metadata: map[string]string{
				"similarity": fmt.Sprintf("%.4f", pair.Score),
				"gross_edge": fmtPrice(diff),
			},
		}

		d.logger.Debug("duplicate-opportunity",
			zap.String("high-market", highMarket.ID),
			zap.String("low-market", lowMarket.ID),
			zap.Float64("price-diff", diff))

		OpportunitiesDetectedTotal.WithLabelValues(d.Name()).Inc()
		OpportunityNetEdge.Observe(diff)
		opps = append(opps, opp)
	}

	return opps, nil
}
