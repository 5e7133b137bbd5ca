package detectors

import (
	"context"
	"fmt"
	"time"

	"github.com/quantfish/crossarb/pkg/config"
	"github.com/quantfish/crossarb/pkg/types"
	"go.uber.org/zap"
)

// Parity detects binary markets whose YES+NO prices sum below parity by
// more than the modeled execution cost.
type Parity struct {
	cfg    config.DetectorConfig
	logger *zap.Logger
}

// NewParity creates the parity detector.
func NewParity(cfg config.DetectorConfig, logger *zap.Logger) *Parity {
	return &Parity{cfg: cfg, logger: logger}
}

// Name returns the detector identifier.
func (p *Parity) Name() string { return "parity" }

// Detect emits one opportunity per binary market with
// gross + fees + slippage < 1.
func (p *Parity) Detect(_ context.Context, markets []types.Market) ([]types.Opportunity, error) {
	var opps []types.Opportunity

	for i := range markets {
		m := &markets[i]
		if !m.IsBinary() {
			continue
		}

		yes := m.YesOutcome()
		no := m.NoOutcome()
		gross := yes.Price + no.Price

		if gross >= p.cfg.ParityThreshold {
			CandidatesRejectedTotal.WithLabelValues(p.Name(), "above_threshold").Inc()
			continue
		}

		costs := costBPS(gross, p.cfg.FeeBPS, p.cfg.SlippageBPS)
		netEdge := 1.0 - (gross + costs)
		if netEdge <= 0 {
			CandidatesRejectedTotal.WithLabelValues(p.Name(), "negative_after_costs").Inc()
			continue
		}

		opp := types.Opportunity{
			Type:      types.OpportunityParity,
			MarketIDs: []string{m.ID},
			Description: fmt.Sprintf("parity gap on %q: YES %s + NO %s = %s",
				m.Question, fmtPrice(yes.Price), fmtPrice(no.Price), fmtPrice(gross)),
			NetEdge: netEdge,
			Actions: []types.TradeAction{
				{MarketID: m.ID, OutcomeID: yes.ID, Side: types.SideBuy, Amount: 1, LimitPrice: yes.Price},
				{MarketID: m.ID, OutcomeID: no.ID, Side: types.SideBuy, Amount: 1, LimitPrice: no.Price},
			},
			DetectedAt: time.Now().UTC(),
			Metadata: map[string]string{
				"gross_edge": fmtPrice(1.0 - gross),
				"gross_cost": fmtPrice(gross),
				"costs":      fmtPrice(costs),
			},
		}

		p.logger.Debug("parity-opportunity",
			zap.String("market-id", m.ID),
			zap.Float64("gross", gross),
			zap.Float64("net-edge", netEdge))

		OpportunitiesDetectedTotal.WithLabelValues(p.Name()).Inc()
		OpportunityNetEdge.Observe(netEdge)
		opps = append(opps, opp)
	}

	return opps, nil
}
