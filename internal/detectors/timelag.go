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

// TimeLag detects markets whose price jumped against a stale prior
// observation. It is the only stateful detector: the price history
// persists across iterations, and the engine invokes it in the dedicated
// single-threaded step after the pure detectors.
type TimeLag struct {
	cfg     config.DetectorConfig
	matcher *matcher.Matcher
	logger  *zap.Logger
	history map[string]priceObservation
	now     func() time.Time
}

type priceObservation struct {
	price      float64
	observedAt time.Time
}

// NewTimeLag creates the time-lag detector with an empty history.
func NewTimeLag(cfg config.DetectorConfig, m *matcher.Matcher, logger *zap.Logger) *TimeLag {
	return &TimeLag{
		cfg:     cfg,
		matcher: m,
		logger:  logger,
		history: make(map[string]priceObservation),
		now:     time.Now,
	}
}

// Name returns the detector identifier.
func (t *TimeLag) Name() string { return "timelag" }

// Detect emits a single-leg opportunity for every grouped market whose
// price moved by at least the jump threshold against an observation older
// than the persistence window. The history table is always updated before
// returning, opportunities or not.
func (t *TimeLag) Detect(_ context.Context, markets []types.Market) ([]types.Opportunity, error) {
	now := t.now().UTC()
	persistence := time.Duration(t.cfg.TimeLagPersistenceMinutes * float64(time.Minute))

	// Candidates are the markets that cluster into related groups; a
	// market with no peers has nothing to lag behind.
	candidates := make(map[string]*types.Market)
	for _, group := range t.matcher.RelatedGroups(markets) {
		if len(group) < 2 {
			continue
		}
		for _, m := range group {
			candidates[m.ID] = m
		}
	}

	var opps []types.Opportunity
	for i := range markets {
		m := &markets[i]
		outcome := m.PrimaryOutcome()
		if outcome == nil {
			continue
		}

		prior, seen := t.history[m.ID]
		t.history[m.ID] = priceObservation{price: outcome.Price, observedAt: now}

		if !seen {
			continue
		}
		if _, grouped := candidates[m.ID]; !grouped {
			continue
		}
		if now.Sub(prior.observedAt) < persistence {
			CandidatesRejectedTotal.WithLabelValues(t.Name(), "observation_too_fresh").Inc()
			continue
		}

		jump := math.Abs(outcome.Price - prior.price)
		if jump < t.cfg.TimeLagJumpThreshold {
			CandidatesRejectedTotal.WithLabelValues(t.Name(), "jump_below_threshold").Inc()
			continue
		}

		// A fall is a discount to chase, a rise is richness to fade.
		side := types.SideBuy
		if outcome.Price > prior.price {
			side = types.SideSell
		}

		opp := types.Opportunity{
			Type:      types.OpportunityTimeLag,
			MarketIDs: []string{m.ID},
			Description: fmt.Sprintf("price of %q jumped %s -> %s after %.0f min",
				m.Question, fmtPrice(prior.price), fmtPrice(outcome.Price),
				now.Sub(prior.observedAt).Minutes()),
			NetEdge: jump,
			Actions: []types.TradeAction{
				{MarketID: m.ID, OutcomeID: outcome.ID, Side: side, Amount: 1, LimitPrice: outcome.Price},
			},
			DetectedAt: now,
			Metadata: map[string]string{
				"prior_price": fmtPrice(prior.price),
				"jump":        fmtPrice(jump),
			},
		}

		t.logger.Debug("timelag-opportunity",
			zap.String("market-id", m.ID),
			zap.Float64("jump", jump),
			zap.String("side", string(side)))

		OpportunitiesDetectedTotal.WithLabelValues(t.Name()).Inc()
		OpportunityNetEdge.Observe(jump)
		opps = append(opps, opp)
	}

	return opps, nil
}
