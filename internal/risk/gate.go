// Package risk gates detected opportunities before execution. The rules
// run in a fixed order and the first failure wins; rejections are
// telemetry, not errors.
package risk

import (
	"fmt"
	"time"

	"github.com/quantfish/crossarb/pkg/config"
	"github.com/quantfish/crossarb/pkg/types"
	"go.uber.org/zap"
)

// Gate applies the ordered risk rules. It carries the session approval
// counter, so a single Gate instance must serve the whole engine run.
type Gate struct {
	cfg       config.RiskConfig
	logger    *zap.Logger
	approvals int
	now       func() time.Time
}

// NewGate creates a risk gate with a zeroed session counter.
func NewGate(cfg config.RiskConfig, logger *zap.Logger) *Gate {
	return &Gate{cfg: cfg, logger: logger, now: time.Now}
}

// Approvals returns the number of opportunities approved this session.
func (g *Gate) Approvals() int { return g.approvals }

// Approve evaluates the rules in order against the current snapshot,
// broker positions, and total equity. On approval the session counter
// increments; broker state mutations between calls are the caller's
// responsibility.
func (g *Gate) Approve(opp *types.Opportunity, lookup types.Lookup, positions types.Positions, equity float64) types.RiskDecision {
	if d := g.evaluate(opp, lookup, positions, equity); !d.Allowed {
		g.logger.Info("risk-rejected",
			zap.String("opportunity-type", string(opp.Type)),
			zap.String("reason", string(d.Reason)),
			zap.String("detail", d.Detail))
		DecisionsTotal.WithLabelValues("rejected", string(d.Reason)).Inc()
		return d
	}

	g.approvals++
	DecisionsTotal.WithLabelValues("approved", "").Inc()
	g.logger.Info("risk-approved",
		zap.String("opportunity-type", string(opp.Type)),
		zap.Float64("net-edge", opp.NetEdge),
		zap.Int("session-approvals", g.approvals))
	return types.RiskDecision{Allowed: true}
}

func (g *Gate) evaluate(opp *types.Opportunity, lookup types.Lookup, positions types.Positions, equity float64) types.RiskDecision {
	// Rule 1: DUPLICATE requires shorting the rich leg.
	if opp.Type == types.OpportunityDuplicate && !g.cfg.AllowShorts {
		return reject(types.RiskDuplicateDisabled, "duplicate arbitrage needs short sales")
	}

	// Rule 2: without shorting, every SELL must be covered by inventory.
	// With shorting enabled, venue legality is the validator's concern.
	if !g.cfg.AllowShorts {
		for _, a := range opp.Actions {
			if a.Side != types.SideSell {
				continue
			}
			held := positions[types.PositionKey{MarketID: a.MarketID, OutcomeID: a.OutcomeID}]
			if held < a.Amount {
				return reject(types.RiskSellWithoutInventory,
					fmt.Sprintf("SELL %.4f of %s/%s with inventory %.4f", a.Amount, a.MarketID, a.OutcomeID, held))
			}
		}
	}

	// Rule 3: no BUY and SELL of the same outcome inside one opportunity.
	sides := make(map[types.PositionKey]types.Side)
	for _, a := range opp.Actions {
		key := types.PositionKey{MarketID: a.MarketID, OutcomeID: a.OutcomeID}
		if prev, ok := sides[key]; ok && prev != a.Side {
			return reject(types.RiskWashTrade,
				fmt.Sprintf("%s/%s appears on both sides", a.MarketID, a.OutcomeID))
		}
		sides[key] = a.Side
	}

	// Rule 4: minimum net edge.
	if opp.NetEdge < g.cfg.MinNetEdge {
		return reject(types.RiskBelowMinNetEdge,
			fmt.Sprintf("net edge %.4f below %.4f", opp.NetEdge, g.cfg.MinNetEdge))
	}

	// Rule 5: minimum gross edge, when configured.
	if g.cfg.MinGrossEdge > 0 {
		if gross := opp.GrossEdge(); gross < g.cfg.MinGrossEdge {
			return reject(types.RiskBelowMinGrossEdge,
				fmt.Sprintf("gross edge %.4f below %.4f", gross, g.cfg.MinGrossEdge))
		}
	}

	// Rule 6: micro-price filter on BUY legs.
	for _, a := range opp.Actions {
		if a.Side == types.SideBuy && a.LimitPrice < g.cfg.MinBuyPrice {
			return reject(types.RiskBelowMinBuyPrice,
				fmt.Sprintf("BUY at %.4f below floor %.4f", a.LimitPrice, g.cfg.MinBuyPrice))
		}
	}

	// Rule 7: per-outcome liquidity must cover a multiple of the BUY notional.
	for _, a := range opp.Actions {
		if a.Side != types.SideBuy {
			continue
		}
		m, ok := lookup[a.MarketID]
		if !ok {
			return reject(types.RiskUnknownMarket, fmt.Sprintf("market %s not in snapshot", a.MarketID))
		}
		perOutcome := m.Liquidity / float64(len(m.Outcomes))
		if perOutcome < g.cfg.MinLiquidityMultiple*a.LimitPrice*a.Amount {
			return reject(types.RiskInsufficientLiquidity,
				fmt.Sprintf("market %s per-outcome liquidity %.2f below %.0fx notional",
					a.MarketID, perOutcome, g.cfg.MinLiquidityMultiple))
		}
	}

	// Rule 8: markets with a known end date must not expire too soon.
	minHorizon := time.Duration(g.cfg.MinExpiryHours * float64(time.Hour))
	now := g.now().UTC()
	for _, id := range opp.MarketIDs {
		m, ok := lookup[id]
		if !ok {
			return reject(types.RiskUnknownMarket, fmt.Sprintf("market %s not in snapshot", id))
		}
		if m.EndDate.IsZero() {
			continue
		}
		if m.EndDate.Sub(now) < minHorizon {
			return reject(types.RiskExpiryTooSoon,
				fmt.Sprintf("market %s expires %s", id, m.EndDate.Format(time.RFC3339)))
		}
	}

	// Rule 9: cap open positions, counting this session's approvals.
	open := 0
	for _, qty := range positions {
		if qty != 0 {
			open++
		}
	}
	if open+g.approvals >= g.cfg.MaxOpenPositions {
		return reject(types.RiskMaxOpenPositions,
			fmt.Sprintf("%d open positions + %d approvals at cap %d", open, g.approvals, g.cfg.MaxOpenPositions))
	}

	// Rule 10: per-market estimated cost capped at a fraction of equity.
	costByMarket := make(map[string]float64)
	for _, a := range opp.Actions {
		costByMarket[a.MarketID] += a.LimitPrice * a.Amount
	}
	budget := equity * g.cfg.MaxAllocationPerMarket
	for id, cost := range costByMarket {
		if cost > budget {
			return reject(types.RiskAllocationExceeded,
				fmt.Sprintf("market %s cost %.2f above budget %.2f", id, cost, budget))
		}
	}

	return types.RiskDecision{Allowed: true}
}

func reject(reason types.RiskReason, detail string) types.RiskDecision {
	return types.RiskDecision{Reason: reason, Detail: detail}
}
