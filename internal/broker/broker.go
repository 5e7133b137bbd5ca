// Package broker simulates fills against a paper book. Depth, fees, and
// slippage are modeled from the market snapshot; no orders leave the
// process.
package broker

import (
	"time"

	"github.com/google/uuid"
	"github.com/quantfish/crossarb/pkg/config"
	"github.com/quantfish/crossarb/pkg/types"
	"go.uber.org/zap"
)

// minPrice guards the quantity division against zero limit prices.
const minPrice = 1e-9

// Paper is the in-memory broker. It is mutated only by the engine's
// execution step and is not safe for concurrent use.
type Paper struct {
	cfg       config.BrokerConfig
	logger    *zap.Logger
	cash      float64
	positions types.Positions
	trades    []types.Trade
	equity    []EquitySample
	now       func() time.Time
	newID     func() string
}

// EquitySample is one point of the equity curve, taken after each
// opportunity execution.
type EquitySample struct {
	Timestamp time.Time
	Equity    float64
}

// NewPaper creates a paper broker holding the configured initial cash.
func NewPaper(cfg config.BrokerConfig, logger *zap.Logger) *Paper {
	return &Paper{
		cfg:       cfg,
		logger:    logger,
		cash:      cfg.InitialCash,
		positions: make(types.Positions),
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
}

// Cash returns the current cash balance.
func (p *Paper) Cash() float64 { return p.cash }

// Positions returns a copy of the current holdings.
func (p *Paper) Positions() types.Positions {
	out := make(types.Positions, len(p.positions))
	for k, v := range p.positions {
		out[k] = v
	}
	return out
}

// Trades returns the ordered fill log.
func (p *Paper) Trades() []types.Trade {
	out := make([]types.Trade, len(p.trades))
	copy(out, p.trades)
	return out
}

// EquityCurve returns the sampled equity history.
func (p *Paper) EquityCurve() []EquitySample {
	out := make([]EquitySample, len(p.equity))
	copy(out, p.equity)
	return out
}

// Equity returns cash plus the mark-to-market value of every position
// priced from the given snapshot. Positions whose market or outcome is
// missing from the snapshot are carried at zero.
func (p *Paper) Equity(lookup types.Lookup) float64 {
	total := p.cash
	for key, qty := range p.positions {
		m, ok := lookup[key.MarketID]
		if !ok {
			continue
		}
		if o := m.OutcomeByID(key.OutcomeID); o != nil {
			total += qty * o.Price
		}
	}
	return total
}

// Execute simulates every action of the opportunity in order. Refused
// actions (no depth, no cash, no inventory) are skipped silently and the
// result is marked partial. An equity sample is appended after the run.
func (p *Paper) Execute(opp *types.Opportunity, lookup types.Lookup) types.ExecutionResult {
	result := types.ExecutionResult{
		OpportunityID: opp.DerivedID(),
		ExecutedAt:    p.now().UTC(),
	}

	for _, action := range opp.Actions {
		trade, ok := p.fill(action, lookup)
		if !ok {
			result.Partial = true
			continue
		}
		if trade.AmountFilled < action.Amount {
			result.Partial = true
		}
		result.Trades = append(result.Trades, trade)
		result.RealizedPnL += trade.RealizedPnL
	}

	p.equity = append(p.equity, EquitySample{Timestamp: result.ExecutedAt, Equity: p.Equity(lookup)})
	EquityGauge.Set(p.Equity(lookup))
	CashGauge.Set(p.cash)

	p.logger.Info("opportunity-executed",
		zap.String("opportunity-id", result.OpportunityID),
		zap.Int("fills", len(result.Trades)),
		zap.Bool("partial", result.Partial),
		zap.Float64("realized-pnl", result.RealizedPnL))

	return result
}

// fill simulates one action against the per-outcome depth model.
func (p *Paper) fill(action types.TradeAction, lookup types.Lookup) (types.Trade, bool) {
	market, ok := lookup[action.MarketID]
	if !ok {
		p.logger.Warn("fill-skipped-unknown-market", zap.String("market-id", action.MarketID))
		return types.Trade{}, false
	}

	price := action.LimitPrice
	if price < minPrice {
		price = minPrice
	}

	perOutcomeLiquidity := market.Liquidity * p.cfg.DepthFraction / float64(len(market.Outcomes))
	maxQty := perOutcomeLiquidity / price
	qty := action.Amount
	if maxQty < qty {
		qty = maxQty
	}
	if qty <= 0 {
		TradesSkippedTotal.WithLabelValues("no_depth").Inc()
		return types.Trade{}, false
	}

	key := types.PositionKey{MarketID: action.MarketID, OutcomeID: action.OutcomeID}

	if action.Side == types.SideSell {
		// SELL fills clamp to held inventory; an uncovered leg is skipped
		// and surfaces as a partial execution.
		if held := p.positions[key]; held < qty {
			qty = held
		}
		if qty <= 0 {
			TradesSkippedTotal.WithLabelValues("no_inventory").Inc()
			return types.Trade{}, false
		}
	}

	fee := action.LimitPrice * qty * p.cfg.FeeBPS / 10000.0
	slippage := action.LimitPrice * qty * p.cfg.SlippageBPS / 10000.0

	trade := types.Trade{
		ID:           p.newID(),
		Timestamp:    p.now().UTC(),
		MarketID:     action.MarketID,
		OutcomeID:    action.OutcomeID,
		Side:         action.Side,
		AmountFilled: qty,
		Price:        action.LimitPrice,
		Fees:         fee,
		Slippage:     slippage,
	}

	if action.Side == types.SideBuy {
		cost := action.LimitPrice*qty + fee + slippage
		if cost > p.cash {
			TradesSkippedTotal.WithLabelValues("insufficient_cash").Inc()
			return types.Trade{}, false
		}
		p.cash -= cost
		p.positions[key] += qty
		trade.RealizedPnL = -cost
	} else {
		proceeds := action.LimitPrice*qty - fee - slippage
		p.cash += proceeds
		p.positions[key] -= qty
		trade.RealizedPnL = proceeds
	}

	if p.positions[key] == 0 {
		delete(p.positions, key)
	}

	p.trades = append(p.trades, trade)
	TradesFilledTotal.WithLabelValues(string(action.Side)).Inc()

	p.logger.Debug("trade-filled",
		zap.String("trade-id", trade.ID),
		zap.String("market-id", trade.MarketID),
		zap.String("side", string(trade.Side)),
		zap.Float64("amount", trade.AmountFilled),
		zap.Float64("price", trade.Price))

	return trade, true
}
