package types

import "time"

// Trade is a single simulated fill.
type Trade struct {
	ID           string
	Timestamp    time.Time // UTC
	MarketID     string
	OutcomeID    string
	Side         Side
	AmountFilled float64
	Price        float64
	Fees         float64
	Slippage     float64
	RealizedPnL  float64
}

// PositionKey addresses a broker position by market and outcome.
type PositionKey struct {
	MarketID  string
	OutcomeID string
}

// Positions is a read-only snapshot of signed quantities per outcome.
type Positions map[PositionKey]float64

// ExecutionResult summarizes one opportunity's trip through the broker.
type ExecutionResult struct {
	OpportunityID string
	ExecutedAt    time.Time
	Trades        []Trade
	RealizedPnL   float64
	Partial       bool // some actions were skipped or clipped
}
