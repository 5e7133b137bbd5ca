package storage

import (
	"context"

	"github.com/quantfish/crossarb/pkg/types"
	"go.uber.org/zap"
)

// Console logs every record instead of persisting it. Default backend.
type Console struct {
	logger *zap.Logger
}

// NewConsole creates a log-only storage backend.
func NewConsole(logger *zap.Logger) *Console {
	return &Console{logger: logger}
}

// SaveOpportunity logs the opportunity and its gate outcome.
func (c *Console) SaveOpportunity(_ context.Context, opp *types.Opportunity, decision types.RiskDecision) error {
	c.logger.Info("opportunity-stored",
		zap.String("opportunity-id", opp.DerivedID()),
		zap.String("type", string(opp.Type)),
		zap.Float64("net-edge", opp.NetEdge),
		zap.Bool("approved", decision.Allowed),
		zap.String("reason", string(decision.Reason)))
	return nil
}

// SaveTrades logs each fill.
func (c *Console) SaveTrades(_ context.Context, opportunityID string, trades []types.Trade) error {
	for _, t := range trades {
		c.logger.Info("trade-stored",
			zap.String("opportunity-id", opportunityID),
			zap.String("trade-id", t.ID),
			zap.String("market-id", t.MarketID),
			zap.String("side", string(t.Side)),
			zap.Float64("amount", t.AmountFilled),
			zap.Float64("price", t.Price))
	}
	return nil
}

// Close is a no-op.
func (c *Console) Close() error { return nil }
