// Package storage persists detected opportunities and simulated fills.
// The console backend is the safe default; postgres is opt-in.
package storage

import (
	"context"
	"fmt"

	"github.com/quantfish/crossarb/pkg/config"
	"github.com/quantfish/crossarb/pkg/types"
	"go.uber.org/zap"
)

// Storage records the engine's decisions and fills.
type Storage interface {
	// SaveOpportunity records a detected opportunity with its gate outcome.
	SaveOpportunity(ctx context.Context, opp *types.Opportunity, decision types.RiskDecision) error
	// SaveTrades records the fills of one executed opportunity.
	SaveTrades(ctx context.Context, opportunityID string, trades []types.Trade) error
	Close() error
}

// New builds the backend selected by STORAGE_MODE.
func New(cfg *config.Config, logger *zap.Logger) (Storage, error) {
	switch cfg.StorageMode {
	case "postgres":
		return NewPostgres(cfg, logger)
	case "console":
		return NewConsole(logger), nil
	default:
		return nil, fmt.Errorf("unknown storage mode %q", cfg.StorageMode)
	}
}
