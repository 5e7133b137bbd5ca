package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq" // postgres driver
	"github.com/quantfish/crossarb/pkg/config"
	"github.com/quantfish/crossarb/pkg/types"
	"go.uber.org/zap"
)

// Postgres persists opportunities and trades to two append-only tables.
type Postgres struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgres opens the pool, verifies connectivity, and ensures the
// schema exists.
func NewPostgres(cfg *config.Config, logger *zap.Logger) (*Postgres, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser,
		cfg.PostgresPass, cfg.PostgresDB, cfg.PostgresSSL)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	p := &Postgres{db: db, logger: logger}
	if err := p.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

// newPostgresWithDB wires an existing pool; tests inject sqlmock here.
func newPostgresWithDB(db *sql.DB, logger *zap.Logger) *Postgres {
	return &Postgres{db: db, logger: logger}
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS opportunities (
    id           TEXT PRIMARY KEY,
    type         TEXT NOT NULL,
    market_ids   TEXT NOT NULL,
    net_edge     DOUBLE PRECISION NOT NULL,
    approved     BOOLEAN NOT NULL,
    reject_reason TEXT,
    detected_at  TIMESTAMPTZ NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS trades (
    id             TEXT PRIMARY KEY,
    opportunity_id TEXT NOT NULL,
    market_id      TEXT NOT NULL,
    outcome_id     TEXT NOT NULL,
    side           TEXT NOT NULL,
    amount_filled  DOUBLE PRECISION NOT NULL,
    price          DOUBLE PRECISION NOT NULL,
    fees           DOUBLE PRECISION NOT NULL,
    slippage       DOUBLE PRECISION NOT NULL,
    realized_pnl   DOUBLE PRECISION NOT NULL,
    executed_at    TIMESTAMPTZ NOT NULL
);`
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}

// SaveOpportunity upserts by derived id; a re-detected opportunity
// refreshes its gate outcome.
func (p *Postgres) SaveOpportunity(ctx context.Context, opp *types.Opportunity, decision types.RiskDecision) error {
	const q = `
INSERT INTO opportunities (id, type, market_ids, net_edge, approved, reject_reason, detected_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
    net_edge = EXCLUDED.net_edge,
    approved = EXCLUDED.approved,
    reject_reason = EXCLUDED.reject_reason,
    detected_at = EXCLUDED.detected_at`

	_, err := p.db.ExecContext(ctx, q,
		opp.DerivedID(), string(opp.Type), strings.Join(opp.MarketIDs, ","),
		opp.NetEdge, decision.Allowed, string(decision.Reason), opp.DetectedAt)
	if err != nil {
		return fmt.Errorf("saving opportunity %s: %w", opp.DerivedID(), err)
	}
	return nil
}

// SaveTrades inserts the fills of one execution in a single transaction.
func (p *Postgres) SaveTrades(ctx context.Context, opportunityID string, trades []types.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning trade tx: %w", err)
	}

	const q = `
INSERT INTO trades (id, opportunity_id, market_id, outcome_id, side,
                    amount_filled, price, fees, slippage, realized_pnl, executed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	for _, t := range trades {
		if _, err := tx.ExecContext(ctx, q,
			t.ID, opportunityID, t.MarketID, t.OutcomeID, string(t.Side),
			t.AmountFilled, t.Price, t.Fees, t.Slippage, t.RealizedPnL, t.Timestamp); err != nil {
			tx.Rollback()
			return fmt.Errorf("saving trade %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing trades: %w", err)
	}

	p.logger.Debug("trades-persisted",
		zap.String("opportunity-id", opportunityID),
		zap.Int("count", len(trades)))
	return nil
}

// Close releases the pool.
func (p *Postgres) Close() error { return p.db.Close() }
