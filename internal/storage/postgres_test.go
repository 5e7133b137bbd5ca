package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/quantfish/crossarb/pkg/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPostgresSaveOpportunity(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	p := newPostgresWithDB(db, zap.NewNop())

	opp := &types.Opportunity{
		Type:       types.OpportunityParity,
		MarketIDs:  []string{"a-1"},
		NetEdge:    0.0973,
		DetectedAt: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
		Actions: []types.TradeAction{
			{MarketID: "a-1", OutcomeID: "a1-yes", Side: types.SideBuy, Amount: 1, LimitPrice: 0.45},
			{MarketID: "a-1", OutcomeID: "a1-no", Side: types.SideBuy, Amount: 1, LimitPrice: 0.45},
		},
	}

	mock.ExpectExec("INSERT INTO opportunities").
		WithArgs(opp.DerivedID(), "PARITY", "a-1", 0.0973, true, "", opp.DetectedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = p.SaveOpportunity(context.Background(), opp, types.RiskDecision{Allowed: true})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveTradesTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	p := newPostgresWithDB(db, zap.NewNop())

	at := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	trades := []types.Trade{
		{ID: "t1", Timestamp: at, MarketID: "a-1", OutcomeID: "a1-yes", Side: types.SideBuy,
			AmountFilled: 1, Price: 0.45, Fees: 0.00045, Slippage: 0.0009, RealizedPnL: -0.45135},
		{ID: "t2", Timestamp: at, MarketID: "a-1", OutcomeID: "a1-no", Side: types.SideBuy,
			AmountFilled: 1, Price: 0.45, Fees: 0.00045, Slippage: 0.0009, RealizedPnL: -0.45135},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO trades").
		WithArgs("t1", "opp-1", "a-1", "a1-yes", "BUY", 1.0, 0.45, 0.00045, 0.0009, -0.45135, at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO trades").
		WithArgs("t2", "opp-1", "a-1", "a1-no", "BUY", 1.0, 0.45, 0.00045, 0.0009, -0.45135, at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = p.SaveTrades(context.Background(), "opp-1", trades)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveTradesRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	p := newPostgresWithDB(db, zap.NewNop())

	at := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	trades := []types.Trade{
		{ID: "t1", Timestamp: at, MarketID: "a-1", OutcomeID: "a1-yes", Side: types.SideBuy, AmountFilled: 1, Price: 0.45},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO trades").
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	err = p.SaveTrades(context.Background(), "opp-1", trades)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveTradesEmptyIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	p := newPostgresWithDB(db, zap.NewNop())
	require.NoError(t, p.SaveTrades(context.Background(), "opp-1", nil))
	require.NoError(t, mock.ExpectationsWereMet())
}
