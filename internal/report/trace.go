package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	"github.com/quantfish/crossarb/pkg/types"
	"go.uber.org/zap"
)

const traceFileName = "execution_trace.jsonl"

// TraceStatus is the terminal state of one opportunity execution.
type TraceStatus string

const (
	TraceSuccess   TraceStatus = "success"
	TracePartial   TraceStatus = "partial"
	TraceCancelled TraceStatus = "cancelled"
	TraceError     TraceStatus = "error"
)

// TraceAction is one intended leg in wire form.
type TraceAction struct {
	MarketID   string  `json:"market_id"`
	OutcomeID  string  `json:"outcome_id"`
	Side       string  `json:"side"`
	Amount     float64 `json:"amount"`
	LimitPrice float64 `json:"limit_price"`
}

// TraceExecution is one realized fill in wire form.
type TraceExecution struct {
	TradeID      string  `json:"trade_id"`
	MarketID     string  `json:"market_id"`
	OutcomeID    string  `json:"outcome_id"`
	Side         string  `json:"side"`
	AmountFilled float64 `json:"amount_filled"`
	Price        float64 `json:"price"`
	Fees         float64 `json:"fees"`
	Slippage     float64 `json:"slippage"`
}

// TraceApproval mirrors the risk decision.
type TraceApproval struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// TraceRecord is one JSONL line of the execution trace. The trace id is
// the opportunity's derived id, so identical opportunities trace
// identically across runs.
type TraceRecord struct {
	TraceID         string             `json:"trace_id"`
	TimestampUTC    string             `json:"timestamp_utc"`
	OpportunityID   string             `json:"opportunity_id"`
	Detector        string             `json:"detector"`
	Markets         []string           `json:"markets"`
	PricesBefore    map[string]float64 `json:"prices_before"`
	IntendedActions []TraceAction      `json:"intended_actions"`
	RiskApproval    TraceApproval      `json:"risk_approval"`
	Executions      []TraceExecution   `json:"executions"`
	Status          TraceStatus        `json:"status"`
	RealizedPnL     float64            `json:"realized_pnl"`
	LatencyMS       int64              `json:"latency_ms"`
}

// TraceLog appends execution traces to a JSONL file.
type TraceLog struct {
	path   string
	logger *zap.Logger
}

// NewTraceLog creates a trace log under dir.
func NewTraceLog(dir string, logger *zap.Logger) *TraceLog {
	return &TraceLog{path: filepath.Join(dir, traceFileName), logger: logger}
}

// Path returns the JSONL location.
func (t *TraceLog) Path() string { return t.path }

// BuildRecord assembles a trace from the opportunity, the snapshot it was
// priced against, the gate decision, and the (possibly absent) execution.
func BuildRecord(opp *types.Opportunity, lookup types.Lookup, decision types.RiskDecision,
	exec *types.ExecutionResult, at time.Time, latency time.Duration) TraceRecord {

	rec := TraceRecord{
		TraceID:       opp.DerivedID(),
		TimestampUTC:  at.UTC().Format(time.RFC3339Nano),
		OpportunityID: opp.DerivedID(),
		Detector:      string(opp.Type),
		Markets:       append([]string(nil), opp.MarketIDs...),
		PricesBefore:  make(map[string]float64),
		RiskApproval:  TraceApproval{Allowed: decision.Allowed, Reason: string(decision.Reason)},
		LatencyMS:     latency.Milliseconds(),
	}

	for _, a := range opp.Actions {
		rec.IntendedActions = append(rec.IntendedActions, TraceAction{
			MarketID:   a.MarketID,
			OutcomeID:  a.OutcomeID,
			Side:       string(a.Side),
			Amount:     a.Amount,
			LimitPrice: a.LimitPrice,
		})
		if m, ok := lookup[a.MarketID]; ok {
			if o := m.OutcomeByID(a.OutcomeID); o != nil {
				rec.PricesBefore[a.MarketID+"/"+a.OutcomeID] = o.Price
			}
		}
	}

	switch {
	case !decision.Allowed:
		rec.Status = TraceCancelled
	case exec == nil:
		rec.Status = TraceError
	default:
		rec.RealizedPnL = exec.RealizedPnL
		for _, tr := range exec.Trades {
			rec.Executions = append(rec.Executions, TraceExecution{
				TradeID:      tr.ID,
				MarketID:     tr.MarketID,
				OutcomeID:    tr.OutcomeID,
				Side:         string(tr.Side),
				AmountFilled: tr.AmountFilled,
				Price:        tr.Price,
				Fees:         tr.Fees,
				Slippage:     tr.Slippage,
			})
		}
		if exec.Partial {
			rec.Status = TracePartial
		} else {
			rec.Status = TraceSuccess
		}
	}

	return rec
}

// Append writes one record as a single JSON line.
func (t *TraceLog) Append(rec TraceRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding trace record: %w", err)
	}

	f, err := os.OpenFile(t.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening trace log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(raw, '\n')); err != nil {
		return fmt.Errorf("appending trace record: %w", err)
	}

	t.logger.Debug("trace-appended",
		zap.String("trace-id", rec.TraceID),
		zap.String("status", string(rec.Status)))
	return nil
}
