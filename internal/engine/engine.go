// Package engine composes sources, detectors, the validator, the risk
// gate, and the paper broker into the iteration loop. Broker state and
// detector history are mutated only here.
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/quantfish/crossarb/internal/broker"
	"github.com/quantfish/crossarb/internal/detectors"
	"github.com/quantfish/crossarb/internal/report"
	"github.com/quantfish/crossarb/internal/risk"
	"github.com/quantfish/crossarb/internal/source"
	"github.com/quantfish/crossarb/internal/storage"
	"github.com/quantfish/crossarb/internal/validator"
	"github.com/quantfish/crossarb/pkg/config"
	"github.com/quantfish/crossarb/pkg/types"
	"go.uber.org/zap"
)

// Options wires the engine's collaborators. Validator may be nil when the
// process runs against a single venue; TimeLag may be nil when disabled.
type Options struct {
	Config    *config.Config
	Sources   []source.MarketSource
	Detectors []detectors.Detector
	TimeLag   *detectors.TimeLag
	Validator *validator.Validator
	Gate      *risk.Gate
	Broker    *broker.Paper
	Notifier  source.Notifier
	Reporter  *report.Reporter
	Trace     *report.TraceLog
	Store     storage.Storage
	Logger    *zap.Logger
	// OnReady fires after the first completed iteration; the health probe
	// hangs off it.
	OnReady func()
}

// Engine runs the scan-gate-execute loop.
type Engine struct {
	opts      Options
	logger    *zap.Logger
	iteration int
	sleep     func(ctx context.Context, d time.Duration) bool
}

// New creates an engine from wired collaborators.
func New(opts Options) *Engine {
	return &Engine{
		opts:   opts,
		logger: opts.Logger,
		sleep:  sleepCtx,
	}
}

// Run executes iterations until the configured count is reached or the
// context is cancelled. Cancellation is observed between iterations, so
// an in-flight execution always completes and reports.
func (e *Engine) Run(ctx context.Context) error {
	cfg := e.opts.Config
	e.logger.Info("engine-starting",
		zap.Int("iterations", cfg.Iterations),
		zap.Duration("refresh-interval", cfg.RefreshInterval),
		zap.Bool("dual-venue-mode", cfg.DualVenueMode))

	for {
		if err := ctx.Err(); err != nil {
			e.logger.Info("engine-stopped", zap.Int("completed-iterations", e.iteration))
			return nil
		}

		e.iteration++
		if err := e.runIteration(ctx); err != nil {
			// Only reporter disk failures propagate; everything else is
			// absorbed inside the iteration.
			return fmt.Errorf("iteration %d: %w", e.iteration, err)
		}

		if e.iteration == 1 && e.opts.OnReady != nil {
			e.opts.OnReady()
		}

		if cfg.Iterations > 0 && e.iteration >= cfg.Iterations {
			e.logger.Info("engine-finished", zap.Int("iterations", e.iteration))
			return nil
		}

		if !e.sleep(ctx, cfg.RefreshInterval) {
			e.logger.Info("engine-stopped", zap.Int("completed-iterations", e.iteration))
			return nil
		}
	}
}

func (e *Engine) runIteration(ctx context.Context) error {
	start := time.Now()
	IterationsTotal.Inc()

	markets := e.fetchAll(ctx)
	lookup := types.BuildLookup(markets)
	MarketsFetched.Set(float64(len(markets)))

	opps := e.detectAll(ctx, markets)

	// Deterministic gating order: broker state evolution must be
	// reproducible regardless of detector completion order.
	sort.Slice(opps, func(i, j int) bool { return opps[i].DerivedID() < opps[j].DerivedID() })

	executed := e.gateAndExecute(ctx, opps, lookup)

	e.notifySummary(ctx, len(markets), len(opps), len(executed))

	if err := e.report(markets, opps, executed); err != nil {
		return err
	}

	IterationDuration.Observe(time.Since(start).Seconds())
	e.logger.Info("iteration-complete",
		zap.Int("iteration", e.iteration),
		zap.Int("markets", len(markets)),
		zap.Int("detected", len(opps)),
		zap.Int("executed", len(executed)),
		zap.Duration("took", time.Since(start)))
	return nil
}

// fetchAll gathers every source under the fetch timeout. A failing or
// timed-out source contributes nothing and the iteration continues.
func (e *Engine) fetchAll(ctx context.Context) []types.Market {
	var markets []types.Market
	for _, src := range e.opts.Sources {
		fetchCtx, cancel := context.WithTimeout(ctx, e.opts.Config.FetchTimeout)
		fetched, err := src.Fetch(fetchCtx)
		cancel()
		if err != nil {
			e.logger.Warn("source-fetch-failed",
				zap.String("venue", string(src.Metadata().Venue)),
				zap.Error(err))
			FetchErrorsTotal.WithLabelValues(string(src.Metadata().Venue)).Inc()
			continue
		}
		for _, m := range fetched {
			if m.Liquidity < e.opts.Config.MinMarketLiquidity ||
				m.Volume < e.opts.Config.MinMarketVolume {
				continue
			}
			markets = append(markets, m)
		}
	}
	return markets
}

// detectAll sweeps the pure detectors, then the stateful time-lag
// detector in a dedicated step. A panicking or failing detector is
// skipped for this iteration.
func (e *Engine) detectAll(ctx context.Context, markets []types.Market) []types.Opportunity {
	var opps []types.Opportunity
	for _, det := range e.opts.Detectors {
		opps = append(opps, e.detectOne(ctx, det, markets)...)
	}
	if e.opts.TimeLag != nil {
		opps = append(opps, e.detectOne(ctx, e.opts.TimeLag, markets)...)
	}
	return opps
}

func (e *Engine) detectOne(ctx context.Context, det detectors.Detector, markets []types.Market) (opps []types.Opportunity) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("detector-panicked",
				zap.String("detector", det.Name()),
				zap.Any("panic", r))
			DetectorFailuresTotal.WithLabelValues(det.Name()).Inc()
			opps = nil
		}
	}()

	start := time.Now()
	found, err := det.Detect(ctx, markets)
	detectors.DetectionDurationSeconds.WithLabelValues(det.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		e.logger.Warn("detector-failed",
			zap.String("detector", det.Name()),
			zap.Error(err))
		DetectorFailuresTotal.WithLabelValues(det.Name()).Inc()
		return nil
	}
	return found
}

// gateAndExecute walks opportunities in order through validator, risk
// gate, and broker. Positions reflect all prior approvals in the same
// iteration when the next opportunity is evaluated.
func (e *Engine) gateAndExecute(ctx context.Context, opps []types.Opportunity, lookup types.Lookup) []types.ExecutionResult {
	var executed []types.ExecutionResult

	for i := range opps {
		opp := &opps[i]
		gateStart := time.Now()

		// Unknown market ids are a data inconsistency; drop silently.
		if !marketsKnown(opp, lookup) {
			e.logger.Warn("opportunity-dropped-unknown-market",
				zap.String("opportunity-id", opp.DerivedID()))
			continue
		}

		if e.opts.Config.DualVenueMode && e.opts.Validator != nil {
			if res := e.opts.Validator.Validate(opp, lookup, e.opts.Broker.Positions()); !res.Allowed {
				// Validator reasons flow into the same rejection channel
				// as risk reasons for storage and tracing.
				rejection := types.RiskDecision{Reason: types.RiskReason(res.Reason), Detail: res.Detail}
				e.storeOpportunity(ctx, opp, rejection)
				e.appendTrace(opp, lookup, rejection, nil, gateStart)
				continue
			}
		}

		decision := e.opts.Gate.Approve(opp, lookup, e.opts.Broker.Positions(), e.opts.Broker.Equity(lookup))
		e.storeOpportunity(ctx, opp, decision)
		if !decision.Allowed {
			e.appendTrace(opp, lookup, decision, nil, gateStart)
			continue
		}

		result := e.opts.Broker.Execute(opp, lookup)
		executed = append(executed, result)
		e.appendTrace(opp, lookup, decision, &result, gateStart)

		if e.opts.Store != nil && len(result.Trades) > 0 {
			if err := e.opts.Store.SaveTrades(ctx, result.OpportunityID, result.Trades); err != nil {
				e.logger.Warn("trade-persist-failed", zap.Error(err))
			}
		}

		if e.opts.Notifier != nil {
			text := fmt.Sprintf("executed %s: %d fill(s), pnl %.4f",
				opp.String(), len(result.Trades), result.RealizedPnL)
			if err := e.opts.Notifier.Send(ctx, text); err != nil {
				e.logger.Warn("notify-failed", zap.Error(err))
			}
		}
	}

	return executed
}

func (e *Engine) storeOpportunity(ctx context.Context, opp *types.Opportunity, decision types.RiskDecision) {
	if e.opts.Store == nil {
		return
	}
	if err := e.opts.Store.SaveOpportunity(ctx, opp, decision); err != nil {
		e.logger.Warn("opportunity-persist-failed", zap.Error(err))
	}
}

func (e *Engine) appendTrace(opp *types.Opportunity, lookup types.Lookup, decision types.RiskDecision,
	exec *types.ExecutionResult, started time.Time) {
	if e.opts.Trace == nil {
		return
	}
	rec := report.BuildRecord(opp, lookup, decision, exec, time.Now(), time.Since(started))
	if err := e.opts.Trace.Append(rec); err != nil {
		e.logger.Warn("trace-append-failed", zap.Error(err))
	}
}

func (e *Engine) notifySummary(ctx context.Context, markets, detected, executed int) {
	if e.opts.Notifier == nil {
		return
	}
	text := fmt.Sprintf("iteration %d: %d markets, %d opportunities, %d executed, cash %.2f",
		e.iteration, markets, detected, executed, e.opts.Broker.Cash())
	if err := e.opts.Notifier.Send(ctx, text); err != nil {
		e.logger.Warn("notify-failed", zap.Error(err))
	}
}

// report feeds the incremental reporter. Reporter failures are the only
// fatal path out of an iteration.
func (e *Engine) report(markets []types.Market, opps []types.Opportunity, executed []types.ExecutionResult) error {
	if e.opts.Reporter == nil {
		return nil
	}

	marketIDs := make([]string, len(markets))
	for i := range markets {
		marketIDs[i] = markets[i].ID
	}
	detectedIDs := make([]string, len(opps))
	for i := range opps {
		detectedIDs[i] = opps[i].DerivedID()
	}
	approvedIDs := make([]string, len(executed))
	for i := range executed {
		approvedIDs[i] = executed[i].OpportunityID
	}

	_, err := e.opts.Reporter.Report(report.Snapshot{
		Iteration:   e.iteration,
		MarketIDs:   marketIDs,
		DetectedIDs: detectedIDs,
		ApprovedIDs: approvedIDs,
	})
	if err != nil {
		return fmt.Errorf("reporting: %w", err)
	}
	return nil
}

func marketsKnown(opp *types.Opportunity, lookup types.Lookup) bool {
	for _, id := range opp.MarketIDs {
		if _, ok := lookup[id]; !ok {
			return false
		}
	}
	for _, a := range opp.Actions {
		if _, ok := lookup[a.MarketID]; !ok {
			return false
		}
	}
	return true
}

// sleepCtx waits for d or until ctx is done; it reports whether the full
// interval elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
