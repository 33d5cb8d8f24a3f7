// Package engine runs the per-cycle execution state machine: refresh
// account state, gate each intent, guard slippage, dispatch to the
// venue, and persist the side effects.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vibetrader/internal/account"
	"vibetrader/internal/exchange"
	"vibetrader/internal/logger"
	"vibetrader/internal/monitoring"
	"vibetrader/internal/risk"
	"vibetrader/internal/store"
	"vibetrader/internal/types"
)

// PriceUpdater is implemented by adapters that need mark prices pushed
// to them. The paper venue implements it; live venues do not.
type PriceUpdater interface {
	UpdateMarkPrice(symbol string, price float64)
}

// PriceSource is implemented by adapters that can quote a current price.
// The loop uses it to resolve dispatch prices before a cycle.
type PriceSource interface {
	LastPrice(ctx context.Context, symbol string) (float64, error)
}

// CycleReport summarizes one execution cycle.
type CycleReport struct {
	Snapshot  *types.AccountSnapshot
	Positions []store.EnrichedPosition // snapshot positions joined with stored exit plans
	Results   []types.ExecutionResult
	Duration  time.Duration
	Err       error // non-nil when the cycle aborted before dispatch
}

// Engine coordinates one intent batch per cycle. Per-symbol failures are
// recorded and the loop continues; only an account refresh failure
// aborts the whole cycle.
type Engine struct {
	adapter  exchange.Adapter
	cache    *account.Cache
	gate     *risk.Gate
	slippage *risk.SlippageGuard
	store    *store.Store
	now      func() time.Time
}

func New(adapter exchange.Adapter, cache *account.Cache, gate *risk.Gate, slippage *risk.SlippageGuard, st *store.Store) *Engine {
	return &Engine{
		adapter:  adapter,
		cache:    cache,
		gate:     gate,
		slippage: slippage,
		store:    st,
		now:      time.Now,
	}
}

// RunCycle executes one batch of intents against the current prices.
// Every intent ends in exactly one terminal result; results are recorded,
// never retried within the cycle.
func (e *Engine) RunCycle(ctx context.Context, intents []types.Intent, prices map[string]float64) CycleReport {
	started := e.now()
	report := CycleReport{}

	snapshot, err := e.cache.Refresh(ctx)
	if err != nil {
		monitoring.RecordCycleFailure()
		logger.Errorf("cycle aborted: account refresh failed: %v", err)
		report.Err = fmt.Errorf("account refresh: %w", err)
		report.Duration = e.now().Sub(started)
		return report
	}
	report.Snapshot = snapshot
	monitoring.RecordSnapshot(len(snapshot.Positions), snapshot.Balance.Wallet, snapshot.TotalUnrealizedPnL())

	if e.store != nil {
		enriched, err := e.store.EnrichPositions(ctx, snapshot.Positions)
		if err != nil {
			logger.Warnf("exit-plan join failed: %v", err)
		} else {
			report.Positions = enriched
		}
	}

	if updater, ok := e.adapter.(PriceUpdater); ok {
		for symbol, price := range prices {
			updater.UpdateMarkPrice(symbol, price)
		}
	}

	var realized, fees float64
	var fills int
	var actions []string
	seen := make(map[string]bool, len(intents))
	for _, intent := range intents {
		if seen[intent.Symbol] {
			logger.Warnf("duplicate intent for %s dropped, one per symbol per cycle", intent.Symbol)
			continue
		}
		seen[intent.Symbol] = true

		res := e.handleIntent(ctx, intent, snapshot, prices[intent.Symbol])
		report.Results = append(report.Results, res)
		monitoring.RecordResult(res.Symbol, string(res.Action), string(res.Status))
		if res.Status == types.StatusRejected {
			monitoring.RecordRejection(res.Rule)
		}
		if res.Status == types.StatusSuccess {
			realized += res.RealizedPnL
			fees += res.Fee
			fills++
			actions = append(actions, fmt.Sprintf("%s %s", res.Action, res.Symbol))
		}
	}

	e.recordLedger(ctx, snapshot, realized, fees, fills, strings.Join(actions, ", "))

	report.Duration = e.now().Sub(started)
	monitoring.RecordCycle(report.Duration.Seconds())
	return report
}

func (e *Engine) handleIntent(ctx context.Context, intent types.Intent, snapshot *types.AccountSnapshot, price float64) types.ExecutionResult {
	if !intent.Action.Valid() {
		return types.Failed(intent.Symbol, intent.Action, fmt.Errorf("unknown action %q", intent.Action))
	}

	if intent.Action == types.ActionHold {
		e.amendPlanOnHold(ctx, intent, snapshot)
		return types.Skipped(intent.Symbol, intent.Action, types.SkipHold)
	}

	if verdict := e.gate.Check(intent, snapshot); !verdict.Allowed {
		logger.Infof("risk gate rejected %s %s: %s (%s)", intent.Action, intent.Symbol, verdict.Rule, verdict.Detail)
		return types.Rejected(intent.Symbol, intent.Action, verdict.Rule, verdict.Detail)
	}

	// A close with nothing to close is a no-op, not an error.
	if intent.Action == types.ActionClose && snapshot.FindPosition(intent.Symbol) == nil {
		return types.Skipped(intent.Symbol, intent.Action, types.SkipNoPosition)
	}

	if price <= 0 {
		if pos := snapshot.FindPosition(intent.Symbol); pos != nil {
			price = pos.MarkPrice
		}
	}
	if price <= 0 {
		return types.Failed(intent.Symbol, intent.Action, fmt.Errorf("no current price for %s", intent.Symbol))
	}

	if intent.Action.IsEntry() {
		if reason := e.slippage.Check(intent.Action, intent.DecisionPrice, price); reason != "" {
			return types.Skipped(intent.Symbol, intent.Action, reason)
		}
	}

	res, err := e.adapter.ExecuteOrder(ctx, intent, price)
	if err != nil {
		logger.Errorf("order dispatch failed for %s %s: %v", intent.Action, intent.Symbol, err)
		return types.Failed(intent.Symbol, intent.Action, err)
	}

	if res.Status == types.StatusSuccess {
		e.cache.Invalidate()
		e.persistPlan(ctx, intent, res)
	}
	return res
}

// persistPlan keeps the exit-plan store in lockstep with venue state:
// a filled entry writes the plan, a filled close removes it.
func (e *Engine) persistPlan(ctx context.Context, intent types.Intent, res types.ExecutionResult) {
	if e.store == nil {
		return
	}
	switch {
	case intent.Action.IsEntry() && intent.ExitPlan != nil:
		plan := types.ExitPlan{
			Symbol:        intent.Symbol,
			TakeProfit:    intent.ExitPlan.TakeProfit,
			StopLoss:      intent.ExitPlan.StopLoss,
			Invalidation:  intent.ExitPlan.Invalidation,
			Leverage:      intent.Leverage,
			Confidence:    intent.Confidence,
			RiskBudgetUSD: intent.ExitPlan.RiskBudgetUSD,
			Orders:        types.BrokerOrderIDs{Entry: res.OrderID},
			CreatedAt:     e.now(),
		}
		if err := e.store.UpsertExitPlan(ctx, plan); err != nil {
			logger.Errorf("persist exit plan for %s: %v", intent.Symbol, err)
		}
	case intent.Action == types.ActionClose:
		if err := e.store.RemoveExitPlan(ctx, intent.Symbol); err != nil {
			logger.Errorf("remove exit plan for %s: %v", intent.Symbol, err)
		}
	}
}

// amendPlanOnHold lets a HOLD carrying bracket levels tighten the stored
// plan without touching the position. Amendment requires a live position;
// a plan left behind by an out-of-band close stays untouched.
func (e *Engine) amendPlanOnHold(ctx context.Context, intent types.Intent, snapshot *types.AccountSnapshot) {
	if e.store == nil || intent.ExitPlan == nil {
		return
	}
	if snapshot == nil || snapshot.FindPosition(intent.Symbol) == nil {
		logger.Warnf("hold for %s carries bracket levels but no position is open, plan left as-is", intent.Symbol)
		return
	}
	existing, ok, err := e.store.GetExitPlan(ctx, intent.Symbol)
	if err != nil {
		logger.Errorf("load exit plan for %s: %v", intent.Symbol, err)
		return
	}
	if !ok {
		return
	}
	if intent.ExitPlan.TakeProfit > 0 {
		existing.TakeProfit = intent.ExitPlan.TakeProfit
	}
	if intent.ExitPlan.StopLoss > 0 {
		existing.StopLoss = intent.ExitPlan.StopLoss
	}
	if intent.ExitPlan.Invalidation != "" {
		existing.Invalidation = intent.ExitPlan.Invalidation
	}
	if err := e.store.UpsertExitPlan(ctx, existing); err != nil {
		logger.Errorf("amend exit plan for %s: %v", intent.Symbol, err)
		return
	}
	logger.Infof("exit plan for %s amended on hold: tp=%.2f sl=%.2f", intent.Symbol, existing.TakeProfit, existing.StopLoss)
}

func (e *Engine) recordLedger(ctx context.Context, snapshot *types.AccountSnapshot, realized, fees float64, fills int, action string) {
	if e.store == nil {
		return
	}
	now := e.now()
	rec := store.CycleRecord{
		Time:          now,
		WalletBalance: snapshot.Balance.Wallet,
		UnrealizedPnL: snapshot.TotalUnrealizedPnL(),
		RealizedPnL:   realized,
		Fees:          fees,
		Trades:        fills,
		Action:        action,
	}
	if err := e.store.RecordCycle(ctx, now.UTC().Format("2006-01-02"), rec); err != nil {
		logger.Errorf("record cycle ledger: %v", err)
	}
}
