package engine

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"vibetrader/internal/logger"
	"vibetrader/internal/store"
	"vibetrader/internal/types"
)

// LogReport renders the cycle outcome as console tables. Purely
// cosmetic; all state has already been persisted.
func LogReport(report CycleReport) {
	if report.Err != nil {
		logger.Errorf("cycle failed in %s: %v", report.Duration.Round(1e6), report.Err)
		return
	}
	if report.Snapshot != nil {
		logger.InfoBlock(renderPositions(report.Snapshot, report.Positions))
	}
	if len(report.Results) > 0 {
		logger.InfoBlock(renderResults(report.Results))
	}
	logger.Infof("cycle finished in %s: %s", report.Duration.Round(1e6), summarize(report.Results))
}

func renderPositions(snap *types.AccountSnapshot, enriched []store.EnrichedPosition) string {
	plans := make(map[string]*types.ExitPlan, len(enriched))
	for _, e := range enriched {
		plans[e.Symbol] = e.Plan
	}
	t := table.NewWriter()
	t.SetTitle("ACCOUNT  wallet=%.2f  avail=%.2f  uPnL=%.2f",
		snap.Balance.Wallet, snap.Balance.Available, snap.TotalUnrealizedPnL())
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Symbol", "Side", "Qty", "Entry", "Mark", "uPnL", "Liq", "TP", "SL", "ROI%"})
	for _, p := range snap.Positions {
		tp, sl := "-", "-"
		if plan := plans[p.Symbol]; plan != nil {
			if plan.TakeProfit > 0 {
				tp = fmt.Sprintf("%.2f", plan.TakeProfit)
			}
			sl = fmt.Sprintf("%.2f", plan.StopLoss)
		}
		t.AppendRow(table.Row{
			p.Symbol, p.Side(),
			fmt.Sprintf("%.4f", p.AbsQuantity()),
			fmt.Sprintf("%.2f", p.EntryPrice),
			fmt.Sprintf("%.2f", p.MarkPrice),
			fmt.Sprintf("%.2f", p.UnrealizedPnL),
			fmt.Sprintf("%.2f", p.LiquidationPrice),
			tp, sl,
			fmt.Sprintf("%.2f", p.ROIPct),
		})
	}
	if len(snap.Positions) == 0 {
		t.AppendRow(table.Row{"-", "flat", "-", "-", "-", "-", "-", "-", "-", "-"})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 3, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	return t.Render()
}

func renderResults(results []types.ExecutionResult) string {
	t := table.NewWriter()
	t.SetTitle("CYCLE RESULTS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Symbol", "Action", "Status", "Detail"})
	for _, r := range results {
		t.AppendRow(table.Row{r.Symbol, r.Action, r.Status, resultDetail(r)})
	}
	return t.Render()
}

func resultDetail(r types.ExecutionResult) string {
	switch r.Status {
	case types.StatusSuccess:
		if r.Action == types.ActionClose {
			return fmt.Sprintf("order=%s pnl=%.2f", r.OrderID, r.RealizedPnL)
		}
		return fmt.Sprintf("order=%s fill=%.2f", r.OrderID, r.FillPrice)
	case types.StatusSkipped:
		return r.Reason
	case types.StatusRejected:
		return fmt.Sprintf("%s: %s", r.Rule, r.Detail)
	case types.StatusFailed:
		return r.Error
	}
	return ""
}

func summarize(results []types.ExecutionResult) string {
	counts := map[types.Status]int{}
	for _, r := range results {
		counts[r.Status]++
	}
	parts := make([]string, 0, 4)
	for _, s := range []types.Status{types.StatusSuccess, types.StatusSkipped, types.StatusRejected, types.StatusFailed} {
		if counts[s] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[s], strings.ToLower(string(s))))
		}
	}
	if len(parts) == 0 {
		return "no intents"
	}
	return strings.Join(parts, ", ")
}
