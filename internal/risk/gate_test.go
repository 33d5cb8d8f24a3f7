package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vibetrader/internal/config"
	"vibetrader/internal/types"
)

func testLimits() config.RiskConfig {
	return config.RiskConfig{
		MinConfidence:      0.75,
		MaxPositionSizePct: 0.20,
		MaxOpenPositions:   3,
		AllowedSymbols:     []string{"BTCUSDT", "ETHUSDT"},
	}
}

func entryIntent() types.Intent {
	return types.Intent{
		Symbol:        "BTCUSDT",
		Action:        types.ActionEnterLong,
		SizeFraction:  0.10,
		Leverage:      10,
		Confidence:    0.80,
		DecisionPrice: 100000,
		ExitPlan:      &types.ExitDirective{TakeProfit: 105000, StopLoss: 98000, Invalidation: "4h close below 98k"},
	}
}

func snapshotWith(symbols ...string) *types.AccountSnapshot {
	snap := &types.AccountSnapshot{Balance: types.Balance{Wallet: 10000, Available: 8000}}
	for _, s := range symbols {
		snap.Positions = append(snap.Positions, types.Position{Symbol: s, Quantity: 0.1, EntryPrice: 100000, MarkPrice: 100000})
	}
	return snap
}

func TestGateHoldAndCloseNeverGated(t *testing.T) {
	g := NewGate(testLimits())
	for _, action := range []types.Action{types.ActionHold, types.ActionClose} {
		intent := types.Intent{Symbol: "DOGEUSDT", Action: action, Confidence: 0.01}
		v := g.Check(intent, snapshotWith())
		assert.True(t, v.Allowed, "action %s", action)
	}
}

func TestGateConfidenceFloor(t *testing.T) {
	g := NewGate(testLimits())

	t.Run("below floor rejected", func(t *testing.T) {
		intent := entryIntent()
		intent.Confidence = 0.60
		v := g.Check(intent, snapshotWith())
		assert.False(t, v.Allowed)
		assert.Equal(t, RuleConfidenceFloor, v.Rule)
	})
	t.Run("exactly at floor passes", func(t *testing.T) {
		intent := entryIntent()
		intent.Confidence = 0.75
		v := g.Check(intent, snapshotWith())
		assert.True(t, v.Allowed)
	})
}

func TestGateSymbolNotAllowed(t *testing.T) {
	g := NewGate(testLimits())
	intent := entryIntent()
	intent.Symbol = "DOGEUSDT"
	v := g.Check(intent, snapshotWith())
	assert.False(t, v.Allowed)
	assert.Equal(t, RuleSymbolNotAllowed, v.Rule)
}

func TestGateSizeCeiling(t *testing.T) {
	g := NewGate(testLimits())

	t.Run("over ceiling rejected", func(t *testing.T) {
		intent := entryIntent()
		intent.SizeFraction = 0.25
		v := g.Check(intent, snapshotWith())
		assert.False(t, v.Allowed)
		assert.Equal(t, RuleSizeCeiling, v.Rule)
	})
	t.Run("exactly at ceiling passes", func(t *testing.T) {
		intent := entryIntent()
		intent.SizeFraction = 0.20
		v := g.Check(intent, snapshotWith())
		assert.True(t, v.Allowed)
	})
}

func TestGatePositionLimit(t *testing.T) {
	g := NewGate(testLimits())

	t.Run("at limit new symbol rejected", func(t *testing.T) {
		v := g.Check(entryIntent(), snapshotWith("ETHUSDT", "SOLUSDT", "XRPUSDT"))
		assert.False(t, v.Allowed)
		assert.Equal(t, RulePositionLimit, v.Rule)
	})
	t.Run("reversal on held symbol allowed", func(t *testing.T) {
		v := g.Check(entryIntent(), snapshotWith("BTCUSDT", "ETHUSDT", "SOLUSDT"))
		assert.True(t, v.Allowed)
	})
	t.Run("under limit allowed", func(t *testing.T) {
		v := g.Check(entryIntent(), snapshotWith("ETHUSDT"))
		assert.True(t, v.Allowed)
	})
}

func TestGateExitPlanIncomplete(t *testing.T) {
	g := NewGate(testLimits())

	cases := []struct {
		name string
		plan *types.ExitDirective
	}{
		{"missing plan", nil},
		{"missing stop", &types.ExitDirective{TakeProfit: 105000, Invalidation: "thesis dead"}},
		{"missing invalidation", &types.ExitDirective{TakeProfit: 105000, StopLoss: 98000}},
		{"blank invalidation", &types.ExitDirective{StopLoss: 98000, Invalidation: "   "}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			intent := entryIntent()
			intent.ExitPlan = tc.plan
			v := g.Check(intent, snapshotWith())
			assert.False(t, v.Allowed)
			assert.Equal(t, RuleExitPlanIncomplete, v.Rule)
		})
	}

	t.Run("stop and invalidation without take profit passes", func(t *testing.T) {
		intent := entryIntent()
		intent.ExitPlan = &types.ExitDirective{StopLoss: 98000, Invalidation: "4h close below 98k"}
		v := g.Check(intent, snapshotWith())
		assert.True(t, v.Allowed)
	})
}

func TestGateStopLossSide(t *testing.T) {
	g := NewGate(testLimits())

	t.Run("long stop above price rejected", func(t *testing.T) {
		intent := entryIntent()
		intent.ExitPlan.StopLoss = 101000
		v := g.Check(intent, snapshotWith())
		assert.False(t, v.Allowed)
		assert.Equal(t, RuleStopLossSide, v.Rule)
	})
	t.Run("short stop below price rejected", func(t *testing.T) {
		intent := entryIntent()
		intent.Action = types.ActionEnterShort
		intent.ExitPlan = &types.ExitDirective{TakeProfit: 95000, StopLoss: 99000, Invalidation: "breakout holds"}
		v := g.Check(intent, snapshotWith())
		assert.False(t, v.Allowed)
		assert.Equal(t, RuleStopLossSide, v.Rule)
	})
	t.Run("short stop above price passes", func(t *testing.T) {
		intent := entryIntent()
		intent.Action = types.ActionEnterShort
		intent.ExitPlan = &types.ExitDirective{TakeProfit: 95000, StopLoss: 102000, Invalidation: "breakout holds"}
		v := g.Check(intent, snapshotWith())
		assert.True(t, v.Allowed)
	})
	t.Run("no decision price skips the side check", func(t *testing.T) {
		intent := entryIntent()
		intent.DecisionPrice = 0
		intent.ExitPlan.StopLoss = 101000
		v := g.Check(intent, snapshotWith())
		assert.True(t, v.Allowed)
	})
}

func TestGateRuleOrder(t *testing.T) {
	// An intent violating several rules reports the first one.
	g := NewGate(testLimits())
	intent := entryIntent()
	intent.Confidence = 0.10
	intent.Symbol = "DOGEUSDT"
	intent.SizeFraction = 0.90
	intent.ExitPlan = nil
	v := g.Check(intent, snapshotWith())
	assert.Equal(t, RuleConfidenceFloor, v.Rule)
}

func TestGateSetLimits(t *testing.T) {
	g := NewGate(testLimits())
	intent := entryIntent()
	intent.Confidence = 0.60
	assert.False(t, g.Check(intent, snapshotWith()).Allowed)

	limits := testLimits()
	limits.MinConfidence = 0.50
	g.SetLimits(limits)
	assert.True(t, g.Check(intent, snapshotWith()).Allowed)
}
