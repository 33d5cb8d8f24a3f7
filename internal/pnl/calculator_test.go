package pnl

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vibetrader/internal/types"
)

func TestUnrealizedPnL(t *testing.T) {
	t.Run("long loss", func(t *testing.T) {
		got := UnrealizedPnL(108267.0, 107921.30, 0.10)
		assert.InDelta(t, -34.57, got, 0.01)
	})
	t.Run("short gain mirrors long loss", func(t *testing.T) {
		got := UnrealizedPnL(108267.0, 107921.30, -0.10)
		assert.InDelta(t, 34.57, got, 0.01)
	})
	t.Run("flat mark is zero", func(t *testing.T) {
		assert.Zero(t, UnrealizedPnL(50000, 50000, 1.5))
	})
}

func TestRealizedPnL(t *testing.T) {
	assert.InDelta(t, 500.0, RealizedPnL(100000, 101000, 0.5), 1e-9)
	assert.InDelta(t, -500.0, RealizedPnL(100000, 101000, -0.5), 1e-9)
}

func TestNotionalAndMargin(t *testing.T) {
	notional := Notional(-0.2, 100000)
	assert.InDelta(t, 20000.0, notional, 1e-9)
	assert.InDelta(t, 2000.0, Margin(notional, 10), 1e-9)
	assert.Zero(t, Margin(notional, 0))
}

func TestROIPct(t *testing.T) {
	assert.InDelta(t, 5.0, ROIPct(100, 2000), 1e-9)
	assert.Zero(t, ROIPct(100, 0))
}

func TestMaintenanceMargin(t *testing.T) {
	c := NewCalculator(nil, 0)

	rate, amount := c.MaintenanceMargin(10_000)
	assert.InDelta(t, 0.004, rate, 1e-9)
	assert.Zero(t, amount)

	rate, amount = c.MaintenanceMargin(100_000)
	assert.InDelta(t, 0.005, rate, 1e-9)
	assert.InDelta(t, 50.0, amount, 1e-9)

	// beyond every finite bracket the top tier applies
	rate, amount = c.MaintenanceMargin(200_000_000)
	assert.InDelta(t, 0.15, rate, 1e-9)
	assert.InDelta(t, 5_016_300.0, amount, 1e-9)
}

func TestBreakEvenPrice(t *testing.T) {
	c := NewCalculator(nil, 0.0008)
	assert.InDelta(t, 100080.0, c.BreakEvenPrice(100000, true), 1e-6)
	assert.InDelta(t, 99920.0, c.BreakEvenPrice(100000, false), 1e-6)
}

func TestLiquidationPrice(t *testing.T) {
	c := NewCalculator(nil, 0)

	t.Run("long sits below entry", func(t *testing.T) {
		// 0.1 BTC at 100k = 10k notional -> tier 1 (0.4%, no deduction)
		liq := c.LiquidationPrice(1000, 0.1, 100000)
		assert.InDelta(t, 1000/(0.1*(1-0.004)), liq, 1e-6)
		assert.Less(t, liq, 100000.0)
	})
	t.Run("short sits above wallet-per-unit", func(t *testing.T) {
		liq := c.LiquidationPrice(1000, -0.1, 100000)
		assert.InDelta(t, 1000/(0.1*(1+0.004)), liq, 1e-6)
	})
	t.Run("flat position has no liq price", func(t *testing.T) {
		assert.Zero(t, c.LiquidationPrice(1000, 0, 100000))
	})
}

func TestRecompute(t *testing.T) {
	c := NewCalculator(nil, 0.0008)

	t.Run("venue pnl trusted when nonzero", func(t *testing.T) {
		p := &types.Position{Symbol: "BTCUSDT", Quantity: 0.1, EntryPrice: 100000, MarkPrice: 101000, Leverage: 10, UnrealizedPnL: 42}
		c.Recompute(p, 50000)
		assert.InDelta(t, 42.0, p.UnrealizedPnL, 1e-9)
	})

	t.Run("zero pnl recomputed from prices", func(t *testing.T) {
		p := &types.Position{Symbol: "BTCUSDT", Quantity: 0.1, EntryPrice: 100000, MarkPrice: 101000, Leverage: 10}
		c.Recompute(p, 50000)
		assert.InDelta(t, 100.0, p.UnrealizedPnL, 1e-9)
		assert.InDelta(t, 10100.0, p.Notional, 1e-9)
		assert.InDelta(t, 1010.0, p.Margin, 1e-9)
		assert.InDelta(t, 100080.0, p.BreakEvenPrice, 1e-6)
	})

	t.Run("implausible liq keeps venue value", func(t *testing.T) {
		// Huge wallet pushes the computed long liq above entry; the
		// venue-reported figure must survive.
		p := &types.Position{Symbol: "BTCUSDT", Quantity: 0.1, EntryPrice: 100000, MarkPrice: 100000, Leverage: 10, LiquidationPrice: 91000}
		c.Recompute(p, 1_000_000)
		assert.InDelta(t, 91000.0, p.LiquidationPrice, 1e-9)
	})

	t.Run("plausible liq replaces venue value", func(t *testing.T) {
		p := &types.Position{Symbol: "BTCUSDT", Quantity: 0.1, EntryPrice: 100000, MarkPrice: 100000, Leverage: 10}
		c.Recompute(p, 1000)
		assert.Greater(t, p.LiquidationPrice, 0.0)
		assert.Less(t, p.LiquidationPrice, p.EntryPrice)
	})

	t.Run("flat position untouched", func(t *testing.T) {
		p := &types.Position{Symbol: "BTCUSDT"}
		c.Recompute(p, 1000)
		assert.Zero(t, p.Notional)
	})
}
