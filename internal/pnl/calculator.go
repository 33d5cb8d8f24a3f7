// Package pnl derives risk and performance metrics from raw position fields.
// Everything here is a pure computation; no I/O, no venue calls.
package pnl

import (
	"math"

	"vibetrader/internal/types"
)

// MarginTier is one maintenance-margin bracket: positions whose notional
// value is at most MaxNotional use Rate and the fixed Amount deduction.
type MarginTier struct {
	MaxNotional float64
	Rate        float64
	Amount      float64
}

// Calculator computes derived position metrics against an injected
// maintenance-margin tier table. The table is venue data and may only
// approximate the venue's displayed liquidation price.
type Calculator struct {
	tiers        []MarginTier
	feeRoundTrip float64 // combined entry+exit fee rate for break-even
}

func NewCalculator(tiers []MarginTier, feeRoundTrip float64) *Calculator {
	if len(tiers) == 0 {
		tiers = DefaultTiers()
	}
	if feeRoundTrip <= 0 {
		feeRoundTrip = 0.0008
	}
	return &Calculator{tiers: tiers, feeRoundTrip: feeRoundTrip}
}

// UnrealizedPnL computes (mark - entry) * quantity. The sign of quantity
// already encodes the side, so no branch on long/short is needed.
func UnrealizedPnL(entryPrice, markPrice, signedQty float64) float64 {
	return (markPrice - entryPrice) * signedQty
}

// RealizedPnL computes the realized profit of a full close at exitPrice.
func RealizedPnL(entryPrice, exitPrice, signedQty float64) float64 {
	return (exitPrice - entryPrice) * signedQty
}

// Notional returns the absolute position value at the mark price.
func Notional(signedQty, markPrice float64) float64 {
	return math.Abs(signedQty) * markPrice
}

// Margin returns the initial margin locked by a position.
func Margin(notional float64, leverage int) float64 {
	if leverage <= 0 {
		return 0
	}
	return notional / float64(leverage)
}

// ROIPct returns unrealized PnL as a percentage of locked margin.
func ROIPct(unrealizedPnL, margin float64) float64 {
	if margin <= 0 {
		return 0
	}
	return unrealizedPnL / margin * 100
}

// MaintenanceMargin looks up the tier for the given notional value.
func (c *Calculator) MaintenanceMargin(notional float64) (rate, amount float64) {
	for _, tier := range c.tiers {
		if notional <= tier.MaxNotional {
			return tier.Rate, tier.Amount
		}
	}
	last := c.tiers[len(c.tiers)-1]
	return last.Rate, last.Amount
}

// BreakEvenPrice returns the price at which a round trip nets zero after
// fees: entry * (1 + fee) for longs, entry * (1 - fee) for shorts.
func (c *Calculator) BreakEvenPrice(entryPrice float64, long bool) float64 {
	if long {
		return entryPrice * (1 + c.feeRoundTrip)
	}
	return entryPrice * (1 - c.feeRoundTrip)
}

// LiquidationPrice approximates the cross-margin liquidation price:
//
//	long:  (wallet - maintAmount) / (qty * (1 - mmr))
//	short: (wallet + maintAmount) / (|qty| * (1 + mmr))
//
// Returns 0 when the position is flat or the denominator degenerates.
func (c *Calculator) LiquidationPrice(walletBalance, signedQty, markPrice float64) float64 {
	qty := math.Abs(signedQty)
	if qty == 0 {
		return 0
	}
	mmr, amount := c.MaintenanceMargin(Notional(signedQty, markPrice))
	if signedQty > 0 {
		den := qty * (1 - mmr)
		if den <= 0 {
			return 0
		}
		return (walletBalance - amount) / den
	}
	den := qty * (1 + mmr)
	if den <= 0 {
		return 0
	}
	return (walletBalance + amount) / den
}

// Recompute fills the derived fields of a venue-reported position.
//
// The venue's unrealized PnL is trusted unless it reads exactly zero while
// entry price, mark price and quantity are all nonzero - some account modes
// under-report the field, and a locally computed value beats a wrong zero.
// A computed liquidation price that lands on the wrong side of the entry
// price is discarded in favor of whatever the venue reported.
func (c *Calculator) Recompute(p *types.Position, walletBalance float64) {
	if p == nil || p.Quantity == 0 {
		return
	}
	if p.UnrealizedPnL == 0 && p.EntryPrice > 0 && p.MarkPrice > 0 {
		p.UnrealizedPnL = UnrealizedPnL(p.EntryPrice, p.MarkPrice, p.Quantity)
	}
	p.Notional = Notional(p.Quantity, p.MarkPrice)
	p.Margin = Margin(p.Notional, p.Leverage)
	p.ROIPct = ROIPct(p.UnrealizedPnL, p.Margin)
	p.BreakEvenPrice = c.BreakEvenPrice(p.EntryPrice, p.IsLong())

	liq := c.LiquidationPrice(walletBalance, p.Quantity, p.MarkPrice)
	if liq > 0 && liqPlausible(liq, p) {
		p.LiquidationPrice = liq
	}
}

func liqPlausible(liq float64, p *types.Position) bool {
	if p.EntryPrice <= 0 {
		return true
	}
	if p.IsLong() {
		return liq < p.EntryPrice
	}
	return liq > p.EntryPrice
}
