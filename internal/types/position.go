package types

import (
	"math"
	"time"
)

// Position is a live position as reported by the venue. The quantity carries
// the side in its sign: positive for long, negative for short. Positions are
// transient - re-read every cycle, never persisted by the core.
type Position struct {
	Symbol           string  `json:"symbol"`
	Quantity         float64 `json:"quantity"` // signed
	EntryPrice       float64 `json:"entry_price"`
	MarkPrice        float64 `json:"mark_price"`
	Leverage         int     `json:"leverage"`
	UnrealizedPnL    float64 `json:"unrealized_pnl"`
	LiquidationPrice float64 `json:"liquidation_price"`
	Margin           float64 `json:"margin"`
	Notional         float64 `json:"notional"`
	ROIPct           float64 `json:"roi_pct"`
	BreakEvenPrice   float64 `json:"break_even_price,omitempty"`
}

func (p Position) IsLong() bool  { return p.Quantity > 0 }
func (p Position) IsShort() bool { return p.Quantity < 0 }

// Side returns "long" or "short"; a flat position returns "".
func (p Position) Side() string {
	switch {
	case p.Quantity > 0:
		return "long"
	case p.Quantity < 0:
		return "short"
	}
	return ""
}

// AbsQuantity returns the unsigned position size.
func (p Position) AbsQuantity() float64 { return math.Abs(p.Quantity) }

// Balance is a point-in-time account balance reading.
type Balance struct {
	Wallet    float64 `json:"wallet_balance"`    // principal, excl. unrealized PnL
	Margin    float64 `json:"margin_balance"`    // wallet + unrealized PnL
	Available float64 `json:"available_balance"` // free for new orders
}

// AccountSnapshot is the single authoritative view of the account within one
// decision cycle. All consumers of account state in a cycle must reason from
// the same snapshot.
type AccountSnapshot struct {
	Balance   Balance    `json:"balance"`
	Positions []Position `json:"positions"`
	FetchedAt time.Time  `json:"fetched_at"`
}

// FindPosition returns the open position for symbol, or nil.
func (s *AccountSnapshot) FindPosition(symbol string) *Position {
	if s == nil {
		return nil
	}
	for i := range s.Positions {
		if s.Positions[i].Symbol == symbol {
			return &s.Positions[i]
		}
	}
	return nil
}

// TotalUnrealizedPnL sums unrealized PnL across open positions.
func (s *AccountSnapshot) TotalUnrealizedPnL() float64 {
	if s == nil {
		return 0
	}
	var total float64
	for _, p := range s.Positions {
		total += p.UnrealizedPnL
	}
	return total
}
