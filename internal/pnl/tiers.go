package pnl

import "math"

// DefaultTiers returns the USD-M BTC perpetual maintenance-margin brackets.
// Other symbols have their own tables; callers wanting per-symbol accuracy
// should inject the venue's published brackets through configuration.
func DefaultTiers() []MarginTier {
	return []MarginTier{
		{MaxNotional: 50_000, Rate: 0.004, Amount: 0},
		{MaxNotional: 250_000, Rate: 0.005, Amount: 50},
		{MaxNotional: 1_000_000, Rate: 0.01, Amount: 1_300},
		{MaxNotional: 10_000_000, Rate: 0.025, Amount: 16_300},
		{MaxNotional: 20_000_000, Rate: 0.05, Amount: 266_300},
		{MaxNotional: 50_000_000, Rate: 0.1, Amount: 1_266_300},
		{MaxNotional: 100_000_000, Rate: 0.125, Amount: 2_516_300},
		{MaxNotional: math.Inf(1), Rate: 0.15, Amount: 5_016_300},
	}
}
