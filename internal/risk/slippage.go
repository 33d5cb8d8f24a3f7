package risk

import (
	"sync"

	"github.com/shopspring/decimal"

	"vibetrader/internal/logger"
	"vibetrader/internal/types"
)

// SlippageGuard blocks entries whose execution price has drifted against
// the direction of the trade since the decision was made. Favorable
// drift always passes: a long filling cheaper or a short filling richer
// is free money, not risk.
type SlippageGuard struct {
	mu      sync.RWMutex
	maxPct  float64
	enabled bool
}

func NewSlippageGuard(maxPct float64, enabled bool) *SlippageGuard {
	return &SlippageGuard{maxPct: maxPct, enabled: enabled}
}

func (s *SlippageGuard) SetLimit(maxPct float64, enabled bool) {
	s.mu.Lock()
	s.maxPct = maxPct
	s.enabled = enabled
	s.mu.Unlock()
}

// Check returns a non-empty skip reason when the entry should not fill.
// Drift exactly at the threshold passes; the comparison is done in
// decimal so the boundary is exact.
func (s *SlippageGuard) Check(action types.Action, decisionPrice, currentPrice float64) string {
	s.mu.RLock()
	maxPct, enabled := s.maxPct, s.enabled
	s.mu.RUnlock()

	if !enabled || !action.IsEntry() || decisionPrice <= 0 || currentPrice <= 0 {
		return ""
	}

	ref := decimal.NewFromFloat(decisionPrice)
	cur := decimal.NewFromFloat(currentPrice)
	drift := cur.Sub(ref).Div(ref)
	limit := decimal.NewFromFloat(maxPct)

	switch action {
	case types.ActionEnterLong:
		if drift.Cmp(limit) > 0 {
			s.logBlock(action, decisionPrice, currentPrice, drift)
			return types.SkipPriceTooHigh
		}
	case types.ActionEnterShort:
		if drift.Neg().Cmp(limit) > 0 {
			s.logBlock(action, decisionPrice, currentPrice, drift)
			return types.SkipPriceTooLow
		}
	}
	return ""
}

func (s *SlippageGuard) logBlock(action types.Action, decisionPrice, currentPrice float64, drift decimal.Decimal) {
	f, _ := drift.Float64()
	logger.Warnf("slippage guard: %s blocked, decision=%.2f current=%.2f drift=%.4f%%",
		action, decisionPrice, currentPrice, f*100)
}
