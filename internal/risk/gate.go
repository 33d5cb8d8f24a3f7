// Package risk hosts the deterministic checks that stand between an
// intent and the venue: the rule gate and the slippage guard.
package risk

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"vibetrader/internal/config"
	"vibetrader/internal/logger"
	"vibetrader/internal/types"
)

// Rule identifiers reported on rejection.
const (
	RuleConfidenceFloor    = "confidence_floor"
	RuleSymbolNotAllowed   = "symbol_not_allowed"
	RuleSizeCeiling        = "size_ceiling"
	RulePositionLimit      = "position_limit"
	RuleExitPlanIncomplete = "exit_plan_incomplete"
	RuleStopLossSide       = "stop_loss_side"
)

// Verdict is the outcome of running an intent through the gate.
type Verdict struct {
	Allowed bool
	Rule    string
	Detail  string
}

func allow() Verdict { return Verdict{Allowed: true} }

func reject(rule, format string, args ...any) Verdict {
	return Verdict{Rule: rule, Detail: fmt.Sprintf(format, args...)}
}

// Gate evaluates entry intents against the configured limits. Rules run
// in a fixed order and the first violation wins; HOLD and CLOSE are never
// gated. Limits are swappable at runtime for config hot reload.
type Gate struct {
	mu     sync.RWMutex
	limits config.RiskConfig
}

func NewGate(limits config.RiskConfig) *Gate {
	return &Gate{limits: limits}
}

// SetLimits replaces the gate limits. Takes effect on the next Check.
func (g *Gate) SetLimits(limits config.RiskConfig) {
	g.mu.Lock()
	g.limits = limits
	g.mu.Unlock()
	logger.Infof("risk gate limits updated: min_confidence=%.2f max_size=%.2f max_positions=%d",
		limits.MinConfidence, limits.MaxPositionSizePct, limits.MaxOpenPositions)
}

// Check runs the intent through the rule chain. Values exactly at a
// limit pass: the limits are inclusive bounds, and float comparison at
// the boundary goes through decimals so 0.20 vs 0.20 is not a coin flip.
func (g *Gate) Check(intent types.Intent, snapshot *types.AccountSnapshot) Verdict {
	if !intent.Action.IsEntry() {
		return allow()
	}

	g.mu.RLock()
	limits := g.limits
	g.mu.RUnlock()

	if decimal.NewFromFloat(intent.Confidence).Cmp(decimal.NewFromFloat(limits.MinConfidence)) < 0 {
		return reject(RuleConfidenceFloor, "confidence %.2f below floor %.2f", intent.Confidence, limits.MinConfidence)
	}

	if len(limits.AllowedSymbols) > 0 && !contains(limits.AllowedSymbols, intent.Symbol) {
		return reject(RuleSymbolNotAllowed, "%s is not in the allowed symbol list", intent.Symbol)
	}

	if decimal.NewFromFloat(intent.SizeFraction).Cmp(decimal.NewFromFloat(limits.MaxPositionSizePct)) > 0 {
		return reject(RuleSizeCeiling, "size fraction %.3f exceeds ceiling %.3f", intent.SizeFraction, limits.MaxPositionSizePct)
	}

	// A reversal on an already-held symbol does not raise the count.
	if limits.MaxOpenPositions > 0 && snapshot != nil &&
		len(snapshot.Positions) >= limits.MaxOpenPositions &&
		snapshot.FindPosition(intent.Symbol) == nil {
		return reject(RulePositionLimit, "%d positions open, limit %d", len(snapshot.Positions), limits.MaxOpenPositions)
	}

	// Take profit is optional; a stop and an invalidation condition are not.
	plan := intent.ExitPlan
	if plan == nil || plan.StopLoss <= 0 || strings.TrimSpace(plan.Invalidation) == "" {
		return reject(RuleExitPlanIncomplete, "entry requires a stop_loss and an invalidation condition")
	}

	ref := intent.DecisionPrice
	if ref > 0 {
		switch intent.Action {
		case types.ActionEnterLong:
			if plan.StopLoss >= ref {
				return reject(RuleStopLossSide, "long stop %.2f must sit below price %.2f", plan.StopLoss, ref)
			}
		case types.ActionEnterShort:
			if plan.StopLoss <= ref {
				return reject(RuleStopLossSide, "short stop %.2f must sit above price %.2f", plan.StopLoss, ref)
			}
		}
	}

	return allow()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
