package types

import "time"

// Action is the closed set of per-symbol directives the oracle may emit.
type Action string

const (
	ActionEnterLong  Action = "ENTER_LONG"
	ActionEnterShort Action = "ENTER_SHORT"
	ActionHold       Action = "HOLD"
	ActionClose      Action = "CLOSE"
)

func (a Action) Valid() bool {
	switch a {
	case ActionEnterLong, ActionEnterShort, ActionHold, ActionClose:
		return true
	}
	return false
}

// IsEntry reports whether the action opens a new position.
func (a Action) IsEntry() bool {
	return a == ActionEnterLong || a == ActionEnterShort
}

// Side returns "long" or "short" for entry actions, "" otherwise.
func (a Action) Side() string {
	switch a {
	case ActionEnterLong:
		return "long"
	case ActionEnterShort:
		return "short"
	}
	return ""
}

// ExitDirective is the exit contract attached to an entry intent: where to
// take profit, where to cut, and the condition under which the trade thesis
// is considered dead.
type ExitDirective struct {
	TakeProfit    float64 `json:"take_profit,omitempty"`
	StopLoss      float64 `json:"stop_loss"`
	Invalidation  string  `json:"invalidation_condition"`
	RiskBudgetUSD float64 `json:"risk_budget_usd,omitempty"`
}

// Intent is one typed trading directive for the current cycle. Immutable
// once parsed; at most one per symbol per cycle.
type Intent struct {
	Symbol       string         `json:"symbol"`
	Action       Action         `json:"action"`
	SizeFraction float64        `json:"size_fraction,omitempty"` // 0..1 of available balance
	Leverage     int            `json:"leverage,omitempty"`
	Confidence   float64        `json:"confidence"` // 0..1
	ExitPlan     *ExitDirective `json:"exit_plan,omitempty"`
	Rationale    string         `json:"rationale,omitempty"`

	// DecisionPrice is the market price observed when the intent was
	// formed. The slippage guard compares it against the price at
	// dispatch time.
	DecisionPrice float64 `json:"decision_price,omitempty"`
}

// BrokerOrderIDs tracks the venue-assigned identifiers for the entry order
// and its bracket orders. Empty strings until the venue reports them.
type BrokerOrderIDs struct {
	Entry  string `json:"entry,omitempty"`
	Stop   string `json:"stop,omitempty"`
	Target string `json:"target,omitempty"`
}

// ExitPlan is the stored exit contract for an open position. One per symbol,
// created on entry, amended by a later entry or by hold-time bracket updates,
// removed on close.
type ExitPlan struct {
	Symbol        string         `json:"symbol"`
	TakeProfit    float64        `json:"take_profit,omitempty"`
	StopLoss      float64        `json:"stop_loss"`
	Invalidation  string         `json:"invalidation_condition"`
	Leverage      int            `json:"leverage"`
	Confidence    float64        `json:"confidence"`
	RiskBudgetUSD float64        `json:"risk_budget_usd,omitempty"`
	Orders        BrokerOrderIDs `json:"broker_order_ids"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
