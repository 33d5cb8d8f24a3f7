package types

import "time"

// Status is the terminal outcome of handling one intent.
type Status string

const (
	StatusSuccess  Status = "SUCCESS"
	StatusSkipped  Status = "SKIPPED"
	StatusRejected Status = "REJECTED"
	StatusFailed   Status = "FAILED"
)

// Machine-readable skip reasons.
const (
	SkipHold         = "hold"
	SkipNoPosition   = "no_position"
	SkipPriceTooHigh = "price_too_high"
	SkipPriceTooLow  = "price_too_low"
)

// ExecutionResult is the terminal record of one intent. Exactly one of the
// variant field groups is meaningful, selected by Status: order fields for
// SUCCESS, Reason for SKIPPED, Rule/Detail for REJECTED, Error for FAILED.
// Results are recorded, never retried.
type ExecutionResult struct {
	Status Status `json:"status"`
	Symbol string `json:"symbol,omitempty"`
	Action Action `json:"action,omitempty"`

	OrderID     string    `json:"order_id,omitempty"`
	FillPrice   float64   `json:"fill_price,omitempty"`
	Position    *Position `json:"position,omitempty"` // resulting position, nil after a close
	RealizedPnL float64   `json:"realized_pnl,omitempty"`
	Fee         float64   `json:"fee,omitempty"`

	Reason string `json:"reason,omitempty"` // SKIPPED
	Rule   string `json:"rule,omitempty"`   // REJECTED
	Detail string `json:"detail,omitempty"` // REJECTED

	Error string `json:"error,omitempty"` // FAILED

	Timestamp time.Time `json:"timestamp"`
}

func Success(symbol string, action Action, orderID string, fillPrice float64, pos *Position) ExecutionResult {
	return ExecutionResult{
		Status:    StatusSuccess,
		Symbol:    symbol,
		Action:    action,
		OrderID:   orderID,
		FillPrice: fillPrice,
		Position:  pos,
		Timestamp: time.Now(),
	}
}

func Skipped(symbol string, action Action, reason string) ExecutionResult {
	return ExecutionResult{
		Status:    StatusSkipped,
		Symbol:    symbol,
		Action:    action,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

func Rejected(symbol string, action Action, rule, detail string) ExecutionResult {
	return ExecutionResult{
		Status:    StatusRejected,
		Symbol:    symbol,
		Action:    action,
		Rule:      rule,
		Detail:    detail,
		Timestamp: time.Now(),
	}
}

func Failed(symbol string, action Action, err error) ExecutionResult {
	r := ExecutionResult{
		Status:    StatusFailed,
		Symbol:    symbol,
		Action:    action,
		Timestamp: time.Now(),
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}
