package store

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"

	"vibetrader/internal/types"
)

type exitPlanModel struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	Symbol        string         `gorm:"column:symbol;uniqueIndex"`
	TakeProfit    float64        `gorm:"column:take_profit"`
	StopLoss      float64        `gorm:"column:stop_loss"`
	Invalidation  string         `gorm:"column:invalidation"`
	Leverage      int            `gorm:"column:leverage"`
	Confidence    float64        `gorm:"column:confidence"`
	RiskBudgetUSD float64        `gorm:"column:risk_budget_usd"`
	Orders        datatypes.JSON `gorm:"column:orders"`
	CreatedAtUnix int64          `gorm:"column:created_at"`
	UpdatedAtUnix int64          `gorm:"column:updated_at"`
}

func (exitPlanModel) TableName() string { return "exit_plans" }

func newExitPlanModel(plan types.ExitPlan) exitPlanModel {
	now := time.Now()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	ordersJSON, _ := json.Marshal(plan.Orders)
	return exitPlanModel{
		Symbol:        strings.ToUpper(strings.TrimSpace(plan.Symbol)),
		TakeProfit:    plan.TakeProfit,
		StopLoss:      plan.StopLoss,
		Invalidation:  strings.TrimSpace(plan.Invalidation),
		Leverage:      plan.Leverage,
		Confidence:    plan.Confidence,
		RiskBudgetUSD: plan.RiskBudgetUSD,
		Orders:        datatypes.JSON(ordersJSON),
		CreatedAtUnix: plan.CreatedAt.UnixMilli(),
		UpdatedAtUnix: now.UnixMilli(),
	}
}

func exitPlanModelToRecord(m exitPlanModel) types.ExitPlan {
	plan := types.ExitPlan{
		Symbol:        m.Symbol,
		TakeProfit:    m.TakeProfit,
		StopLoss:      m.StopLoss,
		Invalidation:  m.Invalidation,
		Leverage:      m.Leverage,
		Confidence:    m.Confidence,
		RiskBudgetUSD: m.RiskBudgetUSD,
		CreatedAt:     millisToTime(m.CreatedAtUnix),
		UpdatedAt:     millisToTime(m.UpdatedAtUnix),
	}
	if len(m.Orders) > 0 {
		_ = json.Unmarshal(m.Orders, &plan.Orders)
	}
	return plan
}

// CycleRecord is one ledger entry appended at the end of a cycle.
type CycleRecord struct {
	Time          time.Time `json:"time"`
	WalletBalance float64   `json:"wallet_balance"`
	UnrealizedPnL float64   `json:"unrealized_pnl"`
	RealizedPnL   float64   `json:"realized_pnl"`     // delta realized this cycle
	Fees          float64   `json:"fees"`             // delta fees this cycle
	Trades        int       `json:"trades"`           // orders filled this cycle
	Action        string    `json:"action,omitempty"` // fills this cycle, e.g. "ENTER_LONG BTCUSDT"
}

// DailyLedger is the per-day aggregate with its cycle history.
type DailyLedger struct {
	Date         string
	StartBalance float64
	EndBalance   float64
	RealizedPnL  float64
	Fees         float64
	TradeCount   int
	Cycles       []CycleRecord
	UpdatedAt    time.Time
}

type dailyLedgerModel struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	Date          string         `gorm:"column:date;uniqueIndex"` // YYYY-MM-DD
	StartBalance  float64        `gorm:"column:start_balance"`
	EndBalance    float64        `gorm:"column:end_balance"`
	RealizedPnL   float64        `gorm:"column:realized_pnl"`
	Fees          float64        `gorm:"column:fees"`
	TradeCount    int            `gorm:"column:trade_count"`
	Cycles        datatypes.JSON `gorm:"column:cycles"`
	UpdatedAtUnix int64          `gorm:"column:updated_at"`
}

func (dailyLedgerModel) TableName() string { return "daily_ledger" }

func dailyLedgerModelToRecord(m dailyLedgerModel) DailyLedger {
	rec := DailyLedger{
		Date:         m.Date,
		StartBalance: m.StartBalance,
		EndBalance:   m.EndBalance,
		RealizedPnL:  m.RealizedPnL,
		Fees:         m.Fees,
		TradeCount:   m.TradeCount,
		UpdatedAt:    millisToTime(m.UpdatedAtUnix),
	}
	if len(m.Cycles) > 0 {
		_ = json.Unmarshal(m.Cycles, &rec.Cycles)
	}
	return rec
}

func millisToTime(v int64) time.Time {
	if v <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(v)
}
