// Package store persists exit plans and the daily PnL ledger in SQLite.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	// Pure-Go sqlite driver, registered as "sqlite". Keeps the build
	// cgo-free.
	_ "modernc.org/sqlite"

	"vibetrader/internal/types"
)

// Store wraps Gorm + SQLite. Exit plans are keyed by symbol, the ledger
// by calendar date.
type Store struct {
	db *gorm.DB
}

func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("store: database path is required")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&exitPlanModel{}, &dailyLedgerModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: a little parallelism for HTTP reads, low lock contention.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// --------------------------- Exit Plans ------------------------------

// UpsertExitPlan inserts or replaces the plan for its symbol. The
// original creation time survives amendments.
func (s *Store) UpsertExitPlan(ctx context.Context, plan types.ExitPlan) error {
	if strings.TrimSpace(plan.Symbol) == "" {
		return fmt.Errorf("store: exit plan requires a symbol")
	}
	model := newExitPlanModel(plan)
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "symbol"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"take_profit":     gorm.Expr("excluded.take_profit"),
				"stop_loss":       gorm.Expr("excluded.stop_loss"),
				"invalidation":    gorm.Expr("excluded.invalidation"),
				"leverage":        gorm.Expr("excluded.leverage"),
				"confidence":      gorm.Expr("excluded.confidence"),
				"risk_budget_usd": gorm.Expr("excluded.risk_budget_usd"),
				"orders":          gorm.Expr("excluded.orders"),
				"updated_at":      gorm.Expr("excluded.updated_at"),
			}),
		}).
		Create(&model).Error
}

func (s *Store) GetExitPlan(ctx context.Context, symbol string) (types.ExitPlan, bool, error) {
	var model exitPlanModel
	err := s.db.WithContext(ctx).
		Where("symbol = ?", strings.ToUpper(strings.TrimSpace(symbol))).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.ExitPlan{}, false, nil
		}
		return types.ExitPlan{}, false, err
	}
	return exitPlanModelToRecord(model), true, nil
}

func (s *Store) ListExitPlans(ctx context.Context) ([]types.ExitPlan, error) {
	var models []exitPlanModel
	if err := s.db.WithContext(ctx).Order("symbol ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]types.ExitPlan, 0, len(models))
	for _, m := range models {
		out = append(out, exitPlanModelToRecord(m))
	}
	return out, nil
}

// EnrichedPosition joins a live position with its stored exit plan. Plan
// is nil when the symbol has no tracked plan.
type EnrichedPosition struct {
	types.Position
	Plan *types.ExitPlan `json:"exit_plan,omitempty"`
}

// EnrichPositions attaches stored exit plans to the given positions,
// matched by symbol.
func (s *Store) EnrichPositions(ctx context.Context, positions []types.Position) ([]EnrichedPosition, error) {
	plans, err := s.ListExitPlans(ctx)
	if err != nil {
		return nil, err
	}
	bySymbol := make(map[string]types.ExitPlan, len(plans))
	for _, p := range plans {
		bySymbol[p.Symbol] = p
	}
	out := make([]EnrichedPosition, 0, len(positions))
	for _, pos := range positions {
		enriched := EnrichedPosition{Position: pos}
		if plan, ok := bySymbol[strings.ToUpper(strings.TrimSpace(pos.Symbol))]; ok {
			plan := plan
			enriched.Plan = &plan
		}
		out = append(out, enriched)
	}
	return out, nil
}

// RemoveExitPlan deletes the plan for a symbol. Removing a missing plan
// is not an error.
func (s *Store) RemoveExitPlan(ctx context.Context, symbol string) error {
	return s.db.WithContext(ctx).
		Where("symbol = ?", strings.ToUpper(strings.TrimSpace(symbol))).
		Delete(&exitPlanModel{}).Error
}

// --------------------------- Daily Ledger ----------------------------

// RecordCycle appends a cycle entry to the ledger row for the given day,
// creating it with the cycle's balance as the day's start balance. The
// read-modify-write runs in one transaction.
func (s *Store) RecordCycle(ctx context.Context, date string, rec CycleRecord) error {
	if strings.TrimSpace(date) == "" {
		date = rec.Time.UTC().Format("2006-01-02")
	}
	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model dailyLedgerModel
		err := tx.Where("date = ?", date).First(&model).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			model = dailyLedgerModel{
				Date:         date,
				StartBalance: rec.WalletBalance,
			}
		} else if err != nil {
			return err
		}

		var cycles []CycleRecord
		if len(model.Cycles) > 0 {
			_ = json.Unmarshal(model.Cycles, &cycles)
		}
		cycles = append(cycles, rec)
		raw, err := json.Marshal(cycles)
		if err != nil {
			return err
		}

		model.EndBalance = rec.WalletBalance
		model.RealizedPnL += rec.RealizedPnL
		model.Fees += rec.Fees
		model.TradeCount += rec.Trades
		model.Cycles = datatypes.JSON(raw)
		model.UpdatedAtUnix = time.Now().UnixMilli()
		return tx.Save(&model).Error
	})
}

func (s *Store) GetDailyLedger(ctx context.Context, date string) (DailyLedger, bool, error) {
	var model dailyLedgerModel
	err := s.db.WithContext(ctx).Where("date = ?", date).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DailyLedger{}, false, nil
		}
		return DailyLedger{}, false, err
	}
	return dailyLedgerModelToRecord(model), true, nil
}

func (s *Store) ListDailyLedgers(ctx context.Context, limit int) ([]DailyLedger, error) {
	if limit <= 0 || limit > 365 {
		limit = 30
	}
	var models []dailyLedgerModel
	if err := s.db.WithContext(ctx).
		Order("date DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]DailyLedger, 0, len(models))
	for _, m := range models {
		out = append(out, dailyLedgerModelToRecord(m))
	}
	return out, nil
}
