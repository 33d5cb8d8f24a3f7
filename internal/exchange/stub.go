package exchange

import (
	"context"

	"vibetrader/internal/logger"
	"vibetrader/internal/types"
)

// Stub is an inert backend: reads return empty state, writes log and report
// success without touching any venue. Useful for dry runs and for venues
// whose adapter is not wired yet.
type Stub struct{}

func NewStub() *Stub { return &Stub{} }

func (s *Stub) Name() string { return "stub" }

func (s *Stub) GetOpenPositions(ctx context.Context) ([]types.Position, error) {
	return nil, nil
}

func (s *Stub) GetAccountBalance(ctx context.Context) (types.Balance, error) {
	return types.Balance{}, nil
}

func (s *Stub) ExecuteOrder(ctx context.Context, intent types.Intent, currentPrice float64) (types.ExecutionResult, error) {
	logger.Infof("stub adapter: %s %s ignored", intent.Action, intent.Symbol)
	return types.Skipped(intent.Symbol, intent.Action, "stub_backend"), nil
}

func (s *Stub) ClosePosition(ctx context.Context, symbol string, exitPrice float64) (types.ExecutionResult, error) {
	logger.Infof("stub adapter: close %s ignored", symbol)
	return types.Skipped(symbol, types.ActionClose, "stub_backend"), nil
}
