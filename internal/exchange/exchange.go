// Package exchange defines the common abstraction over trading venues.
// The execution engine drives a live exchange, a simulated one, or an inert
// stub through the same four primitives without changing its logic.
package exchange

import (
	"context"

	"vibetrader/internal/types"
)

// Adapter is implemented once per venue.
//
// ExecuteOrder and ClosePosition return a terminal ExecutionResult for
// venue-level outcomes; a non-nil error means the call itself failed
// (transport, auth, malformed response) and no order state should be
// assumed. Read calls may retry transient failures internally; order
// placement must never be retried.
type Adapter interface {
	Name() string

	GetOpenPositions(ctx context.Context) ([]types.Position, error)

	GetAccountBalance(ctx context.Context) (types.Balance, error)

	ExecuteOrder(ctx context.Context, intent types.Intent, currentPrice float64) (types.ExecutionResult, error)

	ClosePosition(ctx context.Context, symbol string, exitPrice float64) (types.ExecutionResult, error)
}
