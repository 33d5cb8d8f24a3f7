package paper

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibetrader/internal/config"
	"vibetrader/internal/exchange"
	"vibetrader/internal/types"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	a, err := New(config.PaperConfig{
		InitialBalance: 10000,
		Leverage:       10,
		TakerFee:       0.0004,
		StatePath:      filepath.Join(t.TempDir(), "state.json"),
	}, nil)
	require.NoError(t, err)
	return a
}

func longIntent() types.Intent {
	return types.Intent{
		Symbol:       "BTCUSDT",
		Action:       types.ActionEnterLong,
		SizeFraction: 0.10,
		Leverage:     10,
		Confidence:   0.80,
	}
}

func TestExecuteOrderOpensLong(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	res, err := a.ExecuteOrder(ctx, longIntent(), 100000)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuccess, res.Status)
	assert.NotEmpty(t, res.OrderID)
	require.NotNil(t, res.Position)
	assert.InDelta(t, 0.10, res.Position.Quantity, 1e-9) // 10000*0.1*10/100000
	assert.InDelta(t, 100000.0, res.Position.EntryPrice, 1e-9)

	// notional 10000, margin 1000, fee 4
	bal, err := a.GetAccountBalance(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 10000-1000-4, bal.Available, 1e-9)
	assert.InDelta(t, 10000-4, bal.Wallet, 1e-9)
}

func TestExecuteOrderShortHasNegativeQuantity(t *testing.T) {
	a := newTestAdapter(t)
	intent := longIntent()
	intent.Action = types.ActionEnterShort

	res, err := a.ExecuteOrder(context.Background(), intent, 100000)
	require.NoError(t, err)
	require.NotNil(t, res.Position)
	assert.Negative(t, res.Position.Quantity)
	assert.True(t, res.Position.IsShort())
}

func TestExecuteOrderHoldSkips(t *testing.T) {
	a := newTestAdapter(t)
	intent := types.Intent{Symbol: "BTCUSDT", Action: types.ActionHold}
	res, err := a.ExecuteOrder(context.Background(), intent, 100000)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSkipped, res.Status)
	assert.Equal(t, types.SkipHold, res.Reason)
}

func TestExecuteOrderInsufficientBalance(t *testing.T) {
	a := newTestAdapter(t)
	intent := longIntent()
	intent.SizeFraction = 1.0
	intent.Leverage = 100 // margin 10000 + fee busts the account

	_, err := a.ExecuteOrder(context.Background(), intent, 100000)
	require.Error(t, err)
	assert.True(t, exchange.IsOrderError(err))
}

func TestClosePositionRealizesPnL(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	_, err := a.ExecuteOrder(ctx, longIntent(), 100000)
	require.NoError(t, err)

	res, err := a.ClosePosition(ctx, "BTCUSDT", 101000)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuccess, res.Status)
	assert.InDelta(t, 100.0, res.RealizedPnL, 1e-9) // (101000-100000)*0.1

	positions, err := a.GetOpenPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, positions)

	stats := a.Statistics()
	assert.Equal(t, 1, stats.WinningTrades)
	assert.Equal(t, 0, stats.OpenPositions)
	assert.Greater(t, stats.RealizedPnL, 0.0)
}

func TestClosePositionWithoutPositionSkips(t *testing.T) {
	a := newTestAdapter(t)
	res, err := a.ClosePosition(context.Background(), "BTCUSDT", 100000)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSkipped, res.Status)
	assert.Equal(t, types.SkipNoPosition, res.Reason)
}

func TestEntryOnOccupiedSymbolReverses(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	_, err := a.ExecuteOrder(ctx, longIntent(), 100000)
	require.NoError(t, err)

	short := longIntent()
	short.Action = types.ActionEnterShort
	res, err := a.ExecuteOrder(ctx, short, 101000)
	require.NoError(t, err)
	require.NotNil(t, res.Position)
	assert.True(t, res.Position.IsShort())

	// The flattened long's PnL and fee ride on the entry result.
	// close: (101000-100000)*0.1 = 100, fee 10100*0.0004 = 4.04
	// entry: balance 10091.96, notional 10091.96, fee 4.036784
	assert.InDelta(t, 100.0, res.RealizedPnL, 1e-9)
	assert.InDelta(t, 4.04+4.036784, res.Fee, 1e-6)

	positions, err := a.GetOpenPositions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.True(t, positions[0].IsShort())
}

func TestUpdateMarkPriceMovesUnrealized(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	_, err := a.ExecuteOrder(ctx, longIntent(), 100000)
	require.NoError(t, err)

	a.UpdateMarkPrice("BTCUSDT", 102000)
	positions, err := a.GetOpenPositions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.InDelta(t, 200.0, positions[0].UnrealizedPnL, 1e-9)

	price, err := a.LastPrice(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.InDelta(t, 102000.0, price, 1e-9)
}

func TestStateSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	statePath := filepath.Join(t.TempDir(), "state.json")
	cfg := config.PaperConfig{InitialBalance: 10000, Leverage: 10, TakerFee: 0.0004, StatePath: statePath}

	a, err := New(cfg, nil)
	require.NoError(t, err)
	_, err = a.ExecuteOrder(ctx, longIntent(), 100000)
	require.NoError(t, err)
	balBefore, err := a.GetAccountBalance(ctx)
	require.NoError(t, err)

	b, err := New(cfg, nil)
	require.NoError(t, err)
	positions, err := b.GetOpenPositions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "BTCUSDT", positions[0].Symbol)

	balAfter, err := b.GetAccountBalance(ctx)
	require.NoError(t, err)
	assert.InDelta(t, balBefore.Available, balAfter.Available, 1e-9)
}
