package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vibetrader/internal/types"
)

type MockAdapter struct {
	mock.Mock
}

func (m *MockAdapter) Name() string { return "mock" }

func (m *MockAdapter) GetOpenPositions(ctx context.Context) ([]types.Position, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Position), args.Error(1)
}

func (m *MockAdapter) GetAccountBalance(ctx context.Context) (types.Balance, error) {
	args := m.Called(ctx)
	return args.Get(0).(types.Balance), args.Error(1)
}

func (m *MockAdapter) ExecuteOrder(ctx context.Context, intent types.Intent, price float64) (types.ExecutionResult, error) {
	args := m.Called(ctx, intent, price)
	return args.Get(0).(types.ExecutionResult), args.Error(1)
}

func (m *MockAdapter) ClosePosition(ctx context.Context, symbol string, price float64) (types.ExecutionResult, error) {
	args := m.Called(ctx, symbol, price)
	return args.Get(0).(types.ExecutionResult), args.Error(1)
}

func TestCacheGetServesFreshSnapshot(t *testing.T) {
	adapter := new(MockAdapter)
	adapter.On("GetAccountBalance", mock.Anything).Return(types.Balance{Wallet: 10000}, nil).Once()
	adapter.On("GetOpenPositions", mock.Anything).Return([]types.Position{}, nil).Once()

	c := NewCache(adapter, time.Second)
	now := time.Now()
	c.now = func() time.Time { return now }

	first, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 10000.0, first.Balance.Wallet, 1e-9)

	// within TTL the same snapshot comes back without venue calls
	now = now.Add(500 * time.Millisecond)
	second, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
	adapter.AssertExpectations(t)
}

func TestCacheGetRefreshesWhenStale(t *testing.T) {
	adapter := new(MockAdapter)
	adapter.On("GetAccountBalance", mock.Anything).Return(types.Balance{Wallet: 10000}, nil).Twice()
	adapter.On("GetOpenPositions", mock.Anything).Return([]types.Position{}, nil).Twice()

	c := NewCache(adapter, time.Second)
	now := time.Now()
	c.now = func() time.Time { return now }

	first, err := c.Get(context.Background())
	require.NoError(t, err)

	now = now.Add(1500 * time.Millisecond)
	second, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	adapter.AssertExpectations(t)
}

func TestCacheRefreshAlwaysFetches(t *testing.T) {
	adapter := new(MockAdapter)
	adapter.On("GetAccountBalance", mock.Anything).Return(types.Balance{Wallet: 10000}, nil).Twice()
	adapter.On("GetOpenPositions", mock.Anything).Return([]types.Position{}, nil).Twice()

	c := NewCache(adapter, time.Hour)
	_, err := c.Refresh(context.Background())
	require.NoError(t, err)
	_, err = c.Refresh(context.Background())
	require.NoError(t, err)
	adapter.AssertExpectations(t)
}

func TestCacheInvalidateForcesRefetch(t *testing.T) {
	adapter := new(MockAdapter)
	adapter.On("GetAccountBalance", mock.Anything).Return(types.Balance{Wallet: 10000}, nil).Twice()
	adapter.On("GetOpenPositions", mock.Anything).Return([]types.Position{}, nil).Twice()

	c := NewCache(adapter, time.Hour)
	_, err := c.Get(context.Background())
	require.NoError(t, err)

	c.Invalidate()
	_, err = c.Get(context.Background())
	require.NoError(t, err)
	adapter.AssertExpectations(t)
}

func TestCacheRefreshErrorPropagates(t *testing.T) {
	adapter := new(MockAdapter)
	fetchErr := errors.New("venue unreachable")
	adapter.On("GetAccountBalance", mock.Anything).Return(types.Balance{}, fetchErr)

	c := NewCache(adapter, time.Second)
	_, err := c.Get(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, fetchErr)
}

func TestCachePositionsErrorPropagates(t *testing.T) {
	adapter := new(MockAdapter)
	adapter.On("GetAccountBalance", mock.Anything).Return(types.Balance{Wallet: 10000}, nil)
	adapter.On("GetOpenPositions", mock.Anything).Return(nil, errors.New("position fetch failed"))

	c := NewCache(adapter, time.Second)
	_, err := c.Get(context.Background())
	require.Error(t, err)
}
