// Package account maintains a short-lived snapshot of venue state so a
// decision cycle sees one consistent view instead of racing reads.
package account

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"vibetrader/internal/exchange"
	"vibetrader/internal/types"
)

// Cache serves account snapshots with a TTL. Concurrent refreshes of a
// stale snapshot collapse into one venue round-trip.
type Cache struct {
	adapter exchange.Adapter
	ttl     time.Duration
	now     func() time.Time

	group singleflight.Group

	mu       sync.RWMutex
	snapshot *types.AccountSnapshot
}

func NewCache(adapter exchange.Adapter, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Second
	}
	return &Cache{adapter: adapter, ttl: ttl, now: time.Now}
}

// Get returns the cached snapshot, refreshing it first when stale. A
// refresh failure returns the error; it never falls back to stale data.
func (c *Cache) Get(ctx context.Context) (*types.AccountSnapshot, error) {
	c.mu.RLock()
	snap := c.snapshot
	c.mu.RUnlock()
	if snap != nil && c.now().Sub(snap.FetchedAt) < c.ttl {
		return snap, nil
	}
	return c.Refresh(ctx)
}

// Refresh fetches a fresh snapshot unconditionally and replaces the
// cached one. Callers at cycle start use this so every decision in the
// cycle shares a single snapshot.
func (c *Cache) Refresh(ctx context.Context) (*types.AccountSnapshot, error) {
	v, err, _ := c.group.Do("snapshot", func() (interface{}, error) {
		balance, err := c.adapter.GetAccountBalance(ctx)
		if err != nil {
			return nil, err
		}
		positions, err := c.adapter.GetOpenPositions(ctx)
		if err != nil {
			return nil, err
		}
		snap := &types.AccountSnapshot{
			Balance:   balance,
			Positions: positions,
			FetchedAt: c.now(),
		}
		c.mu.Lock()
		c.snapshot = snap
		c.mu.Unlock()
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.AccountSnapshot), nil
}

// Invalidate drops the cached snapshot so the next Get refetches. Called
// after any order mutates venue state.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.snapshot = nil
	c.mu.Unlock()
}
