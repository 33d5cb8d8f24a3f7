// Package paper implements a deterministic simulated futures venue with
// margin and fee accounting. Orders fill instantly at the submitted price;
// account state survives restarts through a JSON state file.
package paper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"vibetrader/internal/config"
	"vibetrader/internal/exchange"
	"vibetrader/internal/logger"
	"vibetrader/internal/pnl"
	"vibetrader/internal/types"
)

type position struct {
	Symbol     string    `json:"symbol"`
	Quantity   float64   `json:"quantity"` // signed
	EntryPrice float64   `json:"entry_price"`
	MarkPrice  float64   `json:"mark_price"`
	Leverage   int       `json:"leverage"`
	Margin     float64   `json:"margin"`
	OpenedAt   time.Time `json:"opened_at"`
}

type order struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"` // BUY or SELL
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"`
	Fee       float64   `json:"fee"`
	Reduce    bool      `json:"reduce_only,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Statistics aggregates the simulated account's trading history.
type Statistics struct {
	InitialBalance   float64 `json:"initial_balance"`
	AvailableBalance float64 `json:"available_balance"`
	Equity           float64 `json:"equity"`
	TotalReturnPct   float64 `json:"total_return_pct"`
	TotalTrades      int     `json:"total_trades"`
	WinningTrades    int     `json:"winning_trades"`
	LosingTrades     int     `json:"losing_trades"`
	RealizedPnL      float64 `json:"realized_pnl"`
	TotalFees        float64 `json:"total_fees"`
	OpenPositions    int     `json:"open_positions"`
}

// Adapter is the simulated venue. Safe for concurrent use; the engine is
// the only writer but HTTP readers may query concurrently.
type Adapter struct {
	mu sync.Mutex

	initialBalance float64
	balance        float64 // free balance, margin and fees already deducted
	leverage       int
	takerFee       float64
	statePath      string

	calc      *pnl.Calculator
	positions map[string]*position
	orders    []order

	totalTrades int
	wins        int
	losses      int
	realized    float64
	fees        float64
}

func New(cfg config.PaperConfig, calc *pnl.Calculator) (*Adapter, error) {
	if calc == nil {
		calc = pnl.NewCalculator(nil, 0)
	}
	a := &Adapter{
		initialBalance: cfg.InitialBalance,
		balance:        cfg.InitialBalance,
		leverage:       cfg.Leverage,
		takerFee:       cfg.TakerFee,
		statePath:      cfg.StatePath,
		calc:           calc,
		positions:      make(map[string]*position),
	}
	if a.leverage <= 0 {
		a.leverage = 10
	}
	if a.takerFee <= 0 {
		a.takerFee = 0.0004
	}
	if err := a.loadState(); err != nil {
		logger.Warnf("paper: state restore failed, starting fresh: %v", err)
	}
	return a, nil
}

func (a *Adapter) Name() string { return "paper" }

func (a *Adapter) GetOpenPositions(ctx context.Context) ([]types.Position, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	wallet := a.walletLocked()
	out := make([]types.Position, 0, len(a.positions))
	for _, p := range a.positions {
		out = append(out, a.exportLocked(p, wallet))
	}
	return out, nil
}

func (a *Adapter) GetAccountBalance(ctx context.Context) (types.Balance, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	wallet := a.walletLocked()
	return types.Balance{
		Wallet:    wallet,
		Margin:    wallet + a.unrealizedLocked(),
		Available: a.balance,
	}, nil
}

// UpdateMarkPrice moves the simulated mark price for symbol. Implements the
// optional price-feed hook the engine probes for.
func (a *Adapter) UpdateMarkPrice(symbol string, price float64) {
	if price <= 0 {
		return
	}
	a.mu.Lock()
	if p, ok := a.positions[symbol]; ok {
		p.MarkPrice = price
	}
	a.mu.Unlock()
}

// LastPrice reports the simulated mark price for symbol, zero when the
// venue has never seen it.
func (a *Adapter) LastPrice(ctx context.Context, symbol string) (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if p, ok := a.positions[symbol]; ok {
		return p.MarkPrice, nil
	}
	return 0, nil
}

func (a *Adapter) ExecuteOrder(ctx context.Context, intent types.Intent, currentPrice float64) (types.ExecutionResult, error) {
	switch intent.Action {
	case types.ActionHold:
		return types.Skipped(intent.Symbol, intent.Action, types.SkipHold), nil
	case types.ActionClose:
		return a.ClosePosition(ctx, intent.Symbol, currentPrice)
	case types.ActionEnterLong, types.ActionEnterShort:
	default:
		return types.ExecutionResult{}, &exchange.OrderError{Symbol: intent.Symbol, Reason: fmt.Sprintf("unsupported action %q", intent.Action)}
	}
	if currentPrice <= 0 {
		return types.ExecutionResult{}, &exchange.OrderError{Symbol: intent.Symbol, Reason: "invalid price"}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// One position per symbol: an entry on an occupied symbol flattens it
	// first, regardless of side. The flattened leg's realized PnL and fee
	// ride on the entry result so the ledger sees them.
	var reversalPnL, reversalFee float64
	if prev, ok := a.positions[intent.Symbol]; ok {
		flat, err := a.closeLocked(intent.Symbol, currentPrice)
		if err != nil {
			return types.ExecutionResult{}, err
		}
		reversalPnL = pnl.RealizedPnL(prev.EntryPrice, currentPrice, prev.Quantity)
		reversalFee = flat.Fee
	}

	leverage := intent.Leverage
	if leverage <= 0 {
		leverage = a.leverage
	}
	notional := a.balance * intent.SizeFraction * float64(leverage)
	qty := notional / currentPrice
	if qty <= 0 {
		return types.ExecutionResult{}, &exchange.OrderError{Symbol: intent.Symbol, Reason: "zero quantity"}
	}
	if intent.Action == types.ActionEnterShort {
		qty = -qty
	}

	margin := pnl.Margin(notional, leverage)
	fee := notional * a.takerFee
	if a.balance < margin+fee {
		return types.ExecutionResult{}, &exchange.OrderError{
			Symbol: intent.Symbol,
			Reason: fmt.Sprintf("insufficient balance: need %.2f, have %.2f", margin+fee, a.balance),
		}
	}
	a.balance -= margin + fee
	a.fees += fee
	a.totalTrades++

	p := &position{
		Symbol:     intent.Symbol,
		Quantity:   qty,
		EntryPrice: currentPrice,
		MarkPrice:  currentPrice,
		Leverage:   leverage,
		Margin:     margin,
		OpenedAt:   time.Now(),
	}
	a.positions[intent.Symbol] = p

	side := "BUY"
	if qty < 0 {
		side = "SELL"
	}
	ord := order{
		ID:        uuid.NewString(),
		Symbol:    intent.Symbol,
		Side:      side,
		Quantity:  p.AbsQuantity(),
		Price:     currentPrice,
		Fee:       fee,
		Timestamp: time.Now(),
	}
	a.recordOrderLocked(ord)
	a.saveStateLocked()

	logger.Infof("paper: opened %s %s qty=%.6f @ %.2f margin=%.2f fee=%.4f",
		intent.Action.Side(), intent.Symbol, p.AbsQuantity(), currentPrice, margin, fee)

	wallet := a.walletLocked()
	pos := a.exportLocked(p, wallet)
	res := types.Success(intent.Symbol, intent.Action, ord.ID, currentPrice, &pos)
	res.RealizedPnL = reversalPnL
	res.Fee = fee + reversalFee
	return res, nil
}

func (a *Adapter) ClosePosition(ctx context.Context, symbol string, exitPrice float64) (types.ExecutionResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.positions[symbol]
	if !ok {
		return types.Skipped(symbol, types.ActionClose, types.SkipNoPosition), nil
	}
	if exitPrice <= 0 {
		exitPrice = p.EntryPrice
	}
	ord, err := a.closeLocked(symbol, exitPrice)
	if err != nil {
		return types.ExecutionResult{}, err
	}
	a.saveStateLocked()
	res := types.Success(symbol, types.ActionClose, ord.ID, exitPrice, nil)
	res.RealizedPnL = pnl.RealizedPnL(p.EntryPrice, exitPrice, p.Quantity)
	res.Fee = ord.Fee
	return res, nil
}

// closeLocked flattens symbol at exitPrice, returning margin plus net PnL
// to the free balance. Caller holds the lock.
func (a *Adapter) closeLocked(symbol string, exitPrice float64) (order, error) {
	p, ok := a.positions[symbol]
	if !ok {
		return order{}, &exchange.OrderError{Symbol: symbol, Reason: "no position"}
	}
	realized := pnl.RealizedPnL(p.EntryPrice, exitPrice, p.Quantity)
	fee := pnl.Notional(p.Quantity, exitPrice) * a.takerFee
	net := realized - fee

	a.balance += p.Margin + net
	a.realized += net
	a.fees += fee
	a.totalTrades++
	if net > 0 {
		a.wins++
	} else {
		a.losses++
	}
	delete(a.positions, symbol)

	side := "SELL"
	if p.Quantity < 0 {
		side = "BUY"
	}
	ord := order{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Side:      side,
		Quantity:  p.AbsQuantity(),
		Price:     exitPrice,
		Fee:       fee,
		Reduce:    true,
		Timestamp: time.Now(),
	}
	a.recordOrderLocked(ord)
	logger.Infof("paper: closed %s @ %.2f realized=%.2f fee=%.4f", symbol, exitPrice, net, fee)
	return ord, nil
}

func (p *position) AbsQuantity() float64 {
	if p.Quantity < 0 {
		return -p.Quantity
	}
	return p.Quantity
}

// walletLocked is the principal: free balance plus locked margin.
func (a *Adapter) walletLocked() float64 {
	total := a.balance
	for _, p := range a.positions {
		total += p.Margin
	}
	return total
}

func (a *Adapter) unrealizedLocked() float64 {
	var total float64
	for _, p := range a.positions {
		total += pnl.UnrealizedPnL(p.EntryPrice, p.MarkPrice, p.Quantity)
	}
	return total
}

func (a *Adapter) exportLocked(p *position, wallet float64) types.Position {
	out := types.Position{
		Symbol:     p.Symbol,
		Quantity:   p.Quantity,
		EntryPrice: p.EntryPrice,
		MarkPrice:  p.MarkPrice,
		Leverage:   p.Leverage,
	}
	a.calc.Recompute(&out, wallet)
	return out
}

// Statistics returns a snapshot of the simulated account's history.
func (a *Adapter) Statistics() Statistics {
	a.mu.Lock()
	defer a.mu.Unlock()
	equity := a.walletLocked() + a.unrealizedLocked()
	s := Statistics{
		InitialBalance:   a.initialBalance,
		AvailableBalance: a.balance,
		Equity:           equity,
		TotalTrades:      a.totalTrades,
		WinningTrades:    a.wins,
		LosingTrades:     a.losses,
		RealizedPnL:      a.realized,
		TotalFees:        a.fees,
		OpenPositions:    len(a.positions),
	}
	if a.initialBalance > 0 {
		s.TotalReturnPct = (equity - a.initialBalance) / a.initialBalance * 100
	}
	return s
}

func (a *Adapter) recordOrderLocked(ord order) {
	a.orders = append(a.orders, ord)
	if len(a.orders) > 200 {
		a.orders = a.orders[len(a.orders)-200:]
	}
}
