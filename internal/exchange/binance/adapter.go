// Package binance adapts Binance USD-M perpetual futures to the common
// venue abstraction.
package binance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/futures"

	"vibetrader/internal/exchange"
	"vibetrader/internal/logger"
	"vibetrader/internal/pkg/backoff"
	"vibetrader/internal/pkg/circuit"
	"vibetrader/internal/pnl"
	"vibetrader/internal/types"
)

// Adapter drives a live (or testnet) Binance USD-M futures account.
//
// Reads retry transient failures with bounded exponential backoff. Order
// placement never retries: a retried market order could double-fill.
type Adapter struct {
	client   *futures.Client
	calc     *pnl.Calculator
	breaker  *circuit.Breaker
	retryMax int
	testnet  bool

	defaultLeverage int
}

type Options struct {
	APIKey          string
	APISecret       string
	Testnet         bool
	RetryMax        int
	DefaultLeverage int
}

func New(opts Options, calc *pnl.Calculator) (*Adapter, error) {
	if opts.APIKey == "" || opts.APISecret == "" {
		return nil, fmt.Errorf("binance: api credentials are required")
	}
	if calc == nil {
		calc = pnl.NewCalculator(nil, 0)
	}
	futures.UseTestnet = opts.Testnet
	a := &Adapter{
		client:          futures.NewClient(opts.APIKey, opts.APISecret),
		calc:            calc,
		breaker:         circuit.NewBreaker("binance-reads", 5, 30*time.Second),
		retryMax:        opts.RetryMax,
		testnet:         opts.Testnet,
		defaultLeverage: opts.DefaultLeverage,
	}
	if a.retryMax <= 0 {
		a.retryMax = 3
	}
	if a.defaultLeverage <= 0 {
		a.defaultLeverage = 10
	}
	if opts.Testnet {
		logger.Infof("binance adapter ready (testnet)")
	} else {
		logger.Warnf("binance adapter ready (MAINNET - live orders will be placed)")
	}
	return a, nil
}

func (a *Adapter) Name() string { return "binance" }

func (a *Adapter) GetAccountBalance(ctx context.Context) (types.Balance, error) {
	acct, err := a.fetchAccount(ctx)
	if err != nil {
		return types.Balance{}, err
	}
	return types.Balance{
		Wallet:    parseFloat(acct.TotalWalletBalance),
		Margin:    parseFloat(acct.TotalMarginBalance),
		Available: parseFloat(acct.AvailableBalance),
	}, nil
}

func (a *Adapter) GetOpenPositions(ctx context.Context) ([]types.Position, error) {
	acct, err := a.fetchAccount(ctx)
	if err != nil {
		return nil, err
	}
	wallet := parseFloat(acct.TotalWalletBalance)

	var risks []*futures.PositionRisk
	err = a.guardedRead(ctx, "position_risk", func() error {
		var ferr error
		risks, ferr = a.client.NewGetPositionRiskService().Do(ctx)
		return ferr
	})
	if err != nil {
		return nil, err
	}

	var out []types.Position
	for _, r := range risks {
		qty := parseFloat(r.PositionAmt)
		if qty == 0 {
			continue
		}
		leverage, _ := strconv.Atoi(r.Leverage)
		p := types.Position{
			Symbol:           r.Symbol,
			Quantity:         qty,
			EntryPrice:       parseFloat(r.EntryPrice),
			MarkPrice:        parseFloat(r.MarkPrice),
			Leverage:         leverage,
			UnrealizedPnL:    parseFloat(r.UnRealizedProfit),
			LiquidationPrice: parseFloat(r.LiquidationPrice),
		}
		// Testnet occasionally returns a zero mark price; fall back to
		// the last traded price.
		if p.MarkPrice == 0 {
			if last, err := a.LastPrice(ctx, r.Symbol); err == nil {
				p.MarkPrice = last
			} else {
				logger.Warnf("binance: no mark price for %s: %v", r.Symbol, err)
			}
		}
		a.calc.Recompute(&p, wallet)
		out = append(out, p)
	}
	return out, nil
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

	// One position per symbol: flatten any existing position first.
	existing, err := a.GetOpenPositions(ctx)
	if err != nil {
		return types.ExecutionResult{}, err
	}
	for _, p := range existing {
		if p.Symbol == intent.Symbol {
			if res, cerr := a.ClosePosition(ctx, intent.Symbol, currentPrice); cerr != nil {
				return res, cerr
			}
			break
		}
	}

	balance, err := a.GetAccountBalance(ctx)
	if err != nil {
		return types.ExecutionResult{}, err
	}
	if balance.Available <= 0 {
		return types.ExecutionResult{}, &exchange.OrderError{Symbol: intent.Symbol, Reason: "no available balance"}
	}

	leverage := intent.Leverage
	if leverage <= 0 {
		leverage = a.defaultLeverage
	}
	if _, err := a.client.NewChangeLeverageService().
		Symbol(intent.Symbol).Leverage(leverage).Do(ctx); err != nil {
		logger.Warnf("binance: leverage change failed for %s: %v", intent.Symbol, err)
	}

	notional := balance.Available * intent.SizeFraction * float64(leverage)
	qty := notional / currentPrice
	qtyStr := formatQuantity(qty)
	if qtyStr == "0" {
		return types.ExecutionResult{}, &exchange.OrderError{Symbol: intent.Symbol, Reason: "order size below step size"}
	}

	side := futures.SideTypeBuy
	if intent.Action == types.ActionEnterShort {
		side = futures.SideTypeSell
	}
	ord, err := a.client.NewCreateOrderService().
		Symbol(intent.Symbol).
		Side(side).
		Type(futures.OrderTypeMarket).
		Quantity(qtyStr).
		Do(ctx)
	if err != nil {
		return types.ExecutionResult{}, &exchange.OrderError{Symbol: intent.Symbol, Reason: "create order rejected", Err: err}
	}
	logger.Infof("binance: order placed %s %s qty=%s id=%d", side, intent.Symbol, qtyStr, ord.OrderID)

	var resulting *types.Position
	if updated, err := a.GetOpenPositions(ctx); err == nil {
		for i := range updated {
			if updated[i].Symbol == intent.Symbol {
				resulting = &updated[i]
				break
			}
		}
	}
	return types.Success(intent.Symbol, intent.Action, strconv.FormatInt(ord.OrderID, 10), currentPrice, resulting), nil
}

func (a *Adapter) ClosePosition(ctx context.Context, symbol string, exitPrice float64) (types.ExecutionResult, error) {
	positions, err := a.GetOpenPositions(ctx)
	if err != nil {
		return types.ExecutionResult{}, err
	}
	var target *types.Position
	for i := range positions {
		if positions[i].Symbol == symbol {
			target = &positions[i]
			break
		}
	}
	if target == nil {
		return types.Skipped(symbol, types.ActionClose, types.SkipNoPosition), nil
	}

	side := futures.SideTypeSell
	if target.IsShort() {
		side = futures.SideTypeBuy
	}
	ord, err := a.client.NewCreateOrderService().
		Symbol(symbol).
		Side(side).
		Type(futures.OrderTypeMarket).
		Quantity(formatQuantity(target.AbsQuantity())).
		ReduceOnly(true).
		Do(ctx)
	if err != nil {
		return types.ExecutionResult{}, &exchange.OrderError{Symbol: symbol, Reason: "close order rejected", Err: err}
	}
	logger.Infof("binance: close order placed %s qty=%.6f id=%d", symbol, target.AbsQuantity(), ord.OrderID)

	res := types.Success(symbol, types.ActionClose, strconv.FormatInt(ord.OrderID, 10), exitPrice, nil)
	res.RealizedPnL = target.UnrealizedPnL
	return res, nil
}

func (a *Adapter) fetchAccount(ctx context.Context) (*futures.Account, error) {
	var acct *futures.Account
	err := a.guardedRead(ctx, "account", func() error {
		var ferr error
		acct, ferr = a.client.NewGetAccountService().Do(ctx)
		return ferr
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

var errBreakerOpen = errors.New("read breaker open, venue reads suspended")

// guardedRead runs a venue read with retries behind the circuit breaker.
func (a *Adapter) guardedRead(ctx context.Context, op string, fn func() error) error {
	if !a.breaker.Allow() {
		return &exchange.FetchError{Op: op, Err: errBreakerOpen}
	}
	if err := backoff.Retry(ctx, a.retryMax, fn); err != nil {
		a.breaker.RecordFailure()
		return &exchange.FetchError{Op: op, Err: err}
	}
	a.breaker.RecordSuccess()
	return nil
}

// LastPrice returns the latest traded price for symbol.
func (a *Adapter) LastPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := a.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("empty price response for %s", symbol)
	}
	return parseFloat(prices[0].Price), nil
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// formatQuantity floors to three decimals, the BTCUSDT step size. Finer
// instruments would need the exchange-info filters; the original ran a
// BTC-only universe.
func formatQuantity(qty float64) string {
	floored := math.Floor(math.Abs(qty)*1e3) / 1e3
	return strconv.FormatFloat(floored, 'f', -1, 64)
}
