// Package app wires configuration, venue adapter, risk layer, store and
// engine into a runnable trader.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"vibetrader/internal/account"
	"vibetrader/internal/config"
	"vibetrader/internal/engine"
	"vibetrader/internal/exchange"
	"vibetrader/internal/exchange/binance"
	"vibetrader/internal/exchange/paper"
	"vibetrader/internal/logger"
	"vibetrader/internal/oracle"
	"vibetrader/internal/pnl"
	"vibetrader/internal/risk"
	"vibetrader/internal/store"
	transporthttp "vibetrader/internal/transport/http"
	"vibetrader/internal/types"
)

// App owns the long-lived components and the cycle loop.
type App struct {
	cfg      *config.Config
	cfgPath  string
	adapter  exchange.Adapter
	cache    *account.Cache
	gate     *risk.Gate
	slippage *risk.SlippageGuard
	store    *store.Store
	engine   *engine.Engine
	source   *oracle.FileSource
	httpSrv  *transporthttp.Server

	initialBalance float64
}

// New builds the full component graph from config. The caller owns
// Close.
func New(cfg *config.Config, cfgPath string) (*App, error) {
	calc := pnl.NewCalculator(marginTiers(cfg), cfg.Execution.TakerFeeRate*2)

	adapter, err := buildAdapter(cfg, calc)
	if err != nil {
		return nil, err
	}
	logger.Infof("execution backend: %s", adapter.Name())

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	cache := account.NewCache(adapter, cfg.Execution.AccountCacheTTL())
	gate := risk.NewGate(cfg.Risk)
	slippage := risk.NewSlippageGuard(cfg.Execution.MaxSlippagePct, cfg.Execution.SlippageProtection)
	eng := engine.New(adapter, cache, gate, slippage, st)

	parser, err := oracle.NewParser()
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("compile decision schema: %w", err)
	}

	a := &App{
		cfg:      cfg,
		cfgPath:  cfgPath,
		adapter:  adapter,
		cache:    cache,
		gate:     gate,
		slippage: slippage,
		store:    st,
		engine:   eng,
		source:   oracle.NewFileSource(cfg.App.DecisionsPath, parser),
	}

	if cfg.App.HTTPAddr != "" {
		srv, err := transporthttp.NewServer(transporthttp.ServerConfig{
			Addr:    cfg.App.HTTPAddr,
			Cache:   cache,
			Store:   st,
			Venue:   adapter.Name(),
			Started: time.Now(),
		})
		if err != nil {
			st.Close()
			return nil, err
		}
		a.httpSrv = srv
	}
	return a, nil
}

func buildAdapter(cfg *config.Config, calc *pnl.Calculator) (exchange.Adapter, error) {
	platform := cfg.Exchange.Platform
	// paper_trading overrides the platform choice so a live config can be
	// flipped to simulation with one switch.
	if cfg.Exchange.PaperTrading && platform == "binance" {
		logger.Warnf("paper_trading enabled, overriding platform %q with the simulated venue", platform)
		platform = "paper"
	}
	switch platform {
	case "paper":
		return paper.New(cfg.Paper, calc)
	case "binance":
		return binance.New(binance.Options{
			APIKey:          os.Getenv("BINANCE_API_KEY"),
			APISecret:       os.Getenv("BINANCE_API_SECRET"),
			Testnet:         cfg.Exchange.Testnet,
			RetryMax:        cfg.Exchange.RetryMax,
			DefaultLeverage: cfg.Execution.DefaultLeverage,
		}, calc)
	case "stub":
		return exchange.NewStub(), nil
	default:
		return nil, fmt.Errorf("unknown exchange platform %q", platform)
	}
}

func marginTiers(cfg *config.Config) []pnl.MarginTier {
	if len(cfg.Margin.Tiers) == 0 {
		return pnl.DefaultTiers()
	}
	tiers := make([]pnl.MarginTier, 0, len(cfg.Margin.Tiers))
	for _, t := range cfg.Margin.Tiers {
		tiers = append(tiers, pnl.MarginTier{MaxNotional: t.MaxNotional, Rate: t.Rate, Amount: t.Amount})
	}
	return tiers
}

// Run drives the cycle loop until ctx is canceled. With once set it runs
// a single cycle and returns.
func (a *App) Run(ctx context.Context, once bool) error {
	if a.httpSrv != nil {
		go func() {
			logger.Infof("status server listening on %s", a.httpSrv.Addr())
			if err := a.httpSrv.Start(ctx); err != nil {
				logger.Errorf("status server stopped: %v", err)
			}
		}()
	}
	if a.cfgPath != "" {
		go a.watchConfig(ctx)
	}

	a.captureInitialBalance(ctx)

	if once {
		a.runCycle(ctx)
		return nil
	}

	interval := a.cfg.App.CycleInterval()
	logger.Infof("cycle loop started, interval %s", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Infof("cycle loop stopping")
			return nil
		case <-ticker.C:
			a.runCycle(ctx)
		}
	}
}

func (a *App) runCycle(ctx context.Context) {
	intents, ok, err := a.source.Next()
	if err != nil {
		logger.Errorf("decision source read failed: %v", err)
	}
	if !ok {
		intents = nil
	}
	prices := a.resolvePrices(ctx, intents)
	report := a.engine.RunCycle(ctx, intents, prices)
	engine.LogReport(report)
}

// resolvePrices picks a dispatch price per intent symbol: live quote
// when the venue can provide one, the decision price otherwise.
func (a *App) resolvePrices(ctx context.Context, intents []types.Intent) map[string]float64 {
	prices := make(map[string]float64, len(intents))
	quoter, _ := a.adapter.(engine.PriceSource)
	for _, intent := range intents {
		price := 0.0
		if quoter != nil {
			if quote, err := quoter.LastPrice(ctx, intent.Symbol); err == nil && quote > 0 {
				price = quote
			}
		}
		if price == 0 {
			price = intent.DecisionPrice
		}
		if price > 0 {
			prices[intent.Symbol] = price
		}
	}
	return prices
}

// captureInitialBalance records the wallet balance of the first snapshot
// so later ledger entries have a session baseline.
func (a *App) captureInitialBalance(ctx context.Context) {
	snap, err := a.cache.Get(ctx)
	if err != nil {
		logger.Warnf("initial balance capture failed: %v", err)
		return
	}
	a.initialBalance = snap.Balance.Wallet
	logger.Infow("session baseline captured", "wallet", a.initialBalance, "venue", a.adapter.Name())
}

// watchConfig hot-reloads the risk limits and the slippage threshold on
// config file changes. Everything else requires a restart.
func (a *App) watchConfig(ctx context.Context) {
	err := config.Watch(ctx, a.cfgPath, func(next *config.Config) {
		a.gate.SetLimits(next.Risk)
		a.slippage.SetLimit(next.Execution.MaxSlippagePct, next.Execution.SlippageProtection)
	})
	if err != nil && ctx.Err() == nil {
		logger.Errorf("config watcher stopped: %v", err)
	}
}

// Close releases the store. Idempotent.
func (a *App) Close() error {
	return a.store.Close()
}
