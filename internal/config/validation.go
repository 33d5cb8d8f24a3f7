package config

import (
	"fmt"
	"strings"

	"vibetrader/internal/pkg/symbol"
)

func validate(cfg *Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Exchange.Platform)) {
	case "binance", "paper", "stub":
	default:
		return fmt.Errorf("exchange.platform unsupported: %q", cfg.Exchange.Platform)
	}
	cfg.App.Symbols = symbol.NormalizeList(cfg.App.Symbols)
	cfg.Risk.AllowedSymbols = symbol.NormalizeList(cfg.Risk.AllowedSymbols)
	if len(cfg.App.Symbols) == 0 {
		return fmt.Errorf("app.symbols cannot be empty")
	}
	for _, s := range cfg.App.Symbols {
		if !symbol.IsValid(s) {
			return fmt.Errorf("app.symbols contains unparseable symbol %q", s)
		}
	}
	if cfg.App.CycleIntervalSeconds <= 0 {
		return fmt.Errorf("app.cycle_interval_seconds must be positive")
	}
	if cfg.Risk.MinConfidence < 0 || cfg.Risk.MinConfidence > 1 {
		return fmt.Errorf("risk.min_confidence must be within [0,1], got %v", cfg.Risk.MinConfidence)
	}
	if cfg.Risk.MaxPositionSizePct <= 0 || cfg.Risk.MaxPositionSizePct > 1 {
		return fmt.Errorf("risk.max_position_size_pct must be within (0,1], got %v", cfg.Risk.MaxPositionSizePct)
	}
	if cfg.Risk.MaxOpenPositions <= 0 {
		return fmt.Errorf("risk.max_open_positions must be positive")
	}
	if cfg.Execution.MaxSlippagePct < 0 {
		return fmt.Errorf("execution.max_slippage_pct cannot be negative")
	}
	if cfg.Execution.AccountCacheTTLMs <= 0 {
		return fmt.Errorf("execution.account_cache_ttl_ms must be positive")
	}
	if cfg.Execution.DefaultLeverage <= 0 {
		return fmt.Errorf("execution.default_leverage must be positive")
	}
	if cfg.Paper.InitialBalance <= 0 {
		return fmt.Errorf("paper.initial_balance must be positive")
	}
	var prev float64
	for i, tier := range cfg.Margin.Tiers {
		if tier.Rate <= 0 || tier.Rate >= 1 {
			return fmt.Errorf("margin.tiers[%d].rate must be within (0,1)", i)
		}
		if i > 0 && tier.MaxNotional <= prev {
			return fmt.Errorf("margin.tiers must be sorted by ascending max_notional")
		}
		prev = tier.MaxNotional
	}
	return nil
}
