package config

import "time"

// Config is the top-level configuration for the trader.
type Config struct {
	App       AppConfig       `toml:"app"`
	Exchange  ExchangeConfig  `toml:"exchange"`
	Risk      RiskConfig      `toml:"risk"`
	Execution ExecutionConfig `toml:"execution"`
	Store     StoreConfig     `toml:"store"`
	Paper     PaperConfig     `toml:"paper"`
	Margin    MarginConfig    `toml:"margin"`
}

type AppConfig struct {
	Env                  string   `toml:"env"`
	LogLevel             string   `toml:"log_level"`
	LogPath              string   `toml:"log_path"`
	HTTPAddr             string   `toml:"http_addr"`
	Symbols              []string `toml:"symbols"`
	CycleIntervalSeconds int      `toml:"cycle_interval_seconds"`
	DecisionsPath        string   `toml:"decisions_path"` // drop file consumed once per change
}

func (a AppConfig) CycleInterval() time.Duration {
	return time.Duration(a.CycleIntervalSeconds) * time.Second
}

// ExchangeConfig selects and parameterizes the execution backend.
// API credentials are read from the environment, never from the file.
type ExchangeConfig struct {
	Platform     string `toml:"platform"` // "binance" | "paper" | "stub"
	PaperTrading bool   `toml:"paper_trading"`
	Testnet      bool   `toml:"testnet"`
	RetryMax     int    `toml:"retry_max"` // read retries, never order placement
}

// RiskConfig holds the deterministic gate limits. Hot-reloadable.
type RiskConfig struct {
	MinConfidence      float64  `toml:"min_confidence"`
	MaxPositionSizePct float64  `toml:"max_position_size_pct"`
	MaxOpenPositions   int      `toml:"max_open_positions"`
	AllowedSymbols     []string `toml:"allowed_symbols"`
}

type ExecutionConfig struct {
	MaxSlippagePct     float64 `toml:"max_slippage_pct"`
	SlippageProtection bool    `toml:"slippage_protection_enabled"`
	AccountCacheTTLMs  int     `toml:"account_cache_ttl_ms"`
	DefaultLeverage    int     `toml:"default_leverage"`
	TakerFeeRate       float64 `toml:"taker_fee_rate"`
}

func (e ExecutionConfig) AccountCacheTTL() time.Duration {
	return time.Duration(e.AccountCacheTTLMs) * time.Millisecond
}

type StoreConfig struct {
	Path string `toml:"path"`
}

// PaperConfig parameterizes the simulated venue.
type PaperConfig struct {
	InitialBalance float64 `toml:"initial_balance"`
	Leverage       int     `toml:"leverage"`
	TakerFee       float64 `toml:"taker_fee"`
	MakerFee       float64 `toml:"maker_fee"`
	StatePath      string  `toml:"state_path"`
}

// MarginTier is one maintenance-margin bracket. The table is venue data,
// not logic: it is injected into the liquidation calculator as-is.
type MarginTier struct {
	MaxNotional float64 `toml:"max_notional"`
	Rate        float64 `toml:"rate"`
	Amount      float64 `toml:"amount"`
}

type MarginConfig struct {
	Tiers []MarginTier `toml:"tiers"`
}
