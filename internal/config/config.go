package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load reads the YAML config at path, applies defaults and validates the
// result.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config built purely from defaults. Used by tests and by
// the paper-trading quickstart path when no file is given.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	})
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.http_addr", "")
	v.SetDefault("app.symbols", []string{"BTCUSDT"})
	v.SetDefault("app.cycle_interval_seconds", 180)
	v.SetDefault("app.decisions_path", "data/decisions.json")

	v.SetDefault("exchange.platform", "paper")
	v.SetDefault("exchange.paper_trading", true)
	v.SetDefault("exchange.testnet", false)
	v.SetDefault("exchange.retry_max", 3)

	v.SetDefault("risk.min_confidence", 0.75)
	v.SetDefault("risk.max_position_size_pct", 0.20)
	v.SetDefault("risk.max_open_positions", 3)
	v.SetDefault("risk.allowed_symbols", []string{"BTCUSDT"})

	v.SetDefault("execution.max_slippage_pct", 0.005)
	v.SetDefault("execution.slippage_protection_enabled", true)
	v.SetDefault("execution.account_cache_ttl_ms", 1000)
	v.SetDefault("execution.default_leverage", 10)
	v.SetDefault("execution.taker_fee_rate", 0.0004)

	v.SetDefault("store.path", "data/trader.db")

	v.SetDefault("paper.initial_balance", 10000.0)
	v.SetDefault("paper.leverage", 10)
	v.SetDefault("paper.taker_fee", 0.0004)
	v.SetDefault("paper.maker_fee", 0.0002)
	v.SetDefault("paper.state_path", "data/paper_state.json")
}
