// Package config loads the trading engine's JSON configuration file via
// viper, overlaying brokerage credentials from TRADER_* environment
// variables. Sensitive fields are never read from the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"tradingcore/internal/core"
)

// GatewayConfig selects and parameterizes the market-data source.
type GatewayConfig struct {
	Mode    string   `mapstructure:"mode"`
	CSVPath string   `mapstructure:"csv_path"`
	DataDir string   `mapstructure:"data_dir"`
	Symbols []string `mapstructure:"symbols"`
}

// StrategyConfig is an opaque bag of strategy parameters. Type selects the
// concrete strategy; the remaining keys are strategy-specific and decoded
// by the strategy's own constructor from Params.
type StrategyConfig struct {
	Type   string                 `mapstructure:"type"`
	Params map[string]interface{} `mapstructure:",remain"`
}

// ExchangeConfig holds the live brokerage's non-sensitive connection
// settings. Credentials never live here; they come from TRADER_* env vars.
type ExchangeConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	WSMarketURL string `mapstructure:"ws_market_url"`
	WSUserURL   string `mapstructure:"ws_user_url"`
	DryRun      bool   `mapstructure:"dry_run"`
}

// LoggingConfig controls the CLI's slog handler.
type LoggingConfig struct {
	Format string `mapstructure:"format"`
}

// AuditConfig points at the order audit log's path.
type AuditConfig struct {
	Path string `mapstructure:"path"`
}

// Config is the top-level configuration, recognizing the keys of §6's
// table plus the ambient exchange/logging/audit sections this repository
// adds.
type Config struct {
	Gateway            GatewayConfig  `mapstructure:"gateway"`
	Strategy           StrategyConfig `mapstructure:"strategy"`
	Exchange           ExchangeConfig `mapstructure:"exchange"`
	Logging            LoggingConfig  `mapstructure:"logging"`
	Audit              AuditConfig    `mapstructure:"audit"`
	InitialCapital     float64        `mapstructure:"initial_capital"`
	MaxOrdersPerMinute int            `mapstructure:"max_orders_per_minute"`
	MaxPositionSize    float64        `mapstructure:"max_position_size"`
	MaxOrderValue      float64        `mapstructure:"max_order_value"`

	// Credentials are never read from the file; Load populates them from
	// TRADER_* environment variables.
	Credentials Credentials `mapstructure:"-"`
}

// Credentials holds brokerage API credentials, sourced exclusively from
// environment variables.
type Credentials struct {
	APIKey     string
	Secret     string
	Passphrase string
}

// Load reads the JSON config file at path, applies defaults, and overlays
// TRADER_* environment variables for credentials and dry-run.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("TRADER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("initial_capital", 100000)
	v.SetDefault("max_orders_per_minute", 60)
	v.SetDefault("gateway.mode", "simulation")

	if err := v.ReadInConfig(); err != nil {
		return nil, &core.ConfigError{Reason: "read config file", Err: err}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &core.ConfigError{Reason: "unmarshal config", Err: err}
	}

	cfg.Credentials = Credentials{
		APIKey:     os.Getenv("TRADER_API_KEY"),
		Secret:     os.Getenv("TRADER_API_SECRET"),
		Passphrase: os.Getenv("TRADER_PASSPHRASE"),
	}
	if raw, ok := os.LookupEnv("TRADER_DRY_RUN"); ok {
		cfg.Exchange.DryRun, _ = strconv.ParseBool(raw)
	}

	return &cfg, nil
}

// Validate checks the loaded configuration for internal consistency,
// returning a *core.ConfigError describing the first violation found.
func (c *Config) Validate() error {
	switch c.Gateway.Mode {
	case "simulation":
		if c.Gateway.CSVPath == "" {
			return &core.ConfigError{Reason: "gateway.csv_path is required when gateway.mode is \"simulation\""}
		}
	case "live":
		if len(c.Gateway.Symbols) == 0 {
			return &core.ConfigError{Reason: "gateway.symbols is required when gateway.mode is \"live\""}
		}
		if c.Exchange.BaseURL == "" {
			return &core.ConfigError{Reason: "exchange.base_url is required when gateway.mode is \"live\""}
		}
	default:
		return &core.ConfigError{Reason: fmt.Sprintf("gateway.mode must be \"simulation\" or \"live\", got %q", c.Gateway.Mode)}
	}

	if c.Strategy.Type == "" {
		return &core.ConfigError{Reason: "strategy.type is required"}
	}
	if c.InitialCapital <= 0 {
		return &core.ConfigError{Reason: "initial_capital must be > 0"}
	}
	if c.MaxOrdersPerMinute <= 0 {
		return &core.ConfigError{Reason: "max_orders_per_minute must be > 0"}
	}
	if c.MaxPositionSize < 0 {
		return &core.ConfigError{Reason: "max_position_size must be >= 0"}
	}
	if c.MaxOrderValue < 0 {
		return &core.ConfigError{Reason: "max_order_value must be >= 0"}
	}

	return nil
}

// InitialCapitalDecimal converts InitialCapital to decimal for Portfolio.New.
func (c *Config) InitialCapitalDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.InitialCapital)
}

// MaxOrderValueDecimal converts MaxOrderValue to decimal for risk.Config.
// Zero disables the cap, matching risk.Manager's convention.
func (c *Config) MaxOrderValueDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxOrderValue)
}

// MaxPositionSizeDecimal converts MaxPositionSize to decimal for
// risk.Config. Zero disables the cap.
func (c *Config) MaxPositionSizeDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxPositionSize)
}
