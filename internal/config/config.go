// Package config loads the papertrade configuration from YAML with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"papertrade/internal/domain"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the papertrade simulator.
type Config struct {
	Storage Storage       `yaml:"storage"`
	Server  Server        `yaml:"server"`
	Alpaca  Alpaca        `yaml:"alpaca"`
	Logging Logging       `yaml:"logging"`
	Trading TradingConfig `yaml:"trading"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Alpaca holds credentials and endpoints for the Alpaca APIs. Quotes come
// from the data endpoint; live order routing uses the base endpoint.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TradingConfig defines the simulated account and execution parameters.
// Broker selects the execution backend: "paper" runs the local simulator,
// "alpaca" routes orders to the configured Alpaca account.
type TradingConfig struct {
	Broker          string  `yaml:"broker"`
	InitialBalance  float64 `yaml:"initial_balance"`
	Market          string  `yaml:"market"`
	PollIntervalSec int     `yaml:"poll_interval_sec"`
	QuoteTimeoutSec int     `yaml:"quote_timeout_sec"`
	RateLimitPerMin int     `yaml:"rate_limit_per_min"`
}

// PollInterval returns the execution poll interval as a duration.
func (t TradingConfig) PollInterval() time.Duration {
	return time.Duration(t.PollIntervalSec) * time.Second
}

// QuoteTimeout returns the per-quote timeout as a duration.
func (t TradingConfig) QuoteTimeout() time.Duration {
	return time.Duration(t.QuoteTimeoutSec) * time.Second
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns the configuration used when no file is given: a US-market
// paper account with 100000 in starting cash, polling every 30 seconds.
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataDir:    "data",
			SQLitePath: "papertrade.db",
		},
		Server: Server{
			Host: "127.0.0.1",
			Port: 8220,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		Trading: TradingConfig{
			Broker:          "paper",
			InitialBalance:  100000,
			Market:          string(domain.MarketUS),
			PollIntervalSec: 30,
			QuoteTimeoutSec: 5,
			RateLimitPerMin: 200,
		},
	}
}

// Load reads the YAML configuration file at the given path over the
// defaults, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Trading.InitialBalance <= 0 {
		return fmt.Errorf("trading.initial_balance must be positive, got %v", c.Trading.InitialBalance)
	}
	if c.Trading.PollIntervalSec <= 0 {
		return fmt.Errorf("trading.poll_interval_sec must be positive, got %d", c.Trading.PollIntervalSec)
	}
	switch domain.Market(c.Trading.Market) {
	case domain.MarketUS, domain.MarketIN:
	default:
		return fmt.Errorf("trading.market must be one of us, in; got %q", c.Trading.Market)
	}
	switch c.Trading.Broker {
	case "paper":
	case "alpaca":
		if c.Alpaca.APIKey == "" || c.Alpaca.APISecret == "" {
			return fmt.Errorf("trading.broker %q requires alpaca credentials", c.Trading.Broker)
		}
	default:
		return fmt.Errorf("trading.broker must be one of paper, alpaca; got %q", c.Trading.Broker)
	}
	return nil
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Canonical Alpaca env vars take highest priority.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
