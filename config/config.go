// Package config loads application configuration from the environment, an
// optional .env file and an optional YAML strategy file.
//
// Precedence, lowest first: built-in defaults, the strategy file named by
// STRATEGY_FILE, then individual environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/josephadah/trading-ai/internal/indicator"
	"github.com/josephadah/trading-ai/internal/marketdata/validate"
	"github.com/josephadah/trading-ai/internal/model"
	"github.com/josephadah/trading-ai/internal/strategy"
)

// Config holds all application configuration.
type Config struct {
	// Infrastructure
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	MetricsAddr   string
	FeedAddr      string
	WebhookURL    string

	// Telegram alerts are enabled when both are set.
	TelegramToken  string
	TelegramChatID string

	// Logging
	LogLevel string
	LogFile  string

	// Scan
	Symbols      []string
	Timeframe    string
	ScanWorkers  int
	StrategyFile string

	Indicator   indicator.Config
	Strategy    strategy.Config
	Validation  validate.Options
	Instruments []model.Instrument
}

// StrategyFile is the YAML layout of STRATEGY_FILE. Keys left out keep
// their defaults.
type StrategyFile struct {
	Symbols     []string           `yaml:"symbols"`
	Indicator   indicator.Config   `yaml:"indicator"`
	Strategy    strategy.Config    `yaml:"strategy"`
	Validation  validate.Options   `yaml:"validation"`
	Instruments []model.Instrument `yaml:"instruments"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		SQLitePath:  "data/trading.db",
		RedisAddr:   "localhost:6379",
		MetricsAddr: ":9090",
		FeedAddr:    ":8090",
		LogLevel:    "info",
		Symbols:     []string{"EURUSD", "GBPUSD", "XAUUSD"},
		Timeframe:   "1d",
		ScanWorkers: 3,
		Indicator:   indicator.DefaultConfig(),
		Strategy:    strategy.DefaultConfig(),
		Validation:  validate.DefaultOptions(),
	}
}

// Load reads .env (if present), the strategy file and the environment,
// then validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("config: could not read .env", "error", err)
	}

	cfg := Default()
	cfg.StrategyFile = getEnv("STRATEGY_FILE", "")
	if cfg.StrategyFile != "" {
		if err := cfg.LoadStrategyFile(cfg.StrategyFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadStrategyFile overlays the YAML file at path onto c.
func (c *Config) LoadStrategyFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open strategy file: %w", err)
	}
	defer f.Close()

	sf := StrategyFile{
		Symbols:    c.Symbols,
		Indicator:  c.Indicator,
		Strategy:   c.Strategy,
		Validation: c.Validation,
	}
	if err := yaml.NewDecoder(f).Decode(&sf); err != nil {
		return fmt.Errorf("decode strategy file %s: %w", path, err)
	}
	c.Symbols = normalizeSymbols(sf.Symbols)
	c.Indicator = sf.Indicator
	c.Strategy = sf.Strategy
	c.Validation = sf.Validation
	c.Instruments = append(c.Instruments, sf.Instruments...)
	return nil
}

func (c *Config) applyEnv() error {
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.MetricsAddr = getEnv("METRICS_ADDR", c.MetricsAddr)
	c.FeedAddr = getEnv("FEED_ADDR", c.FeedAddr)
	c.WebhookURL = getEnv("WEBHOOK_URL", c.WebhookURL)
	c.TelegramToken = getEnv("TELEGRAM_BOT_TOKEN", c.TelegramToken)
	c.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", c.TelegramChatID)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
	c.Timeframe = getEnv("TIMEFRAME", c.Timeframe)
	if v := getEnv("SYMBOLS", ""); v != "" {
		c.Symbols = ParseSymbols(v)
	}

	var errs []error
	intVar := func(key string, dst *int) {
		if v := getEnv(key, ""); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	intVar("SCAN_WORKERS", &c.ScanWorkers)
	intVar("EMA_SHORT", &c.Indicator.EMAShort)
	intVar("EMA_LONG", &c.Indicator.EMALong)
	intVar("RSI_PERIOD", &c.Indicator.RSIPeriod)
	intVar("ATR_PERIOD", &c.Indicator.ATRPeriod)
	if v := getEnv("RISK_REWARD_RATIO", ""); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("RISK_REWARD_RATIO: %w", err))
		} else {
			c.Strategy.RiskReward = f
		}
	}
	return errors.Join(errs...)
}

// Validate checks every section and returns all problems at once.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Indicator.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("indicator: %w", err))
	}
	if err := c.Strategy.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("strategy: %w", err))
	}
	if len(c.Symbols) == 0 {
		errs = append(errs, errors.New("no symbols configured"))
	}
	if c.ScanWorkers <= 0 {
		errs = append(errs, fmt.Errorf("SCAN_WORKERS must be > 0, got %d", c.ScanWorkers))
	}
	for _, in := range c.Instruments {
		if in.Symbol == "" {
			errs = append(errs, errors.New("instrument without symbol"))
		}
		if in.PipSize < 0 {
			errs = append(errs, fmt.Errorf("instrument %s: pip_size must be >= 0", in.Symbol))
		}
	}
	return errors.Join(errs...)
}

// Registry returns the built-in instruments overlaid with configured ones.
func (c *Config) Registry() *model.Registry {
	return model.NewRegistry(append(model.DefaultInstruments(), c.Instruments...)...)
}

// ParseSymbols splits a comma-separated symbol list, upper-casing and
// dropping empty entries.
func ParseSymbols(s string) []string {
	return normalizeSymbols(strings.Split(s, ","))
}

func normalizeSymbols(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
