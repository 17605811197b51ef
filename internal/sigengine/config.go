package sigengine

import (
	"errors"
	"fmt"

	"github.com/josephadah/trading-ai/internal/indicator"
	"github.com/josephadah/trading-ai/internal/marketdata/validate"
	"github.com/josephadah/trading-ai/internal/strategy"
)

// Config holds the scan parameters for one Service.
type Config struct {
	Symbols   []string
	Timeframe string
	Workers   int

	// Replace deletes each symbol's stored signals before writing.
	Replace bool

	// FreshBars is how many of the most recent bars count as fresh. Only
	// signals on fresh bars are published and notified; every signal is
	// stored. Zero publishes nothing.
	FreshBars int

	// TraceBars keeps gate trails for the last N bars of each symbol.
	TraceBars int

	// ValidateSample is the number of recent bars logged by the indicator
	// validation step.
	ValidateSample int

	Indicator  indicator.Config
	Strategy   strategy.Config
	Validation validate.Options
}

// DefaultConfig returns a Config with the engine defaults.
func DefaultConfig() Config {
	return Config{
		Symbols:        []string{"EURUSD", "GBPUSD", "XAUUSD"},
		Timeframe:      "1d",
		Workers:        3,
		FreshBars:      1,
		ValidateSample: 5,
		Indicator:      indicator.DefaultConfig(),
		Strategy:       strategy.DefaultConfig(),
		Validation:     validate.DefaultOptions(),
	}
}

// Validate checks the config and returns all problems at once.
func (c Config) Validate() error {
	var errs []error
	if len(c.Symbols) == 0 {
		errs = append(errs, errors.New("no symbols"))
	}
	if c.Timeframe == "" {
		errs = append(errs, errors.New("timeframe is empty"))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be > 0, got %d", c.Workers))
	}
	if c.FreshBars < 0 || c.TraceBars < 0 {
		errs = append(errs, errors.New("fresh and trace bars must be >= 0"))
	}
	if err := c.Indicator.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("indicator: %w", err))
	}
	if err := c.Strategy.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("strategy: %w", err))
	}
	return errors.Join(errs...)
}
