package strategy

import (
	"errors"
	"fmt"
)

// Config holds the Daily EMA Pullback thresholds. Distances are in pips.
type Config struct {
	RiskReward       float64 `yaml:"risk_reward"`
	MinStopPips      float64 `yaml:"min_stop_pips"`
	MaxStopPips      float64 `yaml:"max_stop_pips"`
	StopBufferPips   float64 `yaml:"stop_buffer_pips"`
	EMATolerancePips float64 `yaml:"ema_tolerance_pips"`
	NearEMAPips      float64 `yaml:"near_ema_pips"`
	PullbackLookback int     `yaml:"pullback_lookback"`
	RSILow           float64 `yaml:"rsi_low"`
	RSIHigh          float64 `yaml:"rsi_high"`
	SwingLookback    int     `yaml:"swing_lookback"`
	SwingMaxBack     int     `yaml:"swing_max_back"`

	// RSI neutral-zone membership is advisory unless gated here.
	GateRSILong  bool `yaml:"gate_rsi_long"`
	GateRSIShort bool `yaml:"gate_rsi_short"`
}

// DefaultConfig returns the standard rule set.
func DefaultConfig() Config {
	return Config{
		RiskReward:       2.5,
		MinStopPips:      30,
		MaxStopPips:      60,
		StopBufferPips:   10,
		EMATolerancePips: 10,
		NearEMAPips:      30,
		PullbackLookback: 5,
		RSILow:           40,
		RSIHigh:          60,
		SwingLookback:    5,
		SwingMaxBack:     10,
	}
}

// Validate checks ranges.
func (c Config) Validate() error {
	var errs []error
	if c.RiskReward <= 0 {
		errs = append(errs, fmt.Errorf("risk_reward must be > 0, got %v", c.RiskReward))
	}
	if c.MinStopPips < 0 || c.MaxStopPips <= 0 || c.MinStopPips > c.MaxStopPips {
		errs = append(errs, fmt.Errorf("stop bounds invalid: min=%v max=%v", c.MinStopPips, c.MaxStopPips))
	}
	if c.StopBufferPips < 0 || c.EMATolerancePips < 0 || c.NearEMAPips < 0 {
		errs = append(errs, errors.New("pip distances must be >= 0"))
	}
	if c.PullbackLookback <= 0 {
		errs = append(errs, fmt.Errorf("pullback_lookback must be > 0, got %d", c.PullbackLookback))
	}
	if c.RSILow < 0 || c.RSIHigh > 100 || c.RSILow > c.RSIHigh {
		errs = append(errs, fmt.Errorf("rsi zone invalid: [%v, %v]", c.RSILow, c.RSIHigh))
	}
	if c.SwingLookback < 0 || c.SwingMaxBack <= 0 {
		errs = append(errs, fmt.Errorf("swing window invalid: lookback=%d max_back=%d", c.SwingLookback, c.SwingMaxBack))
	}
	return errors.Join(errs...)
}
