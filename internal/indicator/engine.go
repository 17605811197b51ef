package indicator

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/josephadah/trading-ai/internal/model"
)

// Config holds indicator periods. A value, never mutated after construction.
type Config struct {
	EMAShort      int `yaml:"ema_short"`
	EMALong       int `yaml:"ema_long"`
	RSIPeriod     int `yaml:"rsi_period"`
	ATRPeriod     int `yaml:"atr_period"`
	SwingLookback int `yaml:"swing_lookback"`
}

// DefaultConfig returns EMA 20/50, RSI 14, ATR 14, swing lookback 5.
func DefaultConfig() Config {
	return Config{EMAShort: 20, EMALong: 50, RSIPeriod: 14, ATRPeriod: 14, SwingLookback: 5}
}

// Validate checks that all periods are usable.
func (c Config) Validate() error {
	var errs []error
	for _, p := range []struct {
		name string
		v    int
	}{{"ema_short", c.EMAShort}, {"ema_long", c.EMALong}, {"rsi_period", c.RSIPeriod}, {"atr_period", c.ATRPeriod}} {
		if p.v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0, got %d", p.name, p.v))
		}
	}
	if c.SwingLookback < 0 {
		errs = append(errs, fmt.Errorf("swing_lookback must be >= 0, got %d", c.SwingLookback))
	}
	if c.EMAShort >= c.EMALong {
		errs = append(errs, fmt.Errorf("ema_short (%d) must be below ema_long (%d)", c.EMAShort, c.EMALong))
	}
	return errors.Join(errs...)
}

// Engine enriches bar series with a fixed Config.
// Stateless between calls; safe for concurrent use across symbols.
type Engine struct {
	cfg Config
	log *slog.Logger
}

// NewEngine creates an indicator engine. A nil logger uses slog.Default().
func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, log: logger.With(slog.String("component", "indicator"))}
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config { return e.cfg }

// Enrich computes all indicators for s. The input is not modified.
//
// Fields are undefined during warm-up: EMAShort before bar EMAShort-1,
// EMALong before bar EMALong-1, RSI before bar RSIPeriod, ATR before bar
// ATRPeriod-1. Defined values are the recursion seeded at bar 0.
func (e *Engine) Enrich(s model.Series) (model.EnrichedSeries, error) {
	if err := e.cfg.Validate(); err != nil {
		return model.EnrichedSeries{}, fmt.Errorf("indicator config: %w", err)
	}
	es := model.EnrichedSeries{
		Symbol:         s.Symbol,
		Timeframe:      s.Timeframe,
		EMAShortPeriod: e.cfg.EMAShort,
		EMALongPeriod:  e.cfg.EMALong,
	}
	if s.Len() == 0 {
		e.log.Warn("empty series provided for indicator calculation", "symbol", s.Symbol)
		return es, nil
	}
	if err := s.CheckStructure(); err != nil {
		return model.EnrichedSeries{}, err
	}

	closes := s.Closes()
	emaShort := EMASeries(closes, e.cfg.EMAShort)
	emaLong := EMASeries(closes, e.cfg.EMALong)
	rsi := RSISeries(closes, e.cfg.RSIPeriod)
	atr := ATRSeries(s.Bars, e.cfg.ATRPeriod)
	swingHighs := SwingHighs(s.Bars, e.cfg.SwingLookback)
	swingLows := SwingLows(s.Bars, e.cfg.SwingLookback)

	es.Bars = make([]model.EnrichedBar, s.Len())
	for i, b := range s.Bars {
		eb := model.EnrichedBar{Bar: b, SwingHigh: swingHighs[i], SwingLow: swingLows[i]}
		if i >= e.cfg.EMAShort-1 {
			eb.EMAShort = model.Some(emaShort[i])
		}
		if i >= e.cfg.EMALong-1 {
			eb.EMALong = model.Some(emaLong[i])
		}
		if i >= e.cfg.RSIPeriod {
			eb.RSI = rsi[i]
		}
		if i >= e.cfg.ATRPeriod-1 {
			eb.ATR = model.Some(atr[i])
		}
		es.Bars[i] = eb
	}

	e.log.Debug("calculated indicators", "symbol", s.Symbol, "rows", s.Len())
	return es, nil
}

// Validate logs the most recent sample bars' indicator values and reports
// whether all of them are defined. Undefined recent values are logged as a
// warning; they are expected only on series shorter than the longest period.
func (e *Engine) Validate(es model.EnrichedSeries, sample int) bool {
	if sample <= 0 || es.Len() == 0 {
		return es.Len() > 0
	}
	start := es.Len() - sample
	if start < 0 {
		start = 0
	}

	undefined := map[string]int{}
	for _, b := range es.Bars[start:] {
		for name, v := range map[string]model.Value{"ema_short": b.EMAShort, "ema_long": b.EMALong, "rsi": b.RSI, "atr": b.ATR} {
			if !v.OK {
				undefined[name]++
			}
		}
		e.log.Info("indicator sample",
			"symbol", es.Symbol,
			"date", b.TS.Format("2006-01-02"),
			"close", b.Close,
			"ema_short", b.EMAShort.String(),
			"ema_long", b.EMALong.String(),
			"rsi", b.RSI.String(),
			"atr", b.ATR.String(),
		)
	}
	if len(undefined) > 0 {
		e.log.Warn("undefined values in recent indicators", "symbol", es.Symbol, "counts", undefined)
		return false
	}
	return true
}

// Enrich is a convenience wrapper: NewEngine(cfg, nil).Enrich(s).
func Enrich(s model.Series, cfg Config) (model.EnrichedSeries, error) {
	return NewEngine(cfg, nil).Enrich(s)
}
