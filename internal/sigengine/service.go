// Package sigengine orchestrates a signal scan: it loads each symbol's bars,
// validates them, computes indicators, evaluates the strategy, and hands the
// resulting signals to storage, the live publisher and the notifiers.
package sigengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/josephadah/trading-ai/internal/indicator"
	"github.com/josephadah/trading-ai/internal/logger"
	"github.com/josephadah/trading-ai/internal/marketdata/validate"
	"github.com/josephadah/trading-ai/internal/metrics"
	"github.com/josephadah/trading-ai/internal/model"
	"github.com/josephadah/trading-ai/internal/notification"
	sqlitestore "github.com/josephadah/trading-ai/internal/store/sqlite"
	"github.com/josephadah/trading-ai/internal/strategy"
)

// RunRecorder records scan runs. sqlite.Store implements it.
type RunRecorder interface {
	StartRun(ctx context.Context, runID string, symbols []string, at time.Time) error
	FinishRun(ctx context.Context, runID string, stats sqlitestore.RunStats, at time.Time) error
}

// Deps are the Service's collaborators. Bars and Signals are required; the
// rest may be nil.
type Deps struct {
	Bars      model.BarReader
	Signals   model.SignalWriter
	Runs      RunRecorder
	Publisher model.SignalPublisher
	Notifier  notification.Notifier
	Metrics   *metrics.Metrics
	Health    *metrics.HealthStatus
	Registry  *model.Registry
	Logger    *slog.Logger
}

// Service is the top-level orchestrator for a scan.
type Service struct {
	cfg  Config
	deps Deps

	engine    *indicator.Engine
	strategy  *strategy.Pullback
	validator *validate.Validator
	log       *slog.Logger
	now       func() time.Time
}

// New creates a Service.
func New(cfg Config, deps Deps) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("sigengine config: %w", err)
	}
	if deps.Bars == nil || deps.Signals == nil {
		return nil, errors.New("sigengine: bar reader and signal writer are required")
	}
	if deps.Registry == nil {
		deps.Registry = model.DefaultRegistry()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{
		cfg:       cfg,
		deps:      deps,
		engine:    indicator.NewEngine(cfg.Indicator, deps.Logger),
		strategy:  strategy.New(cfg.Strategy, deps.Registry, deps.Logger),
		validator: validate.New(cfg.Validation, deps.Logger),
		log:       deps.Logger.With(slog.String("component", "sigengine")),
		now:       time.Now,
	}, nil
}

// SymbolResult is the outcome of scanning one symbol.
type SymbolResult struct {
	Symbol   string
	Bars     int
	Report   validate.Report
	Signals  []model.Signal
	Fresh    []model.Signal
	Stored   int
	Traces   []strategy.Evaluation
	Duration time.Duration
	Err      error
}

// RunResult is the outcome of a full scan, with per-symbol results in
// configured symbol order.
type RunResult struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Symbols  []SymbolResult
}

// Stats summarises the run.
func (r RunResult) Stats() sqlitestore.RunStats {
	var st sqlitestore.RunStats
	for _, s := range r.Symbols {
		st.Bars += s.Bars
		st.Signals += len(s.Signals)
		if s.Err != nil {
			st.Failures++
		}
	}
	return st
}

// Signals returns every signal of the run.
func (r RunResult) Signals() []model.Signal {
	var out []model.Signal
	for _, s := range r.Symbols {
		out = append(out, s.Signals...)
	}
	return out
}

// Err joins the per-symbol errors.
func (r RunResult) Err() error {
	var errs []error
	for _, s := range r.Symbols {
		if s.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Symbol, s.Err))
		}
	}
	return errors.Join(errs...)
}

// Run scans every configured symbol using a bounded worker pool. A failing
// symbol is logged and counted; the others still complete. The returned
// error is non-nil only when the run itself could not be recorded.
func (svc *Service) Run(ctx context.Context) (RunResult, error) {
	res := RunResult{
		RunID:   uuid.NewString(),
		Started: svc.now().UTC(),
		Symbols: make([]SymbolResult, len(svc.cfg.Symbols)),
	}
	ctx = logger.WithTraceID(ctx, res.RunID)
	svc.log.InfoContext(ctx, "scan started",
		append(logger.LogWithTrace(ctx), "symbols", svc.cfg.Symbols, "workers", svc.cfg.Workers)...)

	if svc.deps.Runs != nil {
		if err := svc.deps.Runs.StartRun(ctx, res.RunID, svc.cfg.Symbols, res.Started); err != nil {
			return res, fmt.Errorf("start run: %w", err)
		}
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	workers := min(svc.cfg.Workers, len(svc.cfg.Symbols))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res.Symbols[i] = svc.ScanSymbol(ctx, res.RunID, svc.cfg.Symbols[i])
			}
		}()
	}
	for i := range svc.cfg.Symbols {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	res.Finished = svc.now().UTC()
	stats := res.Stats()
	if svc.deps.Metrics != nil {
		svc.deps.Metrics.LastScanTimestamp.Set(float64(res.Finished.Unix()))
	}
	if svc.deps.Health != nil {
		svc.deps.Health.SetLastScan(res.Finished, stats.Failures == 0, stats.Signals)
	}
	svc.log.InfoContext(ctx, "scan complete", append(logger.LogWithTrace(ctx),
		"bars", stats.Bars, "signals", stats.Signals, "failures", stats.Failures,
		"duration", res.Finished.Sub(res.Started).String())...)

	if svc.deps.Runs != nil {
		// Record the outcome even when ctx was cancelled mid-run.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := svc.deps.Runs.FinishRun(fctx, res.RunID, stats, res.Finished); err != nil {
			return res, fmt.Errorf("finish run: %w", err)
		}
	}
	return res, nil
}

// ScanSymbol runs the pipeline for one symbol.
func (svc *Service) ScanSymbol(ctx context.Context, runID, symbol string) SymbolResult {
	start := svc.now()
	r := SymbolResult{Symbol: symbol}
	r.Err = svc.scan(ctx, runID, &r)
	r.Duration = svc.now().Sub(start)

	if r.Err != nil {
		svc.log.ErrorContext(ctx, "symbol failed", "symbol", symbol, "error", r.Err)
		if svc.deps.Metrics != nil {
			svc.deps.Metrics.SymbolFailures.WithLabelValues(symbol).Inc()
		}
		return r
	}
	svc.log.InfoContext(ctx, "symbol scanned",
		"symbol", symbol, "bars", r.Bars, "signals", len(r.Signals),
		"fresh", len(r.Fresh), "stored", r.Stored, "duration", r.Duration.String())
	return r
}

func (svc *Service) scan(ctx context.Context, runID string, r *SymbolResult) error {
	m := svc.deps.Metrics
	stage := func(name string, t0 time.Time) {
		if m != nil {
			m.ObserveStage(name, svc.now().Sub(t0))
		}
	}

	// 1. Load
	t0 := svc.now()
	series, err := svc.deps.Bars.ReadBars(ctx, r.Symbol, svc.cfg.Timeframe, time.Time{}, time.Time{})
	stage("load", t0)
	if err != nil {
		return fmt.Errorf("load bars: %w", err)
	}
	r.Bars = series.Len()
	if m != nil {
		m.BarsLoaded.WithLabelValues(r.Symbol).Add(float64(r.Bars))
	}
	if r.Bars == 0 {
		return fmt.Errorf("%w: no %s bars stored", model.ErrInsufficientData, svc.cfg.Timeframe)
	}

	// 2. Validate
	t0 = svc.now()
	r.Report = svc.validator.Check(series)
	stage("validate", t0)
	if m != nil && len(r.Report.Warnings) > 0 {
		m.ValidationWarnings.WithLabelValues(r.Symbol).Add(float64(len(r.Report.Warnings)))
	}
	if err := r.Report.Err(); err != nil {
		return err
	}

	// 3. Indicators
	t0 = svc.now()
	es, err := svc.engine.Enrich(series)
	stage("indicators", t0)
	if err != nil {
		return fmt.Errorf("indicators: %w", err)
	}
	svc.engine.Validate(es, svc.cfg.ValidateSample)

	// 4. Signals
	t0 = svc.now()
	signals, evals := svc.strategy.ScanWithTrace(es)
	stage("signals", t0)
	r.Signals = signals
	r.Traces = tail(evals, es, svc.cfg.TraceBars)
	r.Fresh = fresh(signals, es, svc.cfg.FreshBars)
	if m != nil {
		m.ObserveTraces(evals)
		m.ObserveSignals(signals)
	}

	// 5. Store
	t0 = svc.now()
	r.Stored, err = svc.deps.Signals.WriteSignals(ctx, runID, r.Symbol, signals, svc.cfg.Replace)
	stage("store", t0)
	if err != nil {
		return fmt.Errorf("store signals: %w", err)
	}

	// 6. Publish and notify fresh signals. Failures here are logged only:
	// the signals are already stored.
	if len(r.Fresh) == 0 {
		return nil
	}
	if svc.deps.Publisher != nil {
		t0 = svc.now()
		if err := svc.deps.Publisher.PublishSignals(ctx, r.Fresh); err != nil {
			svc.log.WarnContext(ctx, "publish failed", "symbol", r.Symbol, "error", err)
		}
		stage("publish", t0)
	}
	if svc.deps.Notifier != nil {
		if err := notification.NotifySignals(ctx, svc.deps.Notifier, r.Fresh, svc.deps.Registry); err != nil {
			svc.log.WarnContext(ctx, "notify failed", "symbol", r.Symbol, "error", err)
		}
	}
	return nil
}

// fresh returns the signals on the last n bars of es.
func fresh(signals []model.Signal, es model.EnrichedSeries, n int) []model.Signal {
	if n <= 0 || es.Len() == 0 {
		return nil
	}
	cutoff := es.Bars[max(0, es.Len()-n)].TS
	var out []model.Signal
	for _, s := range signals {
		if !s.SignalTS.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

// tail returns the evaluations of the last n bars of es.
func tail(evals []strategy.Evaluation, es model.EnrichedSeries, n int) []strategy.Evaluation {
	if n <= 0 {
		return nil
	}
	from := es.Len() - n
	var out []strategy.Evaluation
	for _, ev := range evals {
		if ev.Index >= from {
			out = append(out, ev)
		}
	}
	return out
}
