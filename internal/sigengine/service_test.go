package sigengine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/josephadah/trading-ai/internal/metrics"
	"github.com/josephadah/trading-ai/internal/model"
	"github.com/josephadah/trading-ai/internal/notification"
	sqlitestore "github.com/josephadah/trading-ai/internal/store/sqlite"
)

// ────────────────────────────────────────────────────────────
// Fakes
// ────────────────────────────────────────────────────────────

type fakeBars struct {
	series map[string]model.Series
	err    error
}

func (f *fakeBars) ReadBars(_ context.Context, symbol, tf string, _, _ time.Time) (model.Series, error) {
	if f.err != nil {
		return model.Series{}, f.err
	}
	s := f.series[symbol]
	s.Symbol, s.Timeframe = symbol, tf
	return s, nil
}

type fakeSignals struct {
	mu      sync.Mutex
	written map[string][]model.Signal
	runIDs  map[string]bool
	replace bool
	err     error
}

func (f *fakeSignals) WriteSignals(_ context.Context, runID, symbol string, signals []model.Signal, replace bool) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	if f.written == nil {
		f.written = map[string][]model.Signal{}
		f.runIDs = map[string]bool{}
	}
	f.written[symbol] = signals
	f.runIDs[runID] = true
	f.replace = replace
	return len(signals), nil
}

type fakeRuns struct {
	started, finished string
	stats             sqlitestore.RunStats
}

func (f *fakeRuns) StartRun(_ context.Context, runID string, _ []string, _ time.Time) error {
	f.started = runID
	return nil
}

func (f *fakeRuns) FinishRun(_ context.Context, runID string, stats sqlitestore.RunStats, _ time.Time) error {
	f.finished, f.stats = runID, stats
	return nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []model.Signal
	err       error
}

func (f *fakePublisher) PublishSignals(_ context.Context, signals []model.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, signals...)
	return f.err
}

type fakeNotifier struct {
	mu     sync.Mutex
	alerts []notification.Alert
}

func (f *fakeNotifier) Send(_ context.Context, a notification.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, a)
	return nil
}

// ────────────────────────────────────────────────────────────
// Fixtures
// ────────────────────────────────────────────────────────────

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

// pullbackBars returns the first n bars of a steady rise, a 5-bar pullback
// onto the 20 EMA and a recovery. With the default config the full 60-bar
// series has exactly one LONG signal, on bar 55.
func pullbackBars(n int) []model.Bar {
	bars := make([]model.Bar, n)
	var c, prev int64
	for i := range bars {
		switch {
		case i <= 47:
			c = 110000 + 150*int64(i)
		case i <= 52:
			c -= 300
		default:
			c += 120
		}
		o := c - 50
		if i > 0 {
			o = prev
		}
		bars[i] = model.Bar{
			TS:    day(i),
			Open:  float64(o) / 1e5,
			High:  float64(max(o, c)+40) / 1e5,
			Low:   float64(min(o, c)-40) / 1e5,
			Close: float64(c) / 1e5,
		}
		prev = c
	}
	return bars
}

func testConfig(symbols ...string) Config {
	cfg := DefaultConfig()
	cfg.Symbols = symbols
	cfg.Workers = 2
	cfg.ValidateSample = 0
	return cfg
}

func newService(t *testing.T, cfg Config, deps Deps) *Service {
	t.Helper()
	svc, err := New(cfg, deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

// ────────────────────────────────────────────────────────────
// Tests
// ────────────────────────────────────────────────────────────

func TestNew_Errors(t *testing.T) {
	if _, err := New(testConfig(), Deps{Bars: &fakeBars{}, Signals: &fakeSignals{}}); err == nil {
		t.Error("expected error for empty symbols")
	}
	if _, err := New(testConfig("EURUSD"), Deps{}); err == nil {
		t.Error("expected error for missing deps")
	}
	cfg := testConfig("EURUSD")
	cfg.Workers = 0
	cfg.Indicator.EMAShort = 0
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "workers") || !strings.Contains(err.Error(), "indicator") {
		t.Errorf("Validate should report every problem, got %v", err)
	}
}

func TestRun_FullPipeline(t *testing.T) {
	bars := &fakeBars{series: map[string]model.Series{
		// Ends on the signal bar: the signal is fresh.
		"EURUSD": {Bars: pullbackBars(56)},
		// Signal bar is four bars back: stored, not published.
		"GBPUSD": {Bars: pullbackBars(60)},
	}}
	sigs := &fakeSignals{}
	runs := &fakeRuns{}
	pub := &fakePublisher{}
	notif := &fakeNotifier{}
	m := metrics.NewMetrics(prometheus.NewRegistry())
	health := metrics.NewHealthStatus()

	cfg := testConfig("EURUSD", "GBPUSD")
	cfg.TraceBars = 3
	svc := newService(t, cfg, Deps{
		Bars: bars, Signals: sigs, Runs: runs, Publisher: pub,
		Notifier: notif, Metrics: m, Health: health,
	})

	res, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Err() != nil {
		t.Fatalf("symbol errors: %v", res.Err())
	}
	if res.Symbols[0].Symbol != "EURUSD" || res.Symbols[1].Symbol != "GBPUSD" {
		t.Errorf("results out of order: %s, %s", res.Symbols[0].Symbol, res.Symbols[1].Symbol)
	}

	st := res.Stats()
	if st.Bars != 116 || st.Signals != 2 || st.Failures != 0 {
		t.Errorf("stats = %+v", st)
	}
	if runs.started != res.RunID || runs.finished != res.RunID || runs.stats != st {
		t.Errorf("run not recorded: %+v", runs)
	}
	if len(sigs.written["EURUSD"]) != 1 || len(sigs.written["GBPUSD"]) != 1 || !sigs.runIDs[res.RunID] {
		t.Errorf("stored = %v", sigs.written)
	}

	if len(pub.published) != 1 || pub.published[0].Symbol != "EURUSD" {
		t.Errorf("published = %+v", pub.published)
	}
	if len(notif.alerts) != 1 || !strings.HasPrefix(notif.alerts[0].Title, "LONG EURUSD") {
		t.Errorf("alerts = %+v", notif.alerts)
	}

	// 3 trace bars x 2 directions
	if got := len(res.Symbols[1].Traces); got != 6 {
		t.Errorf("traces = %d, want 6", got)
	}

	if got := testutil.ToFloat64(m.SignalsTotal.WithLabelValues("EURUSD", "LONG")); got != 1 {
		t.Errorf("SignalsTotal = %v", got)
	}
	if got := testutil.ToFloat64(m.BarsLoaded.WithLabelValues("GBPUSD")); got != 60 {
		t.Errorf("BarsLoaded = %v", got)
	}
	if testutil.ToFloat64(m.LastScanTimestamp) == 0 {
		t.Error("LastScanTimestamp not set")
	}
	if !health.LastScanOK || health.LastScanCount != 2 {
		t.Errorf("health = ok:%v count:%d", health.LastScanOK, health.LastScanCount)
	}
}

func TestRun_FailingSymbolDoesNotStopOthers(t *testing.T) {
	bad := pullbackBars(60)
	bad[10].Close = -1
	bars := &fakeBars{series: map[string]model.Series{
		"EURUSD": {Bars: pullbackBars(60)},
		"GBPUSD": {Bars: bad},
	}}
	sigs := &fakeSignals{}
	runs := &fakeRuns{}
	m := metrics.NewMetrics(prometheus.NewRegistry())
	svc := newService(t, testConfig("EURUSD", "GBPUSD", "XAUUSD"), Deps{
		Bars: bars, Signals: sigs, Runs: runs, Metrics: m,
	})

	res, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Symbols[0].Err != nil {
		t.Errorf("EURUSD failed: %v", res.Symbols[0].Err)
	}
	if res.Symbols[1].Err == nil || !strings.Contains(res.Symbols[1].Err.Error(), "non-positive") {
		t.Errorf("GBPUSD err = %v", res.Symbols[1].Err)
	}
	if !errors.Is(res.Symbols[2].Err, model.ErrInsufficientData) {
		t.Errorf("XAUUSD err = %v, want ErrInsufficientData", res.Symbols[2].Err)
	}
	if runs.stats.Failures != 2 {
		t.Errorf("failures = %d, want 2", runs.stats.Failures)
	}
	if got := testutil.ToFloat64(m.SymbolFailures.WithLabelValues("XAUUSD")); got != 1 {
		t.Errorf("SymbolFailures = %v", got)
	}
	if _, ok := sigs.written["GBPUSD"]; ok {
		t.Error("invalid series should not reach storage")
	}
}

func TestRun_StoreAndPublishErrors(t *testing.T) {
	bars := &fakeBars{series: map[string]model.Series{"EURUSD": {Bars: pullbackBars(56)}}}

	svc := newService(t, testConfig("EURUSD"), Deps{Bars: bars, Signals: &fakeSignals{err: errors.New("disk full")}})
	res, _ := svc.Run(context.Background())
	if res.Symbols[0].Err == nil || !strings.Contains(res.Symbols[0].Err.Error(), "store signals") {
		t.Errorf("store error = %v", res.Symbols[0].Err)
	}

	pub := &fakePublisher{err: errors.New("redis down")}
	svc = newService(t, testConfig("EURUSD"), Deps{Bars: bars, Signals: &fakeSignals{}, Publisher: pub})
	res, _ = svc.Run(context.Background())
	if res.Symbols[0].Err != nil {
		t.Errorf("publish failure should not fail the symbol: %v", res.Symbols[0].Err)
	}
	if len(pub.published) != 1 {
		t.Errorf("published = %d", len(pub.published))
	}
}

func TestRun_LoadError(t *testing.T) {
	svc := newService(t, testConfig("EURUSD"), Deps{
		Bars: &fakeBars{err: errors.New("locked")}, Signals: &fakeSignals{},
	})
	res, err := svc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Err() == nil || !strings.Contains(res.Err().Error(), "EURUSD: load bars: locked") {
		t.Errorf("err = %v", res.Err())
	}
}

func TestRun_ReplacePassedThrough(t *testing.T) {
	sigs := &fakeSignals{}
	cfg := testConfig("EURUSD")
	cfg.Replace = true
	svc := newService(t, cfg, Deps{
		Bars:    &fakeBars{series: map[string]model.Series{"EURUSD": {Bars: pullbackBars(60)}}},
		Signals: sigs,
	})
	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !sigs.replace {
		t.Error("replace flag not passed to the signal writer")
	}
}

func TestFresh(t *testing.T) {
	es := model.EnrichedSeries{Bars: make([]model.EnrichedBar, 10)}
	for i := range es.Bars {
		es.Bars[i].TS = day(i)
	}
	signals := []model.Signal{{SignalTS: day(3)}, {SignalTS: day(8)}, {SignalTS: day(9)}}

	tests := []struct {
		n    int
		want int
	}{
		{0, 0},
		{1, 1},
		{2, 2},
		{7, 3},
		{100, 3},
	}
	for _, tt := range tests {
		if got := len(fresh(signals, es, tt.n)); got != tt.want {
			t.Errorf("fresh(n=%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestNextDailyClose(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"weekday before close", time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), time.Date(2024, 3, 5, 22, 5, 0, 0, time.UTC)},
		{"weekday after close", time.Date(2024, 3, 5, 22, 10, 0, 0, time.UTC), time.Date(2024, 3, 6, 22, 5, 0, 0, time.UTC)},
		{"friday night to monday", time.Date(2024, 3, 8, 23, 0, 0, 0, time.UTC), time.Date(2024, 3, 11, 22, 5, 0, 0, time.UTC)},
		{"skips christmas", time.Date(2024, 12, 24, 23, 0, 0, 0, time.UTC), time.Date(2024, 12, 26, 22, 5, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextDailyClose(tt.now, 5*time.Minute); !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
