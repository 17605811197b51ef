package strategy

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/josephadah/trading-ai/internal/indicator"
	"github.com/josephadah/trading-ai/internal/model"
)

// Pullback implements the Daily EMA Pullback rule set.
//
// LONG: close above both EMAs with the short EMA above the long one, a recent
// pullback to the short EMA, and a higher close back above it. The stop goes
// below the most recent swing low and the target sits RiskReward times the
// stop distance away. SHORT mirrors every comparison.
type Pullback struct {
	cfg         Config
	instruments *model.Registry
	log         *slog.Logger
}

// New creates a Pullback strategy. A nil registry uses model.DefaultRegistry
// and a nil logger uses slog.Default().
func New(cfg Config, instruments *model.Registry, logger *slog.Logger) *Pullback {
	if instruments == nil {
		instruments = model.DefaultRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pullback{
		cfg:         cfg,
		instruments: instruments,
		log:         logger.With(slog.String("component", "strategy")),
	}
}

func (p *Pullback) Name() string   { return "EMA_Pullback" }
func (p *Pullback) Config() Config { return p.cfg }

// Scan returns every signal in es, in timestamp order.
func (p *Pullback) Scan(es model.EnrichedSeries) []model.Signal { return Scan(p, es) }

// ScanWithTrace returns every signal plus each bar's gate trail.
func (p *Pullback) ScanWithTrace(es model.EnrichedSeries) ([]model.Signal, []Evaluation) {
	return ScanWithTrace(p, es)
}

// Evaluate runs the gates for bar i in direction dir.
func (p *Pullback) Evaluate(es model.EnrichedSeries, i int, dir model.Direction) Evaluation {
	ev := Evaluation{Index: i, Direction: dir}
	if i < 1 || i >= es.Len() {
		return ev.fail(StepReadiness, "No previous bar")
	}
	cur, prev := es.Bars[i], es.Bars[i-1]
	ev.TS = cur.TS
	if !cur.Ready() {
		return ev.fail(StepReadiness, "Indicators not ready")
	}

	shortEMA := emaLabel(es.EMAShortPeriod, "short")
	longEMA := emaLabel(es.EMALongPeriod, "long")
	pip := p.instruments.PipSize(es.Symbol)

	// 1. Trend
	ok, detail := checkTrend(cur, dir, shortEMA, longEMA)
	if !ok {
		return ev.fail(StepTrend, detail)
	}
	ev.pass(StepTrend, detail)

	// 2. Pullback to the short EMA
	ok, detail = p.checkPullback(es, i, pip, shortEMA)
	if !ok {
		return ev.fail(StepPullback, detail)
	}
	ev.pass(StepPullback, detail)

	// 3. RSI neutral zone
	ok, detail = p.checkMomentum(cur.RSI)
	ev.note(StepMomentum, ok, detail)
	if !ok && p.rsiGated(dir) {
		return ev
	}

	// 4. Entry trigger
	ok, detail = checkTrigger(cur, prev, dir, shortEMA)
	if !ok {
		return ev.fail(StepTrigger, detail)
	}
	ev.pass(StepTrigger, detail)

	// 5. Stop-loss
	entry := cur.Close
	stop, stopPips, detail, ok := p.stopLoss(es, i, dir, entry)
	if !ok {
		return ev.fail(StepStopLoss, detail)
	}
	ev.pass(StepStopLoss, detail)

	// 6. Take-profit
	risk := math.Abs(entry - stop)
	target := entry + dir.Sign()*risk*p.cfg.RiskReward
	if err := model.ValidateTradeParams(entry, stop, target, dir); err != nil {
		return ev.fail(StepTakeProfit, err.Error())
	}
	targetPips := p.instruments.Pips(es.Symbol, math.Abs(target-entry))
	rr := targetPips / stopPips
	ev.pass(StepTakeProfit, fmt.Sprintf("TP at %s (%.1f pips, RR %.2f)",
		p.instruments.FormatPrice(es.Symbol, target), targetPips, rr))

	// 7. Emit
	reasoning := make([]model.Step, len(ev.Steps))
	copy(reasoning, ev.Steps)
	ev.Signal = &model.Signal{
		Symbol:     es.Symbol,
		SignalTS:   cur.TS,
		Direction:  dir,
		EntryPrice: entry,
		StopLoss:   stop,
		TakeProfit: target,
		StopPips:   stopPips,
		TargetPips: targetPips,
		RiskReward: rr,
		Reasoning:  reasoning,
		Snapshot:   cur.Snapshot(),
	}
	p.log.Debug("signal",
		"symbol", es.Symbol,
		"date", cur.TS.Format("2006-01-02"),
		"direction", string(dir),
		"entry", entry,
		"stop", stop,
		"target", target,
	)
	return ev
}

func emaLabel(period int, fallback string) string {
	if period <= 0 {
		return fallback + " EMA"
	}
	return strconv.Itoa(period) + " EMA"
}

func checkTrend(b model.EnrichedBar, dir model.Direction, shortEMA, longEMA string) (bool, string) {
	c, s, l := b.Close, b.EMAShort.V, b.EMALong.V
	if dir == model.Long {
		switch {
		case c <= s:
			return false, "Price not above " + shortEMA
		case c <= l:
			return false, "Price not above " + longEMA
		case s <= l:
			return false, shortEMA + " not above " + longEMA
		}
		return true, "Long trend confirmed"
	}
	switch {
	case c >= s:
		return false, "Price not below " + shortEMA
	case c >= l:
		return false, "Price not below " + longEMA
	case s >= l:
		return false, shortEMA + " not below " + longEMA
	}
	return true, "Short trend confirmed"
}

// checkPullback passes when the close is within NearEMAPips of the short
// EMA, or when any of the previous PullbackLookback bars had the short EMA
// inside its High/Low range widened by EMATolerancePips.
func (p *Pullback) checkPullback(es model.EnrichedSeries, i int, pip float64, shortEMA string) (bool, string) {
	lookback := p.cfg.PullbackLookback
	if i < lookback {
		return false, "Not enough data"
	}
	cur := es.Bars[i]
	distancePips := math.Abs(cur.Close-cur.EMAShort.V) / pip
	if distancePips <= p.cfg.NearEMAPips {
		return true, fmt.Sprintf("Currently near %s (%.1f pips)", shortEMA, distancePips)
	}

	tol := p.cfg.EMATolerancePips * pip
	for j := i - lookback; j < i; j++ {
		b := es.Bars[j]
		if !b.EMAShort.OK {
			continue
		}
		if b.Low-tol <= b.EMAShort.V && b.EMAShort.V <= b.High+tol {
			return true, fmt.Sprintf("Touched %s %d bars ago", shortEMA, i-j)
		}
	}
	return false, "No pullback to " + shortEMA + " detected"
}

func (p *Pullback) checkMomentum(rsi model.Value) (bool, string) {
	if !rsi.OK {
		return false, "RSI not available"
	}
	if p.cfg.RSILow <= rsi.V && rsi.V <= p.cfg.RSIHigh {
		return true, fmt.Sprintf("RSI in neutral zone (%.2f)", rsi.V)
	}
	return false, fmt.Sprintf("RSI outside neutral zone (%.2f)", rsi.V)
}

func (p *Pullback) rsiGated(dir model.Direction) bool {
	if dir == model.Long {
		return p.cfg.GateRSILong
	}
	return p.cfg.GateRSIShort
}

func checkTrigger(cur, prev model.EnrichedBar, dir model.Direction, shortEMA string) (bool, string) {
	if dir == model.Long {
		if cur.Close <= cur.EMAShort.V {
			return false, "Not closed above " + shortEMA
		}
		if cur.Close <= prev.Close {
			return false, "Not higher close than previous"
		}
		return true, "Entry trigger confirmed"
	}
	if cur.Close >= cur.EMAShort.V {
		return false, "Not closed below " + shortEMA
	}
	if cur.Close >= prev.Close {
		return false, "Not lower close than previous"
	}
	return true, "Entry trigger confirmed"
}

// stopLoss places the stop StopBufferPips beyond the most recent swing point
// and checks the distance bounds. Only bars up to i are read.
func (p *Pullback) stopLoss(es model.EnrichedSeries, i int, dir model.Direction, entry float64) (float64, float64, string, bool) {
	lo := i - p.cfg.SwingMaxBack - p.cfg.SwingLookback
	if lo < 0 {
		lo = 0
	}
	window := make([]model.Bar, 0, i+1-lo)
	for _, b := range es.Bars[lo : i+1] {
		window = append(window, b.Bar)
	}
	at := len(window) - 1

	var level float64
	var found bool
	if dir == model.Long {
		level, found = indicator.RecentSwingLow(window, at, p.cfg.SwingLookback, p.cfg.SwingMaxBack)
		if !found {
			return 0, 0, "No swing low found", false
		}
	} else {
		level, found = indicator.RecentSwingHigh(window, at, p.cfg.SwingLookback, p.cfg.SwingMaxBack)
		if !found {
			return 0, 0, "No swing high found", false
		}
	}

	stop := level - dir.Sign()*p.instruments.FromPips(es.Symbol, p.cfg.StopBufferPips)
	if (dir == model.Long && stop >= entry) || (dir == model.Short && stop <= entry) {
		return 0, 0, fmt.Sprintf("SL %s on wrong side of entry", p.instruments.FormatPrice(es.Symbol, stop)), false
	}

	pips := p.instruments.Pips(es.Symbol, math.Abs(entry-stop))
	switch {
	case pips == 0:
		return 0, 0, "SL distance is zero", false
	case pips < p.cfg.MinStopPips:
		return 0, 0, fmt.Sprintf("SL too tight (%.1f pips < %g)", pips, p.cfg.MinStopPips), false
	case pips > p.cfg.MaxStopPips:
		return 0, 0, fmt.Sprintf("SL too wide (%.1f pips > %g)", pips, p.cfg.MaxStopPips), false
	}
	return stop, pips, fmt.Sprintf("SL at %s (%.1f pips)", p.instruments.FormatPrice(es.Symbol, stop), pips), true
}
