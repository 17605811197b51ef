// Package validate checks the quality of a bar series before it is stored
// or enriched.
//
// Issues come in two classes. Critical issues (empty input, null fields,
// non-positive prices, duplicate or out-of-order timestamps, too few bars)
// make the series unusable. Warnings (broken OHLC ordering, large
// close-to-close moves, calendar gaps) are reported but do not fail the
// check unless Strict is set, in which case OHLC violations are critical.
package validate

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/josephadah/trading-ai/internal/markethours"
	"github.com/josephadah/trading-ai/internal/model"
)

// ErrInvalid is returned by Report.Err when a series has critical issues.
var ErrInvalid = errors.New("data validation failed")

// Options tunes the checks.
type Options struct {
	Strict     bool    `yaml:"strict"`
	MaxMove    float64 `yaml:"max_move"`     // close-to-close change flagged as an anomaly (0.10 = 10%)
	MaxGapDays int     `yaml:"max_gap_days"` // calendar days between bars before a gap is considered
	MinBars    int     `yaml:"min_bars"`     // 0 disables
}

// DefaultOptions returns the non-strict defaults: 10% moves, 3-day gaps.
func DefaultOptions() Options {
	return Options{MaxMove: 0.10, MaxGapDays: 3}
}

// Gap is a hole in the bar sequence that skips at least one trading day.
type Gap struct {
	From    time.Time `json:"from"`
	To      time.Time `json:"to"`
	Days    int       `json:"days"`    // calendar days between the two bars
	Missing int       `json:"missing"` // trading days with no bar
}

func (g Gap) String() string {
	return fmt.Sprintf("%s -> %s (%d days)", g.From.Format("2006-01-02"), g.To.Format("2006-01-02"), g.Days)
}

// Report is the outcome of checking one series.
type Report struct {
	Symbol   string    `json:"symbol"`
	Rows     int       `json:"rows"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Valid    bool      `json:"valid"`
	Critical []string  `json:"critical,omitempty"`
	Warnings []string  `json:"warnings,omitempty"`
	Gaps     []Gap     `json:"gaps,omitempty"`
	Range    string    `json:"range,omitempty"`

	insufficient bool
}

// Issues returns critical issues followed by warnings.
func (r Report) Issues() []string {
	out := make([]string, 0, len(r.Critical)+len(r.Warnings))
	out = append(out, r.Critical...)
	return append(out, r.Warnings...)
}

// Err returns nil for a valid report. Otherwise the error wraps
// model.ErrInsufficientData when the series was too short, else ErrInvalid.
func (r Report) Err() error {
	if r.Valid {
		return nil
	}
	cause := ErrInvalid
	if r.insufficient {
		cause = model.ErrInsufficientData
	}
	return fmt.Errorf("%w: %s: %s", cause, r.Symbol, strings.Join(r.Critical, "; "))
}

func (r *Report) critical(msg string) {
	r.Critical = append(r.Critical, msg)
	r.Valid = false
}

func (r *Report) warn(msg string) { r.Warnings = append(r.Warnings, msg) }

// Validator runs the checks and logs their outcome.
type Validator struct {
	opts Options
	log  *slog.Logger
}

// New creates a Validator. Zero MaxMove/MaxGapDays take the defaults.
// A nil logger uses slog.Default().
func New(opts Options, logger *slog.Logger) *Validator {
	def := DefaultOptions()
	if opts.MaxMove <= 0 {
		opts.MaxMove = def.MaxMove
	}
	if opts.MaxGapDays <= 0 {
		opts.MaxGapDays = def.MaxGapDays
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{opts: opts, log: logger.With(slog.String("component", "validate"))}
}

// Check validates s with the given options.
func Check(s model.Series, opts Options) Report {
	return New(opts, nil).Check(s)
}

// Check validates one series.
func (v *Validator) Check(s model.Series) Report {
	r := v.check(s)
	switch {
	case !r.Valid:
		v.log.Error("validation failed", "symbol", s.Symbol, "rows", r.Rows, "issues", r.Critical)
	case len(r.Warnings) > 0:
		v.log.Info("validation passed", "symbol", s.Symbol, "rows", r.Rows)
		v.log.Warn("non-critical issues found", "symbol", s.Symbol, "issues", r.Warnings)
	default:
		v.log.Info("validation passed", "symbol", s.Symbol, "rows", r.Rows)
	}
	return r
}

// CheckAll validates every series and returns the reports keyed by symbol.
func (v *Validator) CheckAll(series []model.Series) map[string]Report {
	v.log.Info("validating datasets", "count", len(series))
	out := make(map[string]Report, len(series))
	valid := 0
	for _, s := range series {
		r := v.Check(s)
		if r.Valid {
			valid++
		}
		out[s.Symbol] = r
	}
	v.log.Info("validation complete", "valid", valid, "total", len(out))
	return out
}

func (v *Validator) check(s model.Series) Report {
	r := Report{Symbol: s.Symbol, Rows: s.Len(), Valid: true}
	if s.Len() == 0 {
		r.critical("Data is empty")
		return r
	}
	r.From, r.To = s.First(), s.Last()

	if cols := nullColumns(s.Bars); len(cols) > 0 {
		r.critical(fmt.Sprintf("Null values found in columns: [%s]", strings.Join(cols, " ")))
		if v.opts.Strict {
			return r
		}
	}
	if n := countNonPositive(s.Bars); n > 0 {
		r.critical(fmt.Sprintf("Found %d rows with non-positive prices", n))
	}
	dups, back := countOrdering(s.Bars)
	if dups > 0 {
		r.critical(fmt.Sprintf("Found %d duplicate timestamps", dups))
	}
	if back > 0 {
		r.critical(fmt.Sprintf("Found %d rows out of timestamp order", back))
	}
	if v.opts.MinBars > 0 && s.Len() < v.opts.MinBars {
		r.insufficient = true
		r.critical(fmt.Sprintf("Only %d rows, need at least %d", s.Len(), v.opts.MinBars))
	}

	if issues := ohlcIssues(s.Bars); len(issues) > 0 {
		if v.opts.Strict {
			for _, msg := range issues {
				r.critical(msg)
			}
			return r
		}
		for _, msg := range issues {
			r.warn(msg)
		}
	}

	if n := v.countMoves(s); n > 0 {
		r.warn(fmt.Sprintf("Found %d days with >%.1f%% price change (may be normal for %s)",
			n, v.opts.MaxMove*100, s.Symbol))
	}

	r.Gaps = v.findGaps(s.Bars)
	if len(r.Gaps) > 0 {
		shown := r.Gaps
		if len(shown) > 5 {
			shown = shown[:5]
		}
		strs := make([]string, len(shown))
		for i, g := range shown {
			strs[i] = g.String()
		}
		r.warn(fmt.Sprintf("Found %d date gaps: [%s]", len(r.Gaps), strings.Join(strs, ", ")))
	}

	r.Range = fmt.Sprintf("Date range: %s to %s (%d days, %d records)",
		r.From.Format("2006-01-02"), r.To.Format("2006-01-02"), wholeDays(r.From, r.To), r.Rows)
	return r
}

func nullColumns(bars []model.Bar) []string {
	var ts, open, high, low, cls bool
	for _, b := range bars {
		ts = ts || b.TS.IsZero()
		open = open || !finite(b.Open)
		high = high || !finite(b.High)
		low = low || !finite(b.Low)
		cls = cls || !finite(b.Close)
	}
	var cols []string
	for _, c := range []struct {
		name string
		hit  bool
	}{{"timestamp", ts}, {"open", open}, {"high", high}, {"low", low}, {"close", cls}} {
		if c.hit {
			cols = append(cols, c.name)
		}
	}
	return cols
}

func countNonPositive(bars []model.Bar) int {
	n := 0
	for _, b := range bars {
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			n++
		}
	}
	return n
}

func countOrdering(bars []model.Bar) (dups, back int) {
	for i := 1; i < len(bars); i++ {
		switch {
		case bars[i].TS.Equal(bars[i-1].TS):
			dups++
		case bars[i].TS.Before(bars[i-1].TS):
			back++
		}
	}
	return dups, back
}

func ohlcIssues(bars []model.Bar) []string {
	var highLow, high, low int
	for _, b := range bars {
		if b.High < b.Low {
			highLow++
		}
		if b.High < b.Open || b.High < b.Close {
			high++
		}
		if b.Low > b.Open || b.Low > b.Close {
			low++
		}
	}
	var issues []string
	if highLow > 0 {
		issues = append(issues, fmt.Sprintf("Found %d rows where high < low", highLow))
	}
	if high > 0 {
		issues = append(issues, fmt.Sprintf("Found %d rows where high < open or close", high))
	}
	if low > 0 {
		issues = append(issues, fmt.Sprintf("Found %d rows where low > open or close", low))
	}
	return issues
}

func (v *Validator) countMoves(s model.Series) int {
	n := 0
	for i := 1; i < s.Len(); i++ {
		prev, cur := s.Bars[i-1], s.Bars[i]
		if prev.Close <= 0 || !finite(prev.Close) || !finite(cur.Close) {
			continue
		}
		ret := cur.Close/prev.Close - 1
		if math.Abs(ret) <= v.opts.MaxMove {
			continue
		}
		n++
		if n <= 3 {
			v.log.Debug("large move", "symbol", s.Symbol, "date", cur.TS.Format("2006-01-02"),
				"pct", fmt.Sprintf("%.2f", ret*100), "close", cur.Close)
		}
	}
	return n
}

// findGaps reports consecutive bars more than MaxGapDays apart with at least
// one trading day between them. Long weekends around market closures are
// not gaps.
func (v *Validator) findGaps(bars []model.Bar) []Gap {
	var gaps []Gap
	for i := 1; i < len(bars); i++ {
		from, to := bars[i-1].TS, bars[i].TS
		if !to.After(from) {
			continue
		}
		days := wholeDays(from, to)
		if days <= v.opts.MaxGapDays {
			continue
		}
		missing := markethours.TradingDaysBetween(from, to)
		if missing == 0 {
			continue
		}
		gaps = append(gaps, Gap{From: from, To: to, Days: days, Missing: missing})
	}
	return gaps
}

func wholeDays(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
