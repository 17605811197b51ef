package validate

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/josephadah/trading-ai/internal/markethours"
	"github.com/josephadah/trading-ai/internal/model"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// tradingBars returns n bars on consecutive trading days starting at start,
// closing at c with a 20-pip range.
func tradingBars(start time.Time, n int, c float64) []model.Bar {
	bars := make([]model.Bar, 0, n)
	for d := start; len(bars) < n; d = d.AddDate(0, 0, 1) {
		if !markethours.IsTradingDay(d) {
			continue
		}
		bars = append(bars, model.Bar{TS: d, Open: c, High: c + 0.001, Low: c - 0.001, Close: c})
	}
	return bars
}

func series(bars []model.Bar) model.Series {
	return model.Series{Symbol: "EURUSD", Timeframe: "1d", Bars: bars}
}

func hasIssue(issues []string, prefix string) bool {
	for _, s := range issues {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

var monday = time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

func TestCheck_Clean(t *testing.T) {
	v := New(DefaultOptions(), quiet)
	r := v.Check(series(tradingBars(monday, 10, 1.1)))
	if !r.Valid || len(r.Issues()) != 0 {
		t.Fatalf("expected clean report, got %+v", r)
	}
	if r.Rows != 10 || !r.From.Equal(monday) || !r.To.Equal(time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected range: rows=%d from=%v to=%v", r.Rows, r.From, r.To)
	}
	if r.Range != "Date range: 2024-03-04 to 2024-03-15 (11 days, 10 records)" {
		t.Errorf("range: %q", r.Range)
	}
	if r.Err() != nil {
		t.Errorf("Err() = %v", r.Err())
	}
}

func TestCheck_Empty(t *testing.T) {
	r := New(DefaultOptions(), quiet).Check(series(nil))
	if r.Valid || len(r.Critical) != 1 || r.Critical[0] != "Data is empty" {
		t.Fatalf("got %+v", r)
	}
	if !errors.Is(r.Err(), ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", r.Err())
	}
}

func TestCheck_NullValues(t *testing.T) {
	bars := tradingBars(monday, 5, 1.1)
	bars[2].Close = math.NaN()
	bars[3].Open = math.Inf(1)
	r := New(DefaultOptions(), quiet).Check(series(bars))
	if r.Valid {
		t.Fatal("expected invalid")
	}
	if r.Critical[0] != "Null values found in columns: [open close]" {
		t.Errorf("got %q", r.Critical[0])
	}
}

func TestCheck_NonPositive(t *testing.T) {
	bars := tradingBars(monday, 5, 1.1)
	bars[1].Low = 0
	r := New(DefaultOptions(), quiet).Check(series(bars))
	if r.Valid || !hasIssue(r.Critical, "Found 1 rows with non-positive prices") {
		t.Fatalf("got %+v", r)
	}
}

func TestCheck_Ordering(t *testing.T) {
	bars := tradingBars(monday, 5, 1.1)
	bars[2].TS = bars[1].TS
	bars[4].TS = bars[0].TS.Add(-24 * time.Hour)
	r := New(DefaultOptions(), quiet).Check(series(bars))
	if r.Valid {
		t.Fatal("expected invalid")
	}
	if !hasIssue(r.Critical, "Found 1 duplicate timestamps") {
		t.Errorf("missing duplicate issue: %v", r.Critical)
	}
	if !hasIssue(r.Critical, "Found 1 rows out of timestamp order") {
		t.Errorf("missing ordering issue: %v", r.Critical)
	}
}

func TestCheck_OHLCLogic(t *testing.T) {
	bars := tradingBars(monday, 5, 1.1)
	bars[2].High = 1.09
	bars[2].Low = 1.095

	r := New(DefaultOptions(), quiet).Check(series(bars))
	if !r.Valid {
		t.Fatalf("OHLC issues are warnings in lenient mode: %v", r.Critical)
	}
	if !hasIssue(r.Warnings, "Found 1 rows where high < low") ||
		!hasIssue(r.Warnings, "Found 1 rows where high < open or close") {
		t.Errorf("warnings: %v", r.Warnings)
	}
	if hasIssue(r.Warnings, "Found 1 rows where low > open or close") {
		t.Errorf("low is below open and close: %v", r.Warnings)
	}

	strict := DefaultOptions()
	strict.Strict = true
	r = New(strict, quiet).Check(series(bars))
	if r.Valid {
		t.Fatal("expected strict mode to fail")
	}
	if r.Range != "" {
		t.Errorf("strict failure should stop before the range summary, got %q", r.Range)
	}
}

func TestCheck_LargeMoves(t *testing.T) {
	bars := tradingBars(monday, 6, 1.0)
	for i := 3; i < len(bars); i++ {
		bars[i].Open, bars[i].High, bars[i].Low, bars[i].Close = 1.15, 1.151, 1.149, 1.15
	}
	r := New(DefaultOptions(), quiet).Check(series(bars))
	if !r.Valid {
		t.Fatalf("moves are warnings: %v", r.Critical)
	}
	want := "Found 1 days with >10.0% price change (may be normal for EURUSD)"
	if !hasIssue(r.Warnings, want) {
		t.Errorf("warnings %v, want %q", r.Warnings, want)
	}
}

func TestCheck_Gaps(t *testing.T) {
	// Mar 4..8, then nothing until Mar 18.
	first := tradingBars(monday, 5, 1.1)
	second := tradingBars(time.Date(2024, time.March, 18, 0, 0, 0, 0, time.UTC), 3, 1.1)
	r := New(DefaultOptions(), quiet).Check(series(append(first, second...)))
	if !r.Valid {
		t.Fatalf("gaps are warnings: %v", r.Critical)
	}
	if len(r.Gaps) != 1 {
		t.Fatalf("expected 1 gap, got %v", r.Gaps)
	}
	g := r.Gaps[0]
	if g.Days != 10 || g.Missing != 5 {
		t.Errorf("gap = %+v, want 10 days / 5 missing", g)
	}
	if !hasIssue(r.Warnings, "Found 1 date gaps: [2024-03-08 -> 2024-03-18 (10 days)]") {
		t.Errorf("warnings: %v", r.Warnings)
	}
}

func TestCheck_HolidayWeekendIsNotAGap(t *testing.T) {
	// Fri 2023-12-22 -> Tue 2023-12-26 spans Christmas Monday.
	bars := tradingBars(time.Date(2023, time.December, 20, 0, 0, 0, 0, time.UTC), 6, 1.1)
	if !bars[3].TS.Equal(time.Date(2023, time.December, 26, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("fixture: bar 3 = %v", bars[3].TS)
	}
	r := New(DefaultOptions(), quiet).Check(series(bars))
	if len(r.Gaps) != 0 {
		t.Errorf("unexpected gaps: %v", r.Gaps)
	}
}

func TestCheck_MinBars(t *testing.T) {
	opts := DefaultOptions()
	opts.MinBars = 60
	r := New(opts, quiet).Check(series(tradingBars(monday, 30, 1.1)))
	if r.Valid {
		t.Fatal("expected invalid")
	}
	if !errors.Is(r.Err(), model.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", r.Err())
	}
	if !hasIssue(r.Critical, "Only 30 rows, need at least 60") {
		t.Errorf("critical: %v", r.Critical)
	}
}

func TestCheckAll(t *testing.T) {
	good := series(tradingBars(monday, 5, 1.1))
	bad := model.Series{Symbol: "GBPUSD", Timeframe: "1d"}
	reports := New(DefaultOptions(), quiet).CheckAll([]model.Series{good, bad})
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if !reports["EURUSD"].Valid || reports["GBPUSD"].Valid {
		t.Errorf("unexpected validity: %+v", reports)
	}
}
