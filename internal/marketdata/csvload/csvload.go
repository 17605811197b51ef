// Package csvload reads daily OHLC bars from CSV exports.
//
// The first record must be a header naming at least a timestamp column
// (timestamp, date or datetime) and open, high, low, close. A volume column
// is optional. Column order and case do not matter.
package csvload

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/josephadah/trading-ai/internal/model"
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02T15:04:05",
}

// ReadFile opens path and parses it with Read.
func ReadFile(path, symbol, timeframe string) (model.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Series{}, fmt.Errorf("csvload: open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, symbol, timeframe)
}

// Read parses bars from r. Empty price cells become NaN so that validation
// reports them as null values. Bars are returned sorted by timestamp.
func Read(r io.Reader, symbol, timeframe string) (model.Series, error) {
	s := model.Series{Symbol: strings.ToUpper(symbol), Timeframe: timeframe}

	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("csvload: header: %w", err)
	}
	cols, err := columns(s.Symbol, header)
	if err != nil {
		return s, err
	}

	for row := 0; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return s, fmt.Errorf("csvload: row %d: %w", row, err)
		}
		b, err := parseBar(rec, cols)
		if err != nil {
			return s, fmt.Errorf("csvload: %s row %d: %w", s.Symbol, row, err)
		}
		s.Bars = append(s.Bars, b)
	}

	sort.SliceStable(s.Bars, func(i, j int) bool { return s.Bars[i].TS.Before(s.Bars[j].TS) })
	return s, nil
}

type columnIndex struct {
	ts, open, high, low, close, volume int
}

func columns(symbol string, header []string) (columnIndex, error) {
	idx := columnIndex{-1, -1, -1, -1, -1, -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "timestamp", "date", "datetime", "time":
			idx.ts = i
		case "open":
			idx.open = i
		case "high":
			idx.high = i
		case "low":
			idx.low = i
		case "close":
			idx.close = i
		case "volume":
			idx.volume = i
		}
	}
	var missing []string
	for _, c := range []struct {
		name string
		at   int
	}{{"timestamp", idx.ts}, {"open", idx.open}, {"high", idx.high}, {"low", idx.low}, {"close", idx.close}} {
		if c.at < 0 {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return idx, &model.SchemaError{Symbol: symbol, Row: -1, Fields: missing}
	}
	return idx, nil
}

func parseBar(rec []string, cols columnIndex) (model.Bar, error) {
	var b model.Bar
	ts, err := parseTime(field(rec, cols.ts))
	if err != nil {
		return b, err
	}
	b.TS = ts
	for _, p := range []struct {
		name string
		at   int
		dst  *float64
	}{{"open", cols.open, &b.Open}, {"high", cols.high, &b.High}, {"low", cols.low, &b.Low}, {"close", cols.close, &b.Close}} {
		v, err := parsePrice(field(rec, p.at))
		if err != nil {
			return b, fmt.Errorf("%s: %w", p.name, err)
		}
		*p.dst = v
	}
	if cols.volume >= 0 {
		if raw := field(rec, cols.volume); raw != "" {
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return b, fmt.Errorf("volume: %w", err)
			}
			v := int64(f)
			b.Volume = &v
		}
	}
	return b, nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parsePrice(raw string) (float64, error) {
	if raw == "" || strings.EqualFold(raw, "nan") || strings.EqualFold(raw, "null") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(raw, 64)
}

// parseTime accepts the layouts above or Unix seconds. Results are UTC.
func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(n, 0).UTC(), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", raw)
}
