package model

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Bar is one OHLC bar for a single symbol.
// Prices are plain floats in quote currency; pip conversion goes through Registry.
type Bar struct {
	TS     time.Time `json:"ts"` // bar open time (UTC, day-aligned for 1d)
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume *int64    `json:"volume,omitempty"` // nil when the provider has no volume
}

// Range returns High - Low.
func (b Bar) Range() float64 { return b.High - b.Low }

// JSON returns the JSON-encoded bar (ignoring errors).
func (b *Bar) JSON() []byte {
	out, _ := json.Marshal(b)
	return out
}

// MissingFields lists required fields that are unset on b.
// A price that is zero, negative or not finite counts as missing.
func (b Bar) MissingFields() []string {
	var missing []string
	if b.TS.IsZero() {
		missing = append(missing, "timestamp")
	}
	for _, f := range []struct {
		name string
		v    float64
	}{{"open", b.Open}, {"high", b.High}, {"low", b.Low}, {"close", b.Close}} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v <= 0 {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Series is an ordered sequence of bars for one symbol and timeframe.
// Bars are ascending by TS with no duplicates.
type Series struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	Bars      []Bar  `json:"bars"`
}

// Len returns the number of bars.
func (s Series) Len() int { return len(s.Bars) }

// Closes returns the close prices in bar order.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// First and Last return the timestamps of the first and last bar.
// Both are zero for an empty series.
func (s Series) First() time.Time {
	if len(s.Bars) == 0 {
		return time.Time{}
	}
	return s.Bars[0].TS
}

func (s Series) Last() time.Time {
	if len(s.Bars) == 0 {
		return time.Time{}
	}
	return s.Bars[len(s.Bars)-1].TS
}

// CheckStructure returns a *SchemaError for the first bar with missing
// fields, or an error wrapping ErrNonMonotonic when timestamps are not
// strictly increasing. An empty series is structurally valid.
func (s Series) CheckStructure() error {
	for i, b := range s.Bars {
		if missing := b.MissingFields(); len(missing) > 0 {
			return &SchemaError{Symbol: s.Symbol, Row: i, Fields: missing}
		}
		if i > 0 && !b.TS.After(s.Bars[i-1].TS) {
			return fmt.Errorf("%w: %s bar %d (%s) not after %s", ErrNonMonotonic, s.Symbol, i,
				b.TS.Format(time.RFC3339), s.Bars[i-1].TS.Format(time.RFC3339))
		}
	}
	return nil
}
