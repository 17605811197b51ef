package model

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestCheckStructure_Valid(t *testing.T) {
	s := Series{Symbol: "EURUSD", Bars: []Bar{
		{TS: day(0), Open: 1.1, High: 1.2, Low: 1.0, Close: 1.15},
		{TS: day(1), Open: 1.15, High: 1.25, Low: 1.1, Close: 1.2},
	}}
	if err := s.CheckStructure(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (Series{}).CheckStructure(); err != nil {
		t.Fatalf("empty series: unexpected error: %v", err)
	}
}

func TestCheckStructure_MissingField(t *testing.T) {
	s := Series{Symbol: "EURUSD", Bars: []Bar{
		{TS: day(0), Open: 1.1, High: 1.2, Low: 1.0, Close: 1.15},
		{TS: day(1), Open: 1.15, High: math.NaN(), Low: 1.1},
	}}
	err := s.CheckStructure()
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SchemaError, got %v", err)
	}
	if se.Row != 1 {
		t.Errorf("row: got %d, want 1", se.Row)
	}
	if len(se.Fields) != 2 || se.Fields[0] != "high" || se.Fields[1] != "close" {
		t.Errorf("fields: got %v, want [high close]", se.Fields)
	}
}

func TestCheckStructure_NonMonotonic(t *testing.T) {
	for name, second := range map[string]time.Time{"duplicate": day(1), "backwards": day(0)} {
		s := Series{Symbol: "GBPUSD", Bars: []Bar{
			{TS: day(1), Open: 1, High: 1, Low: 1, Close: 1},
			{TS: second, Open: 1, High: 1, Low: 1, Close: 1},
		}}
		if err := s.CheckStructure(); !errors.Is(err, ErrNonMonotonic) {
			t.Errorf("%s: expected ErrNonMonotonic, got %v", name, err)
		}
	}
}

func TestRegistry_PipSize(t *testing.T) {
	r := DefaultRegistry()
	tests := []struct {
		symbol string
		want   float64
	}{
		{"EURUSD", 0.0001},
		{"gbpusd", 0.0001},
		{"XAUUSD", 0.01},
		{"USDJPY", DefaultPipSize},
	}
	for _, tt := range tests {
		if got := r.PipSize(tt.symbol); got != tt.want {
			t.Errorf("PipSize(%s): got %v, want %v", tt.symbol, got, tt.want)
		}
	}
}

func TestRegistry_Pips(t *testing.T) {
	r := DefaultRegistry()
	if got := r.Pips("EURUSD", 1.1050-1.1000); got != 50 {
		t.Errorf("EURUSD 50 pips: got %v", got)
	}
	if got := r.Pips("XAUUSD", 2031.255-2030.00); got != 125.5 {
		t.Errorf("XAUUSD: got %v, want 125.5", got)
	}
	if got := r.PipsMoved("EURUSD", 1.1000, 1.0970, Short); got != 30 {
		t.Errorf("SHORT move: got %v, want 30", got)
	}
	if got := r.PipsMoved("EURUSD", 1.1000, 1.0970, Long); got != -30 {
		t.Errorf("LONG adverse move: got %v, want -30", got)
	}
}

func TestRegistry_FormatPrice(t *testing.T) {
	r := DefaultRegistry()
	if got := r.FormatPrice("EURUSD", 1.1); got != "1.10000" {
		t.Errorf("EURUSD: got %q", got)
	}
	if got := r.FormatPrice("XAUUSD", 2030.5); got != "2030.50" {
		t.Errorf("XAUUSD: got %q", got)
	}
}

func TestRegistry_Overrides(t *testing.T) {
	r := NewRegistry(append(DefaultInstruments(), Instrument{Symbol: "usdjpy", PipSize: 0.01})...)
	if got := r.PipSize("USDJPY"); got != 0.01 {
		t.Errorf("USDJPY pip: got %v", got)
	}
	in, _ := r.Lookup("USDJPY")
	if in.PriceDecimals != 2 {
		t.Errorf("USDJPY decimals: got %d, want 2", in.PriceDecimals)
	}
	if len(r.Symbols()) != 4 {
		t.Errorf("symbols: got %v", r.Symbols())
	}
}

func TestValidateTradeParams(t *testing.T) {
	tests := []struct {
		name          string
		entry, sl, tp float64
		dir           Direction
		wantErr       bool
	}{
		{"long ok", 1.10, 1.095, 1.1125, Long, false},
		{"long stop above", 1.10, 1.105, 1.12, Long, true},
		{"long target below", 1.10, 1.09, 1.08, Long, true},
		{"short ok", 1.10, 1.105, 1.0875, Short, false},
		{"short stop below", 1.10, 1.095, 1.08, Short, true},
		{"zero price", 1.10, 0, 1.12, Long, true},
		{"bad direction", 1.10, 1.09, 1.12, Direction("FLAT"), true},
	}
	for _, tt := range tests {
		err := ValidateTradeParams(tt.entry, tt.sl, tt.tp, tt.dir)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: err=%v, wantErr=%v", tt.name, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidTrade) {
			t.Errorf("%s: error does not wrap ErrInvalidTrade: %v", tt.name, err)
		}
	}
}

func TestValue_JSON(t *testing.T) {
	snap := IndicatorSnapshot{EMAShort: Some(1.25), RSI: None()}
	b, err := json.Marshal(snap)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"ema_short":1.25,"ema_long":null,"rsi":null,"atr":null}`
	if string(b) != want {
		t.Fatalf("got %s, want %s", b, want)
	}
	var back IndicatorSnapshot
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if back != snap {
		t.Errorf("round trip: got %+v, want %+v", back, snap)
	}
}

func TestSignal_ReasoningText(t *testing.T) {
	s := Signal{Symbol: "EURUSD", SignalTS: day(3), Direction: Long, Reasoning: []Step{
		{Name: "trend", Passed: true, Detail: "Long trend confirmed"},
		{Name: "trigger", Passed: true, Detail: "Entry trigger confirmed"},
	}}
	if got := s.ReasoningText(); got != "Long trend confirmed | Entry trigger confirmed" {
		t.Errorf("got %q", got)
	}
	if got := s.Key(); got != "EURUSD:2024-01-04:LONG" {
		t.Errorf("key: got %q", got)
	}
}
