package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Direction is the side of a trade signal.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Directions lists both sides in evaluation order.
var Directions = []Direction{Long, Short}

// Action returns the order side: BUY for LONG, SELL for SHORT.
func (d Direction) Action() string {
	if d == Short {
		return "SELL"
	}
	return "BUY"
}

// Sign returns +1 for LONG and -1 for SHORT.
func (d Direction) Sign() float64 {
	if d == Short {
		return -1
	}
	return 1
}

// Step is one entry of a signal's reasoning trail.
type Step struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

func (s Step) String() string {
	mark := "✓"
	if !s.Passed {
		mark = "✗"
	}
	return mark + " " + s.Detail
}

// IndicatorSnapshot holds the indicator values at the signal bar.
type IndicatorSnapshot struct {
	EMAShort Value `json:"ema_short"`
	EMALong  Value `json:"ema_long"`
	RSI      Value `json:"rsi"`
	ATR      Value `json:"atr"`
}

// Signal is a trade-entry recommendation emitted by the signal engine.
// Prices are in quote currency; StopPips/TargetPips are in pips.
type Signal struct {
	Symbol     string            `json:"symbol"`
	SignalTS   time.Time         `json:"signal_ts"`
	Direction  Direction         `json:"direction"`
	EntryPrice float64           `json:"entry_price"`
	StopLoss   float64           `json:"stop_loss"`
	TakeProfit float64           `json:"take_profit"`
	StopPips   float64           `json:"stop_pips"`
	TargetPips float64           `json:"target_pips"`
	RiskReward float64           `json:"risk_reward"`
	Reasoning  []Step            `json:"reasoning"`
	Snapshot   IndicatorSnapshot `json:"snapshot"`
}

// Key identifies a signal by symbol, bar and side.
func (s *Signal) Key() string {
	return s.Symbol + ":" + s.SignalTS.UTC().Format("2006-01-02") + ":" + string(s.Direction)
}

// ReasoningText joins the step details with " | ".
func (s *Signal) ReasoningText() string {
	parts := make([]string, len(s.Reasoning))
	for i, st := range s.Reasoning {
		parts[i] = st.Detail
	}
	return strings.Join(parts, " | ")
}

// JSON returns the JSON-encoded signal (ignoring errors).
func (s *Signal) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}
