package model

// EnrichedBar is a Bar plus its derived indicator values.
type EnrichedBar struct {
	Bar
	EMAShort  Value `json:"ema_short"`
	EMALong   Value `json:"ema_long"`
	RSI       Value `json:"rsi"`
	ATR       Value `json:"atr"`
	SwingHigh Value `json:"swing_high"`
	SwingLow  Value `json:"swing_low"`
}

// Ready reports whether every indicator the signal gates read is defined.
func (b EnrichedBar) Ready() bool {
	return b.EMAShort.OK && b.EMALong.OK && b.RSI.OK
}

// Snapshot returns the indicator values carried on an emitted signal.
func (b EnrichedBar) Snapshot() IndicatorSnapshot {
	return IndicatorSnapshot{EMAShort: b.EMAShort, EMALong: b.EMALong, RSI: b.RSI, ATR: b.ATR}
}

// EnrichedSeries is a Series whose bars carry indicator values.
// EMAShortPeriod and EMALongPeriod record the periods used to build it.
type EnrichedSeries struct {
	Symbol         string        `json:"symbol"`
	Timeframe      string        `json:"timeframe"`
	EMAShortPeriod int           `json:"ema_short_period"`
	EMALongPeriod  int           `json:"ema_long_period"`
	Bars           []EnrichedBar `json:"bars"`
}

// Len returns the number of bars.
func (es EnrichedSeries) Len() int { return len(es.Bars) }

// Raw returns the underlying OHLC bars.
func (es EnrichedSeries) Raw() []Bar {
	out := make([]Bar, len(es.Bars))
	for i, b := range es.Bars {
		out[i] = b.Bar
	}
	return out
}
