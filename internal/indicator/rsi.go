package indicator

import "github.com/josephadah/trading-ai/internal/model"

// RSI is the Relative Strength Index with gains and losses each smoothed by
// the same first-value-seeded EMA used for price. The first bar only records
// its close; the first delta comes from the second bar.
type RSI struct {
	period    int
	count     int
	prevClose float64
	gains     *EMA
	losses    *EMA
	current   float64
}

// NewRSI creates a new RSI with the given period (typically 14).
func NewRSI(period int) *RSI {
	return &RSI{period: period, gains: NewEMA(period), losses: NewEMA(period)}
}

func (r *RSI) Name() string { return "RSI" }

func (r *RSI) Update(bar model.Bar) {
	r.count++
	if r.count == 1 {
		r.prevClose = bar.Close
		return
	}

	delta := bar.Close - r.prevClose
	r.prevClose = bar.Close

	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}
	r.current = rsiFrom(r.gains.Add(gain), r.losses.Add(loss))
}

// rsiFrom saturates at 100 when there were no losses.
func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

func (r *RSI) Value() float64 { return r.current }

// Defined reports whether at least one delta has been seen.
func (r *RSI) Defined() bool { return r.count >= 2 }

// Ready is true once period deltas have been smoothed.
func (r *RSI) Ready() bool { return r.count > r.period }

// RSISeries folds RSI over closes. Index 0 has no delta and is undefined.
func RSISeries(closes []float64, period int) []model.Value {
	out := make([]model.Value, len(closes))
	r := NewRSI(period)
	for i, c := range closes {
		r.Update(model.Bar{Close: c})
		if r.Defined() {
			out[i] = model.Some(r.Value())
		}
	}
	return out
}
