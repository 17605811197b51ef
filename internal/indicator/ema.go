package indicator

import "github.com/josephadah/trading-ai/internal/model"

// EMA is an unadjusted exponential moving average seeded with the first
// input: out[0] = x[0], out[t] = α·x[t] + (1-α)·out[t-1], α = 2/(period+1).
// O(1) per update.
type EMA struct {
	period  int
	alpha   float64
	current float64
	count   int
}

// NewEMA creates a new EMA with the given period.
func NewEMA(period int) *EMA {
	return &EMA{
		period: period,
		alpha:  2.0 / float64(period+1),
	}
}

func (e *EMA) Name() string { return "EMA" }

// Add feeds a raw value and returns the updated average.
func (e *EMA) Add(x float64) float64 {
	e.count++
	if e.count == 1 {
		e.current = x
		return e.current
	}
	e.current = x*e.alpha + e.current*(1-e.alpha)
	return e.current
}

func (e *EMA) Update(bar model.Bar) { e.Add(bar.Close) }
func (e *EMA) Value() float64       { return e.current }
func (e *EMA) Ready() bool          { return e.count >= e.period }
func (e *EMA) Count() int           { return e.count }

// EMASeries folds EMA over values. Every index is defined.
func EMASeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	e := NewEMA(period)
	for i, v := range values {
		out[i] = e.Add(v)
	}
	return out
}
