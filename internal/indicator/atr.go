package indicator

import (
	"math"

	"github.com/josephadah/trading-ai/internal/model"
)

// ATR is the Average True Range: the recursive EMA of true range.
// The first bar's true range is its High - Low.
type ATR struct {
	period    int
	ema       *EMA
	prevClose float64
	count     int
}

// NewATR creates a new ATR with the given period (typically 14).
func NewATR(period int) *ATR {
	return &ATR{period: period, ema: NewEMA(period)}
}

func (a *ATR) Name() string { return "ATR" }

func (a *ATR) Update(bar model.Bar) {
	a.ema.Add(TrueRange(bar, a.prevClose, a.count > 0))
	a.prevClose = bar.Close
	a.count++
}

func (a *ATR) Value() float64 { return a.ema.Value() }
func (a *ATR) Ready() bool    { return a.count >= a.period }

// TrueRange is max(H-L, |H-prevClose|, |L-prevClose|), or H-L without a
// previous close.
func TrueRange(bar model.Bar, prevClose float64, hasPrev bool) float64 {
	tr := bar.High - bar.Low
	if !hasPrev {
		return tr
	}
	return math.Max(tr, math.Max(math.Abs(bar.High-prevClose), math.Abs(bar.Low-prevClose)))
}

// ATRSeries folds ATR over bars. Every index is defined.
func ATRSeries(bars []model.Bar, period int) []float64 {
	out := make([]float64, len(bars))
	a := NewATR(period)
	for i, b := range bars {
		a.Update(b)
		out[i] = a.Value()
	}
	return out
}
