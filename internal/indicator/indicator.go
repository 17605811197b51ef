// Package indicator derives technical indicators from daily bar series.
//
// Each indicator exists twice: as a recursive accumulator fed one bar at a
// time (Indicator), and as a fold over a whole slice (EMASeries, RSISeries,
// ATRSeries) built on top of the accumulator. Enrich combines the folds into
// an EnrichedSeries for the signal engine.
package indicator

import "github.com/josephadah/trading-ai/internal/model"

// Indicator is the interface for all recursive indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "EMA", "RSI").
	Name() string

	// Update feeds the next bar and recalculates.
	Update(bar model.Bar)

	// Value returns the current value. Meaningless before the first Update.
	Value() float64

	// Ready returns true once a full period has been consumed.
	Ready() bool
}
