package model

import (
	"fmt"
	"math"
)

// ValidateTradeParams checks that stop and target sit on the correct side
// of entry for dir and that all prices are positive and finite.
func ValidateTradeParams(entry, stop, target float64, dir Direction) error {
	for _, p := range []float64{entry, stop, target} {
		if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
			return fmt.Errorf("%w: non-positive price %v", ErrInvalidTrade, p)
		}
	}
	switch dir {
	case Long:
		if stop >= entry {
			return fmt.Errorf("%w: LONG stop %v not below entry %v", ErrInvalidTrade, stop, entry)
		}
		if target <= entry {
			return fmt.Errorf("%w: LONG target %v not above entry %v", ErrInvalidTrade, target, entry)
		}
	case Short:
		if stop <= entry {
			return fmt.Errorf("%w: SHORT stop %v not above entry %v", ErrInvalidTrade, stop, entry)
		}
		if target >= entry {
			return fmt.Errorf("%w: SHORT target %v not below entry %v", ErrInvalidTrade, target, entry)
		}
	default:
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidTrade, dir)
	}
	return nil
}
