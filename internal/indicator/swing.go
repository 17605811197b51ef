package indicator

import "github.com/josephadah/trading-ai/internal/model"

// isSwing reports whether bars[i] is a swing point within bars: its High
// (or Low when low is set) is the extreme of bars[i-lookback..i+lookback].
// Indices closer than lookback to either end are never swing points.
func isSwing(bars []model.Bar, i, lookback int, low bool) bool {
	if i < lookback || i >= len(bars)-lookback {
		return false
	}
	for j := i - lookback; j <= i+lookback; j++ {
		if low && bars[j].Low < bars[i].Low {
			return false
		}
		if !low && bars[j].High > bars[i].High {
			return false
		}
	}
	return true
}

// SwingHighs marks each bar whose High equals the max High of the
// surrounding ±lookback window. Unmarked bars are undefined.
func SwingHighs(bars []model.Bar, lookback int) []model.Value {
	out := make([]model.Value, len(bars))
	for i := range bars {
		if isSwing(bars, i, lookback, false) {
			out[i] = model.Some(bars[i].High)
		}
	}
	return out
}

// SwingLows marks each bar whose Low equals the min Low of the surrounding
// ±lookback window.
func SwingLows(bars []model.Bar, lookback int) []model.Value {
	out := make([]model.Value, len(bars))
	for i := range bars {
		if isSwing(bars, i, lookback, true) {
			out[i] = model.Some(bars[i].Low)
		}
	}
	return out
}

// RecentSwingLow returns the most recent swing low in
// [max(0, at-maxBarsBack), at), or the lowest Low of that window when it
// holds no swing low. Only swings confirmed by bar at count, so the result
// never depends on bars after at. ok is false when the window is empty.
func RecentSwingLow(bars []model.Bar, at, lookback, maxBarsBack int) (float64, bool) {
	return recentSwing(bars, at, lookback, maxBarsBack, true)
}

// RecentSwingHigh is the mirror of RecentSwingLow.
func RecentSwingHigh(bars []model.Bar, at, lookback, maxBarsBack int) (float64, bool) {
	return recentSwing(bars, at, lookback, maxBarsBack, false)
}

func recentSwing(bars []model.Bar, at, lookback, maxBarsBack int, low bool) (float64, bool) {
	if at > len(bars)-1 {
		at = len(bars) - 1
	}
	start := at - maxBarsBack
	if start < 0 {
		start = 0
	}
	if start >= at {
		return 0, false
	}

	known := bars[:at+1]
	for j := at - 1; j >= start; j-- {
		if isSwing(known, j, lookback, low) {
			if low {
				return known[j].Low, true
			}
			return known[j].High, true
		}
	}

	extreme := known[start].High
	if low {
		extreme = known[start].Low
	}
	for _, b := range known[start+1 : at] {
		if low && b.Low < extreme {
			extreme = b.Low
		}
		if !low && b.High > extreme {
			extreme = b.High
		}
	}
	return extreme, true
}
