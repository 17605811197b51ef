package markethours

import "time"

// Days on which the interbank market is closed every year and no daily bar
// is printed.
var closures = []struct {
	month time.Month
	day   int
}{
	{time.January, 1},   // New Year's Day
	{time.December, 25}, // Christmas
}

// IsHoliday returns true if t's UTC date is a market closure day.
func IsHoliday(t time.Time) bool {
	u := t.UTC()
	for _, c := range closures {
		if u.Month() == c.month && u.Day() == c.day {
			return true
		}
	}
	return false
}
