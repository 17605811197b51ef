package markethours

import (
	"fmt"
	"time"
)

// Forex session boundaries in UTC: the week opens Sunday 22:00 and closes
// Friday 22:00.
const (
	OpenHour  = 22 // Sunday
	CloseHour = 22 // Friday
)

// IsForexOpen returns true if t falls inside the weekly forex session and
// is not a market closure day.
func IsForexOpen(t time.Time) bool {
	u := t.UTC()
	switch u.Weekday() {
	case time.Saturday:
		return false
	case time.Sunday:
		if u.Hour() < OpenHour {
			return false
		}
	case time.Friday:
		if u.Hour() >= CloseHour {
			return false
		}
	}
	return !IsHoliday(u)
}

// IsWeekday returns true if t is Mon–Fri (UTC).
func IsWeekday(t time.Time) bool {
	wd := t.UTC().Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// IsTradingDay returns true if a daily bar is expected for t's UTC date.
func IsTradingDay(t time.Time) bool {
	return IsWeekday(t) && !IsHoliday(t)
}

// TradingDaysBetween counts trading days strictly between the UTC dates of
// a and b. Returns 0 when b is not after a.
func TradingDaysBetween(a, b time.Time) int {
	from := dateOf(a).AddDate(0, 0, 1)
	to := dateOf(b)
	n := 0
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		if IsTradingDay(d) {
			n++
		}
	}
	return n
}

// NextOpen returns t when the session is open, otherwise the next time it
// opens: Sunday 22:00 UTC, or midnight after a closure day.
func NextOpen(t time.Time) time.Time {
	if IsForexOpen(t) {
		return t
	}
	d := dateOf(t)
	for i := 0; i < 14; i++ {
		for _, c := range []time.Time{d, d.Add(OpenHour * time.Hour)} {
			if c.After(t) && IsForexOpen(c) {
				return c
			}
		}
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// StatusString returns a human-readable session status.
func StatusString(t time.Time) string {
	if IsForexOpen(t) {
		return "Forex Open"
	}
	next := NextOpen(t)
	return fmt.Sprintf("Forex Closed, opens %s %s UTC (%s)",
		next.Weekday().String()[:3], next.Format("15:04"), fmtDur(next.Sub(t)))
}

func dateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func fmtDur(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
