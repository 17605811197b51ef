package markethours

import (
	"testing"
	"time"
)

func utc(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func TestIsForexOpen(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"wednesday noon", utc(2024, time.March, 13, 12), true},
		{"saturday", utc(2024, time.March, 16, 12), false},
		{"sunday before open", utc(2024, time.March, 17, 21), false},
		{"sunday after open", utc(2024, time.March, 17, 22), true},
		{"friday before close", utc(2024, time.March, 15, 21), true},
		{"friday after close", utc(2024, time.March, 15, 22), false},
		{"christmas", utc(2024, time.December, 25, 12), false},
		{"new year", utc(2025, time.January, 1, 12), false},
	}
	for _, tt := range tests {
		if got := IsForexOpen(tt.t); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIsTradingDay(t *testing.T) {
	if !IsTradingDay(utc(2024, time.March, 11, 0)) {
		t.Error("Monday should be a trading day")
	}
	if IsTradingDay(utc(2024, time.March, 10, 0)) {
		t.Error("Sunday should not be a trading day")
	}
	if IsTradingDay(utc(2024, time.December, 25, 0)) {
		t.Error("Christmas should not be a trading day")
	}
}

func TestTradingDaysBetween(t *testing.T) {
	// Fri 2024-03-15 -> Mon 2024-03-18: only the weekend in between.
	if got := TradingDaysBetween(utc(2024, time.March, 15, 0), utc(2024, time.March, 18, 0)); got != 0 {
		t.Errorf("weekend gap: got %d, want 0", got)
	}
	// Mon 2024-03-11 -> Mon 2024-03-18: Tue..Fri.
	if got := TradingDaysBetween(utc(2024, time.March, 11, 0), utc(2024, time.March, 18, 0)); got != 4 {
		t.Errorf("one week: got %d, want 4", got)
	}
	// Tue 2024-12-24 -> Fri 2024-12-27: Christmas is skipped, Thu 26 counts.
	if got := TradingDaysBetween(utc(2024, time.December, 24, 0), utc(2024, time.December, 27, 0)); got != 1 {
		t.Errorf("christmas week: got %d, want 1", got)
	}
	if got := TradingDaysBetween(utc(2024, time.March, 18, 0), utc(2024, time.March, 11, 0)); got != 0 {
		t.Errorf("reversed: got %d, want 0", got)
	}
}

func TestNextOpen(t *testing.T) {
	sat := utc(2024, time.March, 16, 10)
	if got, want := NextOpen(sat), utc(2024, time.March, 17, 22); !got.Equal(want) {
		t.Errorf("saturday: got %v, want %v", got, want)
	}
	xmas := utc(2024, time.December, 25, 10)
	if got, want := NextOpen(xmas), utc(2024, time.December, 26, 0); !got.Equal(want) {
		t.Errorf("christmas: got %v, want %v", got, want)
	}
	open := utc(2024, time.March, 13, 12)
	if got := NextOpen(open); !got.Equal(open) {
		t.Errorf("open session: got %v", got)
	}
}

func TestStatusString(t *testing.T) {
	if got := StatusString(utc(2024, time.March, 13, 12)); got != "Forex Open" {
		t.Errorf("got %q", got)
	}
	if got := StatusString(utc(2024, time.March, 17, 20)); got != "Forex Closed, opens Sun 22:00 UTC (2h0m)" {
		t.Errorf("got %q", got)
	}
}
