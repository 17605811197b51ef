package model

import (
	"context"
	"time"
)

// ── Storage Port Interfaces ──
// These decouple the scan pipeline from SQLite and Redis.

// BarReader loads a bar series. Zero from/to leave that side unbounded.
type BarReader interface {
	ReadBars(ctx context.Context, symbol, timeframe string, from, to time.Time) (Series, error)
}

// BarWriter stores bars. Existing timestamps are skipped unless replace is set.
type BarWriter interface {
	WriteBars(ctx context.Context, s Series, replace bool) (inserted, skipped int, err error)
}

// SignalWriter persists emitted signals for one symbol. With replace set,
// the symbol's earlier signals are removed first.
type SignalWriter interface {
	WriteSignals(ctx context.Context, runID, symbol string, signals []Signal, replace bool) (int, error)
}

// SignalPublisher pushes emitted signals to live consumers.
type SignalPublisher interface {
	PublishSignals(ctx context.Context, signals []Signal) error
}
