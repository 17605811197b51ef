package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/josephadah/trading-ai/internal/model"
)

// ReadBars loads bars for symbol/timeframe in timestamp order. Zero from/to
// leave that side of the range open.
func (s *Store) ReadBars(ctx context.Context, symbol, timeframe string, from, to time.Time) (model.Series, error) {
	out := model.Series{Symbol: symbol, Timeframe: timeframe}

	q := `SELECT ts, open, high, low, close, volume FROM bars WHERE symbol = ? AND timeframe = ?`
	args := []any{symbol, timeframe}
	if !from.IsZero() {
		q += ` AND ts >= ?`
		args = append(args, from.Unix())
	}
	if !to.IsZero() {
		q += ` AND ts <= ?`
		args = append(args, to.Unix())
	}
	q += ` ORDER BY ts ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return out, fmt.Errorf("sqlite query bars: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var b model.Bar
		var tsUnix int64
		var vol sql.NullInt64
		if err := rows.Scan(&tsUnix, &b.Open, &b.High, &b.Low, &b.Close, &vol); err != nil {
			return out, fmt.Errorf("sqlite scan bars: %w", err)
		}
		b.TS = time.Unix(tsUnix, 0).UTC()
		if vol.Valid {
			v := vol.Int64
			b.Volume = &v
		}
		out.Bars = append(out.Bars, b)
	}
	return out, rows.Err()
}

// BarSummary describes the stored bars of one symbol/timeframe.
type BarSummary struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	Count     int       `json:"count"`
	First     time.Time `json:"first"`
	Last      time.Time `json:"last"`
}

// BarSummaries returns one row per stored symbol/timeframe.
func (s *Store) BarSummaries(ctx context.Context) ([]BarSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, timeframe, COUNT(*), MIN(ts), MAX(ts)
		FROM bars
		GROUP BY symbol, timeframe
		ORDER BY symbol, timeframe
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite bar summary: %w", err)
	}
	defer rows.Close()

	var out []BarSummary
	for rows.Next() {
		var bs BarSummary
		var first, last int64
		if err := rows.Scan(&bs.Symbol, &bs.Timeframe, &bs.Count, &first, &last); err != nil {
			return nil, fmt.Errorf("sqlite scan bar summary: %w", err)
		}
		bs.First = time.Unix(first, 0).UTC()
		bs.Last = time.Unix(last, 0).UTC()
		out = append(out, bs)
	}
	return out, rows.Err()
}

// StoredSignal is a persisted signal with its bookkeeping columns.
type StoredSignal struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	model.Signal
}

// RecentSignals returns up to limit signals ordered by bar time, newest
// first. An empty symbol matches every symbol.
func (s *Store) RecentSignals(ctx context.Context, symbol string, limit int) ([]StoredSignal, error) {
	if limit <= 0 {
		limit = 10
	}
	q := `
		SELECT id, run_id, status, created_at, symbol, signal_ts, direction, entry_price, stop_loss,
			take_profit, stop_pips, target_pips, risk_reward, ema_short, ema_long, rsi, atr, steps
		FROM signals`
	args := []any{}
	if symbol != "" {
		q += ` WHERE symbol = ?`
		args = append(args, strings.ToUpper(symbol))
	}
	q += ` ORDER BY signal_ts DESC, symbol ASC, direction ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query signals: %w", err)
	}
	defer rows.Close()

	var out []StoredSignal
	for rows.Next() {
		var ss StoredSignal
		var created, signalTS int64
		var dir, steps string
		var emaS, emaL, rsi, atr sql.NullFloat64
		if err := rows.Scan(&ss.ID, &ss.RunID, &ss.Status, &created, &ss.Symbol, &signalTS, &dir,
			&ss.EntryPrice, &ss.StopLoss, &ss.TakeProfit, &ss.StopPips, &ss.TargetPips, &ss.RiskReward,
			&emaS, &emaL, &rsi, &atr, &steps); err != nil {
			return nil, fmt.Errorf("sqlite scan signal: %w", err)
		}
		ss.CreatedAt = time.Unix(created, 0).UTC()
		ss.SignalTS = time.Unix(signalTS, 0).UTC()
		ss.Direction = model.Direction(dir)
		ss.Snapshot = model.IndicatorSnapshot{
			EMAShort: nullValue(emaS), EMALong: nullValue(emaL), RSI: nullValue(rsi), ATR: nullValue(atr),
		}
		if err := json.Unmarshal([]byte(steps), &ss.Reasoning); err != nil {
			return nil, fmt.Errorf("unmarshal steps for %s: %w", ss.ID, err)
		}
		out = append(out, ss)
	}
	return out, rows.Err()
}

// SignalCount is the number of stored signals for a symbol and direction.
type SignalCount struct {
	Symbol    string          `json:"symbol"`
	Direction model.Direction `json:"direction"`
	Count     int             `json:"count"`
}

// SignalSummary counts stored signals per symbol and direction.
func (s *Store) SignalSummary(ctx context.Context) ([]SignalCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, direction, COUNT(*)
		FROM signals
		GROUP BY symbol, direction
		ORDER BY symbol, direction
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite signal summary: %w", err)
	}
	defer rows.Close()

	var out []SignalCount
	for rows.Next() {
		var sc SignalCount
		var dir string
		if err := rows.Scan(&sc.Symbol, &dir, &sc.Count); err != nil {
			return nil, fmt.Errorf("sqlite scan signal summary: %w", err)
		}
		sc.Direction = model.Direction(dir)
		out = append(out, sc)
	}
	return out, rows.Err()
}

// Run is a recorded scan run.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Symbols    []string  `json:"symbols"`
	Status     string    `json:"status"`
	RunStats
}

// LastRun returns the most recently started scan run. ok is false when no
// run has been recorded.
func (s *Store) LastRun(ctx context.Context) (run Run, ok bool, err error) {
	var started int64
	var finished sql.NullInt64
	var symbols string
	err = s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, symbols, bars, signals, failures, status
		FROM scan_runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT 1
	`).Scan(&run.ID, &started, &finished, &symbols, &run.Bars, &run.Signals, &run.Failures, &run.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("sqlite last run: %w", err)
	}
	run.StartedAt = time.Unix(started, 0).UTC()
	if finished.Valid {
		run.FinishedAt = time.Unix(finished.Int64, 0).UTC()
	}
	if symbols != "" {
		run.Symbols = strings.Split(symbols, ",")
	}
	return run, true, nil
}

func nullValue(n sql.NullFloat64) model.Value {
	if !n.Valid {
		return model.None()
	}
	return model.Some(n.Float64)
}
