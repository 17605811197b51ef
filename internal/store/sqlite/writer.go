package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/josephadah/trading-ai/internal/model"
)

// Signal lifecycle states. Only PENDING is written by the scanner.
const (
	StatusPending = "PENDING"
)

// Config configures the SQLite store.
type Config struct {
	DBPath string // path to SQLite database file, e.g. "data/trading.db"
}

// Store persists bars, signals and scan runs in a single SQLite file.
// It implements model.BarReader, model.BarWriter and model.SignalWriter.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens the database with WAL mode and creates the schema.
// A nil logger uses slog.Default().
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log := logger.With(slog.String("component", "sqlite"))
	log.Info("opened database", "path", cfg.DBPath)
	return &Store{db: db, log: log}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			symbol     TEXT    NOT NULL,
			timeframe  TEXT    NOT NULL,
			ts         INTEGER NOT NULL,
			open       REAL    NOT NULL,
			high       REAL    NOT NULL,
			low        REAL    NOT NULL,
			close      REAL    NOT NULL,
			volume     INTEGER,
			created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
			PRIMARY KEY (symbol, timeframe, ts)
		);

		CREATE TABLE IF NOT EXISTS signals (
			id          TEXT    PRIMARY KEY,
			run_id      TEXT    NOT NULL,
			symbol      TEXT    NOT NULL,
			signal_ts   INTEGER NOT NULL,
			direction   TEXT    NOT NULL,
			entry_price REAL    NOT NULL,
			stop_loss   REAL    NOT NULL,
			take_profit REAL    NOT NULL,
			stop_pips   REAL    NOT NULL,
			target_pips REAL    NOT NULL,
			risk_reward REAL    NOT NULL,
			ema_short   REAL,
			ema_long    REAL,
			rsi         REAL,
			atr         REAL,
			reasoning   TEXT    NOT NULL,
			steps       TEXT    NOT NULL,
			status      TEXT    NOT NULL DEFAULT 'PENDING',
			created_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
			UNIQUE (symbol, signal_ts, direction)
		);

		CREATE INDEX IF NOT EXISTS idx_signals_ts ON signals (signal_ts DESC);

		CREATE TABLE IF NOT EXISTS scan_runs (
			id          TEXT    PRIMARY KEY,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER,
			symbols     TEXT    NOT NULL,
			bars        INTEGER NOT NULL DEFAULT 0,
			signals     INTEGER NOT NULL DEFAULT 0,
			failures    INTEGER NOT NULL DEFAULT 0,
			status      TEXT    NOT NULL DEFAULT 'RUNNING'
		);
	`)
	return err
}

// WriteBars stores s in a single transaction. Bars whose timestamp is
// already stored are skipped; with replace set the symbol/timeframe is
// cleared first.
func (s *Store) WriteBars(ctx context.Context, series model.Series, replace bool) (inserted, skipped int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("sqlite begin: %w", err)
	}
	defer tx.Rollback()

	if replace {
		if _, err := tx.ExecContext(ctx, `DELETE FROM bars WHERE symbol = ? AND timeframe = ?`,
			series.Symbol, series.Timeframe); err != nil {
			return 0, 0, fmt.Errorf("sqlite delete bars: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO bars (symbol, timeframe, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, 0, err
	}
	defer stmt.Close()

	for _, b := range series.Bars {
		res, err := stmt.ExecContext(ctx, series.Symbol, series.Timeframe, b.TS.Unix(),
			b.Open, b.High, b.Low, b.Close, b.Volume)
		if err != nil {
			return 0, 0, fmt.Errorf("sqlite insert bar %s: %w", b.TS.Format(time.RFC3339), err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		} else {
			skipped++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("sqlite commit: %w", err)
	}
	s.log.Info("stored bars", "symbol", series.Symbol, "timeframe", series.Timeframe,
		"inserted", inserted, "skipped", skipped)
	return inserted, skipped, nil
}

// DeleteBars removes every bar for symbol/timeframe and returns the count.
func (s *Store) DeleteBars(ctx context.Context, symbol, timeframe string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bars WHERE symbol = ? AND timeframe = ?`, symbol, timeframe)
	if err != nil {
		return 0, fmt.Errorf("sqlite delete bars: %w", err)
	}
	return res.RowsAffected()
}

// WriteSignals stores signals for one symbol under runID. Signals already
// stored for the same symbol, bar and direction are left untouched. With
// replace set the symbol's earlier signals are deleted first.
func (s *Store) WriteSignals(ctx context.Context, runID, symbol string, signals []model.Signal, replace bool) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite begin: %w", err)
	}
	defer tx.Rollback()

	if replace {
		res, err := tx.ExecContext(ctx, `DELETE FROM signals WHERE symbol = ?`, symbol)
		if err != nil {
			return 0, fmt.Errorf("sqlite delete signals: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			s.log.Info("cleared signals", "symbol", symbol, "deleted", n)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO signals (
			id, run_id, symbol, signal_ts, direction, entry_price, stop_loss, take_profit,
			stop_pips, target_pips, risk_reward, ema_short, ema_long, rsi, atr, reasoning, steps, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	written := 0
	for i := range signals {
		sig := &signals[i]
		steps, err := json.Marshal(sig.Reasoning)
		if err != nil {
			return 0, fmt.Errorf("marshal reasoning: %w", err)
		}
		res, err := stmt.ExecContext(ctx,
			uuid.NewString(), runID, sig.Symbol, sig.SignalTS.Unix(), string(sig.Direction),
			sig.EntryPrice, sig.StopLoss, sig.TakeProfit, sig.StopPips, sig.TargetPips, sig.RiskReward,
			sig.Snapshot.EMAShort.Ptr(), sig.Snapshot.EMALong.Ptr(), sig.Snapshot.RSI.Ptr(), sig.Snapshot.ATR.Ptr(),
			sig.ReasoningText(), string(steps), StatusPending,
		)
		if err != nil {
			return 0, fmt.Errorf("sqlite insert signal %s: %w", sig.Key(), err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			written++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite commit: %w", err)
	}
	s.log.Info("stored signals", "symbol", symbol, "run_id", runID, "written", written, "total", len(signals))
	return written, nil
}

// RunStats is the outcome recorded by FinishRun.
type RunStats struct {
	Bars     int
	Signals  int
	Failures int
}

// StartRun records the start of a scan run.
func (s *Store) StartRun(ctx context.Context, runID string, symbols []string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scan_runs (id, started_at, symbols) VALUES (?, ?, ?)`,
		runID, at.Unix(), strings.Join(symbols, ","))
	if err != nil {
		return fmt.Errorf("sqlite start run: %w", err)
	}
	return nil
}

// FinishRun closes a scan run. Status is FAILED when any symbol failed.
func (s *Store) FinishRun(ctx context.Context, runID string, stats RunStats, at time.Time) error {
	status := "OK"
	if stats.Failures > 0 {
		status = "FAILED"
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE scan_runs SET finished_at = ?, bars = ?, signals = ?, failures = ?, status = ? WHERE id = ?`,
		at.Unix(), stats.Bars, stats.Signals, stats.Failures, status, runID)
	if err != nil {
		return fmt.Errorf("sqlite finish run: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
