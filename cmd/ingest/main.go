// cmd/ingest loads a daily OHLC CSV file, validates it and stores the bars
// in SQLite.
//
// Usage:
//
//	go run ./cmd/ingest -csv data/EURUSD.csv -symbol EURUSD
//	go run ./cmd/ingest -csv gold.csv -symbol XAUUSD -replace -strict
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/josephadah/trading-ai/config"
	"github.com/josephadah/trading-ai/internal/logger"
	"github.com/josephadah/trading-ai/internal/marketdata/csvload"
	"github.com/josephadah/trading-ai/internal/marketdata/validate"
	sqlitestore "github.com/josephadah/trading-ai/internal/store/sqlite"
)

func main() {
	os.Exit(run())
}

func run() int {
	csvPath := flag.String("csv", "", "CSV file with timestamp,open,high,low,close[,volume] columns")
	symbol := flag.String("symbol", "", "Symbol the file holds, e.g. EURUSD")
	timeframe := flag.String("timeframe", "", "Timeframe label (default: TIMEFRAME from config)")
	replace := flag.Bool("replace", false, "Delete the symbol's stored bars before loading")
	strict := flag.Bool("strict", false, "Reject files with OHLC logic violations")
	flag.Parse()

	if *csvPath == "" || *symbol == "" {
		flag.Usage()
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	if *timeframe == "" {
		*timeframe = cfg.Timeframe
	}
	log := logger.Init("ingest", logger.ParseLevel(cfg.LogLevel), cfg.LogFile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// ---- Parse ----
	series, err := csvload.ReadFile(*csvPath, *symbol, *timeframe)
	if err != nil {
		log.Error("read csv failed", "path", *csvPath, "error", err)
		return 1
	}
	log.Info("parsed csv", "path", *csvPath, "symbol", series.Symbol, "rows", series.Len())

	// ---- Validate ----
	opts := cfg.Validation
	opts.Strict = opts.Strict || *strict
	report := validate.New(opts, log).Check(series)
	if err := report.Err(); err != nil {
		log.Error("validation failed", "error", err)
		return 1
	}
	for _, w := range report.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}

	// ---- Store ----
	if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
		log.Error("create data dir", "error", err)
		return 1
	}
	store, err := sqlitestore.New(sqlitestore.Config{DBPath: cfg.SQLitePath}, log)
	if err != nil {
		log.Error("sqlite open failed", "path", cfg.SQLitePath, "error", err)
		return 1
	}
	defer store.Close()

	inserted, skipped, err := store.WriteBars(ctx, series, *replace)
	if err != nil {
		log.Error("store bars failed", "error", err)
		return 1
	}

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║          INGEST COMPLETE             ║")
	fmt.Println("╠══════════════════════════════════════╣")
	fmt.Printf("║  Symbol:            %-16s ║\n", series.Symbol)
	fmt.Printf("║  Rows parsed:       %-16d ║\n", series.Len())
	fmt.Printf("║  Inserted:          %-16d ║\n", inserted)
	fmt.Printf("║  Skipped (exists):  %-16d ║\n", skipped)
	fmt.Printf("║  Warnings:          %-16d ║\n", len(report.Warnings))
	fmt.Println("╚══════════════════════════════════════╝")
	if report.Range != "" {
		fmt.Println(report.Range)
	}

	summaries, err := store.BarSummaries(ctx)
	if err == nil {
		for _, s := range summaries {
			fmt.Printf("  %-8s %-4s %6d bars  %s -> %s\n", s.Symbol, s.Timeframe, s.Count,
				s.First.Format("2006-01-02"), s.Last.Format("2006-01-02"))
		}
	}
	return 0
}
