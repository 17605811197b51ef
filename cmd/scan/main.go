// cmd/scan runs the Daily EMA Pullback scan over stored daily bars, stores
// the emitted signals and prints a summary.
//
// Usage:
//
//	go run ./cmd/scan -symbols=EURUSD,GBPUSD -debug=10 -publish
//	go run ./cmd/scan -daemon -metrics
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/josephadah/trading-ai/config"
	"github.com/josephadah/trading-ai/internal/logger"
	"github.com/josephadah/trading-ai/internal/metrics"
	"github.com/josephadah/trading-ai/internal/model"
	"github.com/josephadah/trading-ai/internal/notification"
	"github.com/josephadah/trading-ai/internal/sigengine"
	redisstore "github.com/josephadah/trading-ai/internal/store/redis"
	sqlitestore "github.com/josephadah/trading-ai/internal/store/sqlite"
)

func main() {
	os.Exit(run())
}

func run() int {
	symbols := flag.String("symbols", "", "Comma-separated symbols (default: SYMBOLS from config)")
	replace := flag.Bool("replace", false, "Delete each symbol's stored signals before writing")
	debug := flag.Int("debug", 0, "Print the gate trail of the last N bars per symbol")
	publish := flag.Bool("publish", false, "Publish fresh signals to Redis")
	serveMetrics := flag.Bool("metrics", false, "Serve /metrics and /healthz on METRICS_ADDR")
	daemon := flag.Bool("daemon", false, "Keep running and scan after every daily close")
	delay := flag.Duration("delay", 5*time.Minute, "Wait after the daily close before scanning (daemon mode)")
	freshBars := flag.Int("fresh", 1, "Publish and notify signals on the last N bars")
	recent := flag.Int("recent", 10, "Rows in the recent-signal table (0 to skip)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	if *symbols != "" {
		cfg.Symbols = config.ParseSymbols(*symbols)
	}
	log := logger.Init("scan", logger.ParseLevel(cfg.LogLevel), cfg.LogFile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// ---- Storage ----
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

	m := metrics.NewMetrics(nil)
	health := metrics.NewHealthStatus()

	// ---- Redis publisher behind a circuit breaker ----
	var (
		pub       model.SignalPublisher
		buffered  *redisstore.BufferedPublisher
		redisPing metrics.PingFunc
	)
	if *publish {
		rp, err := redisstore.New(redisstore.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}, log)
		if err != nil {
			log.Warn("redis unavailable, publishing disabled", "addr", cfg.RedisAddr, "error", err)
		} else {
			defer rp.Close()
			cb := redisstore.NewCircuitBreaker(3, 30*time.Second)
			cb.OnStateChange = func(from, to redisstore.State) {
				m.RedisCircuitBreakerState.Set(float64(to))
				if to == redisstore.StateOpen {
					m.RedisCircuitBreakerTrips.Inc()
				}
				log.Warn("redis circuit breaker", "from", from.String(), "to", to.String())
			}
			buffered = redisstore.NewBufferedPublisher(ctx, rp, cb, 0, log)
			buffered.OnBuffer = func(n int) { m.RedisBufferedSignals.Add(float64(n)) }
			buffered.OnFlush = func(n int) { m.RedisFlushedSignals.Add(float64(n)) }
			pub = buffered
			redisPing = rp.Ping
		}
	}

	// ---- Metrics / health ----
	if *serveMetrics {
		srv := metrics.NewServer(cfg.MetricsAddr, health, nil)
		srv.Start()
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer scancel()
			srv.Stop(sctx)
		}()
		health.StartLivenessChecker(ctx, redisPing, store.Ping, 15*time.Second)
	}

	reg := cfg.Registry()
	svc, err := sigengine.New(sigengine.Config{
		Symbols:        cfg.Symbols,
		Timeframe:      cfg.Timeframe,
		Workers:        cfg.ScanWorkers,
		Replace:        *replace,
		FreshBars:      *freshBars,
		TraceBars:      *debug,
		ValidateSample: 5,
		Indicator:      cfg.Indicator,
		Strategy:       cfg.Strategy,
		Validation:     cfg.Validation,
	}, sigengine.Deps{
		Bars:      store,
		Signals:   store,
		Runs:      store,
		Publisher: pub,
		Notifier:  notification.Build(cfg.WebhookURL, cfg.TelegramToken, cfg.TelegramChatID, log),
		Metrics:   m,
		Health:    health,
		Registry:  reg,
		Logger:    log,
	})
	if err != nil {
		log.Error("init failed", "error", err)
		return 1
	}

	report := func(res sigengine.RunResult, err error) {
		if err != nil {
			log.Error("scan run failed", "run_id", res.RunID, "error", err)
		}
		printRun(os.Stdout, res, reg)
		if *debug > 0 {
			printTraces(os.Stdout, res)
		}
		if *recent > 0 {
			printRecent(ctx, os.Stdout, store, *recent, reg)
		}
		flushPending(ctx, buffered, log)
	}

	if *daemon {
		log.Info("daemon mode", "symbols", cfg.Symbols, "delay", delay.String())
		svc.RunDaily(ctx, *delay, report)
		return 0
	}

	res, err := svc.Run(ctx)
	report(res, err)
	if err != nil || res.Stats().Failures > 0 {
		return 1
	}
	return 0
}

// flushPending retries signals buffered while Redis was unreachable.
func flushPending(ctx context.Context, bp *redisstore.BufferedPublisher, log *slog.Logger) {
	if bp == nil || bp.PendingCount() == 0 {
		return
	}
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	n := bp.Flush(fctx)
	if left := bp.PendingCount(); left > 0 {
		log.Warn("signals left unpublished", "flushed", n, "pending", left)
	}
}
