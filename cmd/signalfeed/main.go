// cmd/signalfeed relays published signals from Redis to WebSocket clients
// and serves the latest signals over REST.
//
// Usage:
//
//	go run ./cmd/signalfeed -addr :8090
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/josephadah/trading-ai/config"
	"github.com/josephadah/trading-ai/internal/gateway"
	"github.com/josephadah/trading-ai/internal/logger"
	"github.com/josephadah/trading-ai/internal/metrics"
	redisstore "github.com/josephadah/trading-ai/internal/store/redis"
)

func main() {
	os.Exit(run())
}

func run() int {
	addr := flag.String("addr", "", "Listen address (default: FEED_ADDR from config)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	if *addr == "" {
		*addr = cfg.FeedAddr
	}
	log := logger.Init("signalfeed", logger.ParseLevel(cfg.LogLevel), cfg.LogFile)
	processStart := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	rp, err := redisstore.New(redisstore.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}, log)
	if err != nil {
		log.Error("redis connect failed", "addr", cfg.RedisAddr, "error", err)
		return 1
	}
	defer rp.Close()

	m := metrics.NewMetrics(nil)
	hub := gateway.NewHub(rp.Client(), m, log)
	reader := redisstore.NewReader(rp.Client())

	// Restore latest signals so early clients get state before the next scan.
	latest, err := reader.LatestSignals(ctx, cfg.Symbols)
	if err != nil {
		log.Warn("could not load latest signals", "error", err)
	}
	hub.Seed(latest)

	go hub.Run(ctx)
	go hub.StartStatusBroadcast(ctx, 30*time.Second)

	mux := http.NewServeMux()
	gateway.RegisterRoutes(mux, hub, reader, rp.Ping, processStart)
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("signal feed listening", "addr", *addr, "symbols", len(latest))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Error("shutdown", "error", err)
		return 1
	}
	return 0
}
