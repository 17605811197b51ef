// Package metrics exposes Prometheus counters for the scan pipeline and a
// small HTTP server for /metrics and /healthz.
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/josephadah/trading-ai/internal/model"
	"github.com/josephadah/trading-ai/internal/strategy"
)

// Metrics holds all Prometheus metrics for the signal pipeline.
type Metrics struct {
	BarsLoaded         *prometheus.CounterVec   // labels: symbol
	SignalsTotal       *prometheus.CounterVec   // labels: symbol, direction
	GateRejections     *prometheus.CounterVec   // labels: gate, direction
	StageDuration      *prometheus.HistogramVec // labels: stage
	SymbolFailures     *prometheus.CounterVec   // labels: symbol
	ValidationWarnings *prometheus.CounterVec   // labels: symbol
	LastScanTimestamp  prometheus.Gauge

	// Redis circuit breaker
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter
	RedisBufferedSignals     prometheus.Counter
	RedisFlushedSignals      prometheus.Counter

	// Signal feed
	FeedClients  prometheus.Gauge
	FeedMessages prometheus.Counter
}

// NewMetrics creates the metrics and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		BarsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scan_bars_loaded_total",
			Help: "Bars loaded for scanning",
		}, []string{"symbol"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scan_signals_total",
			Help: "Signals emitted by the signal engine",
		}, []string{"symbol", "direction"}),
		GateRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scan_gate_rejections_total",
			Help: "Bar evaluations rejected, by the gate that rejected them",
		}, []string{"gate", "direction"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scan_stage_duration_seconds",
			Help:    "Per-symbol pipeline stage latency",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"stage"}),
		SymbolFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scan_symbol_failures_total",
			Help: "Symbols whose pipeline failed",
		}, []string{"symbol"}),
		ValidationWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scan_validation_warnings_total",
			Help: "Non-critical data quality issues found before scanning",
		}, []string{"symbol"}),
		LastScanTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scan_last_run_timestamp_seconds",
			Help: "Unix time the last scan run finished",
		}),

		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scan_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scan_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),
		RedisBufferedSignals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scan_redis_buffered_signals_total",
			Help: "Signals buffered locally while Redis was unavailable",
		}),
		RedisFlushedSignals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scan_redis_flushed_signals_total",
			Help: "Buffered signals published after Redis recovered",
		}),

		FeedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalfeed_clients",
			Help: "Connected WebSocket clients",
		}),
		FeedMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalfeed_messages_total",
			Help: "Signal messages broadcast to clients",
		}),
	}

	reg.MustRegister(
		m.BarsLoaded,
		m.SignalsTotal,
		m.GateRejections,
		m.StageDuration,
		m.SymbolFailures,
		m.ValidationWarnings,
		m.LastScanTimestamp,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
		m.RedisBufferedSignals,
		m.RedisFlushedSignals,
		m.FeedClients,
		m.FeedMessages,
	)

	return m
}

// ObserveStage records how long a pipeline stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveSignals counts emitted signals.
func (m *Metrics) ObserveSignals(signals []model.Signal) {
	for i := range signals {
		m.SignalsTotal.WithLabelValues(signals[i].Symbol, string(signals[i].Direction)).Inc()
	}
}

// ObserveTraces counts the gate that stopped each evaluation.
func (m *Metrics) ObserveTraces(evals []strategy.Evaluation) {
	for _, ev := range evals {
		if step, ok := ev.Rejection(); ok {
			m.GateRejections.WithLabelValues(step.Name, string(ev.Direction)).Inc()
		}
	}
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	RedisChecked   bool      `json:"-"`
	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	LastScanAt     time.Time `json:"last_scan_at"`
	LastScanOK     bool      `json:"last_scan_ok"`
	LastScanCount  int       `json:"last_scan_signals"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

// SetLastScan records the outcome of a scan run.
func (h *HealthStatus) SetLastScan(at time.Time, ok bool, signals int) {
	h.mu.Lock()
	h.LastScanAt = at
	h.LastScanOK = ok
	h.LastScanCount = signals
	h.mu.Unlock()
}

// PingFunc probes a dependency.
type PingFunc func(ctx context.Context) error

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, ping PingFunc) {
	ok, latency := probe(ctx, ping)

	h.mu.Lock()
	h.RedisChecked = true
	h.RedisConnected = ok
	h.RedisLatencyMs = latency
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, ping PingFunc) {
	ok, latency := probe(ctx, ping)

	h.mu.Lock()
	h.SQLiteOK = ok
	h.SQLiteLatencyMs = latency
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

func probe(ctx context.Context, ping PingFunc) (bool, float64) {
	start := time.Now()
	err := ping(ctx)
	return err == nil, float64(time.Since(start).Microseconds()) / 1000.0
}

// StartLivenessChecker runs periodic dependency checks. A nil ping is
// skipped.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, redisPing, sqlitePing PingFunc, interval time.Duration) {
	check := func() {
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if redisPing != nil {
			h.CheckRedis(probeCtx, redisPing)
		}
		if sqlitePing != nil {
			h.CheckSQLite(probeCtx, sqlitePing)
		}
	}
	go func() {
		check()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				check()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
// SQLite down is unhealthy; Redis down (when checked) is degraded.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	switch {
	case !h.SQLiteOK:
		overallStatus = "unhealthy"
		httpCode = http.StatusServiceUnavailable
	case h.RedisChecked && !h.RedisConnected:
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	lastScan := ""
	if !h.LastScanAt.IsZero() {
		lastScan = h.LastScanAt.Format(time.RFC3339)
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastScanAt      string  `json:"last_scan_at"`
		LastScanOK      bool    `json:"last_scan_ok"`
		LastScanSignals int     `json:"last_scan_signals"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastScanAt:      lastScan,
		LastScanOK:      h.LastScanOK,
		LastScanSignals: h.LastScanCount,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
	log  *slog.Logger
}

// NewServer creates a metrics and health server. A nil gatherer serves
// prometheus.DefaultGatherer.
func NewServer(addr string, health *HealthStatus, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", health)

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: slog.Default().With(slog.String("component", "metrics")),
	}
}

// Handler returns the server's mux.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		s.log.Info("server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("server error", "error", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
