package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/josephadah/trading-ai/config"
	"github.com/josephadah/trading-ai/internal/markethours"
	"github.com/josephadah/trading-ai/internal/metrics"
	"github.com/josephadah/trading-ai/internal/model"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// SignalHistory returns up to n recent signals for a symbol, newest first.
// redis.Reader implements it.
type SignalHistory interface {
	Recent(ctx context.Context, symbol string, n int64) ([]model.Signal, error)
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// RegisterRoutes registers all HTTP routes on the provided mux. history and
// redisPing may be nil.
func RegisterRoutes(mux *http.ServeMux, hub *Hub, history SignalHistory, redisPing metrics.PingFunc, processStart time.Time) {
	// WebSocket endpoint: /ws?symbols=EURUSD,GBPUSD&last_ts=RFC3339
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.log.Warn("ws upgrade failed", "error", err)
			return
		}
		q := r.URL.Query()
		hub.HandleWSRequest(conn, q.Get("last_ts"), config.ParseSymbols(q.Get("symbols")))
	})

	// REST: latest signal per symbol
	mux.HandleFunc("/api/signals/latest", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, hub.LatestSignals())
	})

	// REST: recent signals from the symbol's Redis stream
	mux.HandleFunc("/api/signals/recent", func(w http.ResponseWriter, r *http.Request) {
		symbol := r.URL.Query().Get("symbol")
		if symbol == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "symbol is required"})
			return
		}
		if history == nil {
			writeJSON(w, http.StatusOK, []model.Signal{})
			return
		}
		limit := int64(20)
		if l, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
		signals, err := history.Recent(r.Context(), symbol, limit)
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, signals)
	})

	// REST: replay envelopes a client missed, by per-channel seq
	mux.HandleFunc("/api/signals/missed", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		channel := q.Get("channel")
		from, err1 := strconv.ParseInt(q.Get("from"), 10, 64)
		to, err2 := strconv.ParseInt(q.Get("to"), 10, 64)
		if channel == "" || err1 != nil || err2 != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "channel, from and to are required"})
			return
		}
		envs := hub.GetReplayRange(channel, from, to)
		out := make([]json.RawMessage, len(envs))
		for i, e := range envs {
			out[i] = e
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"channel":     channel,
			"channel_seq": hub.GetChannelSeq(channel),
			"messages":    out,
		})
	})

	// Health endpoint
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status, code := "ok", http.StatusOK
		redisOK := true
		if redisPing != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			redisOK = redisPing(ctx) == nil
			cancel()
			if !redisOK {
				status, code = "degraded", http.StatusServiceUnavailable
			}
		}
		now := time.Now()
		writeJSON(w, code, map[string]interface{}{
			"status":        status,
			"redis":         redisOK,
			"ws_clients":    hub.ClientCount(),
			"uptime_sec":    int64(time.Since(processStart).Seconds()),
			"market_status": markethours.StatusString(now),
			"ts":            now.UTC().Format(time.RFC3339Nano),
		})
	})
}
