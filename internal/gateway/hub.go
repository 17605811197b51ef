// Package gateway relays published signals to WebSocket clients.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"

	"github.com/josephadah/trading-ai/internal/markethours"
	"github.com/josephadah/trading-ai/internal/metrics"
	"github.com/josephadah/trading-ai/internal/model"
	redisstore "github.com/josephadah/trading-ai/internal/store/redis"
)

// Hub manages WebSocket clients and Redis PubSub fan-out.
// It acts as a compositor, delegating to focused components:
//   - PubSubRouter: Redis subscription + message routing
//   - Broadcaster: envelope construction + client-filtered fan-out
type Hub struct {
	Rdb *goredis.Client

	log     *slog.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	clients map[*Client]bool
	latest  map[string]latestEntry
	seq     int64

	// Per-channel monotonic sequence numbers for gap detection
	channelSeqs map[string]int64

	// Per-channel replay buffers for gap backfill
	replayBufs map[string]*ReplayBuffer

	Router      *PubSubRouter
	Broadcaster *Broadcaster
}

type latestEntry struct {
	Data json.RawMessage
	TS   time.Time
	Seq  int64 // per-channel seq for gap detection
}

// NewHub creates a Hub. rdb may be nil when the hub is fed directly (tests,
// or a process without Redis); m may be nil to skip metrics.
func NewHub(rdb *goredis.Client, m *metrics.Metrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		Rdb:         rdb,
		log:         logger.With(slog.String("component", "signalfeed")),
		metrics:     m,
		clients:     make(map[*Client]bool),
		latest:      make(map[string]latestEntry),
		channelSeqs: make(map[string]int64),
		replayBufs:  make(map[string]*ReplayBuffer),
	}
	h.Router = NewPubSubRouter(h)
	h.Broadcaster = NewBroadcaster(h)
	return h
}

// Run starts the PubSub subscription loop. Blocks until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	if h.Rdb == nil {
		h.log.Warn("no redis client, pubsub disabled")
		<-ctx.Done()
		return
	}
	h.Router.RunPattern(ctx)
}

// Seed stores signals as the latest state of their channels so clients
// connecting before the next publish still receive them.
func (h *Hub) Seed(signals map[string]model.Signal) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sig := range signals {
		ch := redisstore.Channel(sig.Symbol)
		if _, ok := h.latest[ch]; ok {
			continue
		}
		h.latest[ch] = latestEntry{Data: sig.JSON(), TS: sig.SignalTS}
	}
}

// broadcast delegates to Broadcaster for fan-out.
func (h *Hub) broadcast(channel string, data []byte) {
	n := h.Broadcaster.Broadcast(channel, data)
	if h.metrics != nil {
		h.metrics.FeedMessages.Add(float64(n))
	}
}

// HandleWSRequest registers an upgraded connection and starts its pumps.
// symbols restricts the feed; empty means every symbol.
func (h *Hub) HandleWSRequest(conn *websocket.Conn, lastTS string, symbols []string) {
	client := newClient(h, conn, symbols)
	conn.EnableWriteCompression(true)

	count := h.register(client)
	h.log.Info("ws client connected", "clients", count, "symbols", symbols)

	go client.sendInitialState(lastTS)
	go client.writePump()
	go client.readPump()
}

func (h *Hub) register(c *Client) int {
	h.mu.Lock()
	h.clients[c] = true
	count := len(h.clients)
	h.mu.Unlock()
	h.setClientGauge(count)
	return count
}

// RemoveClient removes a client from the hub.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()
	close(c.send)
	h.setClientGauge(count)
}

func (h *Hub) setClientGauge(n int) {
	if h.metrics != nil {
		h.metrics.FeedClients.Set(float64(n))
	}
}

// LatestSignals returns the latest payload per symbol.
func (h *Hub) LatestSignals() map[string]json.RawMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()
	cp := make(map[string]json.RawMessage, len(h.latest))
	for ch, v := range h.latest {
		if sym := symbolOf(ch); sym != "" {
			cp[sym] = v.Data
		}
	}
	return cp
}

// GetReplayRange returns buffered envelopes for a channel in [fromSeq, toSeq].
// Used by the /api/signals/missed endpoint for client gap backfill.
func (h *Hub) GetReplayRange(channel string, fromSeq, toSeq int64) [][]byte {
	h.mu.RLock()
	rb, exists := h.replayBufs[channel]
	h.mu.RUnlock()
	if !exists {
		return nil
	}
	entries := rb.Range(fromSeq, toSeq)
	result := make([][]byte, len(entries))
	for i, e := range entries {
		result[i] = e.Data
	}
	return result
}

// GetChannelSeq returns the current sequence number for a channel.
func (h *Hub) GetChannelSeq(channel string) int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.channelSeqs[channel]
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// StartStatusBroadcast sends the forex session status to all clients every
// interval. Blocks until ctx is cancelled.
func (h *Hub) StartStatusBroadcast(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.sendStatus(time.Now())
		}
	}
}

func (h *Hub) sendStatus(now time.Time) {
	envelope, _ := json.Marshal(statusMessage(now, h.ClientCount()))
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- envelope:
		default:
		}
	}
}

func statusMessage(now time.Time, clients int) StatusMsg {
	return StatusMsg{
		Type:         "status",
		Clients:      clients,
		MarketOpen:   markethours.IsForexOpen(now),
		MarketStatus: markethours.StatusString(now),
		TS:           now.UTC().Format(time.RFC3339Nano),
	}
}
