package gateway

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	redisstore "github.com/josephadah/trading-ai/internal/store/redis"
)

// Client represents a single WebSocket peer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	// Subscribed symbols; empty receives everything.
	subMu   sync.RWMutex
	symbols map[string]bool
}

func newClient(hub *Hub, conn *websocket.Conn, symbols []string) *Client {
	c := &Client{
		conn:    conn,
		send:    make(chan []byte, 256),
		hub:     hub,
		symbols: make(map[string]bool),
	}
	c.subscribe(symbols)
	return c
}

func (c *Client) sendInitialState(lastTS string) {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c] {
		return
	}

	var cutoff time.Time
	if lastTS != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, lastTS); err == nil {
			cutoff = parsed
		}
	}

	for channel, entry := range c.hub.latest {
		if !cutoff.IsZero() && !entry.TS.After(cutoff) {
			continue
		}
		if !c.matchesChannel(channel) {
			continue
		}

		envelope, _ := json.Marshal(map[string]interface{}{
			"channel":     channel,
			"data":        entry.Data,
			"ts":          entry.TS.Format(time.RFC3339Nano),
			"channel_seq": entry.Seq,
			"initial":     true,
		})
		select {
		case c.send <- envelope:
		default:
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))

			// Write coalescing: batch queued messages into a single frame
			// with newline separators
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(msg)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
		c.hub.log.Info("ws client disconnected")
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		c.handleMessage(msg)
	}
}

func (c *Client) handleMessage(msg []byte) {
	var base struct {
		Type string `json:"type"`
		Ping int64  `json:"ping"`
	}
	if json.Unmarshal(msg, &base) != nil {
		SendError(c, "", "invalid JSON")
		return
	}

	switch base.Type {
	case "SUBSCRIBE", "UNSUBSCRIBE":
		var sub SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil {
			SendError(c, "", "invalid "+base.Type+": "+err.Error())
			return
		}
		if base.Type == "SUBSCRIBE" {
			c.subscribe(sub.Symbols)
		} else {
			c.unsubscribe(sub.Symbols)
		}
		SendJSON(c, SubscribedMsg{Type: "SUBSCRIBED", ReqID: sub.ReqID, Symbols: c.Symbols()})
	default:
		if base.Ping > 0 {
			SendJSON(c, map[string]interface{}{
				"type":      "pong",
				"ping":      base.Ping,
				"server_ts": time.Now().UnixMilli(),
			})
			return
		}
		SendError(c, "", "unknown message type "+base.Type)
	}
}

func (c *Client) subscribe(symbols []string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, s := range symbols {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			c.symbols[s] = true
		}
	}
}

func (c *Client) unsubscribe(symbols []string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, s := range symbols {
		delete(c.symbols, strings.ToUpper(strings.TrimSpace(s)))
	}
}

// Symbols returns the client's subscribed symbols, sorted.
func (c *Client) Symbols() []string {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	out := make([]string, 0, len(c.symbols))
	for s := range c.symbols {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// matchesChannel reports whether the client should receive messages
// published on channel.
func (c *Client) matchesChannel(channel string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	if len(c.symbols) == 0 {
		return true
	}
	sym := symbolOf(channel)
	if sym == "" {
		return true // non-signal channel, always deliver
	}
	return c.symbols[sym]
}

// symbolOf extracts SYM from "pub:signal:SYM", or returns "".
func symbolOf(channel string) string {
	prefix := strings.TrimSuffix(redisstore.ChannelPattern, "*")
	if !strings.HasPrefix(channel, prefix) {
		return ""
	}
	return channel[len(prefix):]
}

// SendJSON queues v for the client, dropping it when the buffer is full.
func SendJSON(c *Client, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.hub.log.Error("json marshal", "error", err)
		return
	}
	select {
	case c.send <- data:
	default:
		c.hub.log.Warn("client send buffer full, dropping message")
	}
}

// SendError sends an error response to the client.
func SendError(c *Client, reqID, errMsg string) {
	SendJSON(c, ErrorResponse{
		Type:  "ERROR",
		ReqID: reqID,
		Error: errMsg,
	})
}
