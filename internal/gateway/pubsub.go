package gateway

import (
	"context"
	"encoding/json"

	redisstore "github.com/josephadah/trading-ai/internal/store/redis"
)

// PubSubRouter manages Redis PubSub subscriptions and routes messages
// to the broadcaster for fan-out to WebSocket clients.
type PubSubRouter struct {
	hub *Hub
}

// NewPubSubRouter creates a PubSubRouter backed by the given Hub.
func NewPubSubRouter(hub *Hub) *PubSubRouter {
	return &PubSubRouter{hub: hub}
}

// RunPattern subscribes to every per-symbol signal channel.
// Blocks until ctx is cancelled.
func (r *PubSubRouter) RunPattern(ctx context.Context) {
	pubsub := r.hub.Rdb.PSubscribe(ctx, redisstore.ChannelPattern)
	defer pubsub.Close()

	r.hub.log.Info("subscribed to signal channels", "pattern", redisstore.ChannelPattern)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			data := []byte(msg.Payload)
			if !json.Valid(data) {
				// Envelopes embed data verbatim.
				r.hub.log.Warn("dropping non-JSON message", "channel", msg.Channel, "bytes", len(data))
				continue
			}
			r.hub.broadcast(msg.Channel, data)
		}
	}
}
