package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/go-redis/redis/v8"

	"github.com/josephadah/trading-ai/internal/model"
)

// Reader reads published signals back from Redis.
type Reader struct {
	client goredis.Cmdable
}

// NewReader wraps an existing client, e.g. Publisher.Client().
func NewReader(client goredis.Cmdable) *Reader {
	return &Reader{client: client}
}

// Latest returns the most recent published signal for symbol.
// ok is false when nothing has been published or the key expired.
func (r *Reader) Latest(ctx context.Context, symbol string) (sig model.Signal, ok bool, err error) {
	data, err := r.client.Get(ctx, LatestKey(symbol)).Result()
	if errors.Is(err, goredis.Nil) {
		return model.Signal{}, false, nil
	}
	if err != nil {
		return model.Signal{}, false, fmt.Errorf("redis get %s: %w", LatestKey(symbol), err)
	}
	if err := json.Unmarshal([]byte(data), &sig); err != nil {
		return model.Signal{}, false, fmt.Errorf("unmarshal latest signal %s: %w", symbol, err)
	}
	return sig, true, nil
}

// LatestSignals returns the latest signal of each symbol that has one.
func (r *Reader) LatestSignals(ctx context.Context, symbols []string) (map[string]model.Signal, error) {
	out := make(map[string]model.Signal, len(symbols))
	for _, s := range symbols {
		sig, ok, err := r.Latest(ctx, s)
		if err != nil {
			return nil, err
		}
		if ok {
			out[sig.Symbol] = sig
		}
	}
	return out, nil
}

// Recent returns up to n signals from the symbol's stream, newest first.
// Entries that fail to decode are skipped.
func (r *Reader) Recent(ctx context.Context, symbol string, n int64) ([]model.Signal, error) {
	msgs, err := r.client.XRevRangeN(ctx, StreamKey(symbol), "+", "-", n).Result()
	if err != nil {
		return nil, fmt.Errorf("redis xrevrange %s: %w", StreamKey(symbol), err)
	}
	out := make([]model.Signal, 0, len(msgs))
	for _, msg := range msgs {
		data, ok := msg.Values["data"].(string)
		if !ok {
			continue
		}
		var sig model.Signal
		if err := json.Unmarshal([]byte(data), &sig); err != nil {
			continue
		}
		out = append(out, sig)
	}
	return out, nil
}
