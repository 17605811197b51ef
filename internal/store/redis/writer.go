package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/josephadah/trading-ai/internal/model"
)

const (
	defaultStreamMaxLen = 1000
	defaultLatestTTL    = 7 * 24 * time.Hour

	// ChannelPattern matches every per-symbol signal channel.
	ChannelPattern = "pub:signal:*"
)

// StreamKey is the per-symbol signal stream.
func StreamKey(symbol string) string { return "signal:" + strings.ToUpper(symbol) }

// LatestKey holds the most recent signal for a symbol.
func LatestKey(symbol string) string { return "latest:signal:" + strings.ToUpper(symbol) }

// Channel is the per-symbol pub/sub channel.
func Channel(symbol string) string { return "pub:signal:" + strings.ToUpper(symbol) }

// Config configures the Redis connection.
type Config struct {
	Addr         string // Redis address, e.g. "localhost:6379"
	Password     string
	DB           int
	StreamMaxLen int64         // approximate per-symbol stream cap (default 1000)
	LatestTTL    time.Duration // TTL of the latest-signal key (default 7 days)
}

// Publisher writes emitted signals to Redis: XADD to the symbol's stream,
// SET of the latest signal and PUBLISH for live subscribers.
// It implements model.SignalPublisher.
type Publisher struct {
	client *goredis.Client
	cfg    Config
	log    *slog.Logger
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// New connects to Redis and pings the server. A nil logger uses slog.Default().
func New(cfg Config, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.StreamMaxLen <= 0 {
		cfg.StreamMaxLen = defaultStreamMaxLen
	}
	if cfg.LatestTTL <= 0 {
		cfg.LatestTTL = defaultLatestTTL
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log := logger.With(slog.String("component", "redis"))
	log.Info("connected", "addr", cfg.Addr)
	return &Publisher{client: client, cfg: cfg, log: log}, nil
}

// command is one signal's set of Redis writes.
type command struct {
	stream  string
	latest  string
	channel string
	payload string
}

// buildCommands encodes signals in order. Later signals for the same
// symbol overwrite the latest key, so the newest bar wins.
func buildCommands(signals []model.Signal) []command {
	cmds := make([]command, 0, len(signals))
	for i := range signals {
		sig := &signals[i]
		cmds = append(cmds, command{
			stream:  StreamKey(sig.Symbol),
			latest:  LatestKey(sig.Symbol),
			channel: Channel(sig.Symbol),
			payload: string(sig.JSON()),
		})
	}
	return cmds
}

// PublishSignals sends every signal in a single pipeline.
func (p *Publisher) PublishSignals(ctx context.Context, signals []model.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	pipe := p.client.Pipeline()
	for _, c := range buildCommands(signals) {
		pipe.XAdd(ctx, &goredis.XAddArgs{
			Stream: c.stream,
			MaxLen: p.cfg.StreamMaxLen,
			Approx: true,
			Values: map[string]interface{}{"data": c.payload},
		})
		pipe.Set(ctx, c.latest, c.payload, p.cfg.LatestTTL)
		pipe.Publish(ctx, c.channel, c.payload)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish %d signals: %w", len(signals), err)
	}
	p.log.Debug("published signals", "count", len(signals))
	return nil
}

// Ping checks the connection.
func (p *Publisher) Ping(ctx context.Context) error { return p.client.Ping(ctx).Err() }

// Close closes the Redis client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
