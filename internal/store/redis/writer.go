// Package redis provides the Redis-backed pieces of the backtester: a
// read-through bar cache and a Pub/Sub channel for run progress events.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// OutcomeChannel is the Pub/Sub channel carrying per-ticker run events.
const OutcomeChannel = "backtest:outcomes"

// WriterConfig configures the Redis connection.
type WriterConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Writer publishes run events to Redis and owns the shared client.
type Writer struct {
	client *goredis.Client
	logger *slog.Logger
}

// Client returns the underlying Redis client for health checks and the cache.
func (w *Writer) Client() *goredis.Client { return w.client }

// New creates a new Redis Writer and pings the server.
func New(cfg WriterConfig, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
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

	logger.Info("redis connected", slog.String("addr", cfg.Addr))
	return &Writer{client: client, logger: logger}, nil
}

// PublishJSON marshals v and publishes it on channel.
func (w *Writer) PublishJSON(ctx context.Context, channel string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("redis marshal: %w", err)
	}
	if err := w.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe subscribes to a Redis Pub/Sub channel and waits for the
// confirmation. The caller listens on .Channel() and closes the handle.
func (w *Writer) Subscribe(ctx context.Context, channel string) (*goredis.PubSub, error) {
	pubsub := w.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", channel, err)
	}
	return pubsub, nil
}

// Close closes the Redis client.
func (w *Writer) Close() error {
	return w.client.Close()
}
