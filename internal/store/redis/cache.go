package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/akshargrover/algo-trading-prototype/internal/model"
)

// Lookup outcomes reported to CacheConfig.OnLookup.
const (
	LookupHit    = "hit"
	LookupMiss   = "miss"
	LookupError  = "error"  // Redis failed; fell through to the source
	LookupBypass = "bypass" // breaker open; Redis not contacted
)

// CacheConfig configures the read-through bar cache.
type CacheConfig struct {
	TTL          time.Duration // 0 keeps entries forever
	KeyPrefix    string        // default "bars:"
	MaxFailures  int           // breaker threshold, default 5
	ResetTimeout time.Duration // breaker probe delay, default 10s

	OnLookup      func(result string)  // optional
	OnStateChange func(from, to State) // optional
}

// Cache is a model.BarSource that serves series from Redis and falls back
// to the wrapped source on a miss or any Redis failure. Redis errors never
// fail a Fetch; errors from the wrapped source are returned unchanged and
// never cached.
type Cache struct {
	client *goredis.Client
	src    model.BarSource
	cfg    CacheConfig
	cb     *CircuitBreaker
	logger *slog.Logger
}

// NewCache wraps src with a Redis cache on client.
func NewCache(client *goredis.Client, src model.BarSource, cfg CacheConfig, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "bars:"
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 10 * time.Second
	}
	cb := NewCircuitBreaker(cfg.MaxFailures, cfg.ResetTimeout)
	cb.OnStateChange = func(from, to State) {
		logger.Warn("redis cache breaker state change",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
		if cfg.OnStateChange != nil {
			cfg.OnStateChange(from, to)
		}
	}
	return &Cache{client: client, src: src, cfg: cfg, cb: cb, logger: logger}
}

// Breaker exposes the cache's circuit breaker.
func (c *Cache) Breaker() *CircuitBreaker { return c.cb }

func (c *Cache) key(ticker string) string { return c.cfg.KeyPrefix + ticker }

func (c *Cache) report(result string) {
	if c.cfg.OnLookup != nil {
		c.cfg.OnLookup(result)
	}
}

// Fetch implements model.BarSource.
func (c *Cache) Fetch(ctx context.Context, ticker string) ([]model.Bar, error) {
	if bars, ok := c.lookup(ctx, ticker); ok {
		return bars, nil
	}

	bars, err := c.src.Fetch(ctx, ticker)
	if err != nil {
		return nil, err
	}
	c.store(ctx, ticker, bars)
	return bars, nil
}

func (c *Cache) lookup(ctx context.Context, ticker string) ([]model.Bar, bool) {
	var raw []byte
	err := c.cb.Execute(func() error {
		b, err := c.client.Get(ctx, c.key(ticker)).Bytes()
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		raw = b
		return err
	})
	switch {
	case errors.Is(err, ErrCircuitOpen):
		c.report(LookupBypass)
		return nil, false
	case err != nil:
		c.logger.Warn("redis cache get failed", slog.String("ticker", ticker), slog.String("error", err.Error()))
		c.report(LookupError)
		return nil, false
	case raw == nil:
		c.report(LookupMiss)
		return nil, false
	}

	var bars []model.Bar
	if err := json.Unmarshal(raw, &bars); err != nil {
		c.logger.Warn("redis cache entry corrupt", slog.String("ticker", ticker), slog.String("error", err.Error()))
		c.report(LookupMiss)
		return nil, false
	}
	c.report(LookupHit)
	return bars, true
}

func (c *Cache) store(ctx context.Context, ticker string, bars []model.Bar) {
	payload, err := json.Marshal(bars)
	if err != nil {
		return
	}
	err = c.cb.Execute(func() error {
		return c.client.Set(ctx, c.key(ticker), payload, c.cfg.TTL).Err()
	})
	if err != nil && !errors.Is(err, ErrCircuitOpen) {
		c.logger.Warn("redis cache set failed", slog.String("ticker", ticker), slog.String("error", err.Error()))
	}
}

// Invalidate drops the cached series for ticker.
func (c *Cache) Invalidate(ctx context.Context, ticker string) error {
	return c.cb.Execute(func() error {
		return c.client.Del(ctx, c.key(ticker)).Err()
	})
}

var _ model.BarSource = (*Cache)(nil)
