package marketdata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/akshargrover/algo-trading-prototype/internal/model"
	redisstore "github.com/akshargrover/algo-trading-prototype/internal/store/redis"
	sqlitestore "github.com/akshargrover/algo-trading-prototype/internal/store/sqlite"
)

// Source kinds accepted by Open.
const (
	SourceCSV    = "csv"
	SourceSQLite = "sqlite"
)

// FeedConfig selects and decorates the bar source.
type FeedConfig struct {
	Source     string // csv | sqlite
	DataDir    string // csv directory
	SQLitePath string // sqlite bar store

	// Redis, when set, wraps the source in a read-through cache.
	Redis *redisstore.Writer
	Cache redisstore.CacheConfig
}

// Feed is an opened bar source together with the resources behind it.
type Feed struct {
	model.BarSource

	// DB is the SQLite handle when Source is sqlite, for health probes.
	DB *sql.DB

	cache   *redisstore.Cache
	closers []func() error
}

// Open builds the configured source. The caller must Close the feed.
func Open(cfg FeedConfig, logger *slog.Logger) (*Feed, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f := &Feed{}
	switch cfg.Source {
	case SourceCSV, "":
		f.BarSource = NewCSVSource(cfg.DataDir)
		logger.Info("bar source ready", slog.String("source", SourceCSV), slog.String("dir", cfg.DataDir))
	case SourceSQLite:
		r, err := sqlitestore.NewReader(cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		f.BarSource, f.DB = r, r.DB()
		f.closers = append(f.closers, r.Close)
		logger.Info("bar source ready", slog.String("source", SourceSQLite), slog.String("path", cfg.SQLitePath))
	default:
		return nil, fmt.Errorf("unknown data source %q (want csv or sqlite)", cfg.Source)
	}

	if cfg.Redis != nil {
		f.cache = redisstore.NewCache(cfg.Redis.Client(), f.BarSource, cfg.Cache, logger)
		f.BarSource = f.cache
		logger.Info("bar cache enabled", slog.Duration("ttl", cfg.Cache.TTL))
	}
	return f, nil
}

// Close releases the feed's resources.
func (f *Feed) Close() error {
	var errs []error
	for i := len(f.closers) - 1; i >= 0; i-- {
		errs = append(errs, f.closers[i]())
	}
	return errors.Join(errs...)
}

// Invalidate drops the cached series for tickers so the next Fetch reads
// the underlying source. It is a no-op when the feed has no cache.
func (f *Feed) Invalidate(ctx context.Context, tickers ...string) error {
	if f.cache == nil {
		return nil
	}
	var errs []error
	for _, t := range tickers {
		if err := f.cache.Invalidate(ctx, t); err != nil {
			errs = append(errs, fmt.Errorf("invalidate %s: %w", t, err))
		}
	}
	return errors.Join(errs...)
}

// SeedResult reports one ticker copied by Seed.
type SeedResult struct {
	Ticker string
	Bars   int
	Err    error
}

// Seed copies each ticker's series from src to dst, continuing past
// per-ticker failures.
func Seed(ctx context.Context, src model.BarSource, dst model.BarWriter, tickers []string, logger *slog.Logger) []SeedResult {
	if logger == nil {
		logger = slog.Default()
	}
	out := make([]SeedResult, 0, len(tickers))
	for _, t := range tickers {
		if ctx.Err() != nil {
			out = append(out, SeedResult{Ticker: t, Err: ctx.Err()})
			continue
		}
		start := time.Now()
		bars, err := src.Fetch(ctx, t)
		if err == nil {
			err = dst.WriteBars(ctx, t, bars)
		}
		if err != nil {
			logger.Warn("seed failed", slog.String("ticker", t), slog.String("error", err.Error()))
		} else {
			logger.Info("seeded", slog.String("ticker", t), slog.Int("bars", len(bars)),
				slog.Duration("took", time.Since(start)))
		}
		out = append(out, SeedResult{Ticker: t, Bars: len(bars), Err: err})
	}
	return out
}
