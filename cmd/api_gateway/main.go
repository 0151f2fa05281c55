// cmd/api_gateway serves backtests over HTTP and streams per-ticker progress
// to WebSocket clients.
//
//	POST /api/backtest   run a batch (body: {"tickers":[...],"params":{...}})
//	GET  /api/results    latest batch, or ?ticker=X for one full outcome
//	GET  /api/runs       journaled runs
//	GET  /api/trades     journaled ledger (?run_id=&ticker=)
//	GET  /api/status     service status
//	GET  /ws             event stream (?last_seq=N&tickers=A,B)
//	GET  /metrics        Prometheus metrics
//	GET  /healthz        dependency health
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/akshargrover/algo-trading-prototype/config"
	"github.com/akshargrover/algo-trading-prototype/internal/backtest"
	"github.com/akshargrover/algo-trading-prototype/internal/execution"
	"github.com/akshargrover/algo-trading-prototype/internal/gateway"
	"github.com/akshargrover/algo-trading-prototype/internal/logger"
	"github.com/akshargrover/algo-trading-prototype/internal/marketdata"
	"github.com/akshargrover/algo-trading-prototype/internal/metrics"
	"github.com/akshargrover/algo-trading-prototype/internal/notification"
	redisstore "github.com/akshargrover/algo-trading-prototype/internal/store/redis"
)

const replaySize = 1024

func main() {
	processStart := time.Now()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log := logger.Init("api_gateway", logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- Metrics (own registry, plus runtime collectors) ----
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := metrics.NewMetrics(reg)
	health := metrics.NewHealthStatus()

	// ---- Redis (optional) ----
	var (
		redisWriter *redisstore.Writer
		rdb         *goredis.Client
	)
	if cfg.RedisAddr != "" {
		redisWriter, err = redisstore.New(redisstore.WriterConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}, log)
		if err != nil {
			log.Warn("redis unavailable, serving without cache or relay", slog.String("error", err.Error()))
			redisWriter = nil
		} else {
			rdb = redisWriter.Client()
			defer redisWriter.Close()
		}
	}

	// ---- Bar source ----
	feed, err := marketdata.Open(marketdata.FeedConfig{
		Source:     cfg.Source,
		DataDir:    cfg.DataDir,
		SQLitePath: cfg.SQLitePath,
		Redis:      redisWriter,
		Cache: redisstore.CacheConfig{
			TTL:           cfg.CacheTTL,
			OnLookup:      prom.ObserveCacheLookup,
			OnStateChange: func(_, to redisstore.State) { prom.SetBreakerState(int(to)) },
		},
	}, log)
	if err != nil {
		log.Error("bar source init failed", slog.String("error", err.Error()))
		os.Exit(2)
	}
	defer feed.Close()

	// ---- Journal ----
	alerts := notification.New(cfg.Notification(), log)
	svcCfg := gateway.ServiceConfig{
		Source:    feed,
		Params:    cfg.Params,
		Tickers:   cfg.TickerList(),
		Workers:   cfg.Workers,
		Observers: []backtest.Observer{prom},
		OnBatch: func(runID string, outcomes []backtest.Outcome) {
			health.SetLastRun(runID, time.Now())
			if err := notification.NotifyBuys(ctx, alerts, runID, outcomes); err != nil {
				log.Warn("buy alert failed", slog.String("run_id", runID), slog.String("error", err.Error()))
			}
		},
	}
	sqlDB := feed.DB
	if cfg.JournalPath != "" {
		journal, err := openJournal(cfg.JournalPath, log)
		if err != nil {
			log.Warn("journal unavailable, runs will not be persisted", slog.String("error", err.Error()))
		} else {
			defer journal.Close()
			svcCfg.Recorder, svcCfg.Runs = journal, journal
			if sqlDB == nil {
				sqlDB = journal.DB()
			}
		}
	}
	if sqlDB == nil {
		health.SetSQLiteOK(true)
	}
	// a relaying gateway would otherwise stream its own runs twice
	if redisWriter != nil && !cfg.RelayEvents {
		svcCfg.Observers = append(svcCfg.Observers, gateway.NewPublisher(redisWriter, log))
	}

	health.StartLivenessChecker(ctx, rdb, sqlDB, 15*time.Second)

	// ---- HTTP ----
	hub := gateway.NewHub(replaySize, log)
	defer hub.Close()
	svc := gateway.NewService(svcCfg, hub, log)

	mux := http.NewServeMux()
	gateway.RegisterRoutes(mux, svc, hub, log, processStart)
	obs := metrics.Handler(reg, health)
	mux.Handle("/metrics", obs)
	mux.Handle("/healthz", obs)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("serving", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if redisWriter != nil && cfg.RelayEvents {
		g.Go(func() error {
			if err := gateway.Relay(gctx, redisWriter, hub, log); err != nil {
				log.Warn("event relay stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("gateway exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func openJournal(path string, log *slog.Logger) (*execution.Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return execution.NewJournal(path, log)
}
