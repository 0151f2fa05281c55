// cmd/backtest runs the SMA-crossover / RSI strategy over a universe of
// daily price series and reports per-ticker performance.
//
// Usage:
//
//	go run ./cmd/backtest -tickers=RELIANCE.NS,TCS.NS -data=data -out=output
//	go run ./cmd/backtest -seed -source=sqlite   # copy data/*.csv into the SQLite bar store
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/akshargrover/algo-trading-prototype/config"
	"github.com/akshargrover/algo-trading-prototype/internal/backtest"
	"github.com/akshargrover/algo-trading-prototype/internal/execution"
	"github.com/akshargrover/algo-trading-prototype/internal/export"
	"github.com/akshargrover/algo-trading-prototype/internal/features"
	"github.com/akshargrover/algo-trading-prototype/internal/gateway"
	"github.com/akshargrover/algo-trading-prototype/internal/logger"
	"github.com/akshargrover/algo-trading-prototype/internal/marketdata"
	"github.com/akshargrover/algo-trading-prototype/internal/metrics"
	"github.com/akshargrover/algo-trading-prototype/internal/notification"
	redisstore "github.com/akshargrover/algo-trading-prototype/internal/store/redis"
	sqlitestore "github.com/akshargrover/algo-trading-prototype/internal/store/sqlite"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	// ---- Flags (defaults from env / .env) ----
	tickers := flag.String("tickers", cfg.Tickers, "Comma-separated tickers")
	source := flag.String("source", cfg.Source, "Bar source: csv or sqlite")
	dataDir := flag.String("data", cfg.DataDir, "Directory of <TICKER>.csv files")
	dbPath := flag.String("db", cfg.SQLitePath, "SQLite bar store")
	paramsFile := flag.String("params", "", "YAML strategy params (overrides PARAMS_FILE)")
	outDir := flag.String("out", cfg.OutputDir, "Directory for CSV exports (empty disables)")
	journalPath := flag.String("journal", cfg.JournalPath, "SQLite trade journal (empty disables)")
	redisAddr := flag.String("redis", cfg.RedisAddr, "Redis address for the bar cache and run events (empty disables)")
	workers := flag.Int("workers", cfg.Workers, "Tickers backtested concurrently")
	scan := flag.Bool("scan", false, "List tickers whose latest bar is a buy")
	withFeatures := flag.Bool("features", false, "Export the ML feature dataset per ticker")
	seed := flag.Bool("seed", false, "Copy CSV bars into the SQLite store and exit")
	metricsAddr := flag.String("metrics", cfg.MetricsAddr, "Serve /metrics and /healthz on this address while running (empty disables)")
	flag.Parse()

	log := logger.Init("backtest", logger.ParseLevel(cfg.LogLevel))
	universe := config.ParseTickers(*tickers)
	if len(universe) == 0 {
		log.Error("no tickers given")
		return 2
	}

	params := cfg.Params
	if *paramsFile != "" {
		if params, err = config.LoadParamsFile(*paramsFile, params); err != nil {
			log.Error("params load failed", slog.String("error", err.Error()))
			return 2
		}
	}
	if err := params.Validate(); err != nil {
		log.Error("invalid params", slog.String("error", err.Error()))
		return 2
	}

	// ---- Graceful shutdown: not-started tickers are cancelled ----
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *seed {
		return seedStore(ctx, *dataDir, *dbPath, *redisAddr, cfg, universe, log)
	}

	// ---- Metrics & health ----
	prom := metrics.NewMetrics(nil)
	health := metrics.NewHealthStatus()
	if *metricsAddr != "" {
		srv := metrics.NewServer(*metricsAddr, nil, health, log)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Stop(shutdownCtx)
		}()
	}

	// ---- Redis (optional) ----
	var redisWriter *redisstore.Writer
	if *redisAddr != "" {
		redisWriter, err = redisstore.New(redisstore.WriterConfig{Addr: *redisAddr, Password: cfg.RedisPassword}, log)
		if err != nil {
			log.Warn("redis unavailable, continuing without cache", slog.String("error", err.Error()))
			redisWriter = nil
		} else {
			defer redisWriter.Close()
		}
	}

	// ---- Bar source ----
	feed, err := marketdata.Open(marketdata.FeedConfig{
		Source:     *source,
		DataDir:    *dataDir,
		SQLitePath: *dbPath,
		Redis:      redisWriter,
		Cache: redisstore.CacheConfig{
			TTL:           cfg.CacheTTL,
			OnLookup:      prom.ObserveCacheLookup,
			OnStateChange: func(_, to redisstore.State) { prom.SetBreakerState(int(to)) },
		},
	}, log)
	if err != nil {
		log.Error("bar source init failed", slog.String("error", err.Error()))
		return 2
	}
	defer feed.Close()

	// ---- Journal (optional) ----
	runnerCfg := backtest.RunnerConfig{Workers: *workers, Observers: []backtest.Observer{prom}}
	if *journalPath != "" {
		if err := os.MkdirAll(filepath.Dir(*journalPath), 0o755); err != nil {
			log.Error("journal dir", slog.String("error", err.Error()))
			return 2
		}
		journal, err := execution.NewJournal(*journalPath, log)
		if err != nil {
			log.Error("journal init failed", slog.String("error", err.Error()))
			return 2
		}
		defer journal.Close()
		runnerCfg.Recorder = journal
	}
	if redisWriter != nil {
		runnerCfg.Observers = append(runnerCfg.Observers, gateway.NewPublisher(redisWriter, log))
	}

	if *metricsAddr != "" {
		var rdb *goredis.Client
		if redisWriter != nil {
			rdb = redisWriter.Client()
		}
		health.Probe(ctx, rdb, feed.DB)
		if feed.DB == nil {
			health.SetSQLiteOK(true)
		}
	}

	// ---- Run ----
	runID := logger.NewRunID()
	runCtx := logger.WithRunID(ctx, runID)
	outcomes := backtest.NewRunner(feed, params, runnerCfg, log).Run(runCtx, universe)
	health.SetLastRun(runID, time.Now())

	printTable(os.Stdout, runID, outcomes)
	if *scan {
		printScan(os.Stdout, backtest.LatestBuys(outcomes))
		if err := notification.NotifyBuys(ctx, notification.New(cfg.Notification(), log), runID, outcomes); err != nil {
			log.Warn("buy alert failed", slog.String("error", err.Error()))
		}
	}

	if *outDir != "" {
		if err := writeExports(*outDir, outcomes, *withFeatures, log); err != nil {
			log.Error("export failed", slog.String("error", err.Error()))
			return 1
		}
	}

	for _, o := range outcomes {
		if o.Status == backtest.StatusSuccess {
			return 0
		}
	}
	return 1
}

func seedStore(ctx context.Context, dataDir, dbPath, redisAddr string, cfg *config.Config, tickers []string, log *slog.Logger) int {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		log.Error("seed dir", slog.String("error", err.Error()))
		return 2
	}
	w, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: dbPath}, log)
	if err != nil {
		log.Error("sqlite init failed", slog.String("error", err.Error()))
		return 2
	}
	defer w.Close()

	var seeded []string
	for _, r := range marketdata.Seed(ctx, marketdata.NewCSVSource(dataDir), w, tickers, log) {
		if r.Err == nil {
			seeded = append(seeded, r.Ticker)
		}
	}
	fmt.Printf("seeded %d/%d tickers into %s\n", len(seeded), len(tickers), dbPath)

	// cached series for reseeded tickers are stale now
	if redisAddr != "" && len(seeded) > 0 {
		invalidateCached(ctx, redisAddr, dbPath, cfg, seeded, log)
	}
	if len(seeded) == 0 {
		return 1
	}
	return 0
}

func invalidateCached(ctx context.Context, redisAddr, dbPath string, cfg *config.Config, tickers []string, log *slog.Logger) {
	rw, err := redisstore.New(redisstore.WriterConfig{Addr: redisAddr, Password: cfg.RedisPassword}, log)
	if err != nil {
		log.Warn("redis unavailable, cached series not invalidated", slog.String("error", err.Error()))
		return
	}
	defer rw.Close()

	feed, err := marketdata.Open(marketdata.FeedConfig{
		Source:     marketdata.SourceSQLite,
		SQLitePath: dbPath,
		Redis:      rw,
		Cache:      redisstore.CacheConfig{TTL: cfg.CacheTTL},
	}, log)
	if err != nil {
		log.Warn("cache invalidation skipped", slog.String("error", err.Error()))
		return
	}
	defer feed.Close()
	if err := feed.Invalidate(ctx, tickers...); err != nil {
		log.Warn("cache invalidation failed", slog.String("error", err.Error()))
		return
	}
	log.Info("cache invalidated", slog.Int("tickers", len(tickers)))
}

func writeExports(dir string, outcomes []backtest.Outcome, withFeatures bool, log *slog.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	for _, o := range outcomes {
		if o.Status != backtest.StatusSuccess {
			continue
		}
		paths, err := export.WriteRunFiles(dir, o.Result)
		if err != nil {
			return err
		}
		log.Info("exported", slog.String("ticker", o.Ticker), slog.Any("files", paths))

		if !withFeatures {
			continue
		}
		ds := features.Build(o.Result.Bars, o.Result.Signals)
		if ds.Skipped {
			log.Warn("feature dataset skipped", slog.String("ticker", o.Ticker), slog.String("reason", ds.Reason))
			continue
		}
		if _, err := export.WriteFeaturesFile(dir, o.Ticker, ds); err != nil {
			return err
		}
	}

	f, err := os.Create(filepath.Join(dir, "outcomes.csv"))
	if err != nil {
		return fmt.Errorf("create outcomes report: %w", err)
	}
	if err := export.WriteOutcomes(f, outcomes); err != nil {
		f.Close()
		return fmt.Errorf("write outcomes report: %w", err)
	}
	return f.Close()
}

func printTable(w *os.File, runID string, outcomes []backtest.Outcome) {
	fmt.Fprintf(w, "\nrun %s\n\n", runID)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "TICKER\tSTATUS\tTRADES\tWIN%\tPNL\tMAX DD%\tSHARPE\tRETURN%\t")
	for _, o := range outcomes {
		if o.Result == nil {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\t-\t-\t-\t\n", o.Ticker, o.Status)
			continue
		}
		s := o.Result.Summary
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%.2f\t%.2f\t%s\t%.2f\t\n",
			o.Ticker, o.Status, s.TradeCount,
			optPct(s.WinRatio.Get()), s.TotalPnL, s.MaxDrawdownPct*100,
			optNum(s.SharpeRatio.Get()), s.TotalReturnPct*100)
	}
	tw.Flush()
	for _, o := range outcomes {
		if o.Reason != "" {
			fmt.Fprintf(w, "  %s: %s\n", o.Ticker, o.Reason)
		}
	}
}

func printScan(w *os.File, buys []backtest.BuyCandidate) {
	fmt.Fprintln(w, "\nbuy signals on latest bar:")
	if len(buys) == 0 {
		fmt.Fprintln(w, "  none")
		return
	}
	for _, b := range buys {
		rsi := "n/a"
		if b.RSI != nil {
			rsi = fmt.Sprintf("%.2f", *b.RSI)
		}
		fmt.Fprintf(w, "  %-14s %s  close=%.2f  rsi=%s\n", b.Ticker, b.Date.Format("2006-01-02"), b.Close, rsi)
	}
}

func optPct(v float64, ok bool) string {
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%.1f", v*100)
}

func optNum(v float64, ok bool) string {
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}
