package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akshargrover/algo-trading-prototype/internal/backtest"
)

// Metrics holds all Prometheus metrics for the backtester.
type Metrics struct {
	TickersTotal   *prometheus.CounterVec // labels: status
	TradesTotal    prometheus.Counter
	BarsTotal      prometheus.Counter
	TickerDuration prometheus.Histogram
	InFlight       prometheus.Gauge

	// Bar cache (Redis read-through)
	CacheLookups        *prometheus.CounterVec // labels: result=hit|miss|error|bypass
	CircuitBreakerState prometheus.Gauge       // 0=closed, 1=open, 2=half-open
}

// NewMetrics creates the metric set and registers it on reg. A nil reg
// uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		TickersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backtest_tickers_total",
			Help: "Tickers processed, by terminal status",
		}, []string{"status"}),
		TradesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backtest_trades_total",
			Help: "Closed round-trip trades produced by successful backtests",
		}),
		BarsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backtest_bars_total",
			Help: "Bars simulated by successful backtests",
		}),
		TickerDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "backtest_ticker_duration_seconds",
			Help:    "Wall time of one ticker's fetch and pipeline",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "backtest_tickers_in_flight",
			Help: "Tickers currently being backtested",
		}),

		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backtest_cache_hits_total",
			Help: "Bar cache lookups, by result",
		}, []string{"result"}),
		CircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "backtest_circuit_breaker_state",
			Help: "Redis cache circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
	}

	reg.MustRegister(
		m.TickersTotal,
		m.TradesTotal,
		m.BarsTotal,
		m.TickerDuration,
		m.InFlight,
		m.CacheLookups,
		m.CircuitBreakerState,
	)
	return m
}

// OnStart implements backtest.Observer.
func (m *Metrics) OnStart(_ context.Context, _ string) {
	m.InFlight.Inc()
}

// OnOutcome implements backtest.Observer. Cancelled tickers never started,
// so they do not touch the in-flight gauge.
func (m *Metrics) OnOutcome(_ context.Context, o backtest.Outcome) {
	m.TickersTotal.WithLabelValues(string(o.Status)).Inc()
	if o.Status == backtest.StatusCancelled {
		return
	}
	m.InFlight.Dec()
	m.TickerDuration.Observe(o.Duration.Seconds())
	if o.Result != nil {
		m.TradesTotal.Add(float64(o.Result.Summary.TradeCount))
		m.BarsTotal.Add(float64(len(o.Result.Bars)))
	}
}

// ObserveCacheLookup records one bar cache lookup result.
func (m *Metrics) ObserveCacheLookup(result string) {
	m.CacheLookups.WithLabelValues(result).Inc()
}

// SetBreakerState records the cache circuit breaker state.
func (m *Metrics) SetBreakerState(state int) {
	m.CircuitBreakerState.Set(float64(state))
}

var _ backtest.Observer = (*Metrics)(nil)

// HealthStatus represents the system health. Redis is optional: when no
// client is configured it does not degrade the status.
type HealthStatus struct {
	mu sync.RWMutex

	RedisConfigured bool      `json:"redis_configured"`
	RedisConnected  bool      `json:"redis_connected"`
	SQLiteOK        bool      `json:"sqlite_ok"`
	LastRunID       string    `json:"last_run_id"`
	LastRunAt       time.Time `json:"last_run_at"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteOK = v
	h.mu.Unlock()
}

// SetLastRun records the most recent completed batch.
func (h *HealthStatus) SetLastRun(runID string, at time.Time) {
	h.mu.Lock()
	h.LastRunID = runID
	h.LastRunAt = at
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConfigured = true
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// Probe runs every configured dependency check once.
func (h *HealthStatus) Probe(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB) {
	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if rdb != nil {
		h.CheckRedis(probeCtx, rdb)
	}
	if sqlDB != nil {
		h.CheckSQLite(probeCtx, sqlDB)
	}
}

// StartLivenessChecker probes immediately, then every interval until ctx ends.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	h.Probe(ctx, rdb, sqlDB)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.Probe(ctx, rdb, sqlDB)
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	redisDown := h.RedisConfigured && !h.RedisConnected
	if redisDown || !h.SQLiteOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if redisDown && !h.SQLiteOK {
		overallStatus = "unhealthy"
	}

	lastRunAt := ""
	if !h.LastRunAt.IsZero() {
		lastRunAt = h.LastRunAt.Format(time.RFC3339)
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		RedisConfigured bool    `json:"redis_configured"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastRunID       string  `json:"last_run_id"`
		LastRunAt       string  `json:"last_run_at"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		RedisConfigured: h.RedisConfigured,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastRunID:       h.LastRunID,
		LastRunAt:       lastRunAt,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr   string
	srv    *http.Server
	logger *slog.Logger
}

// Handler returns a mux serving /metrics from gatherer and /healthz from
// health. A nil gatherer uses prometheus.DefaultGatherer.
func Handler(gatherer prometheus.Gatherer, health *HealthStatus) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", health)
	return mux
}

// NewServer creates a metrics and health server.
func NewServer(addr string, gatherer prometheus.Gatherer, health *HealthStatus, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:   addr,
		logger: logger,
		srv: &http.Server{
			Addr:              addr,
			Handler:           Handler(gatherer, health),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info("metrics server listening", slog.String("addr", s.addr))
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("metrics server error", slog.String("error", err.Error()))
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
