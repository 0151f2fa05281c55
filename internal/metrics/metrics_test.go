package metrics

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/akshargrover/algo-trading-prototype/internal/backtest"
	"github.com/akshargrover/algo-trading-prototype/internal/model"
)

func TestObserver_CountsOutcomes(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	ctx := context.Background()

	res := &backtest.Result{
		Bars:    make([]model.Bar, 10),
		Summary: model.PerformanceSummary{TradeCount: 3},
	}
	m.OnStart(ctx, "A")
	m.OnStart(ctx, "B")
	if got := testutil.ToFloat64(m.InFlight); got != 2 {
		t.Fatalf("expected 2 in flight, got %v", got)
	}
	m.OnOutcome(ctx, backtest.Outcome{Ticker: "A", Status: backtest.StatusSuccess, Result: res, Duration: 10 * time.Millisecond})
	m.OnOutcome(ctx, backtest.Outcome{Ticker: "B", Status: backtest.StatusFailed})
	m.OnOutcome(ctx, backtest.Outcome{Ticker: "C", Status: backtest.StatusCancelled})

	if got := testutil.ToFloat64(m.InFlight); got != 0 {
		t.Errorf("expected 0 in flight, got %v", got)
	}
	if got := testutil.ToFloat64(m.TickersTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("success = %v", got)
	}
	if got := testutil.ToFloat64(m.TickersTotal.WithLabelValues("cancelled")); got != 1 {
		t.Errorf("cancelled = %v", got)
	}
	if got := testutil.ToFloat64(m.TradesTotal); got != 3 {
		t.Errorf("trades = %v", got)
	}
	if got := testutil.ToFloat64(m.BarsTotal); got != 10 {
		t.Errorf("bars = %v", got)
	}
}

func TestCacheHooks(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.ObserveCacheLookup("hit")
	m.ObserveCacheLookup("hit")
	m.ObserveCacheLookup("miss")
	m.SetBreakerState(1)

	if got := testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")); got != 2 {
		t.Errorf("hits = %v", got)
	}
	if got := testutil.ToFloat64(m.CircuitBreakerState); got != 1 {
		t.Errorf("breaker state = %v", got)
	}
}

func TestHealthz(t *testing.T) {
	h := NewHealthStatus()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 before the first SQLite check, got %d", rec.Code)
	}

	h.SetSQLiteOK(true)
	h.SetLastRun("run-1", time.Now())
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "healthy" || body["last_run_id"] != "run-1" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.TickersTotal.WithLabelValues("success").Inc()

	srv := httptest.NewServer(Handler(reg, NewHealthStatus()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), `backtest_tickers_total{status="success"} 1`) {
		t.Errorf("metrics output missing counter:\n%s", body)
	}
}
