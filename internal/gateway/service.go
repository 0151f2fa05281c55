package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/akshargrover/algo-trading-prototype/internal/backtest"
	"github.com/akshargrover/algo-trading-prototype/internal/execution"
	"github.com/akshargrover/algo-trading-prototype/internal/logger"
	"github.com/akshargrover/algo-trading-prototype/internal/model"
)

// ErrBusy is returned when a batch is already running.
var ErrBusy = errors.New("a backtest is already running")

// ErrNoTickers is returned when neither the request nor the service
// configuration names any ticker.
var ErrNoTickers = errors.New("no tickers requested")

// RunStore reads journaled runs. *execution.Journal implements it.
type RunStore interface {
	GetRuns(ctx context.Context, limit int) ([]execution.RunRecord, error)
	GetTrades(ctx context.Context, runID, ticker string) ([]execution.TradeRecord, error)
}

// ServiceConfig wires the HTTP service to its collaborators.
type ServiceConfig struct {
	Source     model.BarSource
	Params     model.Params
	Tickers    []string // used when a request names none
	Workers    int
	MaxTickers int // per request, default 500

	Recorder  model.RunRecorder   // optional
	Runs      RunStore            // optional, backs /api/runs and /api/trades
	Observers []backtest.Observer // notified in addition to the hub
	OnBatch   func(runID string, outcomes []backtest.Outcome)
}

// Service runs one batch at a time and keeps the latest outcomes.
type Service struct {
	cfg    ServiceConfig
	hub    *Hub
	logger *slog.Logger

	mu       sync.RWMutex
	running  bool
	latest   *BacktestResponse
	outcomes map[string]backtest.Outcome
}

// NewService creates the backtest service broadcasting progress on hub.
func NewService(cfg ServiceConfig, hub *Hub, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.MaxTickers <= 0 {
		cfg.MaxTickers = 500
	}
	return &Service{cfg: cfg, hub: hub, logger: log}
}

// Run executes a batch synchronously. Cancelling ctx stops tickers that
// have not started yet.
func (s *Service) Run(ctx context.Context, req BacktestRequest) (*BacktestResponse, error) {
	params, err := s.requestParams(req.Params)
	if err != nil {
		return nil, err
	}

	tickers := normalizeTickers(req.Tickers)
	if len(tickers) == 0 {
		tickers = s.cfg.Tickers
	}
	if len(tickers) == 0 {
		return nil, ErrNoTickers
	}
	if len(tickers) > s.cfg.MaxTickers {
		return nil, fmt.Errorf("%d tickers requested, limit is %d", len(tickers), s.cfg.MaxTickers)
	}

	workers := s.cfg.Workers
	if req.Workers > 0 && req.Workers < workers {
		workers = req.Workers
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	runID := logger.NewRunID()
	ctx = logger.WithRunID(ctx, runID)
	started := time.Now().UTC()

	observers := append([]backtest.Observer{s.hub}, s.cfg.Observers...)
	runner := backtest.NewRunner(s.cfg.Source, params, backtest.RunnerConfig{
		Workers:   workers,
		Recorder:  s.cfg.Recorder,
		Observers: observers,
	}, s.logger)
	outcomes := runner.Run(ctx, tickers)

	s.hub.BatchDone(runID, outcomes)
	if s.cfg.OnBatch != nil {
		s.cfg.OnBatch(runID, outcomes)
	}

	resp := &BacktestResponse{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
		Outcomes:   lo.Map(outcomes, func(o backtest.Outcome, _ int) OutcomeEvent { return NewOutcomeEvent(runID, o) }),
		Scan:       backtest.LatestBuys(outcomes),
	}

	s.mu.Lock()
	s.latest = resp
	s.outcomes = lo.SliceToMap(outcomes, func(o backtest.Outcome) (string, backtest.Outcome) { return o.Ticker, o })
	s.mu.Unlock()

	return resp, nil
}

// requestParams overlays raw onto the default params. Unknown keys are
// rejected.
func (s *Service) requestParams(raw json.RawMessage) (model.Params, error) {
	params := s.cfg.Params
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return params, params.Validate()
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&params); err != nil {
		return model.Params{}, fmt.Errorf("invalid params: %w", err)
	}
	if err := params.Validate(); err != nil {
		return model.Params{}, err
	}
	return params, nil
}

// Latest returns the most recent batch response, or nil before the first.
func (s *Service) Latest() *BacktestResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Result returns the full result of ticker from the latest batch.
func (s *Service) Result(ticker string) (backtest.Outcome, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.outcomes[ticker]
	return o, ok
}

// Running reports whether a batch is in progress.
func (s *Service) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func normalizeTickers(in []string) []string {
	return lo.Uniq(lo.Compact(lo.Map(in, func(t string, _ int) string {
		return upperTrim(t)
	})))
}
