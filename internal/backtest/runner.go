package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/akshargrover/algo-trading-prototype/internal/logger"
	"github.com/akshargrover/algo-trading-prototype/internal/model"
)

// Status is the terminal state of one ticker in a batch.
type Status string

const (
	StatusSuccess          Status = "success"
	StatusInsufficientData Status = "insufficient_data"
	StatusFailed           Status = "failed"
	StatusCancelled        Status = "cancelled"
)

// Outcome is the tagged per-ticker result of a batch run. Result is set
// only for StatusSuccess; Reason is a human-readable explanation otherwise.
type Outcome struct {
	Ticker   string        `json:"ticker"`
	Status   Status        `json:"status"`
	Result   *Result       `json:"result,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration_ns"`
}

// Observer receives batch lifecycle events. Methods are called from worker
// goroutines and must be safe for concurrent use.
type Observer interface {
	OnStart(ctx context.Context, ticker string)
	OnOutcome(ctx context.Context, o Outcome)
}

// RunnerConfig configures a batch Runner.
type RunnerConfig struct {
	Workers   int               // concurrent tickers, default 1
	Recorder  model.RunRecorder // optional; failures are logged, not fatal
	Observers []Observer
}

// Runner executes the pipeline for many tickers. Each ticker is isolated:
// a failure or panic in one never affects the others.
type Runner struct {
	src      model.BarSource
	params   model.Params
	cfg      RunnerConfig
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewRunner creates a batch runner reading bars from src.
func NewRunner(src model.BarSource, params model.Params, cfg RunnerConfig, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Runner{
		src:      src,
		params:   params,
		cfg:      cfg,
		pipeline: NewPipeline(log),
		logger:   log,
	}
}

// Run processes tickers with at most Workers in flight and returns one
// Outcome per ticker in input order. Cancellation is checked before each
// ticker starts: tickers already running finish normally, the rest are
// reported as StatusCancelled. The run ID is taken from ctx (see
// logger.WithRunID) or generated.
func (r *Runner) Run(ctx context.Context, tickers []string) []Outcome {
	if logger.RunID(ctx) == "" {
		ctx = logger.WithRunID(ctx, logger.NewRunID())
	}
	start := time.Now()
	r.logger.Info("batch started",
		append(logger.LogWithRun(ctx),
			slog.Int("tickers", len(tickers)),
			slog.Int("workers", r.cfg.Workers),
		)...)

	outcomes := make([]Outcome, len(tickers))
	var g errgroup.Group
	g.SetLimit(r.cfg.Workers)
	for i, ticker := range tickers {
		i, ticker := i, ticker
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = Outcome{Ticker: ticker, Status: StatusCancelled, Reason: "batch cancelled", Err: err}
			} else {
				outcomes[i] = r.runTicker(context.WithoutCancel(ctx), ticker)
			}
			for _, o := range r.cfg.Observers {
				o.OnOutcome(ctx, outcomes[i])
			}
			return nil
		})
	}
	g.Wait()

	counts := make(map[Status]int)
	for _, o := range outcomes {
		counts[o.Status]++
	}
	r.logger.Info("batch finished",
		append(logger.LogWithRun(ctx),
			slog.Int("success", counts[StatusSuccess]),
			slog.Int("insufficient_data", counts[StatusInsufficientData]),
			slog.Int("failed", counts[StatusFailed]),
			slog.Int("cancelled", counts[StatusCancelled]),
			slog.Duration("took", time.Since(start)),
		)...)
	return outcomes
}

// runTicker runs one ticker start to finish. ctx is detached from the
// batch's cancellation.
func (r *Runner) runTicker(ctx context.Context, ticker string) (out Outcome) {
	start := time.Now()
	out.Ticker = ticker
	defer func() {
		if p := recover(); p != nil {
			out = Outcome{Ticker: ticker, Status: StatusFailed, Reason: fmt.Sprintf("panic: %v", p),
				Err: fmt.Errorf("backtest %s: panic: %v", ticker, p)}
			r.logger.Error("ticker panicked", append(logger.LogWithRun(ctx),
				slog.String("ticker", ticker), slog.Any("panic", p))...)
		}
		out.Duration = time.Since(start)
	}()

	for _, o := range r.cfg.Observers {
		o.OnStart(ctx, ticker)
	}

	bars, err := r.src.Fetch(ctx, ticker)
	if err != nil {
		r.logger.Warn("fetch failed", append(logger.LogWithRun(ctx),
			slog.String("ticker", ticker), slog.String("error", err.Error()))...)
		return Outcome{Ticker: ticker, Status: StatusFailed, Reason: err.Error(), Err: err}
	}
	if len(bars) == 0 {
		return Outcome{Ticker: ticker, Status: StatusInsufficientData, Reason: "no bars returned",
			Err: &model.DataError{Ticker: ticker, Index: -1, Err: model.ErrEmptySeries}}
	}

	res, err := r.pipeline.Run(ticker, bars, r.params)
	if err != nil {
		var de *model.DataError
		if errors.As(err, &de) {
			r.logger.Warn("invalid series", append(logger.LogWithRun(ctx),
				slog.String("ticker", ticker), slog.String("error", err.Error()))...)
		}
		return Outcome{Ticker: ticker, Status: StatusFailed, Reason: err.Error(), Err: err}
	}

	if r.cfg.Recorder != nil {
		if err := r.cfg.Recorder.RecordRun(ctx, logger.RunID(ctx), ticker, r.params, res.Trades, res.Summary); err != nil {
			r.logger.Error("journal write failed", append(logger.LogWithRun(ctx),
				slog.String("ticker", ticker), slog.String("error", err.Error()))...)
		}
	}

	r.logger.Info("ticker done", append(logger.LogWithRun(ctx),
		slog.String("ticker", ticker),
		slog.Int("bars", len(res.Bars)),
		slog.Int("trades", res.Summary.TradeCount),
		slog.Float64("total_pnl", res.Summary.TotalPnL),
	)...)
	return Outcome{Ticker: ticker, Status: StatusSuccess, Result: res}
}
