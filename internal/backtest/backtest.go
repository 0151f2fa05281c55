// Package backtest wires the indicator engine, signal generator, position
// simulator and performance analyzer into a per-ticker pipeline, and runs
// that pipeline over a ticker universe.
package backtest

import (
	"fmt"
	"log/slog"

	"github.com/akshargrover/algo-trading-prototype/internal/execution"
	"github.com/akshargrover/algo-trading-prototype/internal/indicator"
	"github.com/akshargrover/algo-trading-prototype/internal/model"
	"github.com/akshargrover/algo-trading-prototype/internal/portfolio"
	"github.com/akshargrover/algo-trading-prototype/internal/strategy"
)

// Result is the full output of one ticker's backtest.
type Result struct {
	Ticker  string                   `json:"ticker"`
	Params  model.Params             `json:"params"`
	Bars    []model.Bar              `json:"bars"` // annotated with indicators
	Signals []model.Signal           `json:"signals"`
	Trades  []model.Trade            `json:"trades"`
	Equity  []model.EquityPoint      `json:"equity"`
	Fills   []execution.Fill         `json:"fills"`
	Summary model.PerformanceSummary `json:"summary"`
}

// LastBar returns the final annotated bar and its signal.
func (r *Result) LastBar() (model.Bar, model.Signal, bool) {
	if len(r.Bars) == 0 {
		return model.Bar{}, model.Signal{}, false
	}
	i := len(r.Bars) - 1
	return r.Bars[i], r.Signals[i], true
}

// Pipeline runs the single-ticker backtest. It holds no per-run state and
// is safe for concurrent use.
type Pipeline struct {
	sim *execution.Simulator
}

// NewPipeline creates a pipeline. A nil logger uses slog.Default.
func NewPipeline(logger *slog.Logger) *Pipeline {
	return &Pipeline{sim: execution.NewSimulator(logger)}
}

// Run validates params and bars, then annotates, generates signals,
// simulates and analyzes. Invalid params return model.ErrInvalidParams and
// an invalid series returns a *model.DataError, both before any simulation.
// bars is not modified.
func (p *Pipeline) Run(ticker string, bars []model.Bar, params model.Params) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := model.ValidateSeries(ticker, bars); err != nil {
		return nil, err
	}

	annotated := indicator.Annotate(bars, params)
	signals := strategy.Generate(annotated, params)

	sim, err := p.sim.Simulate(ticker, annotated, signals, params.StartingCash)
	if err != nil {
		return nil, fmt.Errorf("backtest %s: %w", ticker, err)
	}

	return &Result{
		Ticker:  ticker,
		Params:  params,
		Bars:    annotated,
		Signals: signals,
		Trades:  sim.Trades,
		Equity:  sim.Equity,
		Fills:   sim.Fills,
		Summary: portfolio.Analyze(sim.Trades, sim.Equity, params.StartingCash),
	}, nil
}

// Run runs the single-ticker pipeline with a default logger.
func Run(ticker string, bars []model.Bar, params model.Params) (*Result, error) {
	return NewPipeline(nil).Run(ticker, bars, params)
}
