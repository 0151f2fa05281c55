// Package execution simulates order fills for a single long position and
// persists finished runs to a SQLite journal.
package execution

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/akshargrover/algo-trading-prototype/internal/model"
)

// ErrLengthMismatch is returned when bars and signals are not index-aligned.
var ErrLengthMismatch = errors.New("bars and signals differ in length")

// PositionState is the simulator's position state.
type PositionState int

const (
	Flat PositionState = iota
	Long
)

func (s PositionState) String() string {
	if s == Long {
		return "LONG"
	}
	return "FLAT"
}

// Action is the side of a fill.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Fill represents one simulated execution at a bar's close.
type Fill struct {
	Action Action    `json:"action"`
	Date   time.Time `json:"date"`
	Price  float64   `json:"price"`
	Qty    int64     `json:"qty"`
	Forced bool      `json:"forced"` // end-of-series liquidation
}

// SimResult is the output of one simulation.
type SimResult struct {
	Trades []model.Trade       `json:"trades"`
	Equity []model.EquityPoint `json:"equity"`
	Fills  []Fill              `json:"fills"`
	Cash   float64             `json:"cash"`
}

// Simulator replays signals against bar closes with no slippage or fees.
// It keeps no state between Simulate calls and is safe for concurrent use.
type Simulator struct {
	logger *slog.Logger
}

// NewSimulator creates a simulator. A nil logger uses slog.Default.
func NewSimulator(logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{logger: logger}
}

// account is the per-call state of one simulation.
type account struct {
	ticker string
	cash   decimal.Decimal
	state  PositionState
	open   *model.Trade
	shares int64
	res    SimResult
}

// Simulate walks bars in order, acting on signals[i] at bars[i].Close.
// Buys while Long and sells while Flat are ignored. An open position is
// closed at the last bar. One equity point is produced per bar.
func (s *Simulator) Simulate(ticker string, bars []model.Bar, signals []model.Signal, startingCash float64) (*SimResult, error) {
	if len(bars) != len(signals) {
		return nil, fmt.Errorf("simulate %s: %w (%d bars, %d signals)", ticker, ErrLengthMismatch, len(bars), len(signals))
	}

	a := &account{
		ticker: ticker,
		cash:   decimal.NewFromFloat(startingCash),
		res: SimResult{
			Trades: make([]model.Trade, 0),
			Equity: make([]model.EquityPoint, 0, len(bars)),
			Fills:  make([]Fill, 0),
		},
	}

	for i, bar := range bars {
		sig := signals[i]
		switch {
		case a.state == Flat && sig.Buy:
			if f, ok := a.buy(bar); ok {
				s.logFill(ticker, f)
			}
		case a.state == Long && sig.Sell:
			s.logFill(ticker, a.sell(bar, false))
		}
		a.mark(bar)
	}

	if a.state == Long {
		s.logFill(ticker, a.sell(bars[len(bars)-1], true))
	}

	a.res.Cash = a.cash.InexactFloat64()
	return &a.res, nil
}

func (s *Simulator) logFill(ticker string, f Fill) {
	s.logger.Debug("fill",
		slog.String("ticker", ticker),
		slog.String("action", string(f.Action)),
		slog.Time("date", f.Date),
		slog.Float64("price", f.Price),
		slog.Int64("qty", f.Qty),
		slog.Bool("forced", f.Forced),
	)
}

// buy opens a position with as many whole shares as cash allows.
// ok is false when not even one share is affordable.
func (a *account) buy(bar model.Bar) (Fill, bool) {
	price := decimal.NewFromFloat(bar.Close)
	shares := a.cash.Div(price).Floor().IntPart()
	// Div rounds; step back if rounding made the lot unaffordable
	if shares > 0 && price.Mul(decimal.NewFromInt(shares)).GreaterThan(a.cash) {
		shares--
	}
	if shares < 1 {
		return Fill{}, false
	}

	a.cash = a.cash.Sub(price.Mul(decimal.NewFromInt(shares)))
	if a.cash.IsNegative() {
		panic(fmt.Sprintf("execution: cash went negative on buy for %s: %s", a.ticker, a.cash))
	}
	a.state = Long
	a.shares = shares
	a.open = &model.Trade{
		Ticker:     a.ticker,
		EntryDate:  bar.Date,
		EntryPrice: bar.Close,
		Size:       shares,
	}

	f := Fill{Action: ActionBuy, Date: bar.Date, Price: bar.Close, Qty: shares}
	a.res.Fills = append(a.res.Fills, f)
	return f, true
}

// sell closes the open position at the bar's close and appends it to the ledger.
func (a *account) sell(bar model.Bar, forced bool) Fill {
	if a.open == nil {
		panic(fmt.Sprintf("execution: exit with no open trade for %s", a.ticker))
	}

	a.cash = a.cash.Add(decimal.NewFromFloat(bar.Close).Mul(decimal.NewFromInt(a.shares)))

	exitDate, exitPrice := bar.Date, bar.Close
	t := *a.open
	t.ExitDate = &exitDate
	t.ExitPrice = &exitPrice
	a.res.Trades = append(a.res.Trades, t)

	f := Fill{Action: ActionSell, Date: bar.Date, Price: bar.Close, Qty: a.shares, Forced: forced}
	a.res.Fills = append(a.res.Fills, f)

	a.open = nil
	a.shares = 0
	a.state = Flat
	return f
}

// mark appends the end-of-bar equity point.
func (a *account) mark(bar model.Bar) {
	equity := a.cash
	if a.state == Long {
		equity = equity.Add(decimal.NewFromFloat(bar.Close).Mul(decimal.NewFromInt(a.shares)))
	}
	a.res.Equity = append(a.res.Equity, model.EquityPoint{
		Date:   bar.Date,
		Cash:   a.cash.InexactFloat64(),
		Equity: equity.InexactFloat64(),
	})
}
