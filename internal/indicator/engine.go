package indicator

import "github.com/akshargrover/algo-trading-prototype/internal/model"

// Engine computes the configured indicator set for one price series.
// It holds per-series state and is designed for single-goroutine usage:
// create one Engine per ticker.
type Engine struct {
	smaShort *SMA
	smaLong  *SMA
	rsi      *RSI
	macd     *MACD
}

// NewEngine creates an indicator engine for the given strategy params.
func NewEngine(p model.Params) *Engine {
	return &Engine{
		smaShort: NewSMA(p.SMAShort),
		smaLong:  NewSMA(p.SMALong),
		rsi:      NewRSI(p.RSIPeriod),
		macd:     NewMACD(p.MACDFast, p.MACDSlow, p.MACDSignal),
	}
}

// Indicators returns the engine's indicators in a stable order.
func (e *Engine) Indicators() []Indicator {
	return []Indicator{e.smaShort, e.smaLong, e.rsi, e.macd}
}

// Process feeds the next bar (in date order) and returns its indicator values.
func (e *Engine) Process(bar model.Bar) model.Indicators {
	for _, ind := range e.Indicators() {
		ind.Update(bar.Close)
	}
	main, signal, hist := e.macd.Lines()
	return model.Indicators{
		SMAShort:   e.smaShort.Value(),
		SMALong:    e.smaLong.Value(),
		RSI:        e.rsi.Value(),
		MACD:       main,
		MACDSignal: signal,
		MACDHist:   hist,
	}
}

// Reset clears all indicator state.
func (e *Engine) Reset() {
	for _, ind := range e.Indicators() {
		ind.Reset()
	}
}

// Annotate returns a copy of bars with indicator fields attached.
// The input slice is not modified.
func Annotate(bars []model.Bar, p model.Params) []model.Bar {
	e := NewEngine(p)
	out := make([]model.Bar, len(bars))
	for i, b := range bars {
		b.Ind = e.Process(b)
		out[i] = b
	}
	return out
}
