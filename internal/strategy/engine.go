// Package strategy turns indicator-annotated bars into per-bar trading signals.
//
// A Strategy looks at the current bar and the one before it and decides
// whether to buy, sell or do nothing. Generate runs a strategy over a whole
// series; it holds no state between calls.
package strategy

import (
	"github.com/akshargrover/algo-trading-prototype/internal/model"
)

// Strategy is the interface every signal rule set implements.
type Strategy interface {
	// Name returns the unique name of the strategy.
	Name() string

	// OnBar evaluates bar index i. prev is nil on the first bar.
	OnBar(i int, prev *model.Bar, cur model.Bar) model.Signal
}

// Generate evaluates p's crossover strategy over bars and returns one
// signal per bar, aligned by index.
func Generate(bars []model.Bar, p model.Params) []model.Signal {
	return Run(NewSMACrossover(p), bars)
}

// Run evaluates s over bars.
func Run(s Strategy, bars []model.Bar) []model.Signal {
	out := make([]model.Signal, len(bars))
	for i := range bars {
		var prev *model.Bar
		if i > 0 {
			prev = &bars[i-1]
		}
		out[i] = s.OnBar(i, prev, bars[i])
	}
	return out
}
