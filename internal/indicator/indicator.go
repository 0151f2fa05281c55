// Package indicator provides technical indicator calculations over daily bars.
//
// All indicators implement the Indicator interface: they are fed closing
// prices one bar at a time, in date order, and report an optional value.
// A value that needs more history than has been seen is model.NullFloat{}.
package indicator

import "github.com/akshargrover/algo-trading-prototype/internal/model"

// Indicator is the interface for all streaming technical indicators.
type Indicator interface {
	// Name returns the indicator name with its period (e.g., "SMA_20", "RSI_14").
	Name() string

	// Update feeds the next closing price and recalculates.
	Update(price float64)

	// Value returns the current value, undefined during warm-up.
	Value() model.NullFloat

	// Ready returns true once the full window has been observed.
	Ready() bool

	// Reset clears all state for reuse on another series.
	Reset()
}
