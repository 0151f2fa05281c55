package indicator

import (
	"strconv"

	"github.com/akshargrover/algo-trading-prototype/internal/model"
)

// EMA calculates Exponential Moving Average.
// O(1) per update, no window storage.
// The first observed price seeds the average (no SMA warm-up).
type EMA struct {
	period     int
	multiplier float64
	current    float64
	count      int
}

// NewEMA creates a new EMA indicator with the given period.
func NewEMA(period int) *EMA {
	return &EMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *EMA) Name() string { return "EMA_" + strconv.Itoa(e.period) }

func (e *EMA) Update(price float64) {
	e.count++
	if e.count == 1 {
		e.current = price
		return
	}

	// EMA = (Price * multiplier) + (EMA_prev * (1 - multiplier))
	e.current = (price * e.multiplier) + (e.current * (1 - e.multiplier))
}

func (e *EMA) Value() model.NullFloat {
	if e.count == 0 {
		return model.NullFloat{}
	}
	return model.Some(e.current)
}

func (e *EMA) Ready() bool { return e.count >= e.period }

// Reset clears the EMA state for reuse.
func (e *EMA) Reset() {
	e.current = 0
	e.count = 0
}
