package indicator

import (
	"strconv"

	"github.com/akshargrover/algo-trading-prototype/internal/model"
)

// MACD is the trend-convergence indicator: fast EMA minus slow EMA (main
// line), an EMA of the main line (signal line) and their difference
// (histogram). Value reports the main line; Lines reports all three.
type MACD struct {
	fast, slow, signalPeriod int

	fastEMA   *EMA
	slowEMA   *EMA
	signalEMA *EMA
}

// NewMACD creates a MACD with the given periods (typically 12, 26, 9).
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fast:         fast,
		slow:         slow,
		signalPeriod: signal,
		fastEMA:      NewEMA(fast),
		slowEMA:      NewEMA(slow),
		signalEMA:    NewEMA(signal),
	}
}

func (m *MACD) Name() string {
	return "MACD_" + strconv.Itoa(m.fast) + "_" + strconv.Itoa(m.slow) + "_" + strconv.Itoa(m.signalPeriod)
}

func (m *MACD) Update(price float64) {
	m.fastEMA.Update(price)
	m.slowEMA.Update(price)
	if main, ok := m.main().Get(); ok {
		m.signalEMA.Update(main)
	}
}

func (m *MACD) main() model.NullFloat {
	return m.fastEMA.Value().Sub(m.slowEMA.Value())
}

func (m *MACD) Value() model.NullFloat { return m.main() }

// Lines returns the main, signal and histogram values.
func (m *MACD) Lines() (main, signal, hist model.NullFloat) {
	main = m.main()
	signal = m.signalEMA.Value()
	hist = main.Sub(signal)
	return main, signal, hist
}

// Ready reports when the slow EMA has seen a full period.
func (m *MACD) Ready() bool { return m.slowEMA.Ready() }

// Reset clears the MACD state for reuse.
func (m *MACD) Reset() {
	m.fastEMA.Reset()
	m.slowEMA.Reset()
	m.signalEMA.Reset()
}
