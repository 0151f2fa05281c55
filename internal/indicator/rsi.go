package indicator

import (
	"strconv"

	"github.com/akshargrover/algo-trading-prototype/internal/model"
	"github.com/akshargrover/algo-trading-prototype/internal/ringbuf"
)

const (
	// rsiNoLoss is reported when the window has gains but no losses.
	rsiNoLoss = 100.0
	// rsiFlat is reported when the window has neither gains nor losses.
	rsiFlat = 50.0
)

// RSI calculates the Relative Strength Index from simple trailing means of
// gains and losses. It needs period price changes (period+1 bars) before it
// is defined.
type RSI struct {
	period    int
	count     int
	prevClose float64
	gains     *ringbuf.Window
	losses    *ringbuf.Window
}

// NewRSI creates a new RSI indicator with the given period (typically 14).
func NewRSI(period int) *RSI {
	return &RSI{
		period: period,
		gains:  ringbuf.New(period),
		losses: ringbuf.New(period),
	}
}

func (r *RSI) Name() string { return "RSI_" + strconv.Itoa(r.period) }

func (r *RSI) Update(price float64) {
	r.count++
	if r.count == 1 {
		// first bar: record price, no delta yet
		r.prevClose = price
		return
	}

	delta := price - r.prevClose
	r.prevClose = price

	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}
	r.gains.Push(gain)
	r.losses.Push(loss)
}

func (r *RSI) Value() model.NullFloat {
	if !r.Ready() {
		return model.NullFloat{}
	}
	return model.Some(rsiFromAverages(r.gains.Mean(), r.losses.Mean()))
}

func (r *RSI) Ready() bool { return r.gains.Full() }

// Reset clears the RSI state for reuse.
func (r *RSI) Reset() {
	r.count = 0
	r.prevClose = 0
	r.gains.Reset()
	r.losses.Reset()
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return rsiFlat
		}
		return rsiNoLoss
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}
