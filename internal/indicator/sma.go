package indicator

import (
	"strconv"

	"github.com/akshargrover/algo-trading-prototype/internal/model"
	"github.com/akshargrover/algo-trading-prototype/internal/ringbuf"
)

// SMA calculates the Simple Moving Average over a trailing window.
// Before the window fills it averages the bars seen so far, so it is defined
// from the first bar on; Ready reports when the full window is in use.
type SMA struct {
	period int
	win    *ringbuf.Window
}

// NewSMA creates a new SMA indicator with the given period.
func NewSMA(period int) *SMA {
	return &SMA{
		period: period,
		win:    ringbuf.New(period),
	}
}

func (s *SMA) Name() string { return "SMA_" + strconv.Itoa(s.period) }

func (s *SMA) Update(price float64) {
	s.win.Push(price)
}

func (s *SMA) Value() model.NullFloat {
	if s.win.Len() == 0 {
		return model.NullFloat{}
	}
	return model.Some(s.win.Mean())
}

func (s *SMA) Ready() bool { return s.win.Full() }

// Reset clears the SMA state for reuse.
func (s *SMA) Reset() { s.win.Reset() }
