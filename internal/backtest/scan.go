package backtest

import (
	"time"

	"github.com/samber/lo"
)

// BuyCandidate is a ticker whose most recent bar carries a buy signal.
type BuyCandidate struct {
	Ticker string    `json:"ticker"`
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`
	RSI    *float64  `json:"rsi"`
}

// LatestBuys scans successful outcomes for a buy signal on the final bar,
// keeping input order.
func LatestBuys(outcomes []Outcome) []BuyCandidate {
	return lo.FilterMap(outcomes, func(o Outcome, _ int) (BuyCandidate, bool) {
		if o.Status != StatusSuccess || o.Result == nil {
			return BuyCandidate{}, false
		}
		bar, sig, ok := o.Result.LastBar()
		if !ok || !sig.Buy {
			return BuyCandidate{}, false
		}
		c := BuyCandidate{Ticker: o.Ticker, Date: bar.Date, Close: bar.Close}
		if v, ok := bar.Ind.RSI.Get(); ok {
			c.RSI = &v
		}
		return c, true
	})
}
