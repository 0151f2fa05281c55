// Package features turns an annotated bar series into a supervised learning
// dataset: one row per bar with every indicator defined, labelled by whether
// the next close is higher.
package features

import (
	"fmt"
	"time"

	"github.com/akshargrover/algo-trading-prototype/internal/model"
)

// MinRows is the smallest dataset worth handing to a classifier.
const MinRows = 10

// Columns are the feature names in row order. They are part of the
// downstream contract and must stay stable.
var Columns = []string{
	"rsi",
	"macd",
	"macd_signal",
	"macd_hist",
	"volume",
	"sma_short",
	"sma_long",
	"buy_signal",
	"sell_signal",
}

// Row is one labelled observation.
type Row struct {
	Date       time.Time `json:"date"`
	Close      float64   `json:"close"`
	Values     []float64 `json:"values"` // aligned with Columns
	NextReturn float64   `json:"next_return"`
	Label      bool      `json:"label"` // next close > close
}

// Dataset is the tagged result of Build. When Skipped is true Rows may be
// non-empty but fewer than MinRows, and Reason explains why.
type Dataset struct {
	Rows    []Row  `json:"rows"`
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason,omitempty"`
}

// Build extracts feature rows from annotated bars and their signals. Bars with
// any undefined indicator and the final bar (no next close) are dropped.
func Build(bars []model.Bar, signals []model.Signal) Dataset {
	if len(bars) != len(signals) {
		return Dataset{Skipped: true, Reason: fmt.Sprintf("bars (%d) and signals (%d) differ in length", len(bars), len(signals))}
	}

	var rows []Row
	for i := 0; i+1 < len(bars); i++ {
		vals, ok := values(bars[i], signals[i])
		if !ok {
			continue
		}
		cur, next := bars[i].Close, bars[i+1].Close
		rows = append(rows, Row{
			Date:       bars[i].Date,
			Close:      cur,
			Values:     vals,
			NextReturn: next/cur - 1,
			Label:      next > cur,
		})
	}

	if len(rows) < MinRows {
		return Dataset{
			Rows:    rows,
			Skipped: true,
			Reason:  fmt.Sprintf("insufficient data: %d usable rows, need %d", len(rows), MinRows),
		}
	}
	return Dataset{Rows: rows}
}

func values(b model.Bar, s model.Signal) ([]float64, bool) {
	ind := []model.NullFloat{
		b.Ind.RSI, b.Ind.MACD, b.Ind.MACDSignal, b.Ind.MACDHist,
	}
	out := make([]float64, 0, len(Columns))
	for _, n := range ind {
		v, ok := n.Get()
		if !ok {
			return nil, false
		}
		out = append(out, v)
	}
	out = append(out, b.Volume)
	for _, n := range []model.NullFloat{b.Ind.SMAShort, b.Ind.SMALong} {
		v, ok := n.Get()
		if !ok {
			return nil, false
		}
		out = append(out, v)
	}
	return append(out, flag(s.Buy), flag(s.Sell)), true
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Balance reports the count of up and down labels.
func (d Dataset) Balance() (up, down int) {
	for _, r := range d.Rows {
		if r.Label {
			up++
		} else {
			down++
		}
	}
	return up, down
}
