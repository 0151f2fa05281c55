package portfolio

import (
	"github.com/samber/lo"

	"github.com/akshargrover/algo-trading-prototype/internal/model"
)

// PnLStats summarizes realized P&L over the closed trades of a ledger.
type PnLStats struct {
	Count    int     `json:"count"`
	Wins     int     `json:"wins"`   // pnl > 0
	Losses   int     `json:"losses"` // pnl <= 0
	TotalPnL float64 `json:"total_pnl"`
}

// WinRatio returns wins / count, undefined when there are no closed trades.
func (s PnLStats) WinRatio() model.NullFloat {
	if s.Count == 0 {
		return model.NullFloat{}
	}
	return model.Some(float64(s.Wins) / float64(s.Count))
}

// TradeStats folds the realized P&L of every closed trade. Open trades are
// skipped; the simulator never leaves one in the ledger.
func TradeStats(trades []model.Trade) PnLStats {
	pnls := lo.FilterMap(trades, func(t model.Trade, _ int) (float64, bool) {
		return t.PnL()
	})
	return PnLStats{
		Count:    len(pnls),
		Wins:     lo.CountBy(pnls, func(p float64) bool { return p > 0 }),
		Losses:   lo.CountBy(pnls, func(p float64) bool { return p <= 0 }),
		TotalPnL: lo.Sum(pnls),
	}
}
