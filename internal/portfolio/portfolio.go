// Package portfolio turns a finished simulation into performance metrics.
//
// Everything here is a pure function of the trade ledger, the equity curve
// and the starting cash; nothing is tracked between calls.
package portfolio

import (
	"github.com/akshargrover/algo-trading-prototype/internal/model"
)

// Analyze computes the performance summary of one run.
func Analyze(trades []model.Trade, curve []model.EquityPoint, startingCash float64) model.PerformanceSummary {
	stats := TradeStats(trades)

	finalEquity := startingCash
	if len(curve) > 0 {
		finalEquity = curve[len(curve)-1].Equity
	}

	totalReturn := 0.0
	if startingCash > 0 {
		totalReturn = (finalEquity - startingCash) / startingCash
	}

	return model.PerformanceSummary{
		TradeCount:     stats.Count,
		Wins:           stats.Wins,
		Losses:         stats.Losses,
		WinRatio:       stats.WinRatio(),
		TotalPnL:       stats.TotalPnL,
		MaxDrawdownPct: MaxDrawdown(curve, startingCash),
		SharpeRatio:    Sharpe(DailyReturns(curve)),
		FinalEquity:    finalEquity,
		TotalReturnPct: totalReturn,
	}
}
