package portfolio

import (
	"math"

	"github.com/samber/lo"

	"github.com/akshargrover/algo-trading-prototype/internal/model"
)

// TradingDaysPerYear annualizes the daily Sharpe ratio.
const TradingDaysPerYear = 252

// DrawdownTracker follows the running equity peak.
type DrawdownTracker struct {
	equity     float64
	peakEquity float64
	maxDD      float64
}

// NewDrawdownTracker seeds the peak with the starting equity.
func NewDrawdownTracker(initialEquity float64) *DrawdownTracker {
	return &DrawdownTracker{
		equity:     initialEquity,
		peakEquity: initialEquity,
	}
}

// Record updates the tracker with the next equity observation.
func (d *DrawdownTracker) Record(equity float64) {
	d.equity = equity
	if equity > d.peakEquity {
		d.peakEquity = equity
	}
	if dd := d.Current(); dd > d.maxDD {
		d.maxDD = dd
	}
}

// Current returns the drawdown from the peak as a fraction.
func (d *DrawdownTracker) Current() float64 {
	if d.peakEquity <= 0 {
		return 0
	}
	return (d.peakEquity - d.equity) / d.peakEquity
}

// Max returns the largest drawdown seen so far.
func (d *DrawdownTracker) Max() float64 { return d.maxDD }

// Peak returns the running peak.
func (d *DrawdownTracker) Peak() float64 { return d.peakEquity }

// MaxDrawdown returns the largest peak-to-trough decline of the curve as a
// fraction of the running peak, with the peak seeded by startingCash.
func MaxDrawdown(curve []model.EquityPoint, startingCash float64) float64 {
	d := NewDrawdownTracker(startingCash)
	for _, p := range curve {
		d.Record(p.Equity)
	}
	return d.Max()
}

// DailyReturns returns e[i]/e[i-1] - 1 for consecutive curve points.
// Points following a zero equity are skipped.
func DailyReturns(curve []model.EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	out := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			continue
		}
		out = append(out, curve[i].Equity/prev-1)
	}
	return out
}

// zeroVarianceTol bounds the stdev, relative to max(1, |mean|), below which
// returns are treated as constant. Rounding in the mean leaves a stdev of
// ~1e-18 for identical non-zero returns.
const zeroVarianceTol = 1e-12

// Sharpe returns the annualized Sharpe ratio (zero risk-free rate) using the
// sample standard deviation. It is undefined for fewer than two returns or
// zero variance.
func Sharpe(returns []float64) model.NullFloat {
	n := len(returns)
	if n < 2 {
		return model.NullFloat{}
	}
	mean := lo.Sum(returns) / float64(n)
	ss := lo.SumBy(returns, func(r float64) float64 { return (r - mean) * (r - mean) })
	stdev := math.Sqrt(ss / float64(n-1))
	if stdev <= zeroVarianceTol*math.Max(1, math.Abs(mean)) {
		return model.NullFloat{}
	}
	return model.Some(mean / stdev * math.Sqrt(TradingDaysPerYear))
}
