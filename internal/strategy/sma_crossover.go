package strategy

import (
	"github.com/akshargrover/algo-trading-prototype/internal/model"
)

// SMACrossover combines a short/long SMA crossover with an RSI filter.
//
// Golden cross: short SMA moves from at-or-below the long SMA to above it.
// Death cross: short SMA moves from at-or-above the long SMA to below it.
//
// How the cross and the RSI thresholds combine is set by BuyRule and
// SellRule. Crossovers are not reported while the long window is still
// filling (bar index < SMALong).
type SMACrossover struct {
	params model.Params
}

// NewSMACrossover creates the crossover strategy for p.
func NewSMACrossover(p model.Params) *SMACrossover {
	return &SMACrossover{params: p}
}

func (s *SMACrossover) Name() string {
	return "SMA_Crossover"
}

func (s *SMACrossover) OnBar(i int, prev *model.Bar, cur model.Bar) model.Signal {
	var sig model.Signal
	if prev != nil && i >= s.params.SMALong {
		sig.BullishCross, sig.BearishCross = crossover(prev.Ind, cur.Ind)
	}

	oversold := cur.Ind.RSI.Below(s.params.Oversold)
	overbought := cur.Ind.RSI.Above(s.params.Overbought)

	switch s.params.BuyRule {
	case model.BuyCrossOnly:
		sig.Buy = sig.BullishCross
	case model.BuyOversoldOnly:
		sig.Buy = oversold
	default:
		sig.Buy = oversold && sig.BullishCross
	}

	switch s.params.SellRule {
	case model.SellOverboughtOnly:
		sig.Sell = overbought
	case model.SellCrossOnly:
		sig.Sell = sig.BearishCross
	default:
		sig.Sell = overbought || sig.BearishCross
	}
	return sig
}

// crossover compares the short/long SMA pair on two consecutive bars.
// An undefined value on either bar yields no cross.
func crossover(prev, cur model.Indicators) (bullish, bearish bool) {
	bullish = cur.SMAShort.Greater(cur.SMALong) && prev.SMAShort.LessOrEqual(prev.SMALong)
	bearish = cur.SMAShort.Less(cur.SMALong) && prev.SMAShort.GreaterOrEqual(prev.SMALong)
	return bullish, bearish
}
