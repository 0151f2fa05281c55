package model

import (
	"errors"
	"fmt"
)

// BuyRule selects how the oscillator and the crossover combine into a buy.
type BuyRule string

const (
	BuyOversoldAndCross BuyRule = "oversold_and_cross"
	BuyCrossOnly        BuyRule = "cross_only"
	BuyOversoldOnly     BuyRule = "oversold_only"
)

// SellRule selects how the oscillator and the crossover combine into a sell.
type SellRule string

const (
	SellOverboughtOrCross SellRule = "overbought_or_cross"
	SellOverboughtOnly    SellRule = "overbought_only"
	SellCrossOnly         SellRule = "cross_only"
)

// Params is the full strategy configuration. It is passed explicitly to each
// pipeline stage; nothing reads process-wide defaults.
type Params struct {
	RSIPeriod    int      `json:"rsi_period" yaml:"rsi_period"`
	SMAShort     int      `json:"sma_short" yaml:"sma_short"`
	SMALong      int      `json:"sma_long" yaml:"sma_long"`
	Oversold     float64  `json:"oversold_threshold" yaml:"oversold_threshold"`
	Overbought   float64  `json:"overbought_threshold" yaml:"overbought_threshold"`
	MACDFast     int      `json:"macd_fast" yaml:"macd_fast"`
	MACDSlow     int      `json:"macd_slow" yaml:"macd_slow"`
	MACDSignal   int      `json:"macd_signal" yaml:"macd_signal"`
	StartingCash float64  `json:"starting_cash" yaml:"starting_cash"`
	BuyRule      BuyRule  `json:"buy_rule" yaml:"buy_rule"`
	SellRule     SellRule `json:"sell_rule" yaml:"sell_rule"`
}

// DefaultParams returns the 14 / 20-50 / 30-70 / 12-26-9 configuration.
func DefaultParams() Params {
	return Params{
		RSIPeriod:    14,
		SMAShort:     20,
		SMALong:      50,
		Oversold:     30,
		Overbought:   70,
		MACDFast:     12,
		MACDSlow:     26,
		MACDSignal:   9,
		StartingCash: 100000,
		BuyRule:      BuyOversoldAndCross,
		SellRule:     SellOverboughtOrCross,
	}
}

// ErrInvalidParams wraps every Params validation failure.
var ErrInvalidParams = errors.New("invalid strategy params")

// Validate checks ranges and cross-field ordering.
func (p Params) Validate() error {
	switch {
	case p.RSIPeriod <= 0:
		return fmt.Errorf("%w: rsi_period must be > 0, got %d", ErrInvalidParams, p.RSIPeriod)
	case p.SMAShort <= 0 || p.SMALong <= 0:
		return fmt.Errorf("%w: sma windows must be > 0, got %d/%d", ErrInvalidParams, p.SMAShort, p.SMALong)
	case p.SMAShort >= p.SMALong:
		return fmt.Errorf("%w: sma_short (%d) must be below sma_long (%d)", ErrInvalidParams, p.SMAShort, p.SMALong)
	case p.MACDFast <= 0 || p.MACDSlow <= 0 || p.MACDSignal <= 0:
		return fmt.Errorf("%w: macd periods must be > 0", ErrInvalidParams)
	case p.MACDFast >= p.MACDSlow:
		return fmt.Errorf("%w: macd_fast (%d) must be below macd_slow (%d)", ErrInvalidParams, p.MACDFast, p.MACDSlow)
	case p.Oversold < 0 || p.Overbought > 100 || p.Oversold >= p.Overbought:
		return fmt.Errorf("%w: thresholds must satisfy 0 <= oversold < overbought <= 100, got %v/%v",
			ErrInvalidParams, p.Oversold, p.Overbought)
	case !(p.StartingCash > 0):
		return fmt.Errorf("%w: starting_cash must be > 0, got %v", ErrInvalidParams, p.StartingCash)
	}
	switch p.BuyRule {
	case BuyOversoldAndCross, BuyCrossOnly, BuyOversoldOnly:
	default:
		return fmt.Errorf("%w: unknown buy_rule %q", ErrInvalidParams, p.BuyRule)
	}
	switch p.SellRule {
	case SellOverboughtOrCross, SellOverboughtOnly, SellCrossOnly:
	default:
		return fmt.Errorf("%w: unknown sell_rule %q", ErrInvalidParams, p.SellRule)
	}
	return nil
}
