package model

import "time"

// Bar is one daily OHLCV observation for a single ticker.
// Ind is zero on raw input and filled by the indicator engine, which returns
// new Bar values instead of mutating its input.
type Bar struct {
	Date   time.Time  `json:"date"`
	Open   float64    `json:"open"`
	High   float64    `json:"high"`
	Low    float64    `json:"low"`
	Close  float64    `json:"close"`
	Volume float64    `json:"volume"`
	Ind    Indicators `json:"indicators"`
}

// Indicators holds the derived per-bar values. Field names are part of the
// feature contract consumed by downstream classifiers.
type Indicators struct {
	SMAShort   NullFloat `json:"sma_short"`
	SMALong    NullFloat `json:"sma_long"`
	RSI        NullFloat `json:"rsi"`
	MACD       NullFloat `json:"macd"`
	MACDSignal NullFloat `json:"macd_signal"`
	MACDHist   NullFloat `json:"macd_hist"`
}

// Signal is the per-bar output of the signal generator.
type Signal struct {
	Buy          bool `json:"buy"`
	Sell         bool `json:"sell"`
	BullishCross bool `json:"bullish_cross"`
	BearishCross bool `json:"bearish_cross"`
}

// Closes extracts the closing price sequence.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i := range bars {
		out[i] = bars[i].Close
	}
	return out
}
