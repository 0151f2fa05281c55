package model

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrEmptySeries       = errors.New("empty series")
	ErrNonMonotonicDates = errors.New("dates not strictly increasing")
	ErrNonPositivePrice  = errors.New("close price not positive")

	// ErrUnknownTicker is returned by a BarSource that has no data for a ticker.
	ErrUnknownTicker = errors.New("unknown ticker")
)

// DataError reports an input series that violates the bar contract.
// Index is -1 when the problem is not tied to one bar.
type DataError struct {
	Ticker string
	Index  int
	Err    error
}

func (e *DataError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("data error for %s: %v", e.Ticker, e.Err)
	}
	return fmt.Sprintf("data error for %s at bar %d: %v", e.Ticker, e.Index, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }

// ValidateSeries checks the bar contract: non-empty, strictly increasing
// dates, finite close > 0. It never repairs the input.
func ValidateSeries(ticker string, bars []Bar) error {
	if len(bars) == 0 {
		return &DataError{Ticker: ticker, Index: -1, Err: ErrEmptySeries}
	}
	for i := range bars {
		c := bars[i].Close
		if !(c > 0) || math.IsInf(c, 1) {
			return &DataError{Ticker: ticker, Index: i, Err: fmt.Errorf("%w: %v", ErrNonPositivePrice, c)}
		}
		if i > 0 && !bars[i].Date.After(bars[i-1].Date) {
			return &DataError{Ticker: ticker, Index: i, Err: fmt.Errorf("%w: %s after %s",
				ErrNonMonotonicDates, bars[i].Date.Format("2006-01-02"), bars[i-1].Date.Format("2006-01-02"))}
		}
	}
	return nil
}
