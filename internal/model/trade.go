package model

import "time"

// Trade is one round trip of the single long position.
// ExitDate and ExitPrice are nil while the position is open.
type Trade struct {
	Ticker     string     `json:"ticker"`
	EntryDate  time.Time  `json:"entry_date"`
	EntryPrice float64    `json:"entry_price"`
	ExitDate   *time.Time `json:"exit_date"`
	ExitPrice  *float64   `json:"exit_price"`
	Size       int64      `json:"size"` // shares, fixed at entry
}

// Closed reports whether the exit fields are set.
func (t *Trade) Closed() bool {
	return t.ExitDate != nil && t.ExitPrice != nil
}

// PnL returns (exit - entry) * size. ok is false while the trade is open.
func (t *Trade) PnL() (pnl float64, ok bool) {
	if !t.Closed() {
		return 0, false
	}
	return (*t.ExitPrice - t.EntryPrice) * float64(t.Size), true
}

// EquityPoint is the mark-to-market account value at the close of one bar.
type EquityPoint struct {
	Date   time.Time `json:"date"`
	Cash   float64   `json:"cash"`
	Equity float64   `json:"equity"`
}
