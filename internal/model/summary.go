package model

// PerformanceSummary is the fixed-shape result of the performance analyzer.
// MaxDrawdownPct and TotalReturnPct are fractions (0.25 == 25%).
type PerformanceSummary struct {
	TradeCount     int       `json:"trade_count"`
	Wins           int       `json:"wins"`
	Losses         int       `json:"losses"`
	WinRatio       NullFloat `json:"win_ratio"`
	TotalPnL       float64   `json:"total_pnl"`
	MaxDrawdownPct float64   `json:"max_drawdown_pct"`
	SharpeRatio    NullFloat `json:"sharpe_ratio"`
	FinalEquity    float64   `json:"final_equity"`
	TotalReturnPct float64   `json:"total_return_pct"`
}

// KeyValue is one entry of the flat summary mapping handed to export sinks.
// Value is an int, a float64, or nil for an undefined metric.
type KeyValue struct {
	Key   string
	Value any
}

// KeyValues flattens the summary in a stable order.
func (s PerformanceSummary) KeyValues() []KeyValue {
	opt := func(n NullFloat) any {
		if v, ok := n.Get(); ok {
			return v
		}
		return nil
	}
	return []KeyValue{
		{"trade_count", s.TradeCount},
		{"wins", s.Wins},
		{"losses", s.Losses},
		{"win_ratio", opt(s.WinRatio)},
		{"total_pnl", s.TotalPnL},
		{"max_drawdown_pct", s.MaxDrawdownPct},
		{"sharpe_ratio", opt(s.SharpeRatio)},
		{"final_equity", s.FinalEquity},
		{"total_return_pct", s.TotalReturnPct},
	}
}
