package model

import "context"

// ── Collaborator Port Interfaces ──
// These interfaces decouple the backtest pipeline from concrete data and
// persistence implementations (CSV files, SQLite, Redis).

// BarSource supplies the date-ordered daily bars for one ticker.
type BarSource interface {
	// Fetch returns the full series for ticker. An unknown ticker returns
	// an error; a known ticker with no rows returns an empty slice.
	Fetch(ctx context.Context, ticker string) ([]Bar, error)
}

// BarWriter persists bars, e.g. to seed a store from a CSV feed.
type BarWriter interface {
	WriteBars(ctx context.Context, ticker string, bars []Bar) error

	// Close releases underlying resources.
	Close() error
}

// RunRecorder persists the ledger and summary of one ticker's run.
type RunRecorder interface {
	RecordRun(ctx context.Context, runID, ticker string, params Params, trades []Trade, summary PerformanceSummary) error

	// Close releases underlying resources.
	Close() error
}
