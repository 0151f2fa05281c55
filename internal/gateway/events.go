package gateway

import (
	"encoding/json"
	"time"

	"github.com/akshargrover/algo-trading-prototype/internal/backtest"
	"github.com/akshargrover/algo-trading-prototype/internal/model"
)

// Channels carried in the WS envelope.
const (
	ChannelStart   = "ticker:start"
	ChannelOutcome = "ticker:outcome"
	ChannelBatch   = "batch:done"
)

// knownChannel reports whether ch is one of the envelope channels above.
func knownChannel(ch string) bool {
	switch ch {
	case ChannelStart, ChannelOutcome, ChannelBatch:
		return true
	}
	return false
}

// StartEvent announces that a ticker began running.
type StartEvent struct {
	RunID  string    `json:"run_id"`
	Ticker string    `json:"ticker"`
	TS     time.Time `json:"ts"`
}

// OutcomeEvent is the per-ticker progress message pushed to clients and
// relayed over Redis. It omits the bar-level detail of backtest.Result.
type OutcomeEvent struct {
	RunID      string                    `json:"run_id"`
	Ticker     string                    `json:"ticker"`
	Status     backtest.Status           `json:"status"`
	Reason     string                    `json:"reason,omitempty"`
	Bars       int                       `json:"bars"`
	Summary    *model.PerformanceSummary `json:"summary,omitempty"`
	DurationMs int64                     `json:"duration_ms"`
	TS         time.Time                 `json:"ts"`
}

// NewOutcomeEvent summarizes o for the wire.
func NewOutcomeEvent(runID string, o backtest.Outcome) OutcomeEvent {
	ev := OutcomeEvent{
		RunID:      runID,
		Ticker:     o.Ticker,
		Status:     o.Status,
		Reason:     o.Reason,
		DurationMs: o.Duration.Milliseconds(),
		TS:         time.Now().UTC(),
	}
	if o.Result != nil {
		s := o.Result.Summary
		ev.Summary = &s
		ev.Bars = len(o.Result.Bars)
	}
	return ev
}

// BatchEvent closes a run with per-status counts.
type BatchEvent struct {
	RunID  string                  `json:"run_id"`
	Counts map[backtest.Status]int `json:"counts"`
	TS     time.Time               `json:"ts"`
}

// BacktestRequest is the body of POST /api/backtest. Omitted fields fall
// back to the service defaults; Params is decoded onto a copy of the
// default params, so a partial object overrides only the keys it names.
type BacktestRequest struct {
	Tickers []string        `json:"tickers"`
	Params  json.RawMessage `json:"params,omitempty"`
	Workers int             `json:"workers,omitempty"`
}

// BacktestResponse is returned by POST /api/backtest and GET /api/results.
type BacktestResponse struct {
	RunID      string                  `json:"run_id"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
	Outcomes   []OutcomeEvent          `json:"outcomes"`
	Scan       []backtest.BuyCandidate `json:"scan"`
}
