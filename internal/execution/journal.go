package execution

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/akshargrover/algo-trading-prototype/internal/model"
)

const journalSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	ticker      TEXT NOT NULL,
	params      TEXT NOT NULL,
	created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(run_id, ticker)
);
CREATE TABLE IF NOT EXISTS trades (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       TEXT NOT NULL,
	ticker       TEXT NOT NULL,
	seq          INTEGER NOT NULL,
	entry_date   TEXT NOT NULL,
	entry_price  REAL NOT NULL,
	exit_date    TEXT,
	exit_price   REAL,
	size         INTEGER NOT NULL,
	pnl          REAL
);
CREATE TABLE IF NOT EXISTS summaries (
	run_id            TEXT NOT NULL,
	ticker            TEXT NOT NULL,
	trade_count       INTEGER NOT NULL,
	wins              INTEGER NOT NULL,
	losses            INTEGER NOT NULL,
	win_ratio         REAL,
	total_pnl         REAL NOT NULL,
	max_drawdown_pct  REAL NOT NULL,
	sharpe_ratio      REAL,
	final_equity      REAL NOT NULL,
	total_return_pct  REAL NOT NULL,
	PRIMARY KEY (run_id, ticker)
);
CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id, ticker, seq);
`

const dateLayout = "2006-01-02"

// Journal persists finished runs (params, ledger, summary) to SQLite for
// later analysis. It implements model.RunRecorder.
type Journal struct {
	mu     sync.Mutex
	db     *sql.DB
	logger *slog.Logger
}

// NewJournal opens (or creates) a SQLite journal database.
func NewJournal(dbPath string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("journal open: %w", err)
	}
	if _, err := db.Exec(journalSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}

	logger.Info("trade journal opened", slog.String("path", dbPath))
	return &Journal{db: db, logger: logger}, nil
}

// RecordRun stores one ticker's run in a single transaction. Recording the
// same (runID, ticker) twice replaces the earlier rows.
func (j *Journal) RecordRun(ctx context.Context, runID, ticker string, params model.Params, trades []model.Trade, summary model.PerformanceSummary) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	rawParams, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("journal params: %w", err)
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM runs WHERE run_id = ? AND ticker = ?`,
		`DELETE FROM trades WHERE run_id = ? AND ticker = ?`,
		`DELETE FROM summaries WHERE run_id = ? AND ticker = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, runID, ticker); err != nil {
			return fmt.Errorf("journal clear: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, ticker, params) VALUES (?, ?, ?)`,
		runID, ticker, string(rawParams)); err != nil {
		return fmt.Errorf("journal insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO trades (run_id, ticker, seq, entry_date, entry_price, exit_date, exit_price, size, pnl)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("journal prepare: %w", err)
	}
	defer stmt.Close()

	for i, t := range trades {
		var exitDate, exitPrice, pnl any
		if t.Closed() {
			exitDate = t.ExitDate.Format(dateLayout)
			exitPrice = *t.ExitPrice
			pnl, _ = t.PnL()
		}
		if _, err := stmt.ExecContext(ctx, runID, ticker, i,
			t.EntryDate.Format(dateLayout), t.EntryPrice, exitDate, exitPrice, t.Size, pnl); err != nil {
			return fmt.Errorf("journal insert trade %d: %w", i, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO summaries (run_id, ticker, trade_count, wins, losses, win_ratio, total_pnl,
			max_drawdown_pct, sharpe_ratio, final_equity, total_return_pct)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, ticker, summary.TradeCount, summary.Wins, summary.Losses,
		nullable(summary.WinRatio), summary.TotalPnL, summary.MaxDrawdownPct,
		nullable(summary.SharpeRatio), summary.FinalEquity, summary.TotalReturnPct,
	); err != nil {
		return fmt.Errorf("journal insert summary: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("journal commit: %w", err)
	}
	j.logger.Debug("run journaled",
		slog.String("run_id", runID),
		slog.String("ticker", ticker),
		slog.Int("trades", len(trades)),
	)
	return nil
}

func nullable(n model.NullFloat) sql.NullFloat64 {
	return sql.NullFloat64{Float64: n.Float64, Valid: n.Valid}
}

// TradeRecord represents a row from the trades table.
type TradeRecord struct {
	RunID      string   `json:"run_id"`
	Ticker     string   `json:"ticker"`
	EntryDate  string   `json:"entry_date"`
	EntryPrice float64  `json:"entry_price"`
	ExitDate   *string  `json:"exit_date"`
	ExitPrice  *float64 `json:"exit_price"`
	Size       int64    `json:"size"`
	PnL        *float64 `json:"pnl"`
}

// GetTrades returns the ledger of one run and ticker in entry order.
func (j *Journal) GetTrades(ctx context.Context, runID, ticker string) ([]TradeRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, ticker, entry_date, entry_price, exit_date, exit_price, size, pnl
		 FROM trades WHERE run_id = ? AND ticker = ? ORDER BY seq`, runID, ticker)
	if err != nil {
		return nil, fmt.Errorf("journal query trades: %w", err)
	}
	defer rows.Close()

	trades := make([]TradeRecord, 0)
	for rows.Next() {
		var (
			t         TradeRecord
			exitDate  sql.NullString
			exitPrice sql.NullFloat64
			pnl       sql.NullFloat64
		)
		if err := rows.Scan(&t.RunID, &t.Ticker, &t.EntryDate, &t.EntryPrice,
			&exitDate, &exitPrice, &t.Size, &pnl); err != nil {
			return nil, fmt.Errorf("journal scan trade: %w", err)
		}
		if exitDate.Valid {
			t.ExitDate = &exitDate.String
		}
		if exitPrice.Valid {
			t.ExitPrice = &exitPrice.Float64
		}
		if pnl.Valid {
			t.PnL = &pnl.Float64
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// RunRecord is one journaled (run, ticker) pair.
type RunRecord struct {
	RunID     string       `json:"run_id"`
	Ticker    string       `json:"ticker"`
	Params    model.Params `json:"params"`
	CreatedAt time.Time    `json:"created_at"`
}

// GetRuns returns the last N journaled runs, newest first.
func (j *Journal) GetRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, ticker, params, created_at FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunRecord, 0)
	for rows.Next() {
		var (
			r   RunRecord
			raw string
		)
		if err := rows.Scan(&r.RunID, &r.Ticker, &raw, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("journal scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &r.Params); err != nil {
			return nil, fmt.Errorf("journal decode params: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DB returns the underlying sql.DB for health checks.
func (j *Journal) DB() *sql.DB { return j.db }

// Ping checks database liveness.
func (j *Journal) Ping(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}

var _ model.RunRecorder = (*Journal)(nil)
