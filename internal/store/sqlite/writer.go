package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/akshargrover/algo-trading-prototype/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

const dateLayout = "2006-01-02"

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/bars.db"
}

// Writer imports daily bars into SQLite. It implements model.BarWriter.
type Writer struct {
	db     *sql.DB
	logger *slog.Logger
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New creates a new SQLite Writer, initializes the database with WAL mode and schema.
func New(cfg WriterConfig, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	logger.Info("sqlite bar store opened", slog.String("path", cfg.DBPath))
	return &Writer{db: db, logger: logger}, nil
}

func open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return db, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS tickers (
			ticker      TEXT PRIMARY KEY,
			updated_at  INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS bars (
			ticker  TEXT NOT NULL,
			date    TEXT NOT NULL,
			open    REAL NOT NULL,
			high    REAL NOT NULL,
			low     REAL NOT NULL,
			close   REAL NOT NULL,
			volume  REAL,
			PRIMARY KEY (ticker, date)
		);
	`)
	return err
}

// WriteBars replaces the stored series for ticker in one transaction.
// Writing an empty series registers the ticker with no rows.
func (w *Writer) WriteBars(ctx context.Context, ticker string, bars []model.Bar) error {
	start := time.Now()
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bars WHERE ticker = ?`, ticker); err != nil {
		return fmt.Errorf("sqlite clear bars: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO tickers (ticker, updated_at) VALUES (?, ?)`,
		ticker, time.Now().Unix()); err != nil {
		return fmt.Errorf("sqlite upsert ticker: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars (ticker, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, ticker, b.Date.Format(dateLayout),
			b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("sqlite insert bar %s %s: %w", ticker, b.Date.Format(dateLayout), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit: %w", err)
	}
	w.logger.Debug("bars committed",
		slog.String("ticker", ticker),
		slog.Int("rows", len(bars)),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}

// Close closes the database connection.
func (w *Writer) Close() error {
	return w.db.Close()
}

var _ model.BarWriter = (*Writer)(nil)
