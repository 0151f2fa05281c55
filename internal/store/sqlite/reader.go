package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/akshargrover/algo-trading-prototype/internal/model"
)

// Reader provides read-only access to stored bars. It implements
// model.BarSource.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string, logger *slog.Logger) (*Reader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := open(dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	logger.Info("sqlite reader opened", slog.String("path", dbPath))
	return &Reader{db: db}, nil
}

// DB returns the underlying sql.DB for health checks.
func (r *Reader) DB() *sql.DB { return r.db }

// Fetch returns the stored series for ticker ordered by date ascending.
// A ticker that was never written returns model.ErrUnknownTicker.
func (r *Reader) Fetch(ctx context.Context, ticker string) ([]model.Bar, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM tickers WHERE ticker = ?`, ticker).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite %s: %w", ticker, model.ErrUnknownTicker)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite query ticker: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT date, open, high, low, close, volume
		FROM bars
		WHERE ticker = ?
		ORDER BY date ASC
	`, ticker)
	if err != nil {
		return nil, fmt.Errorf("sqlite query bars: %w", err)
	}
	defer rows.Close()

	bars := make([]model.Bar, 0, 256)
	for rows.Next() {
		var (
			b      model.Bar
			date   string
			volume sql.NullFloat64
		)
		if err := rows.Scan(&date, &b.Open, &b.High, &b.Low, &b.Close, &volume); err != nil {
			return nil, fmt.Errorf("sqlite scan bars: %w", err)
		}
		if b.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("sqlite bad date %q for %s: %w", date, ticker, err)
		}
		b.Volume = volume.Float64
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// Tickers lists every stored ticker in name order.
func (r *Reader) Tickers(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT ticker FROM tickers ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query tickers: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("sqlite scan tickers: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}

var _ model.BarSource = (*Reader)(nil)
