// Package marketdata provides bar sources for the backtester: a directory of
// per-ticker CSV files and an in-memory source.
package marketdata

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/akshargrover/algo-trading-prototype/internal/model"
)

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}

// CSVSource reads <Dir>/<TICKER>.csv files with a header row containing at
// least Date and Close. Open, High, Low and Volume are optional; an
// "Adj Close" column is ignored. Rows are returned in file order.
type CSVSource struct {
	Dir string
}

// NewCSVSource creates a CSV source rooted at dir.
func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{Dir: dir}
}

// Fetch implements model.BarSource.
func (s *CSVSource) Fetch(ctx context.Context, ticker string) ([]model.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(s.Dir, ticker+".csv")
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("csv %s: %w", ticker, model.ErrUnknownTicker)
		}
		return nil, fmt.Errorf("csv open %s: %w", path, err)
	}
	defer f.Close()

	bars, err := ReadBars(f)
	if err != nil {
		return nil, fmt.Errorf("csv %s: %w", path, err)
	}
	return bars, nil
}

// Tickers lists the tickers available in the directory, sorted by name.
func (s *CSVSource) Tickers() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.Dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSuffix(filepath.Base(m), ".csv"))
	}
	return out, nil
}

// ReadBars parses CSV bar rows from r. Values are not validated here;
// series validation belongs to the backtest pipeline.
func ReadBars(r io.Reader) ([]model.Bar, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []model.Bar{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	dateCol, okDate := cols["date"]
	closeCol, okClose := cols["close"]
	if !okDate || !okClose {
		return nil, fmt.Errorf("header must contain Date and Close, got %v", header)
	}

	bars := make([]model.Bar, 0, 256)
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		var b model.Bar
		if b.Date, err = parseDate(field(rec, dateCol)); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if b.Close, err = parseFloat(field(rec, closeCol)); err != nil {
			return nil, fmt.Errorf("line %d close: %w", line, err)
		}
		b.Open, b.High, b.Low = b.Close, b.Close, b.Close
		for name, dst := range map[string]*float64{"open": &b.Open, "high": &b.High, "low": &b.Low, "volume": &b.Volume} {
			i, ok := cols[name]
			if !ok || field(rec, i) == "" {
				continue
			}
			if *dst, err = parseFloat(field(rec, i)); err != nil {
				return nil, fmt.Errorf("line %d %s: %w", line, name, err)
			}
		}
		bars = append(bars, b)
	}
	return bars, nil
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
