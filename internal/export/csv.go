// Package export writes backtest results to CSV sinks.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/akshargrover/algo-trading-prototype/internal/backtest"
	"github.com/akshargrover/algo-trading-prototype/internal/features"
	"github.com/akshargrover/algo-trading-prototype/internal/model"
)

const dateLayout = "2006-01-02"

var ledgerHeader = []string{"ticker", "entry_date", "entry_price", "exit_date", "exit_price", "size", "pnl"}

// WriteLedger writes one row per trade. Open trades have empty exit and pnl
// cells.
func WriteLedger(w io.Writer, trades []model.Trade) error {
	cw := csv.NewWriter(w)
	cw.Write(ledgerHeader)
	for i := range trades {
		t := &trades[i]
		row := []string{t.Ticker, t.EntryDate.Format(dateLayout), ftoa(t.EntryPrice), "", "", itoa64(t.Size), ""}
		if t.Closed() {
			pnl, _ := t.PnL()
			row[3] = t.ExitDate.Format(dateLayout)
			row[4] = ftoa(*t.ExitPrice)
			row[6] = ftoa(pnl)
		}
		cw.Write(row)
	}
	cw.Flush()
	return cw.Error()
}

// WriteEquityCurve writes one row per bar.
func WriteEquityCurve(w io.Writer, curve []model.EquityPoint) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"date", "cash", "equity"})
	for _, p := range curve {
		cw.Write([]string{p.Date.Format(dateLayout), ftoa(p.Cash), ftoa(p.Equity)})
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummary writes Metric,Value rows in the summary's stable key order.
// Undefined metrics are written as empty cells.
func WriteSummary(w io.Writer, ticker string, s model.PerformanceSummary) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"Metric", "Value"})
	cw.Write([]string{"ticker", ticker})
	for _, kv := range s.KeyValues() {
		cw.Write([]string{kv.Key, formatValue(kv.Value)})
	}
	cw.Flush()
	return cw.Error()
}

// WriteFeatures writes the dataset with features.Columns plus date, close,
// next_return and label.
func WriteFeatures(w io.Writer, ds features.Dataset) error {
	cw := csv.NewWriter(w)
	header := append([]string{"date", "close"}, features.Columns...)
	cw.Write(append(header, "next_return", "label"))
	for _, r := range ds.Rows {
		row := make([]string, 0, len(r.Values)+4)
		row = append(row, r.Date.Format(dateLayout), ftoa(r.Close))
		for _, v := range r.Values {
			row = append(row, ftoa(v))
		}
		label := "0"
		if r.Label {
			label = "1"
		}
		cw.Write(append(row, ftoa(r.NextReturn), label))
	}
	cw.Flush()
	return cw.Error()
}

// WriteOutcomes writes one status row per ticker of a batch.
func WriteOutcomes(w io.Writer, outcomes []backtest.Outcome) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"ticker", "status", "trades", "total_pnl", "final_equity", "reason", "duration_ms"})
	for _, o := range outcomes {
		trades, pnl, equity := "", "", ""
		if o.Result != nil {
			trades = strconv.Itoa(o.Result.Summary.TradeCount)
			pnl = ftoa(o.Result.Summary.TotalPnL)
			equity = ftoa(o.Result.Summary.FinalEquity)
		}
		cw.Write([]string{o.Ticker, string(o.Status), trades, pnl, equity, o.Reason,
			strconv.FormatInt(o.Duration.Milliseconds(), 10)})
	}
	cw.Flush()
	return cw.Error()
}

// WriteRunFiles writes <ticker>_trades.csv, <ticker>_equity.csv and
// <ticker>_summary.csv into dir, creating it if needed. It returns the
// written paths.
func WriteRunFiles(dir string, res *backtest.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("export: create %s: %w", dir, err)
	}
	base := FileStem(res.Ticker)
	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{base + "_trades.csv", func(w io.Writer) error { return WriteLedger(w, res.Trades) }},
		{base + "_equity.csv", func(w io.Writer) error { return WriteEquityCurve(w, res.Equity) }},
		{base + "_summary.csv", func(w io.Writer) error { return WriteSummary(w, res.Ticker, res.Summary) }},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := writeFile(path, f.write); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteFeaturesFile writes <ticker>_features.csv into dir.
func WriteFeaturesFile(dir, ticker string, ds features.Dataset) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: create %s: %w", dir, err)
	}
	path := filepath.Join(dir, FileStem(ticker)+"_features.csv")
	return path, writeFile(path, func(w io.Writer) error { return WriteFeatures(w, ds) })
}

// FileStem makes a ticker safe to use in a file name ("^NSEI" -> "NSEI").
func FileStem(ticker string) string {
	stem := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return -1
	}, ticker)
	if stem == "" {
		return "ticker"
	}
	return stem
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("export %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	return nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case int:
		return strconv.Itoa(x)
	case float64:
		return ftoa(x)
	case time.Time:
		return x.Format(dateLayout)
	default:
		return fmt.Sprint(x)
	}
}

func itoa64(x int64) string { return strconv.FormatInt(x, 10) }
func ftoa(x float64) string { return strconv.FormatFloat(x, 'f', -1, 64) }
