package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/akshargrover/algo-trading-prototype/internal/model"
)

func sampleBars() []model.Bar {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.Bar, 4)
	for i := range out {
		c := 100 + float64(i)
		out[i] = model.Bar{Date: start.AddDate(0, 0, i), Open: c - 1, High: c + 1, Low: c - 2, Close: c, Volume: 1000 * float64(i)}
	}
	return out
}

func TestStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.db")
	ctx := context.Background()

	w, err := New(WriterConfig{DBPath: path}, nil)
	if err != nil {
		t.Fatalf("[sqlite] open writer: %v", err)
	}
	defer w.Close()

	bars := sampleBars()
	// write out of order; the reader sorts by date
	shuffled := []model.Bar{bars[2], bars[0], bars[3], bars[1]}
	if err := w.WriteBars(ctx, "ACME", shuffled); err != nil {
		t.Fatalf("[sqlite] write: %v", err)
	}
	if err := w.WriteBars(ctx, "EMPTY", nil); err != nil {
		t.Fatalf("[sqlite] write empty: %v", err)
	}

	r, err := NewReader(path, nil)
	if err != nil {
		t.Fatalf("[sqlite] open reader: %v", err)
	}
	defer r.Close()

	got, err := r.Fetch(ctx, "ACME")
	if err != nil {
		t.Fatalf("[sqlite] fetch: %v", err)
	}
	if !reflect.DeepEqual(got, bars) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, bars)
	}

	empty, err := r.Fetch(ctx, "EMPTY")
	if err != nil || len(empty) != 0 {
		t.Errorf("expected registered empty series, got %v / %v", empty, err)
	}

	if _, err := r.Fetch(ctx, "MISSING"); !errors.Is(err, model.ErrUnknownTicker) {
		t.Errorf("expected ErrUnknownTicker, got %v", err)
	}

	tickers, err := r.Tickers(ctx)
	if err != nil || !reflect.DeepEqual(tickers, []string{"ACME", "EMPTY"}) {
		t.Errorf("unexpected tickers %v / %v", tickers, err)
	}
}

func TestWriter_ReplacesSeries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.db")
	ctx := context.Background()

	w, err := New(WriterConfig{DBPath: path}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.WriteBars(ctx, "ACME", sampleBars()); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteBars(ctx, "ACME", sampleBars()[:2]); err != nil {
		t.Fatal(err)
	}

	r, err := NewReader(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	got, err := r.Fetch(ctx, "ACME")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected rewrite to replace the series, got %d rows", len(got))
	}
	if err := w.DB().PingContext(ctx); err != nil {
		t.Fatalf("[sqlite] ping: %v", err)
	}
}
