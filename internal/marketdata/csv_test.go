package marketdata

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/akshargrover/algo-trading-prototype/internal/model"
)

const yahooCSV = `Date,Open,High,Low,Close,Adj Close,Volume
2024-01-01,10,11,9,10.5,10.4,1000
2024-01-02,10.5,12,10,11.75,11.6,1500
2024-01-03,11.75,12,11,11.5,11.4,
`

func TestReadBars_Yahoo(t *testing.T) {
	bars, err := ReadBars(strings.NewReader(yahooCSV))
	if err != nil {
		t.Fatal(err)
	}
	if len(bars) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(bars))
	}
	want := model.Bar{
		Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Open: 10.5, High: 12, Low: 10, Close: 11.75, Volume: 1500,
	}
	if !reflect.DeepEqual(bars[1], want) {
		t.Errorf("got %+v, want %+v", bars[1], want)
	}
	if bars[2].Volume != 0 {
		t.Errorf("blank volume should read as 0, got %v", bars[2].Volume)
	}
}

func TestReadBars_CloseOnly(t *testing.T) {
	bars, err := ReadBars(strings.NewReader("date,close\n2024-02-01,5\n"))
	if err != nil {
		t.Fatal(err)
	}
	if b := bars[0]; b.Open != 5 || b.High != 5 || b.Low != 5 {
		t.Errorf("missing OHL should default to close, got %+v", b)
	}
}

func TestReadBars_Errors(t *testing.T) {
	tests := map[string]string{
		"missing close": "Date,Open\n2024-01-01,1\n",
		"bad date":      "Date,Close\n01/02/2024,1\n",
		"bad close":     "Date,Close\n2024-01-01,abc\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ReadBars(strings.NewReader(body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestReadBars_Empty(t *testing.T) {
	bars, err := ReadBars(strings.NewReader(""))
	if err != nil || len(bars) != 0 {
		t.Fatalf("expected empty series, got %v / %v", bars, err)
	}
	bars, err = ReadBars(strings.NewReader("Date,Close\n"))
	if err != nil || len(bars) != 0 {
		t.Fatalf("expected empty series for header only, got %v / %v", bars, err)
	}
}

func TestCSVSource_Fetch(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "TCS.NS.csv"), []byte(yahooCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	src := NewCSVSource(dir)

	bars, err := src.Fetch(context.Background(), "TCS.NS")
	if err != nil {
		t.Fatal(err)
	}
	if len(bars) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(bars))
	}

	if _, err := src.Fetch(context.Background(), "NOPE"); !errors.Is(err, model.ErrUnknownTicker) {
		t.Fatalf("expected ErrUnknownTicker, got %v", err)
	}

	tickers, err := src.Tickers()
	if err != nil || !reflect.DeepEqual(tickers, []string{"TCS.NS"}) {
		t.Fatalf("unexpected tickers %v / %v", tickers, err)
	}
}

func TestMemorySource(t *testing.T) {
	src := NewMemorySource()
	orig := []model.Bar{{Close: 1}, {Close: 2}}
	src.Set("A", orig)
	orig[0].Close = 99

	got, err := src.Fetch(context.Background(), "A")
	if err != nil || got[0].Close != 1 {
		t.Fatalf("expected stored copy, got %v / %v", got, err)
	}
	got[1].Close = 42
	again, _ := src.Fetch(context.Background(), "A")
	if again[1].Close != 2 {
		t.Fatal("Fetch must return a copy")
	}

	boom := errors.New("boom")
	src.SetError("B", boom)
	if _, err := src.Fetch(context.Background(), "B"); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if _, err := src.Fetch(context.Background(), "C"); !errors.Is(err, model.ErrUnknownTicker) {
		t.Fatalf("expected ErrUnknownTicker, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Fetch(ctx, "A"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
