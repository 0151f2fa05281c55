package indicator

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/akshargrover/algo-trading-prototype/internal/model"
)

func makeBars(closes ...float64) []model.Bar {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func smallParams() model.Params {
	p := model.DefaultParams()
	p.SMAShort, p.SMALong, p.RSIPeriod = 2, 3, 3
	p.MACDFast, p.MACDSlow, p.MACDSignal = 2, 4, 2
	return p
}

func TestAnnotate_DoesNotMutateInput(t *testing.T) {
	bars := makeBars(10, 11, 12, 13)
	before := make([]model.Bar, len(bars))
	copy(before, bars)

	out := Annotate(bars, smallParams())

	if !reflect.DeepEqual(bars, before) {
		t.Fatal("Annotate mutated its input")
	}
	if len(out) != len(bars) {
		t.Fatalf("expected %d bars, got %d", len(bars), len(out))
	}
	for i := range out {
		if !out[i].Date.Equal(bars[i].Date) || out[i].Close != bars[i].Close {
			t.Fatalf("bar %d: price/date changed", i)
		}
	}
}

func TestAnnotate_Alignment(t *testing.T) {
	out := Annotate(makeBars(10, 10, 10, 9, 8, 20), smallParams())

	// SMAs are defined from the first bar on (partial window)
	assertClose(t, "sma_short[0]", out[0].Ind.SMAShort, 10, 0)
	assertClose(t, "sma_long[1]", out[1].Ind.SMALong, 10, 0)
	assertClose(t, "sma_short[5]", out[5].Ind.SMAShort, 14, 1e-9)
	assertClose(t, "sma_long[5]", out[5].Ind.SMALong, 37.0/3, 1e-9)

	// RSI(3) needs 3 changes
	for i := 0; i < 3; i++ {
		assertUndefined(t, "rsi warm-up", out[i].Ind.RSI)
	}
	assertClose(t, "rsi[3]", out[3].Ind.RSI, 0, 1e-9)

	// MACD is defined everywhere
	for i := range out {
		if !out[i].Ind.MACD.Valid || !out[i].Ind.MACDSignal.Valid || !out[i].Ind.MACDHist.Valid {
			t.Fatalf("bar %d: MACD lines should be defined", i)
		}
	}
}

func TestAnnotate_Deterministic(t *testing.T) {
	bars := makeBars(5, 6, 7, 6, 5, 4, 6, 8, 9, 7)
	a := Annotate(bars, smallParams())
	b := Annotate(bars, smallParams())
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	if string(ja) != string(jb) {
		t.Fatal("two runs over the same series differ")
	}
}

func TestAnnotate_StableFieldNames(t *testing.T) {
	out := Annotate(makeBars(1, 2), smallParams())
	raw, err := json.Marshal(out[0].Ind)
	if err != nil {
		t.Fatal(err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"sma_short", "sma_long", "rsi", "macd", "macd_signal", "macd_hist"} {
		if _, ok := fields[name]; !ok {
			t.Errorf("missing indicator field %q", name)
		}
	}
	if fields["rsi"] != nil {
		t.Errorf("rsi on first bar should serialize as null, got %v", fields["rsi"])
	}
}

func TestEngine_IndependentInstances(t *testing.T) {
	p := smallParams()
	a := NewEngine(p)
	b := NewEngine(p)

	for _, c := range []float64{1, 2, 3, 4, 5} {
		a.Process(model.Bar{Close: c})
	}
	got := b.Process(model.Bar{Close: 100})
	assertClose(t, "fresh engine sma", got.SMAShort, 100, 0)

	a.Reset()
	got = a.Process(model.Bar{Close: 7})
	assertClose(t, "reset engine sma", got.SMALong, 7, 0)
	assertUndefined(t, "reset engine rsi", got.RSI)
}

func TestEngine_IndicatorNames(t *testing.T) {
	e := NewEngine(model.DefaultParams())
	var names []string
	for _, ind := range e.Indicators() {
		names = append(names, ind.Name())
	}
	want := []string{"SMA_20", "SMA_50", "RSI_14", "MACD_12_26_9"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("expected %v, got %v", want, names)
	}
}
