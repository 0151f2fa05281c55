package strategy

import (
	"testing"
	"time"

	"github.com/akshargrover/algo-trading-prototype/internal/indicator"
	"github.com/akshargrover/algo-trading-prototype/internal/model"
)

func scenarioParams() model.Params {
	p := model.DefaultParams()
	p.SMAShort, p.SMALong, p.RSIPeriod = 2, 3, 3
	p.Oversold, p.Overbought = 90, 95
	return p
}

func annotated(p model.Params, closes ...float64) []model.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{Date: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return indicator.Annotate(bars, p)
}

func indexes(sigs []model.Signal, pick func(model.Signal) bool) []int {
	var out []int
	for i, s := range sigs {
		if pick(s) {
			out = append(out, i)
		}
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestGenerate_CrossAndRSI(t *testing.T) {
	p := scenarioParams()
	bars := annotated(p, 10, 10, 10, 9, 8, 20, 21, 22, 21, 15)
	sigs := Generate(bars, p)

	if len(sigs) != len(bars) {
		t.Fatalf("expected %d signals, got %d", len(bars), len(sigs))
	}

	checks := []struct {
		name string
		pick func(model.Signal) bool
		want []int
	}{
		{"bullish", func(s model.Signal) bool { return s.BullishCross }, []int{5}},
		{"bearish", func(s model.Signal) bool { return s.BearishCross }, []int{3, 9}},
		{"buy", func(s model.Signal) bool { return s.Buy }, []int{5}},
		{"sell", func(s model.Signal) bool { return s.Sell }, []int{3, 7, 9}},
	}
	for _, c := range checks {
		if got := indexes(sigs, c.pick); !equalInts(got, c.want) {
			t.Errorf("%s at %v, want %v", c.name, got, c.want)
		}
	}
}

func TestGenerate_Rules(t *testing.T) {
	closes := []float64{10, 10, 10, 9, 8, 20, 21, 22, 21, 15}

	tests := []struct {
		name     string
		buy      model.BuyRule
		sell     model.SellRule
		wantBuy  []int
		wantSell []int
	}{
		{"cross only", model.BuyCrossOnly, model.SellCrossOnly, []int{5}, []int{3, 9}},
		{"oscillator only", model.BuyOversoldOnly, model.SellOverboughtOnly, []int{3, 4, 5, 8, 9}, []int{7}},
		{"defaults", model.BuyOversoldAndCross, model.SellOverboughtOrCross, []int{5}, []int{3, 7, 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := scenarioParams()
			p.BuyRule, p.SellRule = tt.buy, tt.sell
			sigs := Generate(annotated(p, closes...), p)

			if got := indexes(sigs, func(s model.Signal) bool { return s.Buy }); !equalInts(got, tt.wantBuy) {
				t.Errorf("buy at %v, want %v", got, tt.wantBuy)
			}
			if got := indexes(sigs, func(s model.Signal) bool { return s.Sell }); !equalInts(got, tt.wantSell) {
				t.Errorf("sell at %v, want %v", got, tt.wantSell)
			}
		})
	}
}

func TestGenerate_ShortSeriesHasNoCross(t *testing.T) {
	p := model.DefaultParams()
	p.BuyRule, p.SellRule = model.BuyCrossOnly, model.SellCrossOnly

	// zig-zag shorter than the 50-bar long window
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100
		if i%5 < 2 {
			closes[i] = 80
		}
	}
	for i, s := range Generate(annotated(p, closes...), p) {
		if s.BullishCross || s.BearishCross || s.Buy || s.Sell {
			t.Fatalf("bar %d: unexpected signal %+v", i, s)
		}
	}
}

func TestGenerate_UndefinedRSINeverTriggers(t *testing.T) {
	p := model.DefaultParams()
	p.BuyRule, p.SellRule = model.BuyOversoldOnly, model.SellOverboughtOnly

	// RSI(14) stays undefined for the first 14 bars
	bars := annotated(p, 50, 40, 30, 20, 10, 5, 4, 3, 2, 1)
	for i, s := range Generate(bars, p) {
		if s.Buy || s.Sell {
			t.Fatalf("bar %d: signal while RSI undefined: %+v", i, s)
		}
	}
}

func TestSMACrossover_FirstBar(t *testing.T) {
	p := scenarioParams()
	p.SMALong = 0
	s := NewSMACrossover(p)

	cur := model.Bar{Ind: model.Indicators{SMAShort: model.Some(2), SMALong: model.Some(1)}}
	if sig := s.OnBar(0, nil, cur); sig.BullishCross || sig.BearishCross {
		t.Fatalf("first bar must not cross: %+v", sig)
	}

	prev := model.Bar{Ind: model.Indicators{SMAShort: model.Some(1), SMALong: model.Some(1)}}
	if sig := s.OnBar(1, &prev, cur); !sig.BullishCross {
		t.Fatal("expected a golden cross from equal to above")
	}
	if s.Name() != "SMA_Crossover" {
		t.Errorf("unexpected name %s", s.Name())
	}
}

func TestGenerate_Pure(t *testing.T) {
	p := scenarioParams()
	bars := annotated(p, 10, 10, 10, 9, 8, 20, 21, 22, 21, 15)
	a := Generate(bars, p)
	b := Generate(bars, p)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("bar %d differs between calls", i)
		}
	}
}
