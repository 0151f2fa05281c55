package execution

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/akshargrover/algo-trading-prototype/internal/model"
)

func bars(closes ...float64) []model.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.Bar, len(closes))
	for i, c := range closes {
		out[i] = model.Bar{Date: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return out
}

// signals builds a signal slice from a pattern string: 'B' buy, 'S' sell,
// 'X' both, anything else nothing.
func signals(pattern string) []model.Signal {
	out := make([]model.Signal, len(pattern))
	for i, c := range pattern {
		out[i] = model.Signal{Buy: c == 'B' || c == 'X', Sell: c == 'S' || c == 'X'}
	}
	return out
}

func TestSimulate_RoundTrip(t *testing.T) {
	sim := NewSimulator(nil)
	res, err := sim.Simulate("TEST", bars(10, 20, 22, 21), signals(".B.S"), 1000)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(res.Trades))
	}
	tr := res.Trades[0]
	if tr.Size != 50 || tr.EntryPrice != 20 || *tr.ExitPrice != 21 {
		t.Errorf("unexpected trade %+v exit=%v", tr, *tr.ExitPrice)
	}
	if pnl, ok := tr.PnL(); !ok || pnl != 50 {
		t.Errorf("expected pnl 50, got %v (ok=%v)", pnl, ok)
	}
	if res.Cash != 1050 {
		t.Errorf("expected cash 1050, got %v", res.Cash)
	}

	wantEquity := []float64{1000, 1000, 1100, 1050}
	for i, p := range res.Equity {
		if p.Equity != wantEquity[i] {
			t.Errorf("equity[%d] = %v, want %v", i, p.Equity, wantEquity[i])
		}
	}
	if res.Equity[1].Cash != 0 {
		t.Errorf("expected all cash deployed, got %v", res.Equity[1].Cash)
	}
}

func TestSimulate_UnaffordableBuyIgnored(t *testing.T) {
	sim := NewSimulator(nil)
	res, err := sim.Simulate("TEST", bars(150, 150, 150), signals("BBS"), 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Trades) != 0 || len(res.Fills) != 0 {
		t.Fatalf("expected no trades, got %+v", res.Trades)
	}
	for _, p := range res.Equity {
		if p.Equity != 100 || p.Cash != 100 {
			t.Fatalf("expected flat equity of 100, got %+v", p)
		}
	}
}

func TestSimulate_ForcedCloseOnLastBar(t *testing.T) {
	sim := NewSimulator(nil)
	b := bars(10, 12, 15)
	res, err := sim.Simulate("TEST", b, signals("B.."), 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Trades) != 1 {
		t.Fatalf("expected forced close trade, got %d trades", len(res.Trades))
	}
	last := res.Trades[len(res.Trades)-1]
	if !last.ExitDate.Equal(b[2].Date) || *last.ExitPrice != 15 {
		t.Errorf("expected exit at %s/15, got %s/%v", b[2].Date, last.ExitDate, *last.ExitPrice)
	}
	if f := res.Fills[len(res.Fills)-1]; !f.Forced || f.Action != ActionSell {
		t.Errorf("expected forced sell fill, got %+v", f)
	}
	if res.Cash != 150 || res.Equity[2].Equity != 150 {
		t.Errorf("final cash %v / equity %v, want 150", res.Cash, res.Equity[2].Equity)
	}
}

func TestSimulate_IgnoresRedundantSignals(t *testing.T) {
	sim := NewSimulator(nil)
	// sell while flat, buy while long, both on one bar while long
	res, err := sim.Simulate("TEST", bars(10, 10, 11, 12, 13, 14), signals("SBBXS."), 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(res.Trades))
	}
	tr := res.Trades[0]
	if !tr.EntryDate.Equal(res.Equity[1].Date) || !tr.ExitDate.Equal(res.Equity[3].Date) {
		t.Errorf("expected entry bar 1 / exit bar 3, got %s / %s", tr.EntryDate, tr.ExitDate)
	}
}

func TestSimulate_BuyAndSellOnSameBarWhileFlatOnlyBuys(t *testing.T) {
	sim := NewSimulator(nil)
	res, err := sim.Simulate("TEST", bars(10, 11), signals("X."), 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Fills) != 2 || res.Fills[0].Action != ActionBuy || !res.Fills[1].Forced {
		t.Fatalf("expected buy then forced sell, got %+v", res.Fills)
	}
}

func TestSimulate_LengthMismatch(t *testing.T) {
	sim := NewSimulator(nil)
	_, err := sim.Simulate("TEST", bars(1, 2, 3), signals("B."), 100)
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestSimulate_Empty(t *testing.T) {
	res, err := NewSimulator(nil).Simulate("TEST", nil, nil, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Trades) != 0 || len(res.Equity) != 0 || res.Cash != 100 {
		t.Fatalf("unexpected result %+v", res)
	}
}

// checkInvariants asserts the properties every simulation must hold:
// cash never negative, at most one open position, a closed ledger in entry
// order, one equity point per bar, and final equity == start + realized pnl.
func checkInvariants(t *testing.T, res *SimResult, in []model.Bar, startingCash float64) {
	t.Helper()

	open := 0
	for _, f := range res.Fills {
		if f.Action == ActionBuy {
			open++
		} else {
			open--
		}
		if open < 0 || open > 1 {
			t.Fatalf("open position count out of range: %d", open)
		}
	}
	if open != 0 {
		t.Fatalf("position left open after the last bar")
	}

	if len(res.Equity) != len(in) {
		t.Fatalf("equity points %d != bars %d", len(res.Equity), len(in))
	}
	for i, p := range res.Equity {
		if p.Cash < 0 {
			t.Fatalf("bar %d: negative cash %v", i, p.Cash)
		}
		if !p.Date.Equal(in[i].Date) {
			t.Fatalf("bar %d: equity date %v != bar date %v", i, p.Date, in[i].Date)
		}
	}

	var pnl, gross float64
	for i, tr := range res.Trades {
		v, ok := tr.PnL()
		if !ok {
			t.Fatal("ledger contains an open trade")
		}
		if tr.Size <= 0 || tr.ExitDate.Before(tr.EntryDate) {
			t.Fatalf("trade %d malformed: %+v", i, tr)
		}
		if i > 0 && tr.EntryDate.Before(*res.Trades[i-1].ExitDate) {
			t.Fatalf("trade %d overlaps the previous one", i)
		}
		pnl += v
		gross += math.Abs(v) + tr.EntryPrice*float64(tr.Size)
	}
	// pnl is summed in float64 while cash is exact, so allow relative slack
	tol := 1e-9 * math.Max(1, startingCash+gross)
	if math.Abs(res.Cash-(startingCash+pnl)) > tol {
		t.Errorf("cash %v != start + pnl %v", res.Cash, startingCash+pnl)
	}
	if n := len(res.Equity); n > 0 {
		if last := res.Equity[n-1].Equity; math.Abs(last-res.Cash) > tol {
			t.Errorf("last equity %v != final cash %v", last, res.Cash)
		}
	} else if math.Abs(res.Cash-startingCash) > tol {
		t.Errorf("no bars: cash %v != start %v", res.Cash, startingCash)
	}
}

func TestSimulate_Invariants(t *testing.T) {
	// alternating signals over a noisy series with awkward prices
	closes := []float64{33.33, 17.01, 45.5, 12.99, 70.07, 3.3, 99.99, 41.41, 8.88, 56.56, 23.45, 77.7}
	in := bars(closes...)
	res, err := NewSimulator(nil).Simulate("TEST", in, signals("BSBSBSBSBSB."), 1234.56)
	if err != nil {
		t.Fatal(err)
	}
	checkInvariants(t, res, in, 1234.56)
}

func TestSimulate_InvariantsGenerated(t *testing.T) {
	patterns := map[string]func(r *rand.Rand, i int) byte{
		"random":      func(r *rand.Rand, _ int) byte { return "BSX.."[r.Intn(5)] },
		"always-buy":  func(_ *rand.Rand, _ int) byte { return 'B' },
		"always-both": func(_ *rand.Rand, _ int) byte { return 'X' },
		"alternating": func(_ *rand.Rand, i int) byte { return "BS"[i%2] },
		"sell-first":  func(_ *rand.Rand, i int) byte { return "SSB."[i%4] },
	}
	cashLevels := []float64{5, 100, 1234.56, 1e6}

	sim := NewSimulator(nil)
	for name, gen := range patterns {
		for seed := int64(1); seed <= 25; seed++ {
			r := rand.New(rand.NewSource(seed))
			n := r.Intn(60)
			closes := make([]float64, n)
			price := 1 + r.Float64()*200
			for i := range closes {
				// random walk kept strictly positive, rounded to paise
				price = math.Max(0.05, price*(1+(r.Float64()-0.5)*0.2))
				closes[i] = math.Round(price*100) / 100
			}
			pattern := make([]byte, n)
			for i := range pattern {
				pattern[i] = gen(r, i)
			}
			cash := cashLevels[r.Intn(len(cashLevels))]

			in := bars(closes...)
			res, err := sim.Simulate("GEN", in, signals(string(pattern)), cash)
			if err != nil {
				t.Fatalf("%s/seed %d: %v", name, seed, err)
			}
			t.Run(fmt.Sprintf("%s/seed=%d", name, seed), func(t *testing.T) {
				checkInvariants(t, res, in, cash)
			})
		}
	}
}

func TestPositionState_String(t *testing.T) {
	if Flat.String() != "FLAT" || Long.String() != "LONG" {
		t.Error("unexpected state names")
	}
}
