package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/akshargrover/algo-trading-prototype/internal/backtest"
)

type recordingNotifier struct {
	alerts []Alert
	err    error
}

func (r *recordingNotifier) Send(_ context.Context, a Alert) error {
	r.alerts = append(r.alerts, a)
	return r.err
}

func TestBuyAlert(t *testing.T) {
	if _, ok := BuyAlert("r1", nil); ok {
		t.Fatal("no candidates should produce no alert")
	}

	rsi := 28.44
	buys := []backtest.BuyCandidate{
		{Ticker: "TCS.NS", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Close: 3999.5, RSI: &rsi},
		{Ticker: "INFY.NS", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Close: 1620},
	}
	a, ok := BuyAlert("r1", buys)
	if !ok {
		t.Fatal("expected an alert")
	}
	if a.Title != "2 buy signal(s) in run r1" {
		t.Errorf("title = %q", a.Title)
	}
	want := "TCS.NS 2024-03-01 close=3999.50 rsi=28.4\nINFY.NS 2024-03-01 close=1620.00"
	if a.Message != want {
		t.Errorf("message = %q, want %q", a.Message, want)
	}
}

func TestNotifyBuys_NothingToReport(t *testing.T) {
	rec := &recordingNotifier{}
	outcomes := []backtest.Outcome{{Ticker: "X", Status: backtest.StatusFailed}}
	if err := NotifyBuys(context.Background(), rec, "r1", outcomes); err != nil {
		t.Fatal(err)
	}
	if len(rec.alerts) != 0 {
		t.Errorf("expected no alerts, got %d", len(rec.alerts))
	}
}

func TestMulti_JoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	ok, bad := &recordingNotifier{}, &recordingNotifier{err: boom}
	err := Multi{bad, ok}.Send(context.Background(), Alert{Title: "t"})
	if !errors.Is(err, boom) {
		t.Errorf("expected joined error, got %v", err)
	}
	if len(ok.alerts) != 1 {
		t.Error("a failing notifier must not stop the others")
	}
}

func TestWebhookNotifier(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	if err := n.Send(context.Background(), Alert{Level: AlertWarning, Title: "t", Message: "m"}); err != nil {
		t.Fatal(err)
	}
	if got.Level != AlertWarning || got.Title != "t" || got.Message != "m" || got.TS == "" {
		t.Errorf("unexpected payload %+v", got)
	}
}

func TestWebhookNotifier_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL).Send(context.Background(), Alert{Title: "t"})
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestTelegramNotifier(t *testing.T) {
	var path string
	var got telegramMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42")
	n.baseURL = srv.URL
	if err := n.Send(context.Background(), Alert{Level: AlertInfo, Title: "run-1", Message: "TCS.NS close=1.5"}); err != nil {
		t.Fatal(err)
	}
	if path != "/botTOKEN/sendMessage" {
		t.Errorf("path = %q", path)
	}
	if got.ChatID != "42" || got.ParseMode != "MarkdownV2" {
		t.Errorf("unexpected message %+v", got)
	}
	if !strings.Contains(got.Text, `run\-1`) || !strings.Contains(got.Text, `TCS\.NS close\=1\.5`) {
		t.Errorf("text not escaped: %q", got.Text)
	}
}

func TestNew_Channels(t *testing.T) {
	if n := New(Config{}, nil).(Multi); len(n) != 1 {
		t.Errorf("expected log notifier only, got %d", len(n))
	}
	n := New(Config{WebhookURL: "http://x", TelegramToken: "t", TelegramChatID: "c"}, nil).(Multi)
	if len(n) != 3 {
		t.Errorf("expected 3 notifiers, got %d", len(n))
	}
	if n := New(Config{TelegramToken: "t"}, nil).(Multi); len(n) != 1 {
		t.Error("telegram needs both token and chat id")
	}
}
