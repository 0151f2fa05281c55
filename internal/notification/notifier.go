// Package notification delivers alerts to external channels (Telegram,
// webhooks) when a scan finds tickers with a buy on their latest bar.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/akshargrover/algo-trading-prototype/internal/backtest"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(_ context.Context, alert Alert) error {
	n.logger.Info("alert", slog.String("level", string(alert.Level)),
		slog.String("title", alert.Title), slog.String("message", alert.Message))
	return nil
}

// Multi sends each alert to every notifier, returning the joined errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Config selects the alert channels. Empty fields disable a channel.
type Config struct {
	WebhookURL     string
	TelegramToken  string
	TelegramChatID string
}

// New builds a notifier from cfg. The log notifier is always included.
func New(cfg Config, logger *slog.Logger) Notifier {
	m := Multi{NewLogNotifier(logger)}
	if cfg.WebhookURL != "" {
		m = append(m, NewWebhookNotifier(cfg.WebhookURL))
	}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		m = append(m, NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID))
	}
	return m
}

// BuyAlert formats scan candidates as a single alert. ok is false when
// there is nothing to report.
func BuyAlert(runID string, buys []backtest.BuyCandidate) (Alert, bool) {
	if len(buys) == 0 {
		return Alert{}, false
	}
	var b strings.Builder
	for _, c := range buys {
		fmt.Fprintf(&b, "%s %s close=%.2f", c.Ticker, c.Date.Format("2006-01-02"), c.Close)
		if c.RSI != nil {
			fmt.Fprintf(&b, " rsi=%.1f", *c.RSI)
		}
		b.WriteByte('\n')
	}
	return Alert{
		Level:   AlertInfo,
		Title:   fmt.Sprintf("%d buy signal(s) in run %s", len(buys), runID),
		Message: strings.TrimSuffix(b.String(), "\n"),
	}, true
}

// NotifyBuys scans outcomes and sends one alert when any ticker has a buy on
// its latest bar.
func NotifyBuys(ctx context.Context, n Notifier, runID string, outcomes []backtest.Outcome) error {
	alert, ok := BuyAlert(runID, backtest.LatestBuys(outcomes))
	if !ok {
		return nil
	}
	return n.Send(ctx, alert)
}
