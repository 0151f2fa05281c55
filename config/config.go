package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/akshargrover/algo-trading-prototype/internal/model"
	"github.com/akshargrover/algo-trading-prototype/internal/notification"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Universe
	Tickers string

	// Data
	Source     string // csv | sqlite
	DataDir    string
	SQLitePath string

	// Infrastructure
	JournalPath   string
	RedisAddr     string // empty disables the bar cache
	RedisPassword string
	CacheTTL      time.Duration
	MetricsAddr   string // CLI /metrics + /healthz listener; empty disables
	HTTPAddr      string
	RelayEvents   bool // gateway streams runs published by other processes

	// Output
	OutputDir string

	// Buy-signal alerts (empty disables a channel)
	AlertWebhookURL string
	TelegramToken   string
	TelegramChatID  string

	Workers  int
	LogLevel string

	// Strategy
	ParamsFile string
	Params     model.Params
}

// Load reads configuration from a .env file (if present) and environment
// variables with sensible defaults. Strategy params start from
// model.DefaultParams, then PARAMS_FILE, then individual env overrides.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	cfg := &Config{
		Tickers: getEnv("TICKERS", "RELIANCE.NS,TCS.NS,INFY.NS"),

		Source:     getEnv("DATA_SOURCE", "csv"),
		DataDir:    getEnv("DATA_DIR", "data"),
		SQLitePath: getEnv("SQLITE_PATH", "data/bars.db"),

		JournalPath:   getEnv("JOURNAL_PATH", "data/journal.db"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		CacheTTL:      getEnvDuration("CACHE_TTL", 24*time.Hour),
		MetricsAddr:   getEnv("METRICS_ADDR", ""),
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		RelayEvents:   getEnvBool("RELAY_EVENTS", false),

		OutputDir: getEnv("OUTPUT_DIR", "output"),

		AlertWebhookURL: getEnv("ALERT_WEBHOOK_URL", ""),
		TelegramToken:   getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:  getEnv("TELEGRAM_CHAT_ID", ""),

		Workers:  getEnvInt("WORKERS", 4),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		ParamsFile: getEnv("PARAMS_FILE", ""),
	}

	params := model.DefaultParams()
	if cfg.ParamsFile != "" {
		p, err := LoadParamsFile(cfg.ParamsFile, params)
		if err != nil {
			return nil, err
		}
		params = p
	}
	cfg.Params = ApplyEnvOverrides(params)
	if err := cfg.Params.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	switch cfg.Source {
	case "csv", "sqlite":
	default:
		return nil, fmt.Errorf("config: unknown DATA_SOURCE %q", cfg.Source)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return cfg, nil
}

// LoadParamsFile reads strategy params from a YAML file. Keys missing from
// the file keep their value from base. The result is validated.
func LoadParamsFile(path string, base model.Params) (model.Params, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("config: read params %s: %w", path, err)
	}
	p := base
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return base, fmt.Errorf("config: parse params %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return base, fmt.Errorf("config: params %s: %w", path, err)
	}
	return p, nil
}

// ApplyEnvOverrides overlays RSI_PERIOD, SMA_SHORT, SMA_LONG,
// OVERSOLD_THRESHOLD, OVERBOUGHT_THRESHOLD, MACD_FAST, MACD_SLOW,
// MACD_SIGNAL, STARTING_CASH, BUY_RULE and SELL_RULE on p.
func ApplyEnvOverrides(p model.Params) model.Params {
	p.RSIPeriod = getEnvInt("RSI_PERIOD", p.RSIPeriod)
	p.SMAShort = getEnvInt("SMA_SHORT", p.SMAShort)
	p.SMALong = getEnvInt("SMA_LONG", p.SMALong)
	p.Oversold = getEnvFloat("OVERSOLD_THRESHOLD", p.Oversold)
	p.Overbought = getEnvFloat("OVERBOUGHT_THRESHOLD", p.Overbought)
	p.MACDFast = getEnvInt("MACD_FAST", p.MACDFast)
	p.MACDSlow = getEnvInt("MACD_SLOW", p.MACDSlow)
	p.MACDSignal = getEnvInt("MACD_SIGNAL", p.MACDSignal)
	p.StartingCash = getEnvFloat("STARTING_CASH", p.StartingCash)
	p.BuyRule = model.BuyRule(getEnv("BUY_RULE", string(p.BuyRule)))
	p.SellRule = model.SellRule(getEnv("SELL_RULE", string(p.SellRule)))
	return p
}

// ParseTickers splits a comma-separated ticker list, trimming blanks,
// upper-casing and dropping duplicates while keeping first-seen order.
func ParseTickers(s string) []string {
	parts := lo.Map(strings.Split(s, ","), func(p string, _ int) string {
		return strings.ToUpper(strings.TrimSpace(p))
	})
	return lo.Uniq(lo.Compact(parts))
}

// Notification returns the alert channel settings.
func (c *Config) Notification() notification.Config {
	return notification.Config{
		WebhookURL:     c.AlertWebhookURL,
		TelegramToken:  c.TelegramToken,
		TelegramChatID: c.TelegramChatID,
	}
}

// TickerList returns the configured tickers.
func (c *Config) TickerList() []string {
	return ParseTickers(c.Tickers)
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		slog.Warn("config: ignoring invalid integer", slog.String("key", key), slog.String("value", v))
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		slog.Warn("config: ignoring invalid boolean", slog.String("key", key), slog.String("value", v))
		return fallback
	}
	return b
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		slog.Warn("config: ignoring invalid number", slog.String("key", key), slog.String("value", v))
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		slog.Warn("config: ignoring invalid duration", slog.String("key", key), slog.String("value", v))
		return fallback
	}
	return d
}
