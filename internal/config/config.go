package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken  string
	DatabaseURL    string
	TimeZone       string
	XPDailyCap     int
	ScanInterval   time.Duration
	ReportTime     string
	MetricsAddr    string
	LogLevel       string
	LogEncoding    string
	MaxPendingTask int
}

// Load reads configuration from environment variables (and a .env file if present)
// with sane defaults. The Telegram token is checked by RequireToken, because
// offline commands such as `resolve` do not need it.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		TelegramToken:  env("TELEGRAM_TOKEN", ""),
		DatabaseURL:    env("DATABASE_URL", "smart_planner.db"),
		TimeZone:       env("BOT_TIMEZONE", "Asia/Tashkent"),
		ReportTime:     "09:00",
		MetricsAddr:    env("METRICS_ADDR", ""),
		LogLevel:       env("LOG_LEVEL", "info"),
		LogEncoding:    env("LOG_ENCODING", "json"),
		XPDailyCap:     30,
		ScanInterval:   time.Minute,
		MaxPendingTask: 10,
	}

	// An explicitly empty REPORT_TIME disables the daily report.
	if raw, ok := os.LookupEnv("REPORT_TIME"); ok {
		cfg.ReportTime = strings.TrimSpace(raw)
	}

	if raw := env("XP_DAILY_CAP", ""); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return cfg, fmt.Errorf("XP_DAILY_CAP must be a non-negative integer, got %q", raw)
		}
		cfg.XPDailyCap = n
	}

	if raw := env("REMINDER_SCAN_INTERVAL", ""); raw != "" {
		d, err := parseInterval(raw)
		if err != nil {
			return cfg, fmt.Errorf("REMINDER_SCAN_INTERVAL: %w", err)
		}
		cfg.ScanInterval = d
	}

	if raw := env("MAX_PENDING_TASKS", ""); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("MAX_PENDING_TASKS must be a positive integer, got %q", raw)
		}
		cfg.MaxPendingTask = n
	}

	return cfg, nil
}

// RequireToken fails when the bot token is missing.
func (c Config) RequireToken() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	return nil
}

func env(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

// MaxScanInterval is the width of each reminder window. A slower scan could
// step over a window and never send that reminder.
const MaxScanInterval = time.Minute

// parseInterval accepts Go durations ("45s", "1m") or a bare number of seconds.
func parseInterval(raw string) (time.Duration, error) {
	if secs, err := strconv.Atoi(raw); err == nil {
		raw = strconv.Itoa(secs) + "s"
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < time.Second {
		return 0, fmt.Errorf("interval %s is too short", d)
	}
	if d > MaxScanInterval {
		return 0, fmt.Errorf("interval %s is wider than the %s reminder window", d, MaxScanInterval)
	}
	return d, nil
}
