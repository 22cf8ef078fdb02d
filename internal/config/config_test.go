package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("XP_DAILY_CAP", "")
	t.Setenv("REMINDER_SCAN_INTERVAL", "")
	t.Setenv("MAX_PENDING_TASKS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.XPDailyCap)
	assert.Equal(t, time.Minute, cfg.ScanInterval)
	assert.Equal(t, 10, cfg.MaxPendingTask)
	assert.Error(t, cfg.RequireToken())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", " token ")
	t.Setenv("BOT_TIMEZONE", "Europe/Berlin")
	t.Setenv("XP_DAILY_CAP", "50")
	t.Setenv("REMINDER_SCAN_INTERVAL", "45")
	t.Setenv("REPORT_TIME", "")
	t.Setenv("MAX_PENDING_TASKS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "token", cfg.TelegramToken)
	assert.NoError(t, cfg.RequireToken())
	assert.Equal(t, "Europe/Berlin", cfg.TimeZone)
	assert.Equal(t, 50, cfg.XPDailyCap)
	assert.Equal(t, 45*time.Second, cfg.ScanInterval)
	assert.Empty(t, cfg.ReportTime)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"negative cap", "XP_DAILY_CAP", "-1"},
		{"unparsable interval", "REMINDER_SCAN_INTERVAL", "soon"},
		{"interval wider than window", "REMINDER_SCAN_INTERVAL", "5m"},
		{"zero pending limit", "MAX_PENDING_TASKS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XP_DAILY_CAP", "")
			t.Setenv("REMINDER_SCAN_INTERVAL", "")
			t.Setenv("MAX_PENDING_TASKS", "")
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestParseInterval(t *testing.T) {
	d, err := parseInterval("1m")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)

	d, err = parseInterval("30")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)

	_, err = parseInterval("10ms")
	assert.Error(t, err)

	_, err = parseInterval("61s")
	assert.Error(t, err)
}
