package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jerrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

func TestLoadCreatesTemplate(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, FileName))
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Dir)
	assert.Equal(t, filepath.Join(dir, "journal.db"), cfg.Journal.DBPath)
	assert.Equal(t, 5*time.Second, cfg.Journal.UndoWindow)
	assert.Equal(t, 5*time.Second, cfg.Monitor.PollInterval)
	assert.Equal(t, 10000.0, cfg.Metrics.DrawdownFallbackBase)
	assert.Equal(t, 999.0, cfg.Metrics.ProfitFactorCap)
	assert.Equal(t, "127.0.0.1:8080", cfg.API.Addr)
	assert.Equal(t, models.FeeTypePercentage, cfg.DefaultFee().Type)
	assert.Equal(t, filepath.Join(dir, "logs", "journal.log"), cfg.Log.FilePath)
}

func TestLoadReadsSections(t *testing.T) {
	dir := t.TempDir()
	body := `
[journal]
undo_window = "10s"

[fees]
type = "fixed"
maker = 1.0
taker = 1.5

[fees.exchanges.Bybit]
type = "PERCENTAGE"
maker = 0.02
taker = 0.055

[risk]
max_trades_day = 3
daily_dd_percent = 2.5

[goals]
weekly_percent = 4.0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Journal.UndoWindow)
	assert.Equal(t, 3, cfg.Risk.MaxTradesDay)
	assert.Equal(t, 2.5, cfg.Risk.DailyDDPercent)
	assert.Equal(t, 4.0, cfg.Goals.WeeklyPercent)

	mc := cfg.MetricsConfig()
	assert.Equal(t, models.FeeConfig{Maker: 1, Taker: 1.5, Type: models.FeeTypeFixed}, mc.FeeDefault)
	require.Len(t, mc.ExchangeFees, 1)
	for _, fc := range mc.ExchangeFees {
		assert.Equal(t, 0.055, fc.Taker)
	}
	// Defaults still apply to sections the file leaves out.
	assert.Equal(t, 5*time.Second, cfg.Monitor.PollInterval)
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("JOURNAL_DB_PATH", "/tmp/other.db")
	t.Setenv("JOURNAL_LOG_LEVEL", "debug")
	t.Setenv("JOURNAL_API_ADDR", ":9999")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/other.db", cfg.Journal.DBPath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":9999", cfg.API.Addr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad fee type", func(c *Config) { c.Fees.Type = "TIERED" }},
		{"negative taker", func(c *Config) { c.Fees.Taker = -1 }},
		{"bad exchange fee", func(c *Config) {
			c.Fees.Exchanges = map[string]models.FeeConfig{"x": {Type: "NOPE"}}
		}},
		{"risk percent above 100", func(c *Config) { c.Risk.DailyDDPercent = 150 }},
		{"negative max trades", func(c *Config) { c.Risk.MaxTradesDay = -1 }},
		{"zero undo window", func(c *Config) { c.Journal.UndoWindow = 0 }},
		{"zero poll interval", func(c *Config) { c.Monitor.PollInterval = 0 }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
	}

	require.NoError(t, Default().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			assert.ErrorIs(t, c.Validate(), jerrors.ErrConfigInvalid)
		})
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("[risk]\ndaily_dd_percent = 500\n"), 0644))

	_, err := Load(dir)
	assert.ErrorIs(t, err, jerrors.ErrConfigInvalid)
}
