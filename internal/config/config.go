// Package config provides configuration management for the trade journal.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	jerrors "trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/metrics"
	"trade-journal/internal/models"
	"trade-journal/internal/risk"
)

// FileName is the config file name inside the config directory.
const FileName = "config.toml"

// Config holds all application configuration.
type Config struct {
	Journal JournalConfig     `mapstructure:"journal"`
	Fees    FeesConfig        `mapstructure:"fees"`
	Risk    risk.Settings     `mapstructure:"risk"`
	Goals   risk.Goals        `mapstructure:"goals"`
	Metrics MetricsConfig     `mapstructure:"metrics"`
	Monitor MonitorConfig     `mapstructure:"monitor"`
	API     APIConfig         `mapstructure:"api"`
	UI      UIConfig          `mapstructure:"ui"`
	Log     logging.LogConfig `mapstructure:"log"`

	// Dir is the directory the config was loaded from.
	Dir string `mapstructure:"-"`
}

// JournalConfig holds storage and workflow settings.
type JournalConfig struct {
	DBPath     string        `mapstructure:"db_path"`
	UndoWindow time.Duration `mapstructure:"undo_window"`
}

// FeesConfig holds the default fee schedule and per-exchange overrides.
type FeesConfig struct {
	Maker     float64                     `mapstructure:"maker"`
	Taker     float64                     `mapstructure:"taker"`
	Type      models.FeeType              `mapstructure:"type"`
	Exchanges map[string]models.FeeConfig `mapstructure:"exchanges"`
}

// MetricsConfig holds the analytics sentinels.
type MetricsConfig struct {
	DrawdownFallbackBase float64 `mapstructure:"drawdown_fallback_base"`
	ProfitFactorCap      float64 `mapstructure:"profit_factor_cap"`
}

// MonitorConfig holds live position polling settings.
type MonitorConfig struct {
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	PriceBaseURL      string        `mapstructure:"price_base_url"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

// APIConfig holds HTTP API settings.
type APIConfig struct {
	Addr string `mapstructure:"addr"`
}

// UIConfig holds CLI output settings.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/trade-journal"
	}
	return filepath.Join(home, ".config", "trade-journal")
}

// Path returns the config file path inside configDir.
func Path(configDir string) string {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return filepath.Join(configDir, FileName)
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing config
// file is created from the template and then loaded.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading %s: %w", FileName, err)
		}
		if err := WriteTemplate(configDir); err != nil {
			return nil, err
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("loading %s: %w", FileName, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", FileName, err)
	}
	cfg.Dir = configDir

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	if cfg.Journal.DBPath == "" {
		cfg.Journal.DBPath = filepath.Join(configDir, "journal.db")
	}
	if cfg.Log.FilePath == "" {
		cfg.Log.FilePath = filepath.Join(configDir, "logs", "journal.log")
	}
	cfg.Journal.DBPath = expandHome(cfg.Journal.DBPath)
	cfg.Log.FilePath = expandHome(cfg.Log.FilePath)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration without touching the disk.
func Default() *Config {
	v := viper.New()
	setDefaults(v, DefaultConfigDir())
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	cfg.Dir = DefaultConfigDir()
	return cfg
}

func setDefaults(v *viper.Viper, configDir string) {
	logDefaults := logging.DefaultLogConfig()

	v.SetDefault("journal.db_path", filepath.Join(configDir, "journal.db"))
	v.SetDefault("journal.undo_window", "5s")

	v.SetDefault("fees.maker", 0.02)
	v.SetDefault("fees.taker", 0.05)
	v.SetDefault("fees.type", string(models.FeeTypePercentage))

	v.SetDefault("risk.max_trades_day", 0)
	v.SetDefault("risk.daily_dd_percent", 0.0)
	v.SetDefault("risk.monthly_dd_percent", 0.0)
	v.SetDefault("risk.max_risk_per_trade_percent", 0.0)

	v.SetDefault("metrics.drawdown_fallback_base", metrics.DefaultDrawdownBase)
	v.SetDefault("metrics.profit_factor_cap", metrics.DefaultProfitFactorCap)

	v.SetDefault("monitor.poll_interval", "5s")
	v.SetDefault("monitor.price_base_url", "https://api.binance.com")
	v.SetDefault("monitor.requests_per_second", 5.0)

	v.SetDefault("api.addr", "127.0.0.1:8080")

	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "2006-01-02 15:04")

	v.SetDefault("log.level", logDefaults.Level)
	v.SetDefault("log.console", logDefaults.Console)
	v.SetDefault("log.file", logDefaults.File)
	v.SetDefault("log.file_path", filepath.Join(configDir, "logs", "journal.log"))
	v.SetDefault("log.max_size", logDefaults.MaxSize)
	v.SetDefault("log.max_backups", logDefaults.MaxBackups)
	v.SetDefault("log.max_age", logDefaults.MaxAge)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("JOURNAL_DB_PATH"); v != "" {
		cfg.Journal.DBPath = v
	}
	if v := os.Getenv("JOURNAL_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("JOURNAL_API_ADDR"); v != "" {
		cfg.API.Addr = v
	}
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validateFee("fees", c.DefaultFee()); err != nil {
		return err
	}
	for name, fc := range c.Fees.Exchanges {
		if err := validateFee("fees.exchanges."+name, fc); err != nil {
			return err
		}
	}

	percents := map[string]float64{
		"risk.daily_dd_percent":           c.Risk.DailyDDPercent,
		"risk.monthly_dd_percent":         c.Risk.MonthlyDDPercent,
		"risk.max_risk_per_trade_percent": c.Risk.MaxRiskPerTradePercent,
	}
	for key, p := range percents {
		if p < 0 || p > 100 {
			return fmt.Errorf("%w: %s must be between 0 and 100", jerrors.ErrConfigInvalid, key)
		}
	}
	if c.Risk.MaxTradesDay < 0 {
		return fmt.Errorf("%w: risk.max_trades_day must be non-negative", jerrors.ErrConfigInvalid)
	}
	if c.Goals.DailyPercent < 0 || c.Goals.WeeklyPercent < 0 || c.Goals.MonthlyPercent < 0 {
		return fmt.Errorf("%w: goals must be non-negative", jerrors.ErrConfigInvalid)
	}

	if c.Journal.UndoWindow <= 0 {
		return fmt.Errorf("%w: journal.undo_window must be positive", jerrors.ErrConfigInvalid)
	}
	if c.Monitor.PollInterval <= 0 {
		return fmt.Errorf("%w: monitor.poll_interval must be positive", jerrors.ErrConfigInvalid)
	}
	if c.Metrics.DrawdownFallbackBase <= 0 || c.Metrics.ProfitFactorCap <= 0 {
		return fmt.Errorf("%w: metrics sentinels must be positive", jerrors.ErrConfigInvalid)
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: invalid log level: %s", jerrors.ErrConfigInvalid, c.Log.Level)
	}
	return nil
}

func validateFee(key string, fc models.FeeConfig) error {
	switch fc.Type {
	case models.FeeTypePercentage, models.FeeTypeFixed:
	default:
		return fmt.Errorf("%w: %s.type must be PERCENTAGE or FIXED, got %q", jerrors.ErrConfigInvalid, key, fc.Type)
	}
	if fc.Maker < 0 || fc.Taker < 0 {
		return fmt.Errorf("%w: %s rates must be non-negative", jerrors.ErrConfigInvalid, key)
	}
	return nil
}

// DefaultFee returns the user-level fee schedule.
func (c *Config) DefaultFee() models.FeeConfig {
	return models.FeeConfig{
		Maker: c.Fees.Maker,
		Taker: c.Fees.Taker,
		Type:  models.FeeType(strings.ToUpper(string(c.Fees.Type))),
	}
}

// MetricsConfig builds the analytics engine configuration.
func (c *Config) MetricsConfig() metrics.Config {
	exchanges := make(map[string]models.FeeConfig, len(c.Fees.Exchanges))
	for name, fc := range c.Fees.Exchanges {
		fc.Type = models.FeeType(strings.ToUpper(string(fc.Type)))
		exchanges[name] = fc
	}
	return metrics.Config{
		FeeDefault:           c.DefaultFee(),
		ExchangeFees:         exchanges,
		DrawdownFallbackBase: c.Metrics.DrawdownFallbackBase,
		ProfitFactorCap:      c.Metrics.ProfitFactorCap,
	}
}
