package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Trade Journal Configuration

[journal]
# SQLite database file. Empty means journal.db next to this file.
db_path = ""
# How long a bulk delete can be undone
undo_window = "5s"

[fees]
# Default fee schedule: PERCENTAGE (rates in percent of notional) or FIXED
type = "PERCENTAGE"
maker = 0.02
taker = 0.05

# Per-exchange overrides
# [fees.exchanges.bybit]
# type = "PERCENTAGE"
# maker = 0.02
# taker = 0.055

[risk]
# Maximum LIVE trades per day (0 disables)
max_trades_day = 0
# Daily realized loss limit as percent of balance (0 disables)
daily_dd_percent = 0.0
# Monthly realized loss limit as percent of balance (0 disables)
monthly_dd_percent = 0.0
# Maximum margin per trade as percent of balance (0 disables)
max_risk_per_trade_percent = 0.0

[goals]
# Profit targets as percent of balance
daily_percent = 0.0
weekly_percent = 0.0
monthly_percent = 0.0

[metrics]
# Drawdown percent base used when equity never rises above zero
drawdown_fallback_base = 10000.0
# Profit factor reported when there are wins and no losses
profit_factor_cap = 999.0

[monitor]
# Price polling interval per open position
poll_interval = "5s"
price_base_url = "https://api.binance.com"
requests_per_second = 5.0

[api]
addr = "127.0.0.1:8080"

[ui]
# Enable colored output
color_enabled = true
date_format = "2006-01-02 15:04"

[log]
# debug, info, warn, error
level = "info"
console = true
file = false
file_path = ""
max_size = 50
max_backups = 5
max_age = 30
`

// WriteTemplate writes the default config file into configDir. An existing
// file is left alone.
func WriteTemplate(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, FileName)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}
