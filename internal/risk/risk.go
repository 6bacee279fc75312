// Package risk derives the daily risk lock and profit goal progress from the
// trade collection. Nothing here is stored; every call recomputes.
package risk

import (
	"fmt"
	"time"

	jerrors "trade-journal/internal/errors"
	"trade-journal/internal/metrics"
	"trade-journal/internal/models"
)

// Settings are the user's risk rules. Zero disables a rule.
type Settings struct {
	MaxTradesDay           int     `mapstructure:"max_trades_day" json:"maxTradesDay"`
	DailyDDPercent         float64 `mapstructure:"daily_dd_percent" json:"dailyDDPercent"`
	MonthlyDDPercent       float64 `mapstructure:"monthly_dd_percent" json:"monthlyDDPercent"`
	MaxRiskPerTradePercent float64 `mapstructure:"max_risk_per_trade_percent" json:"maxRiskPerTradePercent"`
}

// State is the risk picture for the day containing now.
type State struct {
	IsLocked       bool    `json:"isLocked"`
	MaxTrades      int     `json:"maxTrades"`
	TradeCount     int     `json:"tradeCount"`
	DailyDDLimit   float64 `json:"dailyDDLimit"`
	CurrentDD      float64 `json:"currentDD"`
	MonthlyDDLimit float64 `json:"monthlyDDLimit"`
	MonthlyDD      float64 `json:"monthlyDD"`
	LockReason     string  `json:"lockReason,omitempty"`
}

// Evaluate counts today's entries and measures today's and this month's
// realized loss as a percentage of balance. Days and months are taken in
// now's location.
func Evaluate(trades []models.Trade, s Settings, balance float64, now time.Time) State {
	st := State{
		MaxTrades:      s.MaxTradesDay,
		DailyDDLimit:   s.DailyDDPercent,
		MonthlyDDLimit: s.MonthlyDDPercent,
	}

	dayStart := startOfDay(now)

	var dayPnL, monthPnL float64
	for i := range trades {
		t := &trades[i]
		if sameDay(t.EntryDate.In(now.Location()), dayStart) {
			st.TradeCount++
		}
		if !t.IsClosed() {
			continue
		}
		closedAt := t.SortTime().In(now.Location())
		if sameDay(closedAt, dayStart) {
			dayPnL += t.PnLValue()
		}
		if closedAt.Year() == now.Year() && closedAt.Month() == now.Month() {
			monthPnL += t.PnLValue()
		}
	}

	st.CurrentDD = lossPercent(dayPnL, balance)
	st.MonthlyDD = lossPercent(monthPnL, balance)

	switch {
	case s.MaxTradesDay > 0 && st.TradeCount >= s.MaxTradesDay:
		st.IsLocked = true
		st.LockReason = fmt.Sprintf("Max trades per day reached (%d/%d)", st.TradeCount, s.MaxTradesDay)
	case s.DailyDDPercent > 0 && st.CurrentDD >= s.DailyDDPercent:
		st.IsLocked = true
		st.LockReason = fmt.Sprintf("Daily drawdown limit hit (%.2f%% of %.2f%%)", st.CurrentDD, s.DailyDDPercent)
	case s.MonthlyDDPercent > 0 && st.MonthlyDD >= s.MonthlyDDPercent:
		st.IsLocked = true
		st.LockReason = fmt.Sprintf("Monthly drawdown limit hit (%.2f%% of %.2f%%)", st.MonthlyDD, s.MonthlyDDPercent)
	}
	return st
}

// CheckRiskPerTrade refuses a margin allocation above the per-trade limit.
func CheckRiskPerTrade(capital, balance float64, s Settings) error {
	if s.MaxRiskPerTradePercent <= 0 || balance <= 0 {
		return nil
	}
	pct := capital / balance * 100
	if pct > s.MaxRiskPerTradePercent {
		return jerrors.NewValidationError("capital", capital,
			fmt.Sprintf("risks %.2f%% of balance, limit is %.2f%%", pct, s.MaxRiskPerTradePercent))
	}
	return nil
}

// lossPercent is the realized loss as a positive percentage of balance, or 0
// when pnl is not negative.
func lossPercent(pnl, balance float64) float64 {
	if pnl >= 0 || balance <= 0 {
		return 0
	}
	return metrics.SafeDivide(-pnl, balance, 0) * 100
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDay(t, dayStart time.Time) bool {
	y1, m1, d1 := t.Date()
	y2, m2, d2 := dayStart.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
