package risk

import (
	"time"

	"trade-journal/internal/metrics"
	"trade-journal/internal/models"
)

// Goals are profit targets as a percentage of balance.
type Goals struct {
	DailyPercent   float64 `mapstructure:"daily_percent" json:"dailyPercent"`
	WeeklyPercent  float64 `mapstructure:"weekly_percent" json:"weeklyPercent"`
	MonthlyPercent float64 `mapstructure:"monthly_percent" json:"monthlyPercent"`
}

// Period names a goal horizon.
type Period string

const (
	PeriodDay   Period = "DAY"
	PeriodWeek  Period = "WEEK"
	PeriodMonth Period = "MONTH"
)

// GoalProgress is the realized result for one period against its target.
type GoalProgress struct {
	Period   Period    `json:"period"`
	Since    time.Time `json:"since"`
	PnL      float64   `json:"pnl"`
	Percent  float64   `json:"percent"`
	Target   float64   `json:"target"`
	Achieved bool      `json:"achieved"`
}

// Progress reports realized pnl for today, this week (from Monday) and this
// month. A zero target is never achieved.
func Progress(trades []models.Trade, balance float64, g Goals, now time.Time) []GoalProgress {
	day := startOfDay(now)
	week := day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	out := []GoalProgress{
		{Period: PeriodDay, Since: day, Target: g.DailyPercent},
		{Period: PeriodWeek, Since: week, Target: g.WeeklyPercent},
		{Period: PeriodMonth, Since: month, Target: g.MonthlyPercent},
	}

	for i := range trades {
		t := &trades[i]
		if !t.IsClosed() {
			continue
		}
		at := t.SortTime()
		if at.After(now) {
			continue
		}
		for j := range out {
			if !at.Before(out[j].Since) {
				out[j].PnL += t.PnLValue()
			}
		}
	}

	for j := range out {
		p := &out[j]
		if balance > 0 {
			p.Percent = metrics.SafeDivide(p.PnL, balance, 0) * 100
		}
		p.Achieved = p.Target > 0 && p.Percent >= p.Target
	}
	return out
}
