// Package calendar groups closed trades into buckets for breakdown tables
// and monthly calendar grids.
package calendar

import (
	"sort"
	"strconv"
	"time"

	"trade-journal/internal/models"
)

// Bucket is the reduction of one group of closed trades.
type Bucket struct {
	Key     string  `json:"key"`
	PnL     float64 `json:"pnl"`
	WinRate float64 `json:"winRate"`
	Count   int     `json:"count"`
	Wins    int     `json:"wins"`
}

// KeyFunc assigns a closed trade to a group.
type KeyFunc func(t *models.Trade) string

// Key functions read the exit date, falling back to the entry date, in the
// trade's own location.
var (
	ByDay     KeyFunc = func(t *models.Trade) string { return t.SortTime().Format("2006-01-02") }
	ByMonth   KeyFunc = func(t *models.Trade) string { return t.SortTime().Format("2006-01") }
	ByWeekday KeyFunc = func(t *models.Trade) string { return t.SortTime().Weekday().String() }
	ByHour    KeyFunc = func(t *models.Trade) string { return strconv.Itoa(t.SortTime().Hour()) }
	BySymbol  KeyFunc = func(t *models.Trade) string { return t.Symbol }
	BySide    KeyFunc = func(t *models.Trade) string { return string(t.Side) }

	// ByStrategy groups unnamed strategies under "None".
	ByStrategy KeyFunc = func(t *models.Trade) string {
		if t.Strategy == "" {
			return "None"
		}
		return t.Strategy
	}
)

// KeyFuncs indexes the key functions by the names the CLI and API accept.
var KeyFuncs = map[string]KeyFunc{
	"day":      ByDay,
	"month":    ByMonth,
	"weekday":  ByWeekday,
	"hour":     ByHour,
	"symbol":   BySymbol,
	"strategy": ByStrategy,
	"side":     BySide,
}

// Group reduces closed trades per key, sorted by pnl descending. Ties keep
// first-seen order.
func Group(trades []models.Trade, key KeyFunc) []Bucket {
	index := map[string]int{}
	var out []Bucket

	for i := range trades {
		t := &trades[i]
		if !t.IsClosed() {
			continue
		}
		k := key(t)
		pos, ok := index[k]
		if !ok {
			pos = len(out)
			index[k] = pos
			out = append(out, Bucket{Key: k})
		}
		b := &out[pos]
		b.Count++
		b.PnL += t.PnLValue()
		if t.PnLValue() > 0 {
			b.Wins++
		}
	}

	for i := range out {
		out[i].WinRate = float64(out[i].Wins) / float64(out[i].Count) * 100
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PnL > out[j].PnL })
	return out
}

// DayCell is one day of a month grid.
type DayCell struct {
	Day     int     `json:"day"`
	PnL     float64 `json:"pnl"`
	Count   int     `json:"count"`
	WinRate float64 `json:"winRate"`
}

// MonthGrid is a calendar month. Leading is the number of empty cells before
// day 1 so that columns line up Sunday through Saturday.
type MonthGrid struct {
	Year    int        `json:"year"`
	Month   time.Month `json:"month"`
	Leading int        `json:"leading"`
	Days    []DayCell  `json:"days"`
	Total   float64    `json:"total"`
}

// Month buckets closed trades of the given month by day of month in loc.
func Month(trades []models.Trade, year int, month time.Month, loc *time.Location) MonthGrid {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	n := first.AddDate(0, 1, -1).Day()

	g := MonthGrid{
		Year:    year,
		Month:   month,
		Leading: int(first.Weekday()),
		Days:    make([]DayCell, n),
	}
	wins := make([]int, n)
	for d := range g.Days {
		g.Days[d].Day = d + 1
	}

	for i := range trades {
		t := &trades[i]
		if !t.IsClosed() {
			continue
		}
		when := t.SortTime().In(loc)
		if when.Year() != year || when.Month() != month {
			continue
		}
		c := &g.Days[when.Day()-1]
		c.Count++
		c.PnL += t.PnLValue()
		g.Total += t.PnLValue()
		if t.PnLValue() > 0 {
			wins[when.Day()-1]++
		}
	}

	for d := range g.Days {
		if g.Days[d].Count > 0 {
			g.Days[d].WinRate = float64(wins[d]) / float64(g.Days[d].Count) * 100
		}
	}
	return g
}
