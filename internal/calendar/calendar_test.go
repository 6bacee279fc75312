package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-journal/internal/models"
)

func closed(symbol string, side models.Side, strategy string, pnl float64, exit time.Time) models.Trade {
	return models.Trade{
		ID: symbol + exit.String(), Symbol: symbol, Side: side, Strategy: strategy,
		EntryPrice: 1, Leverage: 1, EntryDate: exit.Add(-time.Hour),
		Status: models.StatusClosed, ExitPrice: models.Float(1), ExitDate: &exit, PnL: models.Float(pnl),
	}
}

func fixture() []models.Trade {
	mon := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC) // Monday
	open := models.Trade{ID: "open", Symbol: "BTCUSDT", Status: models.StatusOpen, EntryDate: mon}
	return []models.Trade{
		closed("BTCUSDT", models.SideLong, "Breakout", 50, mon),
		closed("BTCUSDT", models.SideShort, "Breakout", -20, mon.Add(2*time.Hour)),
		closed("ETHUSDT", models.SideLong, "", 100, mon.AddDate(0, 0, 1)),
		closed("SOLUSDT", models.SideShort, "Fade", -5, mon.AddDate(0, 0, 2)),
		closed("SOLUSDT", models.SideLong, "Fade", 0, time.Date(2024, 8, 3, 9, 0, 0, 0, time.UTC)),
		open,
	}
}

func TestGroupBySymbol(t *testing.T) {
	got := Group(fixture(), BySymbol)

	require.Len(t, got, 3)
	assert.Equal(t, Bucket{Key: "ETHUSDT", PnL: 100, WinRate: 100, Count: 1, Wins: 1}, got[0])
	assert.Equal(t, Bucket{Key: "BTCUSDT", PnL: 30, WinRate: 50, Count: 2, Wins: 1}, got[1])
	assert.Equal(t, Bucket{Key: "SOLUSDT", PnL: -5, WinRate: 0, Count: 2, Wins: 0}, got[2])
}

func TestGroupKeys(t *testing.T) {
	keys := func(bs []Bucket) []string {
		out := make([]string, len(bs))
		for i, b := range bs {
			out[i] = b.Key
		}
		return out
	}

	assert.Equal(t, []string{"Tuesday", "Monday", "Saturday", "Wednesday"}, keys(Group(fixture(), ByWeekday)))
	assert.Equal(t, []string{"LONG", "SHORT"}, keys(Group(fixture(), BySide)))
	assert.Equal(t, []string{"None", "Breakout", "Fade"}, keys(Group(fixture(), ByStrategy)))
	assert.Equal(t, []string{"2024-07", "2024-08"}, keys(Group(fixture(), ByMonth)))
	assert.Equal(t, []string{"9", "11"}, keys(Group(fixture(), ByHour)))
	assert.Len(t, Group(fixture(), ByDay), 4)
	assert.Empty(t, Group(nil, ByDay))
}

func TestMonthGrid(t *testing.T) {
	g := Month(fixture(), 2024, time.July, time.UTC)

	assert.Equal(t, 1, g.Leading, "July 1st 2024 is a Monday")
	require.Len(t, g.Days, 31)
	assert.Equal(t, DayCell{Day: 1, PnL: 30, Count: 2, WinRate: 50}, g.Days[0])
	assert.Equal(t, DayCell{Day: 2, PnL: 100, Count: 1, WinRate: 100}, g.Days[1])
	assert.Equal(t, DayCell{Day: 31}, g.Days[30])
	assert.Equal(t, 125.0, g.Total)

	for i, c := range g.Days {
		assert.Equal(t, i+1, c.Day)
	}

	feb := Month(nil, 2024, time.February, time.UTC)
	assert.Len(t, feb.Days, 29)
	assert.Equal(t, 4, feb.Leading, "Feb 1st 2024 is a Thursday")
}
