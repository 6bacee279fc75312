package metrics

import (
	"math"
	"time"

	"trade-journal/internal/models"
)

// SeriesPoint is the running state of the statistics after one trade.
type SeriesPoint struct {
	Index         int       `json:"index"`
	TradeID       string    `json:"tradeId"`
	Time          time.Time `json:"time"`
	CumulativePnL float64   `json:"cumulativePnl"`
	WinRate       float64   `json:"winRate"`
	ProfitFactor  float64   `json:"profitFactor"`
	AvgWin        float64   `json:"avgWin"`
	AvgLoss       float64   `json:"avgLoss"`
}

// RunningSeries recomputes cumulative pnl, win rate, profit factor and
// average win/loss incrementally after each trade. Trades must already be
// closed and in chronological order.
func RunningSeries(sorted []models.Trade, pfCap float64) []SeriesPoint {
	out := make([]SeriesPoint, 0, len(sorted))
	var cum, grossWin, grossLoss float64
	var wins, losses int

	for i := range sorted {
		t := &sorted[i]
		pnl := t.PnLValue()
		cum += pnl
		if IsWin(t) {
			wins++
			grossWin += pnl
		} else {
			losses++
			grossLoss += math.Abs(pnl)
		}

		n := float64(i + 1)
		out = append(out, SeriesPoint{
			Index:         i,
			TradeID:       t.ID,
			Time:          t.SortTime(),
			CumulativePnL: cum,
			WinRate:       SafeDivide(float64(wins), n, 0) * 100,
			ProfitFactor:  ProfitFactor(grossWin, grossLoss, pfCap),
			AvgWin:        SafeDivide(grossWin, float64(wins), 0),
			AvgLoss:       AvgLoss(grossLoss, losses),
		})
	}
	return out
}
