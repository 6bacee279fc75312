package sizing

import "trade-journal/internal/models"

// ExitReason names the trigger that force-closes a position.
type ExitReason string

const (
	ExitNone        ExitReason = ""
	ExitLiquidation ExitReason = "Liquidation"
	ExitStopLoss    ExitReason = "Stop Loss"
	ExitTakeProfit  ExitReason = "Take Profit"
)

// CheckExit compares a live price with the liquidation, stop and target
// levels of an open trade. It holds no state, so repeated calls with the same
// inputs give the same answer. Liquidation wins over the stop, and the stop
// over the target.
func CheckExit(t *models.Trade, price float64) (ExitReason, bool) {
	if t.IsClosed() || price <= 0 {
		return ExitNone, false
	}

	liq := LiquidationPrice(t.Side, t.EntryPrice, t.Leverage)
	short := t.Side == models.SideShort

	// A clamped zero liquidation price means the position cannot be liquidated.
	if liq > 0 && crossed(price, liq, short) {
		return ExitLiquidation, true
	}
	if t.StopLoss != nil && *t.StopLoss > 0 && crossed(price, *t.StopLoss, short) {
		return ExitStopLoss, true
	}
	if t.TakeProfit != nil && *t.TakeProfit > 0 && reached(price, *t.TakeProfit, short) {
		return ExitTakeProfit, true
	}
	return ExitNone, false
}

// crossed reports an adverse move through level.
func crossed(price, level float64, short bool) bool {
	if short {
		return price >= level
	}
	return price <= level
}

// reached reports a favourable move through level.
func reached(price, level float64, short bool) bool {
	if short {
		return price <= level
	}
	return price >= level
}
