// Package sizing computes position size, fees, liquidation and forex pip
// figures at trade-entry time, and evaluates exit triggers against a price.
package sizing

import (
	"fmt"
	"math"
	"strings"

	jerrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

// MaintenanceBuffer is the maintenance margin applied to liquidation
// estimates. Leverage is capped below 1/MaintenanceBuffer.
const MaintenanceBuffer = 1.0 / models.MaxLeverage

// Lot is the number of base units in one standard forex lot.
const Lot = 100000

// Mode selects how capital is determined.
type Mode string

const (
	// ModeMargin takes capital as entered.
	ModeMargin Mode = "MARGIN"
	// ModeRisk derives capital from a percentage of the portfolio balance.
	ModeRisk Mode = "RISK"
)

// Input is what the trader enters on the sizing form.
type Input struct {
	Symbol           string
	Side             models.Side
	EntryPrice       float64
	Capital          float64
	Leverage         float64
	StopLoss         *float64
	TakeProfit       *float64
	Fees             models.FeeConfig
	Mode             Mode
	RiskPercent      float64
	PortfolioBalance float64
}

// ForexInfo holds pip figures for currency pairs.
type ForexInfo struct {
	PipSize  float64 `json:"pipSize"`
	Pips     float64 `json:"pips"`
	Lots     float64 `json:"lots"`
	PipValue float64 `json:"pipValue"`
}

// Result is the calculator output persisted into a new trade.
type Result struct {
	Capital          float64    `json:"capital"`
	PositionSize     float64    `json:"positionSize"`
	Quantity         float64    `json:"quantity"`
	EstFees          float64    `json:"estFees"`
	LiquidationPrice float64    `json:"liquidationPrice"`
	RiskReward       float64    `json:"riskReward"`
	Forex            *ForexInfo `json:"forex,omitempty"`
}

// Validate checks the numeric inputs.
func (in Input) Validate() error {
	if in.EntryPrice <= 0 {
		return jerrors.NewValidationError("entryPrice", in.EntryPrice, "must be positive")
	}
	if in.Leverage < 1 || in.Leverage >= models.MaxLeverage {
		return jerrors.NewValidationError("leverage", in.Leverage, fmt.Sprintf("must be at least 1 and below %d", models.MaxLeverage))
	}
	switch in.Mode {
	case "", ModeMargin:
		if in.Capital < 0 {
			return jerrors.NewValidationError("capital", in.Capital, "must not be negative")
		}
	case ModeRisk:
		if in.RiskPercent < 0 || in.RiskPercent > 100 {
			return jerrors.NewValidationError("riskPercent", in.RiskPercent, "must be between 0 and 100")
		}
	default:
		return jerrors.NewValidationError("mode", in.Mode, "must be MARGIN or RISK")
	}
	return nil
}

// Calculate sizes a position. In risk mode capital is back-filled from the
// margin allocation.
func Calculate(in Input) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, err
	}

	capital := in.Capital
	if in.Mode == ModeRisk {
		capital = in.PortfolioBalance * in.RiskPercent / 100
	}

	positionSize := capital * in.Leverage
	res := Result{
		Capital:          capital,
		PositionSize:     positionSize,
		Quantity:         positionSize / in.EntryPrice,
		EstFees:          EstimateFees(positionSize, in.Fees),
		LiquidationPrice: LiquidationPrice(in.Side, in.EntryPrice, in.Leverage),
		RiskReward:       RiskReward(in.EntryPrice, in.StopLoss, in.TakeProfit),
	}

	if IsForex(in.Symbol) {
		pip := PipSize(in.Symbol)
		fx := &ForexInfo{
			PipSize:  pip,
			Lots:     res.Quantity / Lot,
			PipValue: res.Quantity * pip,
		}
		if in.StopLoss != nil {
			fx.Pips = math.Abs(in.EntryPrice-*in.StopLoss) / pip
		}
		res.Forex = fx
	}
	return res, nil
}

// EstimateFees is the round-trip fee on a position, both legs at the taker rate.
func EstimateFees(positionSize float64, fc models.FeeConfig) float64 {
	if fc.Type == models.FeeTypeFixed {
		return fc.Taker * 2
	}
	return positionSize * (fc.Taker / 100) * 2
}

// LiquidationPrice estimates where an isolated position is liquidated.
// The result is never negative.
func LiquidationPrice(side models.Side, entry, leverage float64) float64 {
	if leverage < 1 {
		leverage = 1
	}
	var liq float64
	if side == models.SideShort {
		liq = entry * (1 + 1/leverage - MaintenanceBuffer)
	} else {
		liq = entry * (1 - 1/leverage + MaintenanceBuffer)
	}
	return math.Max(0, liq)
}

// IsForex reports whether symbol looks like a currency pair: six letters, or
// anything quoted against JPY.
func IsForex(symbol string) bool {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if strings.Contains(s, "JPY") {
		return true
	}
	if len(s) != 6 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// PipSize is 0.01 for JPY pairs and 0.0001 otherwise.
func PipSize(symbol string) float64 {
	if strings.Contains(strings.ToUpper(symbol), "JPY") {
		return 0.01
	}
	return 0.0001
}

// RiskReward is |target-entry| / |entry-stop|, or 0 when either level is
// missing or the risk is zero.
func RiskReward(entry float64, stop, target *float64) float64 {
	if stop == nil || target == nil {
		return 0
	}
	risk := math.Abs(entry - *stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(*target-entry) / risk
}
