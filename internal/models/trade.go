package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	jerrors "trade-journal/internal/errors"
)

// Side represents the direction of a trade.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Status represents the lifecycle state of a trade.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// TradeType tags where a trade came from.
type TradeType string

const (
	TradeTypeLive TradeType = "LIVE" // entered while the position was live
	TradeTypePast TradeType = "PAST" // back-filled or imported
	TradeTypeData TradeType = "DATA" // sample data
)

// MaxLeverage is the exclusive leverage ceiling. At 200x the 0.5%
// maintenance margin consumes the whole margin and the liquidation estimate
// reaches the entry price.
const MaxLeverage = 200

// pnlPlaces is the precision PnL values are rounded to.
const pnlPlaces = 8

// Trade represents a logged trade.
type Trade struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	EntryPrice float64   `json:"entryPrice"`
	Quantity   float64   `json:"quantity"`
	Capital    float64   `json:"capital"`
	Leverage   float64   `json:"leverage"`
	EntryDate  time.Time `json:"entryDate"`
	Status     Status    `json:"status"`
	Exchange   string    `json:"exchange"`
	TradeType  TradeType `json:"tradeType"`

	// Closed-only fields.
	ExitPrice     *float64   `json:"exitPrice,omitempty"`
	ExitDate      *time.Time `json:"exitDate,omitempty"`
	PnL           *float64   `json:"pnl,omitempty"`
	PnLPercentage *float64   `json:"pnlPercentage,omitempty"`

	Strategy       string   `json:"strategy,omitempty"`
	StrategyID     string   `json:"strategyId,omitempty"`
	StopLoss       *float64 `json:"stopLoss,omitempty"`
	TakeProfit     *float64 `json:"takeProfit,omitempty"`
	Notes          string   `json:"notes,omitempty"`
	EntryReasons   []string `json:"entryReasons,omitempty"`
	ExitReasons    []string `json:"exitReasons,omitempty"`
	MentalState    []string `json:"mentalState,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Setups         []string `json:"setups,omitempty"`
	EntryChecklist []string `json:"entryChecklist,omitempty"`
	ExitChecklist  []string `json:"exitChecklist,omitempty"`
	ExitQuality    int      `json:"exitQuality,omitempty"` // 1-5, 0 when unrated
	RiskReward     *float64 `json:"riskReward,omitempty"`
	Fees           *float64 `json:"fees,omitempty"`
	AccountID      string   `json:"accountId,omitempty"`
}

// IsClosed reports whether the trade has been closed.
func (t *Trade) IsClosed() bool {
	return t.Status == StatusClosed
}

// PnLValue returns the realized PnL, or 0 when none is recorded.
func (t *Trade) PnLValue() float64 {
	if t.PnL == nil {
		return 0
	}
	return *t.PnL
}

// PnLPercentValue returns the realized PnL percentage, or 0 when none is recorded.
func (t *Trade) PnLPercentValue() float64 {
	if t.PnLPercentage == nil {
		return 0
	}
	return *t.PnLPercentage
}

// ExitPriceValue returns the exit price, or 0 for open trades.
func (t *Trade) ExitPriceValue() float64 {
	if t.ExitPrice == nil {
		return 0
	}
	return *t.ExitPrice
}

// FeesValue returns the recorded fees, or 0.
func (t *Trade) FeesValue() float64 {
	if t.Fees == nil {
		return 0
	}
	return *t.Fees
}

// SortTime is the instant a trade is ordered by in sequential analytics:
// the exit date when known, otherwise the entry date.
func (t *Trade) SortTime() time.Time {
	if t.ExitDate != nil {
		return *t.ExitDate
	}
	return t.EntryDate
}

// Validate checks the trade invariants.
func (t *Trade) Validate() error {
	if t.ID == "" {
		return jerrors.NewValidationError("id", t.ID, "must not be empty")
	}
	if strings.TrimSpace(t.Symbol) == "" {
		return jerrors.NewValidationError("symbol", t.Symbol, "must not be empty")
	}
	if t.Side != SideLong && t.Side != SideShort {
		return jerrors.NewValidationError("side", t.Side, "must be LONG or SHORT")
	}
	if t.Status != StatusOpen && t.Status != StatusClosed {
		return jerrors.NewValidationError("status", t.Status, "must be OPEN or CLOSED")
	}
	switch t.TradeType {
	case TradeTypeLive, TradeTypePast, TradeTypeData:
	default:
		return jerrors.NewValidationError("tradeType", t.TradeType, "must be LIVE, PAST or DATA")
	}
	if t.EntryPrice <= 0 {
		return jerrors.NewValidationError("entryPrice", t.EntryPrice, "must be positive")
	}
	if t.Quantity < 0 {
		return jerrors.NewValidationError("quantity", t.Quantity, "must not be negative")
	}
	if t.Leverage < 1 || t.Leverage >= MaxLeverage {
		return jerrors.NewValidationError("leverage", t.Leverage, fmt.Sprintf("must be at least 1 and below %d", MaxLeverage))
	}
	if t.ExitQuality < 0 || t.ExitQuality > 5 {
		return jerrors.NewValidationError("exitQuality", t.ExitQuality, "must be between 1 and 5")
	}
	if t.IsClosed() {
		if t.ExitPrice == nil {
			return jerrors.NewValidationError("exitPrice", nil, "required for closed trades")
		}
		if t.ExitDate == nil {
			return jerrors.NewValidationError("exitDate", nil, "required for closed trades")
		}
		if t.PnL == nil {
			return jerrors.NewValidationError("pnl", nil, "required for closed trades")
		}
	}
	return nil
}

// Close fills in the exit fields and derives pnl and pnlPercentage from
// side, entry, exit and quantity. A non-empty reason is appended to the notes.
func (t *Trade) Close(exitPrice float64, exitDate time.Time, reason string) error {
	if t.IsClosed() {
		return fmt.Errorf("%w: %s", jerrors.ErrTradeClosed, t.ID)
	}
	if exitPrice <= 0 {
		return jerrors.ErrMissingExitPrice
	}

	pnl := ComputePnL(t.Side, t.EntryPrice, exitPrice, t.Quantity)
	pct := PnLPercent(pnl, t.Capital)

	t.ExitPrice = &exitPrice
	t.ExitDate = &exitDate
	t.PnL = &pnl
	t.PnLPercentage = &pct
	t.Status = StatusClosed

	if reason != "" {
		note := "Closed by: " + reason
		if t.Notes == "" {
			t.Notes = note
		} else {
			t.Notes = t.Notes + "\n" + note
		}
	}
	return nil
}

// Clone returns a deep copy of the trade.
func (t Trade) Clone() Trade {
	c := t
	c.ExitPrice = cloneFloat(t.ExitPrice)
	c.PnL = cloneFloat(t.PnL)
	c.PnLPercentage = cloneFloat(t.PnLPercentage)
	c.StopLoss = cloneFloat(t.StopLoss)
	c.TakeProfit = cloneFloat(t.TakeProfit)
	c.RiskReward = cloneFloat(t.RiskReward)
	c.Fees = cloneFloat(t.Fees)
	if t.ExitDate != nil {
		d := *t.ExitDate
		c.ExitDate = &d
	}
	c.EntryReasons = cloneStrings(t.EntryReasons)
	c.ExitReasons = cloneStrings(t.ExitReasons)
	c.MentalState = cloneStrings(t.MentalState)
	c.Tags = cloneStrings(t.Tags)
	c.Setups = cloneStrings(t.Setups)
	c.EntryChecklist = cloneStrings(t.EntryChecklist)
	c.ExitChecklist = cloneStrings(t.ExitChecklist)
	return c
}

// ComputePnL returns the signed PnL of a position closed at exit.
// LONG: (exit - entry) * qty, SHORT: (entry - exit) * qty.
func ComputePnL(side Side, entry, exit, qty float64) float64 {
	e := decimal.NewFromFloat(entry)
	x := decimal.NewFromFloat(exit)
	q := decimal.NewFromFloat(qty)

	var move decimal.Decimal
	if side == SideShort {
		move = e.Sub(x)
	} else {
		move = x.Sub(e)
	}
	v, _ := move.Mul(q).Round(pnlPlaces).Float64()
	return v
}

// PnLPercent expresses pnl as a percentage of the allocated capital.
func PnLPercent(pnl, capital float64) float64 {
	if capital <= 0 {
		return 0
	}
	return pnl / capital * 100
}

// Float returns a pointer to v. Handy for optional fields.
func Float(v float64) *float64 {
	return &v
}

// Time returns a pointer to t.
func Time(t time.Time) *time.Time {
	return &t
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// Strategy is a named trading strategy a trade can reference by id.
type Strategy struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
