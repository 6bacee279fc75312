package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jerrors "trade-journal/internal/errors"
)

func openTrade(side Side) Trade {
	return Trade{
		ID:         "t1",
		Symbol:     "BTCUSDT",
		Side:       side,
		EntryPrice: 100,
		Quantity:   10,
		Capital:    500,
		Leverage:   2,
		EntryDate:  time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		Status:     StatusOpen,
		Exchange:   "Binance",
		TradeType:  TradeTypeLive,
	}
}

func TestCloseLongTrade(t *testing.T) {
	tr := openTrade(SideLong)
	exit := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, tr.Close(110, exit, ""))

	assert.Equal(t, StatusClosed, tr.Status)
	assert.InDelta(t, 100.0, tr.PnLValue(), 1e-9)
	assert.InDelta(t, 20.0, tr.PnLPercentValue(), 1e-9)
	assert.Equal(t, exit, *tr.ExitDate)
	assert.NoError(t, tr.Validate())
}

func TestCloseShortTrade(t *testing.T) {
	tr := openTrade(SideShort)
	require.NoError(t, tr.Close(110, time.Now(), "Stop Loss"))

	assert.InDelta(t, -100.0, tr.PnLValue(), 1e-9)
	assert.Contains(t, tr.Notes, "Closed by: Stop Loss")
}

func TestCloseRejectsClosedAndMissingExit(t *testing.T) {
	tr := openTrade(SideLong)
	assert.ErrorIs(t, tr.Close(0, time.Now(), ""), jerrors.ErrMissingExitPrice)

	require.NoError(t, tr.Close(105, time.Now(), ""))
	assert.ErrorIs(t, tr.Close(106, time.Now(), ""), jerrors.ErrTradeClosed)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Trade)
		field  string
	}{
		{"missing id", func(t *Trade) { t.ID = "" }, "id"},
		{"bad side", func(t *Trade) { t.Side = "UP" }, "side"},
		{"zero entry", func(t *Trade) { t.EntryPrice = 0 }, "entryPrice"},
		{"negative qty", func(t *Trade) { t.Quantity = -1 }, "quantity"},
		{"low leverage", func(t *Trade) { t.Leverage = 0.5 }, "leverage"},
		{"leverage at ceiling", func(t *Trade) { t.Leverage = MaxLeverage }, "leverage"},
		{"leverage above ceiling", func(t *Trade) { t.Leverage = 250 }, "leverage"},
		{"quality range", func(t *Trade) { t.ExitQuality = 6 }, "exitQuality"},
		{"closed without exit", func(t *Trade) { t.Status = StatusClosed }, "exitPrice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := openTrade(SideLong)
			tt.mutate(&tr)
			err := tr.Validate()
			require.Error(t, err)

			var verr *jerrors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.ErrorIs(t, err, jerrors.ErrInvalidTrade)
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	tr := openTrade(SideLong)
	tr.Tags = []string{"breakout"}
	tr.StopLoss = Float(95)

	c := tr.Clone()
	c.Tags[0] = "changed"
	*c.StopLoss = 90

	assert.Equal(t, "breakout", tr.Tags[0])
	assert.Equal(t, 95.0, *tr.StopLoss)
}

func TestBalance(t *testing.T) {
	closed := openTrade(SideLong)
	closed.AccountID = "a1"
	require.NoError(t, closed.Close(110, time.Now(), ""))

	open := openTrade(SideLong)
	open.AccountID = "a1"

	other := openTrade(SideLong)
	other.AccountID = "a2"
	require.NoError(t, other.Close(120, time.Now(), ""))

	txs := []Transaction{
		{ID: "d1", Type: TransactionDeposit, Amount: 1000, AccountID: "a1"},
		{ID: "w1", Type: TransactionWithdrawal, Amount: 250, AccountID: "a1"},
		{ID: "d2", Type: TransactionDeposit, Amount: 5000, AccountID: "a2"},
	}

	assert.InDelta(t, 850.0, Balance("a1", txs, []Trade{closed, open, other}), 1e-9)
	assert.InDelta(t, 5200.0, Balance("a2", txs, []Trade{closed, open, other}), 1e-9)
	assert.Equal(t, 0.0, Balance("", txs, nil))
}

func TestExcludeExclusive(t *testing.T) {
	a := openTrade(SideLong)
	a.AccountID = "private"
	b := openTrade(SideLong)
	b.ID = "t2"
	b.AccountID = "public"
	c := openTrade(SideLong)
	c.ID = "t3"

	accounts := []Account{{ID: "private", IsExclusive: true}, {ID: "public"}}
	got := ExcludeExclusive([]Trade{a, b, c}, accounts)

	require.Len(t, got, 2)
	assert.Equal(t, "t2", got[0].ID)
	assert.Equal(t, "t3", got[1].ID)
}

func TestComputePnLAvoidsFloatDrift(t *testing.T) {
	assert.Equal(t, 0.3, ComputePnL(SideLong, 0.1, 0.4, 1))
	assert.Equal(t, 25.0, ComputePnL(SideShort, 50000, 49750, 0.1))
}
