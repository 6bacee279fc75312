package journal

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jerrors "trade-journal/internal/errors"
	"trade-journal/internal/filter"
	"trade-journal/internal/models"
	"trade-journal/internal/risk"
	"trade-journal/internal/sizing"
	"trade-journal/internal/store"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestService(t *testing.T, opts Options) (*Service, *clock) {
	t.Helper()
	ds, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close() })

	clk := &clock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	opts.Now = clk.Now
	if opts.Metrics.ProfitFactorCap == 0 {
		opts.Metrics = DefaultOptions().Metrics
	}
	return New(ds, opts, zerolog.Nop()), clk
}

func fund(t *testing.T, s *Service, accountID string, amount float64) {
	t.Helper()
	_, err := s.Deposit(context.Background(), accountID, amount, "seed")
	require.NoError(t, err)
}

func TestOpenTradeSizesAndStores(t *testing.T) {
	s, _ := newTestService(t, DefaultOptions())
	ctx := context.Background()
	fund(t, s, "", 10000)

	tr, res, err := s.OpenTrade(ctx, NewTrade{
		Symbol:     " btcusdt ",
		Side:       models.SideLong,
		EntryPrice: 50000,
		Capital:    1000,
		Leverage:   10,
		StopLoss:   models.Float(49000),
		TakeProfit: models.Float(53000),
	})
	require.NoError(t, err)

	assert.Len(t, tr.ID, 26)
	assert.Equal(t, "BTCUSDT", tr.Symbol)
	assert.Equal(t, models.StatusOpen, tr.Status)
	assert.Equal(t, models.TradeTypeLive, tr.TradeType)
	assert.InDelta(t, 0.2, tr.Quantity, 1e-12)
	assert.Equal(t, 10000.0, res.PositionSize)
	require.NotNil(t, tr.RiskReward)
	assert.InDelta(t, 3.0, *tr.RiskReward, 1e-9)

	got, err := s.Store().GetTrade(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, tr.Symbol, got.Symbol)
	assert.True(t, got.EntryDate.Equal(s.Now()))
}

func TestOpenTradeRiskMode(t *testing.T) {
	s, _ := newTestService(t, DefaultOptions())
	fund(t, s, "", 5000)

	tr, _, err := s.OpenTrade(context.Background(), NewTrade{
		Symbol: "ETHUSDT", EntryPrice: 2500, Leverage: 2,
		Mode: sizing.ModeRisk, RiskPercent: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 500.0, tr.Capital)
	assert.InDelta(t, 0.4, tr.Quantity, 1e-12)
}

func TestOpenTradeRefusedByRiskLock(t *testing.T) {
	opts := DefaultOptions()
	opts.Risk = risk.Settings{MaxTradesDay: 1}
	s, _ := newTestService(t, opts)
	ctx := context.Background()
	fund(t, s, "", 10000)

	_, _, err := s.OpenTrade(ctx, NewTrade{Symbol: "BTCUSDT", EntryPrice: 100, Capital: 100})
	require.NoError(t, err)

	_, _, err = s.OpenTrade(ctx, NewTrade{Symbol: "BTCUSDT", EntryPrice: 100, Capital: 100})
	require.Error(t, err)
	var lock *jerrors.RiskLockError
	require.True(t, jerrors.As(err, &lock))
	assert.Equal(t, "Max trades per day reached (1/1)", lock.Reason)
	assert.ErrorIs(t, err, jerrors.ErrRiskLocked)

	// Back-filled trades are not subject to the lock.
	_, _, err = s.OpenTrade(ctx, NewTrade{Symbol: "BTCUSDT", EntryPrice: 100, Capital: 100, TradeType: models.TradeTypePast})
	assert.NoError(t, err)
}

func TestOpenTradeRiskPerTrade(t *testing.T) {
	opts := DefaultOptions()
	opts.Risk = risk.Settings{MaxRiskPerTradePercent: 5}
	s, _ := newTestService(t, opts)
	fund(t, s, "", 1000)

	_, _, err := s.OpenTrade(context.Background(), NewTrade{Symbol: "BTCUSDT", EntryPrice: 100, Capital: 100})
	assert.ErrorIs(t, err, jerrors.ErrInvalidTrade)
}

func TestCloseTrade(t *testing.T) {
	s, clk := newTestService(t, DefaultOptions())
	ctx := context.Background()
	fund(t, s, "", 1000)

	tr, _, err := s.OpenTrade(ctx, NewTrade{Symbol: "SOLUSDT", Side: models.SideShort, EntryPrice: 100, Capital: 500})
	require.NoError(t, err)

	_, err = s.CloseTrade(ctx, tr.ID, 0, time.Time{}, "")
	assert.ErrorIs(t, err, jerrors.ErrMissingExitPrice)

	clk.Advance(time.Hour)
	closed, err := s.CloseTrade(ctx, tr.ID, 90, time.Time{}, "Take Profit")
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, closed.Status)
	assert.InDelta(t, 50.0, closed.PnLValue(), 1e-9)
	assert.True(t, closed.ExitDate.Equal(clk.Now()))
	assert.Contains(t, closed.Notes, "Closed by: Take Profit")

	_, err = s.CloseTrade(ctx, tr.ID, 95, time.Time{}, "")
	assert.ErrorIs(t, err, jerrors.ErrTradeClosed)

	bal, err := s.AccountBalance(ctx, "")
	require.NoError(t, err)
	assert.InDelta(t, 1050.0, bal, 1e-9)

	reviewed, err := s.Annotate(ctx, tr.ID, Annotation{ExitQuality: 4, ExitReasons: []string{"Target hit"}})
	require.NoError(t, err)
	assert.Equal(t, 4, reviewed.ExitQuality)
	assert.Equal(t, []string{"Target hit"}, reviewed.ExitReasons)
}

func TestBulkDeleteAndUndo(t *testing.T) {
	s, _ := newTestService(t, DefaultOptions())
	ctx := context.Background()
	fund(t, s, "", 1000)

	var ids []string
	for i := 0; i < 3; i++ {
		tr, _, err := s.OpenTrade(ctx, NewTrade{Symbol: "BTCUSDT", EntryPrice: 100, Capital: 10, Tags: []string{"scalp"}})
		require.NoError(t, err)
		ids = append(ids, tr.ID)
	}
	before, err := s.Store().GetTrade(ctx, ids[0])
	require.NoError(t, err)

	_, err = s.BulkDelete(ctx, ids[:2], false)
	assert.ErrorIs(t, err, jerrors.ErrNotConfirmed)

	batch, err := s.BulkDelete(ctx, append(ids[:2:2], "missing"), true)
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Count)

	left, err := s.Store().ListTrades(ctx, store.TradeQuery{})
	require.NoError(t, err)
	assert.Len(t, left, 1)

	pending, ok := s.PendingDelete()
	require.True(t, ok)
	assert.Equal(t, batch.ID, pending.ID)

	restored, err := s.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, batch.ID, restored.ID)

	after, err := s.Store().GetTrade(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, before.Tags, after.Tags)
	assert.True(t, before.EntryDate.Equal(after.EntryDate))
	assert.Equal(t, before.Quantity, after.Quantity)

	_, err = s.Undo(ctx)
	assert.ErrorIs(t, err, jerrors.ErrNothingToUndo)
}

func TestUndoWindowExpires(t *testing.T) {
	s, clk := newTestService(t, DefaultOptions())
	ctx := context.Background()
	fund(t, s, "", 1000)

	tr, _, err := s.OpenTrade(ctx, NewTrade{Symbol: "BTCUSDT", EntryPrice: 100, Capital: 10})
	require.NoError(t, err)
	_, err = s.BulkDelete(ctx, []string{tr.ID}, true)
	require.NoError(t, err)

	clk.Advance(DefaultUndoWindow)
	_, err = s.Undo(ctx)
	assert.ErrorIs(t, err, jerrors.ErrNothingToUndo)

	_, err = s.Store().GetTrade(ctx, tr.ID)
	assert.ErrorIs(t, err, jerrors.ErrTradeNotFound)
}

func TestUndoTimerDiscardsBatch(t *testing.T) {
	opts := DefaultOptions()
	opts.UndoWindow = 20 * time.Millisecond
	s, _ := newTestService(t, opts)
	ctx := context.Background()
	fund(t, s, "", 1000)

	tr, _, err := s.OpenTrade(ctx, NewTrade{Symbol: "BTCUSDT", EntryPrice: 100, Capital: 10})
	require.NoError(t, err)
	_, err = s.BulkDelete(ctx, []string{tr.ID}, true)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s.undoMu.Lock()
		defer s.undoMu.Unlock()
		return s.pending == nil
	}, time.Second, 5*time.Millisecond)
}

func TestWithdrawBeyondBalance(t *testing.T) {
	s, _ := newTestService(t, DefaultOptions())
	ctx := context.Background()

	acc, err := s.AddAccount(ctx, models.Account{Name: "Main", Exchange: "Binance"})
	require.NoError(t, err)
	assert.Equal(t, "USD", acc.Currency)
	assert.Equal(t, 1.0, acc.Leverage)

	fund(t, s, acc.ID, 1000)
	_, err = s.Withdraw(ctx, acc.ID, 200, "rent")
	require.NoError(t, err)

	_, err = s.Withdraw(ctx, acc.ID, 801, "")
	assert.ErrorIs(t, err, jerrors.ErrInsufficientBalance)

	txs, err := s.Store().ListTransactions(ctx, acc.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 2)

	bal, err := s.AccountBalance(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, 800.0, bal)

	_, err = s.Deposit(ctx, "nope", 10, "")
	assert.ErrorIs(t, err, jerrors.ErrAccountNotFound)
	_, err = s.Deposit(ctx, acc.ID, -1, "")
	assert.ErrorIs(t, err, jerrors.ErrInvalidTrade)
}

func TestAddAccountRejectsExcessiveLeverage(t *testing.T) {
	s, _ := newTestService(t, DefaultOptions())

	_, err := s.AddAccount(context.Background(), models.Account{Name: "Degen", Leverage: 250})
	assert.ErrorIs(t, err, jerrors.ErrInvalidTrade)
}

func TestImport(t *testing.T) {
	s, _ := newTestService(t, DefaultOptions())
	ctx := context.Background()

	csv := "Time,Pair,Side,Price,Executed,Realized Profit,Fee,Status\n" +
		"2024-06-01 10:00:00,BTCUSDT,SELL,50000,0.1,25,0.5,FILLED\n" +
		"2024-06-01 11:00:00,ETHUSDT,BUY,3000,1,0,0,CANCELLED\n"

	res, err := s.Import(ctx, strings.NewReader(csv), "binance.csv", "")
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, 1, res.Skipped)

	stored, err := s.Store().ListTrades(ctx, store.TradeQuery{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, models.SideShort, stored[0].Side)
	assert.Equal(t, 25.0, stored[0].PnLValue())

	rec, err := s.Store().LastImport(ctx)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 1, rec.Imported)
	assert.Equal(t, "binance.csv", rec.Source)

	_, err = s.Import(ctx, strings.NewReader("foo,bar\n1,2\n"), "bad.csv", "")
	assert.ErrorIs(t, err, jerrors.ErrMissingColumns)

	var buf bytes.Buffer
	n, err := s.Export(ctx, &buf, Scope{}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, buf.String(), "BTCUSDT")
}

func TestTradesScope(t *testing.T) {
	s, _ := newTestService(t, DefaultOptions())
	ctx := context.Background()

	private, err := s.AddAccount(ctx, models.Account{Name: "Prop", IsExclusive: true})
	require.NoError(t, err)
	fund(t, s, private.ID, 1000)
	fund(t, s, "", 1000)

	_, _, err = s.OpenTrade(ctx, NewTrade{Symbol: "BTCUSDT", EntryPrice: 100, Capital: 10, AccountID: private.ID})
	require.NoError(t, err)
	_, _, err = s.OpenTrade(ctx, NewTrade{Symbol: "ETHUSDT", EntryPrice: 100, Capital: 10, StrategyID: "st-1"})
	require.NoError(t, err)
	require.NoError(t, s.Store().SaveStrategy(ctx, &models.Strategy{ID: "st-1", Name: "Breakout"}))

	global, err := s.Trades(ctx, Scope{})
	require.NoError(t, err)
	require.Len(t, global, 1)
	assert.Equal(t, "ETHUSDT", global[0].Symbol)
	assert.Equal(t, "Breakout", global[0].Strategy)

	own, err := s.Trades(ctx, Scope{AccountID: private.ID})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "BTCUSDT", own[0].Symbol)

	byStrategy, err := s.Trades(ctx, Scope{Filters: filter.Filters{Strategy: "Breakout"}})
	require.NoError(t, err)
	assert.Len(t, byStrategy, 1)

	report, err := s.Risk(ctx, private.ID)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, report.Balance)
	assert.Equal(t, 1, report.State.TradeCount)
	assert.Len(t, report.Goals, 3)
}
