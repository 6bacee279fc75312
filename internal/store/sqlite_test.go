package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jerrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func fullTrade() models.Trade {
	entry := time.Date(2024, 4, 2, 10, 30, 0, 123, time.FixedZone("IST", 19800))
	exit := entry.Add(90 * time.Minute)
	return models.Trade{
		ID: "01HV", Symbol: "BTCUSDT", Side: models.SideShort, EntryPrice: 65000.5,
		Quantity: 0.25, Capital: 1625.0125, Leverage: 10, EntryDate: entry,
		Status: models.StatusClosed, Exchange: "Binance", TradeType: models.TradeTypeLive,
		ExitPrice: models.Float(64000), ExitDate: &exit, PnL: models.Float(250.125), PnLPercentage: models.Float(15.39),
		Strategy: "Breakout", StrategyID: "s1", StopLoss: models.Float(66000), TakeProfit: models.Float(63000),
		Notes: "scaled out\nClosed by: Take Profit", EntryReasons: []string{"retest"}, ExitReasons: []string{"target"},
		MentalState: []string{"calm"}, Tags: []string{"a+", "trend"}, Setups: []string{"flag"},
		EntryChecklist: []string{"htf bias"}, ExitChecklist: []string{"journaled"}, ExitQuality: 4,
		RiskReward: models.Float(2), Fees: models.Float(1.3), AccountID: "acc-1",
	}
}

func TestTradeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	want := fullTrade()

	require.NoError(t, s.SaveTrade(ctx, &want))
	got, err := s.GetTrade(ctx, want.ID)
	require.NoError(t, err)

	assert.True(t, want.EntryDate.Equal(got.EntryDate))
	assert.True(t, want.ExitDate.Equal(*got.ExitDate))
	got.EntryDate, got.ExitDate = want.EntryDate, want.ExitDate
	assert.Equal(t, want, *got)
}

func TestOpenTradeRoundTripKeepsNils(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	open := models.Trade{
		ID: "open", Symbol: "ETHUSDT", Side: models.SideLong, EntryPrice: 3000, Quantity: 1,
		Capital: 3000, Leverage: 1, EntryDate: time.Now().UTC(), Status: models.StatusOpen,
		Exchange: "Bybit", TradeType: models.TradeTypePast,
	}

	require.NoError(t, s.SaveTrade(ctx, &open))
	got, err := s.GetTrade(ctx, "open")
	require.NoError(t, err)

	assert.Nil(t, got.ExitPrice)
	assert.Nil(t, got.ExitDate)
	assert.Nil(t, got.PnL)
	assert.Nil(t, got.Tags)
	assert.Equal(t, 0, got.ExitQuality)
}

func TestGetTradeNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetTrade(context.Background(), "missing")
	assert.ErrorIs(t, err, jerrors.ErrTradeNotFound)
}

func TestListTradesQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var batch []models.Trade
	for i, sym := range []string{"BTCUSDT", "ETHUSDT", "BTCUSDT", "SOLUSDT"} {
		tr := models.Trade{
			ID: string(rune('a' + i)), Symbol: sym, Side: models.SideLong, EntryPrice: 1, Quantity: 1,
			Capital: 1, Leverage: 1, EntryDate: base.AddDate(0, 0, 3-i), Status: models.StatusOpen,
			Exchange: "X", TradeType: models.TradeTypePast,
		}
		if i%2 == 0 {
			tr.AccountID = "acc"
		}
		batch = append(batch, tr)
	}
	require.NoError(t, s.SaveTrades(ctx, batch))

	all, err := s.ListTrades(ctx, TradeQuery{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "d", all[0].ID, "oldest entry first")

	btc, err := s.ListTrades(ctx, TradeQuery{Symbol: "btcusdt"})
	require.NoError(t, err)
	assert.Len(t, btc, 2)

	acc, err := s.ListTrades(ctx, TradeQuery{AccountID: "acc"})
	require.NoError(t, err)
	assert.Len(t, acc, 2)

	recent, err := s.ListTrades(ctx, TradeQuery{Since: base.AddDate(0, 0, 2)})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	limited, err := s.ListTrades(ctx, TradeQuery{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	n, err := s.DeleteTrades(ctx, []string{"a", "b", "zzz"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, err := s.ListTrades(ctx, TradeQuery{})
	require.NoError(t, err)
	assert.Len(t, left, 2)
}

func chronoTrades() []models.Trade {
	ist := time.FixedZone("IST", 19800)
	dates := map[string]time.Time{
		"half":  time.Date(2024, 1, 1, 10, 0, 0, 500_000_000, time.UTC),
		"whole": time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		"ist":   time.Date(2024, 1, 1, 16, 30, 0, 0, ist), // 11:00 UTC
		"early": time.Date(2024, 1, 1, 12, 0, 0, 0, ist),  // 06:30 UTC
	}
	var out []models.Trade
	for _, id := range []string{"half", "whole", "ist", "early"} {
		out = append(out, models.Trade{
			ID: id, Symbol: "BTCUSDT", Side: models.SideLong, EntryPrice: 1, Quantity: 1,
			Capital: 1, Leverage: 1, EntryDate: dates[id], Status: models.StatusOpen,
			Exchange: "X", TradeType: models.TradeTypeLive,
		})
	}
	return out
}

func tradeIDs(trades []models.Trade) []string {
	ids := make([]string, len(trades))
	for i := range trades {
		ids[i] = trades[i].ID
	}
	return ids
}

func TestListTradesChronological(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveTrades(ctx, chronoTrades()))

	all, err := s.ListTrades(ctx, TradeQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"early", "whole", "half", "ist"}, tradeIDs(all))

	first, err := s.ListTrades(ctx, TradeQuery{Status: models.StatusOpen, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"early", "whole"}, tradeIDs(first))
}

func TestMigrationBackfillsEntryOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveTrades(ctx, chronoTrades()))
	_, err = s.db.Exec(`DROP INDEX idx_trades_entry_unix`)
	require.NoError(t, err)
	_, err = s.db.Exec(`ALTER TABLE trades DROP COLUMN entry_unix`)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	all, err := s.ListTrades(ctx, TradeQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"early", "whole", "half", "ist"}, tradeIDs(all))
}

func TestTransactionsAndAccounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acc := models.Account{
		ID: "acc-1", Name: "Main", Currency: "USD", IsExclusive: true, Exchange: "Binance",
		Fees:     models.FeeConfig{Maker: 0.02, Taker: 0.05, Type: models.FeeTypePercentage},
		Leverage: 5, FavoriteSymbols: []string{"BTCUSDT"},
	}
	require.NoError(t, s.SaveAccount(ctx, &acc))
	got, err := s.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, acc, *got)

	_, err = s.GetAccount(ctx, "nope")
	assert.ErrorIs(t, err, jerrors.ErrAccountNotFound)

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	dep := models.Transaction{ID: "t1", Type: models.TransactionDeposit, Amount: 1000, Date: day, AccountID: "acc-1"}
	wd := models.Transaction{ID: "t2", Type: models.TransactionWithdrawal, Amount: 200, Date: day.Add(time.Hour), AccountID: "acc-1"}
	other := models.Transaction{ID: "t3", Type: models.TransactionDeposit, Amount: 50, Date: day}
	for _, tx := range []models.Transaction{dep, wd, other} {
		tx := tx
		require.NoError(t, s.SaveTransaction(ctx, &tx))
	}
	assert.Error(t, s.SaveTransaction(ctx, &dep), "transactions are immutable")

	txs, err := s.ListTransactions(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, models.TransactionWithdrawal, txs[1].Type)

	everything, err := s.ListTransactions(ctx, "")
	require.NoError(t, err)
	assert.Len(t, everything, 3)
	assert.Equal(t, 800.0, models.Balance("acc-1", everything, nil))
}

func TestStrategiesAndImports(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveStrategy(ctx, &models.Strategy{ID: "s2", Name: "Reversal"}))
	require.NoError(t, s.SaveStrategy(ctx, &models.Strategy{ID: "s1", Name: "Breakout"}))
	list, err := s.ListStrategies(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Strategy{{ID: "s1", Name: "Breakout"}, {ID: "s2", Name: "Reversal"}}, list)

	last, err := s.LastImport(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordImport(ctx, &models.ImportRecord{ID: "i1", Source: "a.csv", Imported: 3, At: at}))
	require.NoError(t, s.RecordImport(ctx, &models.ImportRecord{ID: "i2", Source: "b.csv", Imported: 5, Skipped: 1, At: at.Add(time.Hour)}))

	last, err = s.LastImport(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "i2", last.ID)
	assert.Equal(t, 1, last.Skipped)
}
