// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	jerrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

// timeLayout is how timestamps are stored. Text keeps the original offset.
const timeLayout = time.RFC3339Nano

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Trades; list columns hold JSON arrays
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		entry_price REAL NOT NULL,
		quantity REAL NOT NULL,
		capital REAL NOT NULL,
		leverage REAL NOT NULL,
		entry_date TEXT NOT NULL,
		status TEXT NOT NULL,
		exchange TEXT NOT NULL,
		trade_type TEXT NOT NULL,
		exit_price REAL,
		exit_date TEXT,
		pnl REAL,
		pnl_percentage REAL,
		strategy TEXT,
		strategy_id TEXT,
		stop_loss REAL,
		take_profit REAL,
		notes TEXT,
		entry_reasons TEXT,
		exit_reasons TEXT,
		mental_state TEXT,
		tags TEXT,
		setups TEXT,
		entry_checklist TEXT,
		exit_checklist TEXT,
		exit_quality INTEGER DEFAULT 0,
		risk_reward REAL,
		fees REAL,
		account_id TEXT,
		entry_unix INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Deposits and withdrawals
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		amount REAL NOT NULL,
		date TEXT NOT NULL,
		account_id TEXT,
		note TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Accounts; fees is a JSON FeeConfig
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		currency TEXT NOT NULL,
		is_exclusive INTEGER DEFAULT 0,
		exchange TEXT,
		fees TEXT,
		leverage REAL DEFAULT 1,
		favorite_symbols TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS strategies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);

	-- Import history
	CREATE TABLE IF NOT EXISTS imports (
		id TEXT PRIMARY KEY,
		source TEXT,
		imported INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		account_id TEXT,
		at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_trades_entry_date ON trades(entry_date);
	CREATE INDEX IF NOT EXISTS idx_trades_account ON trades(account_id);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
	CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return s.migrateEntryUnix()
}

// migrateEntryUnix adds and backfills entry_unix, the UTC nanosecond sort
// key, on databases created before it existed.
func (s *SQLiteStore) migrateEntryUnix() error {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('trades') WHERE name = 'entry_unix'`).Scan(&count)
	if err != nil {
		return err
	}
	if count == 0 {
		if _, err := s.db.Exec(`ALTER TABLE trades ADD COLUMN entry_unix INTEGER NOT NULL DEFAULT 0`); err != nil {
			return err
		}
		if err := s.backfillEntryUnix(); err != nil {
			return err
		}
	}
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_trades_entry_unix ON trades(entry_unix)`)
	return err
}

func (s *SQLiteStore) backfillEntryUnix() error {
	rows, err := s.db.Query(`SELECT id, entry_date FROM trades`)
	if err != nil {
		return err
	}
	keys := map[string]int64{}
	for rows.Next() {
		var id, entryDate string
		if err := rows.Scan(&id, &entryDate); err != nil {
			rows.Close()
			return err
		}
		t, err := parseTime(entryDate)
		if err != nil {
			rows.Close()
			return err
		}
		keys[id] = t.UnixNano()
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for id, key := range keys {
		if _, err := s.db.Exec(`UPDATE trades SET entry_unix = ? WHERE id = ?`, key, id); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Trades Methods
// ============================================================================

const tradeColumns = `id, symbol, side, entry_price, quantity, capital, leverage, entry_date, status,
	exchange, trade_type, exit_price, exit_date, pnl, pnl_percentage, strategy, strategy_id,
	stop_loss, take_profit, notes, entry_reasons, exit_reasons, mental_state, tags, setups,
	entry_checklist, exit_checklist, exit_quality, risk_reward, fees, account_id`

const upsertTrade = `INSERT OR REPLACE INTO trades (` + tradeColumns + `, entry_unix)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SaveTrade inserts or replaces a trade.
func (s *SQLiteStore) SaveTrade(ctx context.Context, trade *models.Trade) error {
	if err := saveTrade(ctx, s.db, trade); err != nil {
		return fmt.Errorf("failed to save trade: %w", err)
	}
	return nil
}

// SaveTrades inserts or replaces trades in one transaction.
func (s *SQLiteStore) SaveTrades(ctx context.Context, trades []models.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range trades {
		if err := saveTrade(ctx, tx, &trades[i]); err != nil {
			return fmt.Errorf("failed to save trade %s: %w", trades[i].ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func saveTrade(ctx context.Context, db execer, t *models.Trade) error {
	_, err := db.ExecContext(ctx, upsertTrade,
		t.ID, t.Symbol, string(t.Side), t.EntryPrice, t.Quantity, t.Capital, t.Leverage,
		formatTime(t.EntryDate), string(t.Status), t.Exchange, string(t.TradeType),
		nullFloat(t.ExitPrice), nullTime(t.ExitDate), nullFloat(t.PnL), nullFloat(t.PnLPercentage),
		t.Strategy, t.StrategyID, nullFloat(t.StopLoss), nullFloat(t.TakeProfit), t.Notes,
		encodeList(t.EntryReasons), encodeList(t.ExitReasons), encodeList(t.MentalState),
		encodeList(t.Tags), encodeList(t.Setups), encodeList(t.EntryChecklist),
		encodeList(t.ExitChecklist), t.ExitQuality, nullFloat(t.RiskReward), nullFloat(t.Fees),
		t.AccountID, t.EntryDate.UnixNano(),
	)
	return err
}

// GetTrade returns one trade or ErrTradeNotFound.
func (s *SQLiteStore) GetTrade(ctx context.Context, id string) (*models.Trade, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+tradeColumns+" FROM trades WHERE id = ?", id)
	t, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", jerrors.ErrTradeNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	return t, nil
}

// ListTrades returns trades in entry order.
func (s *SQLiteStore) ListTrades(ctx context.Context, q TradeQuery) ([]models.Trade, error) {
	query := "SELECT " + tradeColumns + " FROM trades WHERE 1=1"
	args := []interface{}{}

	if q.AccountID != "" {
		query += " AND account_id = ?"
		args = append(args, q.AccountID)
	}
	if q.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, strings.ToUpper(q.Symbol))
	}
	if q.Status != "" {
		query += " AND status = ?"
		args = append(args, string(q.Status))
	}

	// entry_date keeps its offset, so range checks happen after parsing.
	query += " ORDER BY entry_unix ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		if !q.Since.IsZero() && t.EntryDate.Before(q.Since) {
			continue
		}
		if !q.Until.IsZero() && t.EntryDate.After(q.Until) {
			continue
		}
		trades = append(trades, *t)
		if q.Limit > 0 && len(trades) == q.Limit {
			break
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}
	return trades, nil
}

// DeleteTrades removes trades by id and reports how many rows went away.
func (s *SQLiteStore) DeleteTrades(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM trades WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete trades: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted trades: %w", err)
	}
	return int(n), nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(sc scanner) (*models.Trade, error) {
	var (
		t                                               models.Trade
		side, status, tradeType, entryDate              string
		exitPrice, pnl, pnlPct, stop, target, rr, fees  sql.NullFloat64
		exitDate, strategy, strategyID, notes, account  sql.NullString
		entryReasons, exitReasons, mental, tags, setups sql.NullString
		entryChecklist, exitChecklist                   sql.NullString
		exitQuality                                     sql.NullInt64
	)

	err := sc.Scan(&t.ID, &t.Symbol, &side, &t.EntryPrice, &t.Quantity, &t.Capital, &t.Leverage,
		&entryDate, &status, &t.Exchange, &tradeType, &exitPrice, &exitDate, &pnl, &pnlPct,
		&strategy, &strategyID, &stop, &target, &notes, &entryReasons, &exitReasons, &mental,
		&tags, &setups, &entryChecklist, &exitChecklist, &exitQuality, &rr, &fees, &account)
	if err != nil {
		return nil, err
	}

	t.Side = models.Side(side)
	t.Status = models.Status(status)
	t.TradeType = models.TradeType(tradeType)
	if t.EntryDate, err = parseTime(entryDate); err != nil {
		return nil, err
	}
	if exitDate.Valid && exitDate.String != "" {
		d, err := parseTime(exitDate.String)
		if err != nil {
			return nil, err
		}
		t.ExitDate = &d
	}

	t.ExitPrice = floatPtr(exitPrice)
	t.PnL = floatPtr(pnl)
	t.PnLPercentage = floatPtr(pnlPct)
	t.StopLoss = floatPtr(stop)
	t.TakeProfit = floatPtr(target)
	t.RiskReward = floatPtr(rr)
	t.Fees = floatPtr(fees)
	t.Strategy = strategy.String
	t.StrategyID = strategyID.String
	t.Notes = notes.String
	t.AccountID = account.String
	t.ExitQuality = int(exitQuality.Int64)
	t.EntryReasons = decodeList(entryReasons)
	t.ExitReasons = decodeList(exitReasons)
	t.MentalState = decodeList(mental)
	t.Tags = decodeList(tags)
	t.Setups = decodeList(setups)
	t.EntryChecklist = decodeList(entryChecklist)
	t.ExitChecklist = decodeList(exitChecklist)

	return &t, nil
}

// ============================================================================
// Transactions Methods
// ============================================================================

// SaveTransaction stores a deposit or withdrawal. Transactions are immutable,
// so saving an existing id fails.
func (s *SQLiteStore) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, type, amount, date, account_id, note)
		VALUES (?, ?, ?, ?, ?, ?)
	`, tx.ID, string(tx.Type), tx.Amount, formatTime(tx.Date), tx.AccountID, tx.Note)
	if err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	return nil
}

// ListTransactions returns transactions oldest first.
func (s *SQLiteStore) ListTransactions(ctx context.Context, accountID string) ([]models.Transaction, error) {
	query := "SELECT id, type, amount, date, account_id, note FROM transactions"
	args := []interface{}{}
	if accountID != "" {
		query += " WHERE account_id = ?"
		args = append(args, accountID)
	}
	query += " ORDER BY date ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		var typ, date string
		var account, note sql.NullString
		if err := rows.Scan(&tx.ID, &typ, &tx.Amount, &date, &account, &note); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.Type = models.TransactionType(typ)
		if tx.Date, err = parseTime(date); err != nil {
			return nil, err
		}
		tx.AccountID = account.String
		tx.Note = note.String
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// ============================================================================
// Accounts Methods
// ============================================================================

// SaveAccount inserts or replaces an account.
func (s *SQLiteStore) SaveAccount(ctx context.Context, a *models.Account) error {
	fees, _ := json.Marshal(a.Fees)
	exclusive := 0
	if a.IsExclusive {
		exclusive = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO accounts (id, name, currency, is_exclusive, exchange, fees, leverage, favorite_symbols)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Name, a.Currency, exclusive, a.Exchange, string(fees), a.Leverage, encodeList(a.FavoriteSymbols))
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// GetAccount returns one account or ErrAccountNotFound.
func (s *SQLiteStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, currency, is_exclusive, exchange, fees, leverage, favorite_symbols
		FROM accounts WHERE id = ?
	`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", jerrors.ErrAccountNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

// ListAccounts returns all accounts ordered by name.
func (s *SQLiteStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, currency, is_exclusive, exchange, fees, leverage, favorite_symbols
		FROM accounts ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

func scanAccount(sc scanner) (*models.Account, error) {
	var a models.Account
	var exclusive int
	var exchange, fees, favorites sql.NullString
	if err := sc.Scan(&a.ID, &a.Name, &a.Currency, &exclusive, &exchange, &fees, &a.Leverage, &favorites); err != nil {
		return nil, err
	}
	a.IsExclusive = exclusive == 1
	a.Exchange = exchange.String
	if fees.Valid && fees.String != "" {
		if err := json.Unmarshal([]byte(fees.String), &a.Fees); err != nil {
			return nil, fmt.Errorf("decode fees: %w", err)
		}
	}
	a.FavoriteSymbols = decodeList(favorites)
	return &a, nil
}

// ============================================================================
// Strategies Methods
// ============================================================================

// SaveStrategy inserts or replaces a strategy.
func (s *SQLiteStore) SaveStrategy(ctx context.Context, st *models.Strategy) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO strategies (id, name) VALUES (?, ?)`, st.ID, st.Name)
	if err != nil {
		return fmt.Errorf("failed to save strategy: %w", err)
	}
	return nil
}

// ListStrategies returns all strategies ordered by name.
func (s *SQLiteStore) ListStrategies(ctx context.Context) ([]models.Strategy, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM strategies ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategies: %w", err)
	}
	defer rows.Close()

	var out []models.Strategy
	for rows.Next() {
		var st models.Strategy
		if err := rows.Scan(&st.ID, &st.Name); err != nil {
			return nil, fmt.Errorf("failed to scan strategy: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// ============================================================================
// Import History Methods
// ============================================================================

// RecordImport stores a completed import batch.
func (s *SQLiteStore) RecordImport(ctx context.Context, rec *models.ImportRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO imports (id, source, imported, skipped, account_id, at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Source, rec.Imported, rec.Skipped, rec.AccountID, formatTime(rec.At))
	if err != nil {
		return fmt.Errorf("failed to record import: %w", err)
	}
	return nil
}

// LastImport returns the most recent import, or nil when none exist.
func (s *SQLiteStore) LastImport(ctx context.Context) (*models.ImportRecord, error) {
	var rec models.ImportRecord
	var at string
	var source, account sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, source, imported, skipped, account_id, at FROM imports ORDER BY at DESC LIMIT 1
	`).Scan(&rec.ID, &source, &rec.Imported, &rec.Skipped, &account, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last import: %w", err)
	}
	rec.Source = source.String
	rec.AccountID = account.String
	if rec.At, err = parseTime(at); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ============================================================================
// Helpers
// ============================================================================

func formatTime(t time.Time) string {
	return t.Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullFloat(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func encodeList(list []string) interface{} {
	if len(list) == 0 {
		return nil
	}
	b, _ := json.Marshal(list)
	return string(b)
}

func decodeList(v sql.NullString) []string {
	if !v.Valid || v.String == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(v.String), &out); err != nil {
		return nil
	}
	return out
}
