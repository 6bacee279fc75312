package models

import "time"

// FeeType selects how a FeeConfig is applied.
type FeeType string

const (
	FeeTypePercentage FeeType = "PERCENTAGE" // rate in percent of notional
	FeeTypeFixed      FeeType = "FIXED"      // flat amount per side
)

// FeeConfig holds maker/taker fee settings.
type FeeConfig struct {
	Maker float64 `json:"maker" mapstructure:"maker"`
	Taker float64 `json:"taker" mapstructure:"taker"`
	Type  FeeType `json:"type" mapstructure:"type"`
}

// TransactionType represents a capital movement direction.
type TransactionType string

const (
	TransactionDeposit    TransactionType = "DEPOSIT"
	TransactionWithdrawal TransactionType = "WITHDRAWAL"
)

// Transaction is a deposit or withdrawal against an account.
type Transaction struct {
	ID        string          `json:"id"`
	Type      TransactionType `json:"type"`
	Amount    float64         `json:"amount"`
	Date      time.Time       `json:"date"`
	AccountID string          `json:"accountId,omitempty"`
	Note      string          `json:"note,omitempty"`
}

// Account is a trading-capital container. Its balance is always derived.
type Account struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Currency        string    `json:"currency"`
	IsExclusive     bool      `json:"isExclusive"`
	Exchange        string    `json:"exchange"`
	Fees            FeeConfig `json:"fees"`
	Leverage        float64   `json:"leverage"`
	FavoriteSymbols []string  `json:"favoriteSymbols,omitempty"`
}

// Balance derives an account balance:
// deposits - withdrawals + pnl of the account's closed trades.
// An empty accountID selects unassigned (global) records.
func Balance(accountID string, txs []Transaction, trades []Trade) float64 {
	var bal float64
	for _, tx := range txs {
		if tx.AccountID != accountID {
			continue
		}
		switch tx.Type {
		case TransactionDeposit:
			bal += tx.Amount
		case TransactionWithdrawal:
			bal -= tx.Amount
		}
	}
	for i := range trades {
		t := &trades[i]
		if t.AccountID != accountID || !t.IsClosed() {
			continue
		}
		bal += t.PnLValue()
	}
	return bal
}

// ExcludeExclusive drops trades owned by exclusive accounts so they stay out
// of global analytics.
func ExcludeExclusive(trades []Trade, accounts []Account) []Trade {
	exclusive := make(map[string]bool)
	for _, a := range accounts {
		if a.IsExclusive {
			exclusive[a.ID] = true
		}
	}
	if len(exclusive) == 0 {
		return trades
	}

	out := make([]Trade, 0, len(trades))
	for _, t := range trades {
		if t.AccountID != "" && exclusive[t.AccountID] {
			continue
		}
		out = append(out, t)
	}
	return out
}

// ForAccount keeps only the trades owned by accountID.
func ForAccount(trades []Trade, accountID string) []Trade {
	out := make([]Trade, 0, len(trades))
	for _, t := range trades {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out
}
