// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"trade-journal/internal/models"
)

// DataStore defines the interface for data persistence.
type DataStore interface {
	// Trades
	SaveTrade(ctx context.Context, trade *models.Trade) error
	SaveTrades(ctx context.Context, trades []models.Trade) error
	GetTrade(ctx context.Context, id string) (*models.Trade, error)
	ListTrades(ctx context.Context, query TradeQuery) ([]models.Trade, error)
	DeleteTrades(ctx context.Context, ids []string) (int, error)

	// Transactions. An empty accountID lists every account.
	SaveTransaction(ctx context.Context, tx *models.Transaction) error
	ListTransactions(ctx context.Context, accountID string) ([]models.Transaction, error)

	// Accounts
	SaveAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)

	// Strategies
	SaveStrategy(ctx context.Context, strategy *models.Strategy) error
	ListStrategies(ctx context.Context) ([]models.Strategy, error)

	// Imports
	RecordImport(ctx context.Context, rec *models.ImportRecord) error
	LastImport(ctx context.Context) (*models.ImportRecord, error)

	// Lifecycle
	Close() error
}

// TradeQuery represents filters for querying trades. Zero values match
// everything.
type TradeQuery struct {
	AccountID string
	Symbol    string
	Status    models.Status
	Since     time.Time
	Until     time.Time
	Limit     int
}
