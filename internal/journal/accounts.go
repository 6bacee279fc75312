package journal

import (
	"context"
	"fmt"
	"strings"
	"time"

	jerrors "trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
	"trade-journal/internal/store"
)

// AddAccount creates an account. Currency defaults to USD, leverage to 1 and
// fees to the configured default.
func (s *Service) AddAccount(ctx context.Context, a models.Account) (*models.Account, error) {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return nil, jerrors.NewValidationError("name", a.Name, "must not be empty")
	}
	if a.ID == "" {
		a.ID = newID()
	}
	if a.Currency == "" {
		a.Currency = "USD"
	}
	if a.Leverage < 1 {
		a.Leverage = 1
	}
	if a.Leverage >= models.MaxLeverage {
		return nil, jerrors.NewValidationError("leverage", a.Leverage, fmt.Sprintf("must be below %d", models.MaxLeverage))
	}
	if a.Fees.Type == "" {
		a.Fees = s.opts.Metrics.FeeDefault
		if a.Fees.Type == "" {
			a.Fees.Type = models.FeeTypePercentage
		}
	}
	for i, sym := range a.FavoriteSymbols {
		a.FavoriteSymbols[i] = strings.ToUpper(strings.TrimSpace(sym))
	}

	if err := s.store.SaveAccount(ctx, &a); err != nil {
		return nil, jerrors.Wrap(err, "failed to save account")
	}
	logger := logging.WithAccount(s.log(ctx, "add_account"), a.ID)
	logger.Info().Str("name", a.Name).Msg("Account created")
	return &a, nil
}

// Accounts lists every account.
func (s *Service) Accounts(ctx context.Context) ([]models.Account, error) {
	return s.store.ListAccounts(ctx)
}

// AccountBalance derives the balance of an account from its transactions and
// closed trades. An empty id selects the unassigned records.
func (s *Service) AccountBalance(ctx context.Context, accountID string) (float64, error) {
	txs, err := s.store.ListTransactions(ctx, accountID)
	if err != nil {
		return 0, err
	}
	trades, err := s.store.ListTrades(ctx, store.TradeQuery{AccountID: accountID, Status: models.StatusClosed})
	if err != nil {
		return 0, err
	}
	return models.Balance(accountID, txs, trades), nil
}

// Deposit adds capital to an account.
func (s *Service) Deposit(ctx context.Context, accountID string, amount float64, note string) (*models.Transaction, error) {
	return s.transact(ctx, models.TransactionDeposit, accountID, amount, note)
}

// Withdraw removes capital from an account. A withdrawal above the derived
// balance is rejected and nothing is recorded.
func (s *Service) Withdraw(ctx context.Context, accountID string, amount float64, note string) (*models.Transaction, error) {
	return s.transact(ctx, models.TransactionWithdrawal, accountID, amount, note)
}

func (s *Service) transact(ctx context.Context, typ models.TransactionType, accountID string, amount float64, note string) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, jerrors.NewValidationError("amount", amount, "must be positive")
	}
	if accountID != "" {
		if _, err := s.store.GetAccount(ctx, accountID); err != nil {
			return nil, err
		}
	}

	if typ == models.TransactionWithdrawal {
		balance, err := s.AccountBalance(ctx, accountID)
		if err != nil {
			return nil, err
		}
		if amount > balance {
			return nil, fmt.Errorf("%w: requested %.2f, available %.2f", jerrors.ErrInsufficientBalance, amount, balance)
		}
	}

	tx := &models.Transaction{
		ID:        newID(),
		Type:      typ,
		Amount:    amount,
		Date:      s.now().Truncate(time.Millisecond),
		AccountID: accountID,
		Note:      note,
	}
	if err := s.store.SaveTransaction(ctx, tx); err != nil {
		return nil, jerrors.Wrap(err, "failed to save transaction")
	}

	logger := logging.WithAccount(s.log(ctx, "transaction"), accountID)
	logger.Info().
		Str("type", string(typ)).
		Float64("amount", amount).
		Msg("Transaction recorded")
	return tx, nil
}
