// Package journal implements the trade journal workflows on top of a
// DataStore: recording and closing trades, bulk delete with undo, capital
// movements, CSV import and the filtered views the analytics engines read.
package journal

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"trade-journal/internal/filter"
	"trade-journal/internal/logging"
	"trade-journal/internal/metrics"
	"trade-journal/internal/models"
	"trade-journal/internal/risk"
	"trade-journal/internal/store"
)

// DefaultUndoWindow is how long a bulk delete stays reversible.
const DefaultUndoWindow = 5 * time.Second

// Options configures a Service.
type Options struct {
	UndoWindow time.Duration
	Risk       risk.Settings
	Goals      risk.Goals
	Metrics    metrics.Config
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns options with the default undo window and metrics
// sentinels and no risk rules.
func DefaultOptions() Options {
	return Options{
		UndoWindow: DefaultUndoWindow,
		Metrics:    metrics.DefaultConfig(),
	}
}

// Service is the journal workflow layer.
type Service struct {
	store  store.DataStore
	opts   Options
	logger zerolog.Logger
	now    func() time.Time

	// closeMu serializes read-modify-write of a single trade close.
	closeMu sync.Mutex

	undoMu  sync.Mutex
	pending *undoBatch
}

// New creates a new journal service.
func New(ds store.DataStore, opts Options, logger zerolog.Logger) *Service {
	if opts.UndoWindow <= 0 {
		opts.UndoWindow = DefaultUndoWindow
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:  ds,
		opts:   opts,
		logger: logger.With().Str("component", "journal").Logger(),
		now:    now,
	}
}

// Store returns the underlying data store.
func (s *Service) Store() store.DataStore {
	return s.store
}

// Options returns the service options.
func (s *Service) Options() Options {
	return s.opts
}

// Now returns the service clock reading.
func (s *Service) Now() time.Time {
	return s.now()
}

func (s *Service) log(ctx context.Context, op string) zerolog.Logger {
	l := logging.FromContext(ctx)
	if l.GetLevel() == zerolog.Disabled {
		l = s.logger
	}
	return logging.WithOperation(l, op)
}

func newTradeID(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String()
}

func newID() string {
	return uuid.New().String()
}

// Scope selects the trades an analytics view works on.
type Scope struct {
	// AccountID limits the view to one account. Empty means the global view,
	// which leaves out trades of exclusive accounts.
	AccountID string
	Filters   filter.Filters
}

// Trades loads the trades in scope with strategy names resolved and filters
// applied.
func (s *Service) Trades(ctx context.Context, sc Scope) ([]models.Trade, error) {
	trades, err := s.store.ListTrades(ctx, store.TradeQuery{AccountID: sc.AccountID})
	if err != nil {
		return nil, err
	}

	if sc.AccountID == "" {
		accounts, err := s.store.ListAccounts(ctx)
		if err != nil {
			return nil, err
		}
		trades = models.ExcludeExclusive(trades, accounts)
	}

	strategies, err := s.store.ListStrategies(ctx)
	if err != nil {
		return nil, err
	}
	if len(strategies) > 0 {
		names := make(map[string]string, len(strategies))
		for _, st := range strategies {
			names[st.ID] = st.Name
		}
		for i := range trades {
			if trades[i].Strategy == "" && trades[i].StrategyID != "" {
				trades[i].Strategy = names[trades[i].StrategyID]
			}
		}
	}

	return filter.Apply(trades, sc.Filters, s.now()), nil
}

// Metrics computes the statistics bundle for the trades in scope.
func (s *Service) Metrics(ctx context.Context, sc Scope) (metrics.Metrics, []models.Trade, error) {
	trades, err := s.Trades(ctx, sc)
	if err != nil {
		return metrics.Metrics{}, nil, err
	}
	cfg := s.opts.Metrics
	if sc.AccountID != "" {
		if acc, err := s.store.GetAccount(ctx, sc.AccountID); err == nil && acc.Fees.Type != "" {
			cfg.FeeDefault = acc.Fees
		}
	}
	return metrics.Compute(trades, cfg), trades, nil
}

// RiskReport is the current risk lock state and goal progress of an account.
type RiskReport struct {
	Balance float64             `json:"balance"`
	State   risk.State          `json:"state"`
	Goals   []risk.GoalProgress `json:"goals"`
}

// Risk evaluates the risk rules and goals for an account.
func (s *Service) Risk(ctx context.Context, accountID string) (RiskReport, error) {
	trades, err := s.store.ListTrades(ctx, store.TradeQuery{AccountID: accountID})
	if err != nil {
		return RiskReport{}, err
	}
	trades = models.ForAccount(trades, accountID)

	balance, err := s.AccountBalance(ctx, accountID)
	if err != nil {
		return RiskReport{}, err
	}

	now := s.now()
	return RiskReport{
		Balance: balance,
		State:   risk.Evaluate(trades, s.opts.Risk, balance, now),
		Goals:   risk.Progress(trades, balance, s.opts.Goals, now),
	}, nil
}
