// Package monitor polls live prices for open positions and auto-closes them
// when a liquidation, stop-loss or take-profit level is crossed.
package monitor

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	jerrors "trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
	"trade-journal/internal/pricefeed"
	"trade-journal/internal/sizing"
)

// Closer closes a trade at a given price. The journal service implements it.
type Closer interface {
	CloseTrade(ctx context.Context, id string, exitPrice float64, exitDate time.Time, reason string) (*models.Trade, error)
}

// Config holds configuration for the Monitor.
type Config struct {
	// PollInterval is the delay between two price checks of one position.
	PollInterval time.Duration
	// FetchTimeout bounds a single price request.
	FetchTimeout time.Duration
}

// DefaultConfig returns the default monitor configuration.
func DefaultConfig() Config {
	return Config{
		PollInterval: 5 * time.Second,
		FetchTimeout: 10 * time.Second,
	}
}

// Event describes an auto-close performed by the monitor.
type Event struct {
	TradeID string
	Symbol  string
	Reason  sizing.ExitReason
	Price   float64
	At      time.Time
}

// Monitor runs one poller per tracked open trade.
type Monitor struct {
	config Config
	source pricefeed.PriceSource
	closer Closer
	logger zerolog.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup

	mu      sync.Mutex
	pollers map[string]context.CancelFunc
	closing map[string]bool
	closed  map[string]bool
	stopped bool

	onClose func(Event)
}

// New creates a monitor with the default configuration.
func New(source pricefeed.PriceSource, closer Closer, logger zerolog.Logger) *Monitor {
	return NewWithConfig(DefaultConfig(), source, closer, logger)
}

// NewWithConfig creates a monitor with a custom configuration.
func NewWithConfig(cfg Config, source pricefeed.PriceSource, closer Closer, logger zerolog.Logger) *Monitor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultConfig().FetchTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		config:  cfg,
		source:  source,
		closer:  closer,
		logger:  logging.WithOperation(logger, "monitor"),
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
		pollers: make(map[string]context.CancelFunc),
		closing: make(map[string]bool),
		closed:  make(map[string]bool),
	}
}

// OnClose registers a callback invoked after each successful auto-close.
func (m *Monitor) OnClose(fn func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onClose = fn
}

// Track starts polling an open trade. It returns false when the trade is
// closed, has nothing that could trigger an exit, is already tracked, or the
// monitor has been stopped.
func (m *Monitor) Track(t models.Trade) bool {
	if t.IsClosed() || !hasTrigger(&t) {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped || m.closed[t.ID] {
		return false
	}
	if _, ok := m.pollers[t.ID]; ok {
		return false
	}

	ctx, cancel := context.WithCancel(m.ctx)
	m.pollers[t.ID] = cancel
	trade := t.Clone()
	m.wg.Go(func() {
		m.poll(ctx, &trade)
	})

	m.logger.Debug().Str("trade_id", t.ID).Str("symbol", t.Symbol).Msg("Tracking position")
	return true
}

// Untrack stops polling a trade.
func (m *Monitor) Untrack(id string) {
	m.mu.Lock()
	cancel, ok := m.pollers[id]
	delete(m.pollers, id)
	m.mu.Unlock()
	if ok {
		cancel()
	}
}

// Tracked returns the ids of the trades currently polled, sorted.
func (m *Monitor) Tracked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.pollers))
	for id := range m.pollers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Stop cancels every poller and waits for them to return.
func (m *Monitor) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()

	m.mu.Lock()
	m.pollers = make(map[string]context.CancelFunc)
	m.mu.Unlock()
}

// poll checks the price immediately and then on every tick until the trade
// closes or ctx is cancelled.
func (m *Monitor) poll(ctx context.Context, t *models.Trade) {
	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()

	for {
		if done := m.Check(ctx, t); done {
			m.Untrack(t.ID)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Check runs one poll step for t and reports whether the trade is now closed.
// Price fetch failures are logged and retried on the next tick.
func (m *Monitor) Check(ctx context.Context, t *models.Trade) bool {
	logger := logging.WithTradeID(m.logger, t.ID)

	fetchCtx, cancel := context.WithTimeout(ctx, m.config.FetchTimeout)
	price, err := m.source.FetchPrice(fetchCtx, t.Symbol)
	cancel()
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn().Err(err).Str("symbol", t.Symbol).Msg("Price fetch failed")
		}
		return false
	}

	reason, hit := sizing.CheckExit(t, price)
	if !hit {
		return false
	}
	if !m.begin(t.ID) {
		return m.isClosed(t.ID)
	}

	closedTrade, err := m.closer.CloseTrade(ctx, t.ID, price, m.now(), string(reason))
	if err != nil {
		// Closed by hand or deleted since tracking started.
		if jerrors.Is(err, jerrors.ErrTradeClosed) || jerrors.Is(err, jerrors.ErrTradeNotFound) {
			m.finish(t.ID, true)
			logger.Debug().Err(err).Msg("Trade no longer open, untracking")
			return true
		}
		m.finish(t.ID, false)
		logger.Error().Err(err).Str("reason", string(reason)).Msg("Auto-close failed")
		return false
	}
	m.finish(t.ID, true)

	logging.LogTradeClosed(logger, t.ID, t.Symbol, string(reason), price, closedTrade.PnLValue())

	m.mu.Lock()
	fn := m.onClose
	m.mu.Unlock()
	if fn != nil {
		fn(Event{TradeID: t.ID, Symbol: t.Symbol, Reason: reason, Price: price, At: m.now()})
	}
	return true
}

// begin marks a close as in flight. It fails when another close for the same
// trade is running or has already succeeded.
func (m *Monitor) begin(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closing[id] || m.closed[id] {
		return false
	}
	m.closing[id] = true
	return true
}

func (m *Monitor) finish(id string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.closing, id)
	if ok {
		m.closed[id] = true
	}
}

func (m *Monitor) isClosed(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed[id]
}

func hasTrigger(t *models.Trade) bool {
	if t.StopLoss != nil && *t.StopLoss > 0 {
		return true
	}
	if t.TakeProfit != nil && *t.TakeProfit > 0 {
		return true
	}
	return sizing.LiquidationPrice(t.Side, t.EntryPrice, t.Leverage) > 0
}
