package pricefeed

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	jerrors "trade-journal/internal/errors"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState string

const (
	CircuitClosed   CircuitState = "CLOSED"    // Normal operation
	CircuitOpen     CircuitState = "OPEN"      // Feed failing, requests rejected
	CircuitHalfOpen CircuitState = "HALF_OPEN" // Probing whether the feed recovered
)

// ErrCircuitOpen is returned while the breaker rejects requests.
var ErrCircuitOpen = errors.New("price feed circuit breaker is open")

// BreakerConfig holds circuit breaker configuration.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive feed failures before opening.
	FailureThreshold int
	// SuccessThreshold is the number of half-open successes needed to close.
	SuccessThreshold int
	// Cooldown is how long the circuit stays open before probing again.
	Cooldown time.Duration
}

// DefaultBreakerConfig returns sensible defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Cooldown:         30 * time.Second,
	}
}

// BreakerSource wraps a PriceSource so that an unreachable feed is not
// hammered by every monitored position.
type BreakerSource struct {
	source PriceSource
	config BreakerConfig
	logger zerolog.Logger
	now    func() time.Time

	mu          sync.Mutex
	state       CircuitState
	failures    int
	successes   int
	lastFailure time.Time
	rejected    int64
}

// NewBreakerSource creates a BreakerSource around source.
func NewBreakerSource(source PriceSource, cfg BreakerConfig, logger zerolog.Logger) *BreakerSource {
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	return &BreakerSource{
		source: source,
		config: cfg,
		logger: logger.With().Str("component", "pricefeed_breaker").Logger(),
		now:    time.Now,
		state:  CircuitClosed,
	}
}

// FetchPrice implements PriceSource.
func (b *BreakerSource) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	if err := b.allow(); err != nil {
		return 0, jerrors.NewPriceError(symbol, err)
	}

	price, err := b.source.FetchPrice(ctx, symbol)
	switch {
	case err == nil:
		b.recordSuccess()
	case countsAsFeedFailure(err):
		b.recordFailure()
	}
	return price, err
}

// State returns the current circuit state.
func (b *BreakerSource) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Rejected returns how many requests were refused while open.
func (b *BreakerSource) Rejected() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rejected
}

// Reset closes the circuit.
func (b *BreakerSource) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitionTo(CircuitClosed)
}

func (b *BreakerSource) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitOpen {
		if b.now().Sub(b.lastFailure) < b.config.Cooldown {
			b.rejected++
			return ErrCircuitOpen
		}
		b.transitionTo(CircuitHalfOpen)
	}
	return nil
}

func (b *BreakerSource) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitHalfOpen:
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.transitionTo(CircuitClosed)
		}
	case CircuitClosed:
		b.failures = 0
	}
}

func (b *BreakerSource) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = b.now()
	switch b.state {
	case CircuitClosed:
		b.failures++
		if b.failures >= b.config.FailureThreshold {
			b.transitionTo(CircuitOpen)
		}
	case CircuitHalfOpen:
		b.transitionTo(CircuitOpen)
	}
}

func (b *BreakerSource) transitionTo(state CircuitState) {
	if b.state != state {
		b.logger.Info().Str("from", string(b.state)).Str("to", string(state)).Msg("Price feed circuit state changed")
	}
	b.state = state
	b.failures = 0
	b.successes = 0
}

// countsAsFeedFailure ignores cancellations and client errors such as an
// unknown symbol, which say nothing about the feed's health.
func countsAsFeedFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return true
}
