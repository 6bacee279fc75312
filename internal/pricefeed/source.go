// Package pricefeed fetches the latest market price for a symbol.
package pricefeed

import (
	"context"
	"sync"

	jerrors "trade-journal/internal/errors"
	"trade-journal/pkg/utils"
)

// PriceSource returns the latest traded price of a symbol.
type PriceSource interface {
	FetchPrice(ctx context.Context, symbol string) (float64, error)
}

// StaticSource serves prices from memory. Used offline and in tests.
type StaticSource struct {
	mu     sync.RWMutex
	prices map[string]float64
	calls  int
}

// NewStaticSource creates a StaticSource seeded with prices.
func NewStaticSource(prices map[string]float64) *StaticSource {
	s := &StaticSource{prices: make(map[string]float64, len(prices))}
	for sym, p := range prices {
		s.prices[utils.NormalizeSymbol(sym)] = p
	}
	return s
}

// Set updates the price of a symbol.
func (s *StaticSource) Set(symbol string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[utils.NormalizeSymbol(symbol)] = price
}

// Calls returns how many times FetchPrice has been called.
func (s *StaticSource) Calls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls
}

// FetchPrice implements PriceSource.
func (s *StaticSource) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	sym := utils.NormalizeSymbol(symbol)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	p, ok := s.prices[sym]
	if !ok || p <= 0 {
		return 0, jerrors.NewPriceError(sym, nil)
	}
	return p, nil
}
