package pricefeed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jerrors "trade-journal/internal/errors"
)

type flakySource struct {
	calls int
	err   error
	price float64
}

func (f *flakySource) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, jerrors.NewPriceError(symbol, f.err)
	}
	return f.price, nil
}

func newTestBreaker(src PriceSource, clock *time.Time) *BreakerSource {
	b := NewBreakerSource(src, BreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, Cooldown: time.Minute}, zerolog.Nop())
	b.now = func() time.Time { return *clock }
	return b
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	src := &flakySource{err: errors.New("connection refused")}
	b := newTestBreaker(src, &clock)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := b.FetchPrice(ctx, "BTCUSDT")
		require.Error(t, err)
	}
	assert.Equal(t, CircuitOpen, b.State())

	_, err := b.FetchPrice(ctx, "BTCUSDT")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.ErrorIs(t, err, jerrors.ErrPriceUnavailable)
	assert.Equal(t, 2, src.calls, "open circuit must not reach the feed")
	assert.EqualValues(t, 1, b.Rejected())
}

func TestBreakerHalfOpenRecovers(t *testing.T) {
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	src := &flakySource{err: errors.New("timeout")}
	b := newTestBreaker(src, &clock)
	ctx := context.Background()

	b.FetchPrice(ctx, "BTCUSDT")
	b.FetchPrice(ctx, "BTCUSDT")
	require.Equal(t, CircuitOpen, b.State())

	clock = clock.Add(2 * time.Minute)
	src.err = nil
	src.price = 64000

	price, err := b.FetchPrice(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 64000.0, price)
	assert.Equal(t, CircuitClosed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	src := &flakySource{err: errors.New("timeout")}
	b := newTestBreaker(src, &clock)
	ctx := context.Background()

	b.FetchPrice(ctx, "BTCUSDT")
	b.FetchPrice(ctx, "BTCUSDT")

	clock = clock.Add(2 * time.Minute)
	_, err := b.FetchPrice(ctx, "BTCUSDT")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, CircuitOpen, b.State())

	b.Reset()
	assert.Equal(t, CircuitClosed, b.State())
}

func TestBreakerIgnoresUnknownSymbols(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer srv.Close()

	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	b := newTestBreaker(NewBinanceSource(testConfig(srv.URL), zerolog.Nop()), &clock)

	for i := 0; i < 5; i++ {
		_, err := b.FetchPrice(context.Background(), "NOPEUSDT")
		require.Error(t, err)
	}
	assert.Equal(t, CircuitClosed, b.State())
	assert.EqualValues(t, 5, atomic.LoadInt32(&hits))
}
