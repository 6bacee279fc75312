package pricefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jerrors "trade-journal/internal/errors"
	"trade-journal/pkg/utils"
)

func testConfig(url string) BinanceConfig {
	return BinanceConfig{
		BaseURL: url,
		Timeout: time.Second,
		Retry: utils.RetryConfig{
			MaxAttempts:   3,
			InitialDelay:  time.Millisecond,
			MaxDelay:      5 * time.Millisecond,
			BackoffFactor: 2,
		},
	}
}

func TestBinanceFetchPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/price", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"64250.12000000"}`))
	}))
	defer srv.Close()

	src := NewBinanceSource(testConfig(srv.URL), zerolog.Nop())
	price, err := src.FetchPrice(context.Background(), "btc/usdt")
	require.NoError(t, err)
	assert.InDelta(t, 64250.12, price, 1e-9)
}

func TestBinanceRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"symbol":"ETHUSDT","price":"3100.5"}`))
	}))
	defer srv.Close()

	src := NewBinanceSource(testConfig(srv.URL), zerolog.Nop())
	price, err := src.FetchPrice(context.Background(), "ETHUSDT")
	require.NoError(t, err)
	assert.Equal(t, 3100.5, price)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestBinanceClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer srv.Close()

	src := NewBinanceSource(testConfig(srv.URL), zerolog.Nop())
	_, err := src.FetchPrice(context.Background(), "NOPE")
	require.Error(t, err)

	var pe *jerrors.PriceError
	require.True(t, jerrors.As(err, &pe))
	assert.Equal(t, "NOPE", pe.Symbol)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestStaticSource(t *testing.T) {
	src := NewStaticSource(map[string]float64{"btc-usdt": 100})

	p, err := src.FetchPrice(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 100.0, p)

	src.Set("BTCUSDT", 90)
	p, err = src.FetchPrice(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 90.0, p)

	_, err = src.FetchPrice(context.Background(), "SOLUSDT")
	assert.ErrorIs(t, err, jerrors.ErrPriceUnavailable)
	assert.Equal(t, 3, src.Calls())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.FetchPrice(ctx, "BTCUSDT")
	assert.ErrorIs(t, err, context.Canceled)
}
