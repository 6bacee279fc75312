package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$0.00", FormatMoney(0))
	assert.Equal(t, "$999.50", FormatMoney(999.5))
	assert.Equal(t, "$1,000.00", FormatMoney(1000))
	assert.Equal(t, "$12,345,678.90", FormatMoney(12345678.9))
	assert.Equal(t, "-$5.25", FormatMoney(-5.25))
	assert.Equal(t, "+$10.00", FormatPnL(10))
	assert.Equal(t, "-$10.00", FormatPnL(-10))
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "+1.50%", FormatPercent(1.5))
	assert.Equal(t, "-2.00%", FormatPercent(-2))
	assert.Equal(t, "0.125", FormatQuantity(0.125))
	assert.Equal(t, "3", FormatQuantity(3))
	assert.Equal(t, "∞", FormatRatio(999, 999))
	assert.Equal(t, "1.25", FormatRatio(1.25, 999))
	assert.Equal(t, "2d 3h", FormatDuration(51*time.Hour))
	assert.Equal(t, "3h 15m", FormatDuration(3*time.Hour+15*time.Minute))
	assert.Equal(t, "12m", FormatDuration(12*time.Minute))
	assert.Equal(t, "40s", FormatDuration(40*time.Second))
	assert.Equal(t, "0s", FormatDuration(0))
}

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "BTCUSDT", NormalizeSymbol("btc/usdt"))
	assert.Equal(t, "BTCUSDT", NormalizeSymbol(" BTC-USDT "))
	assert.Equal(t, "1INCHUSDT", NormalizeSymbol("1inch_usdt"))
}

func TestRetryWithResult(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}

	calls := 0
	v, err := RetryWithResult(context.Background(), cfg, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("flaky")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 3, calls)

	permanent := errors.New("permanent")
	cfg.Retryable = func(err error) bool { return !errors.Is(err, permanent) }
	calls = 0
	err = Retry(context.Background(), cfg, func() error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour, BackoffFactor: 1}
	err := Retry(ctx, cfg, func() error { return errors.New("down") })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalculateBackoff(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, CalculateBackoff(0, 100*time.Millisecond, time.Second, 2))
	assert.Equal(t, 400*time.Millisecond, CalculateBackoff(2, 100*time.Millisecond, time.Second, 2))
	assert.Equal(t, time.Second, CalculateBackoff(10, 100*time.Millisecond, time.Second, 2))
}
