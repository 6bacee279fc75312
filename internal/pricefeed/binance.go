package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	jerrors "trade-journal/internal/errors"
	"trade-journal/pkg/utils"
)

// DefaultBaseURL is the public Binance spot REST endpoint.
const DefaultBaseURL = "https://api.binance.com"

// BinanceConfig configures a BinanceSource.
type BinanceConfig struct {
	BaseURL           string
	RequestsPerSecond float64
	Timeout           time.Duration
	Retry             utils.RetryConfig
}

// DefaultBinanceConfig returns sane defaults for the public ticker.
func DefaultBinanceConfig() BinanceConfig {
	return BinanceConfig{
		BaseURL:           DefaultBaseURL,
		RequestsPerSecond: 5,
		Timeout:           10 * time.Second,
		Retry:             utils.DefaultRetryConfig(),
	}
}

// BinanceSource reads last prices from the Binance ticker endpoint.
type BinanceSource struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      utils.RetryConfig
	logger     zerolog.Logger
}

// statusError is a non-200 reply from the exchange.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.code, e.body)
}

// NewBinanceSource creates a new BinanceSource.
func NewBinanceSource(cfg BinanceConfig, logger zerolog.Logger) *BinanceSource {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		burst = int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}
	cfg.Retry.Retryable = retryable

	return &BinanceSource{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
		retry:      cfg.Retry,
		logger:     logger.With().Str("component", "pricefeed").Logger(),
	}
}

// FetchPrice implements PriceSource.
func (b *BinanceSource) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	sym := utils.NormalizeSymbol(symbol)
	if sym == "" {
		return 0, jerrors.NewPriceError(symbol, jerrors.ErrPriceUnavailable)
	}

	price, err := utils.RetryWithResult(ctx, b.retry, func() (float64, error) {
		return b.fetchOnce(ctx, sym)
	})
	if err != nil {
		b.logger.Debug().Err(err).Str("symbol", sym).Msg("Price fetch failed")
		return 0, jerrors.NewPriceError(sym, err)
	}
	return price, nil
}

func (b *BinanceSource) fetchOnce(ctx context.Context, symbol string) (float64, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	endpoint := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", b.baseURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("error building request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("error fetching price: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, &statusError{code: resp.StatusCode, body: string(body)}
	}

	var priceResp struct {
		Symbol string  `json:"symbol"`
		Price  float64 `json:"price,string"`
	}
	if err := json.Unmarshal(body, &priceResp); err != nil {
		return 0, fmt.Errorf("error parsing price: %w", err)
	}
	if priceResp.Price <= 0 {
		return 0, jerrors.ErrPriceUnavailable
	}
	return priceResp.Price, nil
}

// retryable skips client errors other than rate limiting.
func retryable(err error) bool {
	if se, ok := err.(*statusError); ok {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return !jerrors.Is(err, context.Canceled) && !jerrors.Is(err, context.DeadlineExceeded)
}
