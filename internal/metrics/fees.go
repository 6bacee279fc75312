package metrics

import (
	"strings"

	"trade-journal/internal/models"
)

// FeeFor returns the fee config for an exchange, falling back to the
// user-level default when the exchange has no override.
func FeeFor(exchange string, cfg Config) models.FeeConfig {
	if fc, ok := cfg.ExchangeFees[exchange]; ok {
		return fc
	}
	for name, fc := range cfg.ExchangeFees {
		if strings.EqualFold(name, exchange) {
			return fc
		}
	}
	return cfg.FeeDefault
}

// EstimateFee estimates the round-trip fee of a trade.
// FIXED: taker * 2 regardless of size.
// PERCENTAGE: (entry notional + exit notional) * taker / 100.
func EstimateFee(t *models.Trade, fc models.FeeConfig) float64 {
	if fc.Type == models.FeeTypeFixed {
		return fc.Taker * 2
	}
	entryNotional := t.EntryPrice * t.Quantity
	exitNotional := t.ExitPriceValue() * t.Quantity
	return (entryNotional + exitNotional) * (fc.Taker / 100)
}
