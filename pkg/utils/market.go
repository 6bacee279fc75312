package utils

import (
	"strings"
	"unicode"
)

// NormalizeSymbol upper-cases a symbol and drops separators, so "btc/usdt",
// "BTC-USDT" and " btc_usdt " all become "BTCUSDT".
func NormalizeSymbol(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return unicode.ToUpper(r)
		default:
			return -1
		}
	}, s)
}
