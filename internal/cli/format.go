package cli

import (
	"fmt"
	"strings"
	"time"

	"trade-journal/internal/models"
	"trade-journal/pkg/utils"
)

// FormatMoney formats an amount as "$12,345.60".
func FormatMoney(amount float64) string {
	return utils.FormatMoney(amount)
}

// FormatPnL formats P&L with an explicit sign.
func FormatPnL(pnl float64) string {
	return utils.FormatPnL(pnl)
}

// FormatSignedPercent formats a percentage with an explicit sign.
func FormatSignedPercent(pct float64) string {
	return utils.FormatPercent(pct)
}

// FormatQuantity trims trailing zeros from a quantity.
func FormatQuantity(qty float64) string {
	return utils.FormatQuantity(qty)
}

// FormatPrice formats a price with appropriate decimal places.
func FormatPrice(price float64) string {
	switch {
	case price == 0:
		return "-"
	case price >= 100:
		return fmt.Sprintf("%.2f", price)
	case price >= 1:
		return fmt.Sprintf("%.4f", price)
	}
	return fmt.Sprintf("%.6f", price)
}

// FormatOptionalPrice formats a price pointer, "-" when unset.
func FormatOptionalPrice(p *float64) string {
	if p == nil {
		return "-"
	}
	return FormatPrice(*p)
}

// FormatRatio formats a ratio, showing the profit factor cap as "∞".
func FormatRatio(v, capValue float64) string {
	return utils.FormatRatio(v, capValue)
}

// FormatRate formats a fee rate for its fee type.
func FormatRate(rate float64, typ models.FeeType) string {
	if typ == models.FeeTypeFixed {
		return FormatMoney(rate)
	}
	return fmt.Sprintf("%.3f%%", rate)
}

// FormatDateTime formats a timestamp in local time using layout, falling
// back to "2006-01-02 15:04".
func FormatDateTime(t time.Time, layout string) string {
	if t.IsZero() {
		return "-"
	}
	if layout == "" {
		layout = "2006-01-02 15:04"
	}
	return t.Local().Format(layout)
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	return utils.FormatDuration(d)
}

// FormatRiskReward formats a risk-reward ratio.
func FormatRiskReward(rr float64) string {
	if rr <= 0 {
		return "-"
	}
	return fmt.Sprintf("1:%.2f", rr)
}

// FormatQuality renders an exit quality as stars.
func FormatQuality(q int) string {
	if q <= 0 {
		return "-"
	}
	if q > 5 {
		q = 5
	}
	return strings.Repeat("★", q) + strings.Repeat("☆", 5-q)
}

// TruncateString truncates a string to max length with ellipsis.
func TruncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// PadRight pads a string to the right.
func PadRight(s string, length int) string {
	if w := displayWidth(s); w < length {
		return s + strings.Repeat(" ", length-w)
	}
	return s
}

func limitOrOff(v float64, format string) string {
	if v <= 0 {
		return "off"
	}
	return fmt.Sprintf(format, v)
}
