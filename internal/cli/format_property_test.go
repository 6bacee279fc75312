package cli

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// For any finite amount, FormatMoney should:
// 1. Start with $ (or -$ for negative)
// 2. Have exactly 2 decimal places
// 3. Group the integer part in threes
// 4. Preserve the numeric value when parsed back
func TestProperty_MoneyFormatting(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	grouped := regexp.MustCompile(`^\d{1,3}(,\d{3})*$`)

	properties.Property("FormatMoney produces grouped dollar amounts", prop.ForAll(
		func(amount float64) bool {
			formatted := FormatMoney(amount)

			rest := formatted
			if strings.HasPrefix(rest, "-") {
				if amount >= 0 {
					t.Logf("unexpected sign for %f: %s", amount, formatted)
					return false
				}
				rest = rest[1:]
			}
			if !strings.HasPrefix(rest, "$") {
				t.Logf("missing $ prefix for %f: %s", amount, formatted)
				return false
			}
			rest = rest[1:]

			parts := strings.Split(rest, ".")
			if len(parts) != 2 || len(parts[1]) != 2 {
				t.Logf("expected 2 decimal places for %f: %s", amount, formatted)
				return false
			}
			if !grouped.MatchString(parts[0]) {
				t.Logf("bad grouping for %f: %s", amount, formatted)
				return false
			}

			parsed, err := strconv.ParseFloat(strings.ReplaceAll(rest, ",", ""), 64)
			if err != nil {
				return false
			}
			return math.Abs(parsed-math.Abs(amount)) <= 0.005+1e-9*math.Abs(amount)
		},
		gen.Float64Range(-1e12, 1e12),
	))

	properties.TestingRun(t)
}

// FormatPnL adds a plus sign exactly for positive amounts.
func TestProperty_PnLSign(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("sign follows the amount", prop.ForAll(
		func(amount float64) bool {
			s := FormatPnL(amount)
			switch {
			case amount > 0:
				return strings.HasPrefix(s, "+$")
			case amount < 0:
				return strings.HasPrefix(s, "-$")
			default:
				return strings.HasPrefix(s, "$")
			}
		},
		gen.Float64Range(-1e9, 1e9),
	))

	properties.TestingRun(t)
}

// TruncateString never exceeds the limit and keeps short strings intact.
func TestProperty_TruncateString(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("length bounded by max", prop.ForAll(
		func(s string, maxLen int) bool {
			out := TruncateString(s, maxLen)
			n := len([]rune(s))
			if n <= maxLen {
				return out == s
			}
			return len([]rune(out)) == maxLen
		},
		gen.AlphaString(),
		gen.IntRange(0, 40),
	))

	properties.TestingRun(t)
}

func TestFormatHelpers(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{FormatMoney(12345.6), "$12,345.60"},
		{FormatPnL(-5), "-$5.00"},
		{FormatPrice(64000), "64000.00"},
		{FormatPrice(1.08567), "1.0857"},
		{FormatPrice(0), "-"},
		{FormatRiskReward(2.5), "1:2.50"},
		{FormatQuality(3), "★★★☆☆"},
		{FormatSignedPercent(12.5), "+12.50%"},
		{TruncateString("scalp", 3), "sca"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
