package csvimport

import (
	"bytes"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"trade-journal/internal/models"
)

// Property: exporting closed trades and importing the file again reproduces
// symbol, side, price and pnl.
func TestProperty_ExportReimportRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("export then import preserves symbol/side/price/pnl", prop.ForAll(
		func(entries []float64, moves []float64, shorts []bool) bool {
			n := minLen(len(entries), len(moves), len(shorts))
			trades := make([]models.Trade, 0, n)
			start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

			for i := 0; i < n; i++ {
				side := models.SideLong
				if shorts[i] {
					side = models.SideShort
				}
				entry := math.Round(entries[i]*100) / 100
				tr := models.Trade{
					ID: fmt.Sprintf("p%d", i), Symbol: fmt.Sprintf("SYM%dUSDT", i), Side: side,
					EntryPrice: entry, Quantity: 1, Capital: entry, Leverage: 1,
					EntryDate: start.Add(time.Duration(i) * time.Hour),
					Status:    models.StatusOpen, Exchange: "Binance", TradeType: models.TradeTypePast,
				}
				exit := math.Max(0.01, math.Round((entry+moves[i])*100)/100)
				if err := tr.Close(exit, tr.EntryDate.Add(time.Minute), ""); err != nil {
					return false
				}
				trades = append(trades, tr)
			}

			var buf bytes.Buffer
			if err := ExportCSV(&buf, trades); err != nil {
				return false
			}
			rows, headers, err := ReadCSV(&buf)
			if err != nil {
				return false
			}
			res := Normalize(rows, headers, start)
			if len(res.Trades) != len(trades) {
				return false
			}
			for i := range trades {
				want, got := trades[i], res.Trades[i]
				if want.Symbol != got.Symbol || want.Side != got.Side || want.EntryPrice != got.EntryPrice {
					return false
				}
				if math.Abs(want.PnLValue()-got.PnLValue()) > 1e-9 {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(8, gen.Float64Range(1, 100000)),
		gen.SliceOfN(8, gen.Float64Range(-500, 500)),
		gen.SliceOfN(8, gen.Bool()),
	))

	properties.TestingRun(t)
}

func minLen(ns ...int) int {
	m := ns[0]
	for _, n := range ns[1:] {
		if n < m {
			m = n
		}
	}
	return m
}
