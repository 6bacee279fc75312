package metrics

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"trade-journal/internal/models"
)

func tradesFromPnLs(pnls []float64) []models.Trade {
	trades := make([]models.Trade, len(pnls))
	for i, p := range pnls {
		trades[i] = closedTrade(fmt.Sprintf("t%d", i), p, i)
	}
	return trades
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Property: winners + losers always equals the closed trade count, and every
// reported ratio stays finite.
func TestProperty_CountsPartitionAndRatiosFinite(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("wins + losses = closed; ratios finite", prop.ForAll(
		func(pnls []float64) bool {
			m := Compute(tradesFromPnLs(pnls), DefaultConfig())
			if m.WinningTrades+m.LosingTrades != m.TotalTrades {
				return false
			}
			return finite(m.WinRate, m.ProfitFactor, m.Expectancy, m.AvgWin, m.AvgLoss,
				m.RealizedRR, m.SharpeRatio, m.SortinoRatio, m.MaxDrawdownPct, m.RecoveryFactor)
		},
		gen.SliceOf(gen.Float64Range(-1000, 1000)),
	))

	properties.TestingRun(t)
}

// Property: profit factor is non-negative and equals grossWin/grossLoss
// whenever there is any loss.
func TestProperty_ProfitFactorDefinition(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("profitFactor >= 0 and matches ratio", prop.ForAll(
		func(pnls []float64) bool {
			m := Compute(tradesFromPnLs(pnls), DefaultConfig())
			if m.ProfitFactor < 0 {
				return false
			}
			if m.GrossLoss > 0 {
				return math.Abs(m.ProfitFactor-m.GrossWin/m.GrossLoss) < 1e-9
			}
			return true
		},
		gen.SliceOfN(20, gen.Float64Range(-500, 500)),
	))

	properties.TestingRun(t)
}

// Property: the maximum drawdown never exceeds the sum of all losses, and the
// last equity point equals net pnl.
func TestProperty_EquityCurveConsistency(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("drawdown bounded by gross loss; curve ends at net pnl", prop.ForAll(
		func(pnls []float64) bool {
			m := Compute(tradesFromPnLs(pnls), DefaultConfig())
			if m.MaxDrawdownAbs > m.GrossLoss+1e-6 {
				return false
			}
			if len(m.EquityCurve) == 0 {
				return m.NetPnL == 0
			}
			last := m.EquityCurve[len(m.EquityCurve)-1].Equity
			return math.Abs(last-m.NetPnL) < 1e-6
		},
		gen.SliceOf(gen.Float64Range(-1000, 1000)),
	))

	properties.TestingRun(t)
}

// Property: for PERCENTAGE fees the estimate equals (entry + exit notional) * rate.
func TestProperty_PercentageFeeSymmetry(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("fee = (entryNotional + exitNotional) * taker/100", prop.ForAll(
		func(entry, exit, qty, taker float64) bool {
			tr := models.Trade{EntryPrice: entry, ExitPrice: models.Float(exit), Quantity: qty}
			fc := models.FeeConfig{Type: models.FeeTypePercentage, Taker: taker}
			want := (entry*qty + exit*qty) * (taker / 100)
			return math.Abs(EstimateFee(&tr, fc)-want) < 1e-9*math.Max(1, want)
		},
		gen.Float64Range(0.01, 100000),
		gen.Float64Range(0.01, 100000),
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}
