// Package metrics computes trade performance statistics: win rate, profit
// factor, expectancy, Sharpe/Sortino, equity curve and drawdown, streaks,
// fees and running series for charts.
//
// Only CLOSED trades participate. Every ratio with a zero denominator resolves
// to a fixed fallback so callers never see NaN or Inf.
package metrics

import (
	"math"
	"sort"
	"time"

	"trade-journal/internal/models"
)

const (
	// DefaultProfitFactorCap is reported when there are wins but no losses.
	DefaultProfitFactorCap = 999.0
	// DefaultDrawdownBase is the drawdown percentage base used when peak
	// equity never rises above zero.
	DefaultDrawdownBase = 10000.0
	// PerfectRR is the realized R:R reported when there are wins but no losses.
	PerfectRR = 10.0
)

// Config holds the inputs besides trades that the engine needs.
type Config struct {
	FeeDefault           models.FeeConfig
	ExchangeFees         map[string]models.FeeConfig
	DrawdownFallbackBase float64
	ProfitFactorCap      float64
}

// DefaultConfig returns a config with the default sentinels and no fees.
func DefaultConfig() Config {
	return Config{
		FeeDefault:           models.FeeConfig{Type: models.FeeTypePercentage},
		DrawdownFallbackBase: DefaultDrawdownBase,
		ProfitFactorCap:      DefaultProfitFactorCap,
	}
}

func (c Config) pfCap() float64 {
	if c.ProfitFactorCap > 0 {
		return c.ProfitFactorCap
	}
	return DefaultProfitFactorCap
}

func (c Config) ddBase() float64 {
	if c.DrawdownFallbackBase > 0 {
		return c.DrawdownFallbackBase
	}
	return DefaultDrawdownBase
}

// StreakType is the outcome of the trailing run of trades.
type StreakType string

const (
	StreakWin  StreakType = "WIN"
	StreakLoss StreakType = "LOSS"
	StreakNone StreakType = "NONE"
)

// Streak is a run of same-outcome trades.
type Streak struct {
	Type  StreakType `json:"type"`
	Count int        `json:"count"`
}

// Streaks summarizes win/loss runs.
type Streaks struct {
	MaxWin  int    `json:"maxWinStreak"`
	MaxLoss int    `json:"maxLossStreak"`
	Current Streak `json:"currentStreak"`
}

// EquityPoint is one point of the cumulative equity curve.
type EquityPoint struct {
	Index    int       `json:"index"`
	TradeID  string    `json:"tradeId"`
	Time     time.Time `json:"time"`
	PnL      float64   `json:"pnl"`
	Equity   float64   `json:"equity"`
	Peak     float64   `json:"peak"`
	Drawdown float64   `json:"drawdown"`
}

// FeeSummary aggregates estimated fees.
type FeeSummary struct {
	Total      float64            `json:"total"`
	ByExchange map[string]float64 `json:"byExchange"`
}

// Metrics is the full statistics bundle for a trade set.
type Metrics struct {
	TotalTrades   int `json:"totalTrades"`
	WinningTrades int `json:"winningTrades"`
	LosingTrades  int `json:"losingTrades"`

	WinRate      float64 `json:"winRate"`
	GrossWin     float64 `json:"grossWin"`
	GrossLoss    float64 `json:"grossLoss"`
	NetPnL       float64 `json:"netPnl"`
	ProfitFactor float64 `json:"profitFactor"`
	Expectancy   float64 `json:"expectancy"`

	AvgWin     float64 `json:"avgWin"`
	AvgLoss    float64 `json:"avgLoss"`
	RealizedRR float64 `json:"realizedRR"`

	HighestWin        float64 `json:"highestWin"`
	HighestLoss       float64 `json:"highestLoss"`
	HighestWinPct     float64 `json:"highestWinPct"`
	HighestLossPct    float64 `json:"highestLossPct"`
	MeanPnL           float64 `json:"meanPnl"`
	StdDev            float64 `json:"stdDev"`
	SharpeRatio       float64 `json:"sharpeRatio"`
	DownsideDeviation float64 `json:"downsideDeviation"`
	SortinoRatio      float64 `json:"sortinoRatio"`

	EquityCurve    []EquityPoint `json:"equityCurve"`
	PeakEquity     float64       `json:"peakEquity"`
	MaxDrawdownAbs float64       `json:"maxDrawdownAbs"`
	MaxDrawdownPct float64       `json:"maxDrawdownPct"`
	RecoveryFactor float64       `json:"recoveryFactor"`

	Streaks Streaks    `json:"streaks"`
	Fees    FeeSummary `json:"fees"`

	AvgHoldTime time.Duration `json:"avgHoldTime"`

	Series []SeriesPoint `json:"series"`
}

// SafeDivide returns a/b, or fallback when b is zero or the result is not finite.
func SafeDivide(a, b, fallback float64) float64 {
	if b == 0 {
		return fallback
	}
	v := a / b
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

// Sorted returns the closed trades ordered ascending by exit date (entry date
// when the exit date is missing). The input slice is not modified.
func Sorted(trades []models.Trade) []models.Trade {
	closed := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if t.IsClosed() {
			closed = append(closed, t)
		}
	}
	sort.SliceStable(closed, func(i, j int) bool {
		return closed[i].SortTime().Before(closed[j].SortTime())
	})
	return closed
}

// IsWin reports whether a closed trade counts as a winner. Zero-PnL trades
// are losers.
func IsWin(t *models.Trade) bool {
	return t.PnLValue() > 0
}

// ProfitFactor applies the profit factor fallback rules.
func ProfitFactor(grossWin, grossLoss, pfCap float64) float64 {
	if grossLoss > 0 {
		return SafeDivide(grossWin, grossLoss, 0)
	}
	if grossWin > 0 {
		return pfCap
	}
	return 0
}

// RealizedRR is avgWin/|avgLoss|, PerfectRR with wins and no losses, else 0.
func RealizedRR(avgWin, avgLoss float64) float64 {
	if avgLoss != 0 {
		return SafeDivide(avgWin, math.Abs(avgLoss), 0)
	}
	if avgWin > 0 {
		return PerfectRR
	}
	return 0
}

// AvgLoss is the sign-negative mean loss, 0 when there are no losers.
func AvgLoss(grossLoss float64, losses int) float64 {
	return SafeDivide(0-grossLoss, float64(losses), 0)
}

// Compute calculates the metrics bundle over the closed trades in trades.
func Compute(trades []models.Trade, cfg Config) Metrics {
	closed := Sorted(trades)
	n := len(closed)

	m := Metrics{
		TotalTrades: n,
		Streaks:     Streaks{Current: Streak{Type: StreakNone}},
		Fees:        FeeSummary{ByExchange: make(map[string]float64)},
		EquityCurve: make([]EquityPoint, 0, n),
		Series:      make([]SeriesPoint, 0, n),
	}
	if n == 0 {
		return m
	}

	var (
		sumPnL   float64
		holdSum  time.Duration
		winPct   []float64
		lossPct  []float64
		haveWin  bool
		haveLoss bool
	)

	for i := range closed {
		t := &closed[i]
		pnl := t.PnLValue()
		sumPnL += pnl

		if IsWin(t) {
			m.WinningTrades++
			m.GrossWin += pnl
			if !haveWin || pnl > m.HighestWin {
				m.HighestWin = pnl
			}
			winPct = append(winPct, t.PnLPercentValue())
			haveWin = true
		} else {
			m.LosingTrades++
			m.GrossLoss += math.Abs(pnl)
			if !haveLoss || pnl < m.HighestLoss {
				m.HighestLoss = pnl
			}
			lossPct = append(lossPct, t.PnLPercentValue())
			haveLoss = true
		}

		if t.ExitDate != nil && t.ExitDate.After(t.EntryDate) {
			holdSum += t.ExitDate.Sub(t.EntryDate)
		}

		fee := EstimateFee(t, FeeFor(t.Exchange, cfg))
		m.Fees.Total += fee
		m.Fees.ByExchange[exchangeKey(t.Exchange)] += fee
	}

	m.HighestWinPct = maxOf(winPct)
	m.HighestLossPct = minOf(lossPct)

	nf := float64(n)
	m.WinRate = SafeDivide(float64(m.WinningTrades), nf, 0) * 100
	m.NetPnL = m.GrossWin - m.GrossLoss
	m.ProfitFactor = ProfitFactor(m.GrossWin, m.GrossLoss, cfg.pfCap())
	m.Expectancy = SafeDivide(m.NetPnL, nf, 0)
	m.AvgWin = SafeDivide(m.GrossWin, float64(m.WinningTrades), 0)
	m.AvgLoss = AvgLoss(m.GrossLoss, m.LosingTrades)
	m.RealizedRR = RealizedRR(m.AvgWin, m.AvgLoss)
	m.AvgHoldTime = time.Duration(SafeDivide(float64(holdSum), nf, 0))

	m.MeanPnL = SafeDivide(sumPnL, nf, 0)
	var sqDiff, sqNeg float64
	for i := range closed {
		pnl := closed[i].PnLValue()
		d := pnl - m.MeanPnL
		sqDiff += d * d
		if pnl < 0 {
			sqNeg += pnl * pnl
		}
	}
	m.StdDev = math.Sqrt(sqDiff / nf)
	m.DownsideDeviation = math.Sqrt(sqNeg / nf)
	m.SharpeRatio = SafeDivide(m.MeanPnL, m.StdDev, 0)
	m.SortinoRatio = SafeDivide(m.MeanPnL, m.DownsideDeviation, 0)

	m.EquityCurve, m.PeakEquity, m.MaxDrawdownAbs = equityCurve(closed)
	m.MaxDrawdownPct = DrawdownPercent(m.MaxDrawdownAbs, m.PeakEquity, cfg.ddBase())
	m.RecoveryFactor = SafeDivide(m.NetPnL, m.MaxDrawdownAbs, 0)
	m.Streaks = ComputeStreaks(closed)
	m.Series = RunningSeries(closed, cfg.pfCap())

	return m
}

// equityCurve walks the trades in order, tracking running balance, peak and
// the largest peak-to-trough decline.
func equityCurve(sorted []models.Trade) ([]EquityPoint, float64, float64) {
	points := make([]EquityPoint, 0, len(sorted))
	var balance, peak, maxDD float64

	for i := range sorted {
		t := &sorted[i]
		balance += t.PnLValue()
		if balance > peak {
			peak = balance
		}
		dd := peak - balance
		if dd > maxDD {
			maxDD = dd
		}
		points = append(points, EquityPoint{
			Index:    i,
			TradeID:  t.ID,
			Time:     t.SortTime(),
			PnL:      t.PnLValue(),
			Equity:   balance,
			Peak:     peak,
			Drawdown: dd,
		})
	}
	return points, peak, maxDD
}

// DrawdownPercent expresses an absolute drawdown against peak equity, or
// against fallbackBase when the peak never rose above zero.
func DrawdownPercent(maxDD, peak, fallbackBase float64) float64 {
	base := peak
	if base <= 0 {
		base = fallbackBase
	}
	return SafeDivide(maxDD, base, 0) * 100
}

// ComputeStreaks tracks win and loss runs over trades in chronological order.
// Losses never reset the win counter, so MaxWin is the total number of
// winning trades: [+10, -5, +10] gives MaxWin 2. Wins do reset the loss
// counter, so MaxLoss is the longest run of consecutive losses.
// Current is the trailing run ending at the most recent trade.
func ComputeStreaks(sorted []models.Trade) Streaks {
	s := Streaks{Current: Streak{Type: StreakNone}}
	var wins, losses int

	for i := range sorted {
		if IsWin(&sorted[i]) {
			wins++
			losses = 0
			if wins > s.MaxWin {
				s.MaxWin = wins
			}
		} else {
			losses++
			if losses > s.MaxLoss {
				s.MaxLoss = losses
			}
		}
	}

	s.Current = trailingStreak(sorted)
	return s
}

func trailingStreak(sorted []models.Trade) Streak {
	if len(sorted) == 0 {
		return Streak{Type: StreakNone}
	}
	lastWin := IsWin(&sorted[len(sorted)-1])
	count := 0
	for i := len(sorted) - 1; i >= 0; i-- {
		if IsWin(&sorted[i]) != lastWin {
			break
		}
		count++
	}
	if lastWin {
		return Streak{Type: StreakWin, Count: count}
	}
	return Streak{Type: StreakLoss, Count: count}
}

// LiveDuration is how long a trade has been held: exit minus entry for
// closed trades, now minus entry for open ones.
func LiveDuration(t *models.Trade, now time.Time) time.Duration {
	end := now
	if t.ExitDate != nil {
		end = *t.ExitDate
	}
	if end.Before(t.EntryDate) {
		return 0
	}
	return end.Sub(t.EntryDate)
}

func exchangeKey(exchange string) string {
	if exchange == "" {
		return "Unknown"
	}
	return exchange
}

func maxOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
