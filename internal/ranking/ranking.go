// Package ranking maps performance metrics to a discrete trader rank.
package ranking

// Rank is one level of the ladder with the thresholds required to hold it.
type Rank struct {
	Name            string  `json:"name"`
	Level           int     `json:"level"`
	MinProfitFactor float64 `json:"minProfitFactor"`
	MaxDrawdownPct  float64 `json:"maxDrawdownPct"`
	MinRealizedRR   float64 `json:"minRealizedRR"`
}

// Qualifies reports whether all three thresholds are met.
func (r Rank) Qualifies(profitFactor, drawdownPct, realizedRR float64) bool {
	return profitFactor >= r.MinProfitFactor &&
		drawdownPct <= r.MaxDrawdownPct &&
		realizedRR >= r.MinRealizedRR
}

// Table is ordered from the lowest rank to the highest.
type Table []Rank

// DefaultTable returns the standard ladder.
func DefaultTable() Table {
	return Table{
		{Name: "Novice", Level: 0, MinProfitFactor: 0, MaxDrawdownPct: 100, MinRealizedRR: 0},
		{Name: "Survivor", Level: 1, MinProfitFactor: 1.0, MaxDrawdownPct: 30, MinRealizedRR: 0.8},
		{Name: "Consistent", Level: 2, MinProfitFactor: 1.3, MaxDrawdownPct: 20, MinRealizedRR: 1.0},
		{Name: "Warrior", Level: 3, MinProfitFactor: 1.6, MaxDrawdownPct: 15, MinRealizedRR: 1.5},
		{Name: "Elite", Level: 4, MinProfitFactor: 2.0, MaxDrawdownPct: 10, MinRealizedRR: 2.0},
		{Name: "GOD", Level: 5, MinProfitFactor: 3.0, MaxDrawdownPct: 5, MinRealizedRR: 3.0},
	}
}

// Assign scans from the highest rank down and returns the first whose
// thresholds are all satisfied. The lowest rank is returned when none match.
func (t Table) Assign(profitFactor, drawdownPct, realizedRR float64) Rank {
	if len(t) == 0 {
		return Rank{}
	}
	for i := len(t) - 1; i >= 0; i-- {
		if t[i].Qualifies(profitFactor, drawdownPct, realizedRR) {
			return t[i]
		}
	}
	return t[0]
}

// Next returns the rank above r, or false when r is the top.
func (t Table) Next(r Rank) (Rank, bool) {
	for i := range t {
		if t[i].Level == r.Level && i+1 < len(t) {
			return t[i+1], true
		}
	}
	return Rank{}, false
}

// Assign ranks against DefaultTable.
func Assign(profitFactor, drawdownPct, realizedRR float64) Rank {
	return DefaultTable().Assign(profitFactor, drawdownPct, realizedRR)
}

// Gap is how far a metric is from the next rank's threshold. Met is true
// when the threshold is already satisfied; Delta is then 0.
type Gap struct {
	Current  float64 `json:"current"`
	Required float64 `json:"required"`
	Delta    float64 `json:"delta"`
	Met      bool    `json:"met"`
}

// Progress describes the current rank and what is missing for the next.
type Progress struct {
	Current      Rank  `json:"current"`
	Next         *Rank `json:"next,omitempty"`
	ProfitFactor Gap   `json:"profitFactor"`
	Drawdown     Gap   `json:"drawdown"`
	RealizedRR   Gap   `json:"realizedRR"`
}

// Progress assigns a rank and measures the per-axis distance to the next.
func (t Table) Progress(profitFactor, drawdownPct, realizedRR float64) Progress {
	cur := t.Assign(profitFactor, drawdownPct, realizedRR)
	p := Progress{Current: cur}

	next, ok := t.Next(cur)
	if !ok {
		return p
	}
	p.Next = &next
	p.ProfitFactor = atLeast(profitFactor, next.MinProfitFactor)
	p.Drawdown = atMost(drawdownPct, next.MaxDrawdownPct)
	p.RealizedRR = atLeast(realizedRR, next.MinRealizedRR)
	return p
}

func atLeast(cur, req float64) Gap {
	g := Gap{Current: cur, Required: req, Met: cur >= req}
	if !g.Met {
		g.Delta = req - cur
	}
	return g
}

func atMost(cur, req float64) Gap {
	g := Gap{Current: cur, Required: req, Met: cur <= req}
	if !g.Met {
		g.Delta = cur - req
	}
	return g
}
