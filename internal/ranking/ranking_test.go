package ranking

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssign(t *testing.T) {
	cases := []struct {
		pf, dd, rr float64
		want       string
	}{
		{0, 0, 0, "Novice"},
		{1.0, 30, 0.8, "Survivor"},
		{1.4, 18, 1.2, "Consistent"},
		{1.7, 12, 1.6, "Warrior"},
		{2.5, 8, 2.2, "Elite"},
		{999, 0, 10, "GOD"},
		// Excellent PF and RR but a deep drawdown demotes to the rank the
		// drawdown allows.
		{5, 25, 5, "Survivor"},
		{5, 60, 5, "Novice"},
		{0.9, 1, 9, "Novice"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Assign(c.pf, c.dd, c.rr).Name, "pf=%v dd=%v rr=%v", c.pf, c.dd, c.rr)
	}
}

func TestAssignEmptyTable(t *testing.T) {
	assert.Equal(t, Rank{}, Table{}.Assign(1, 1, 1))
}

func TestNextAndProgress(t *testing.T) {
	table := DefaultTable()

	p := table.Progress(1.4, 18, 1.2)
	assert.Equal(t, "Consistent", p.Current.Name)
	require.NotNil(t, p.Next)
	assert.Equal(t, "Warrior", p.Next.Name)
	assert.False(t, p.ProfitFactor.Met)
	assert.InDelta(t, 0.2, p.ProfitFactor.Delta, 1e-9)
	assert.False(t, p.Drawdown.Met)
	assert.InDelta(t, 3.0, p.Drawdown.Delta, 1e-9)
	assert.InDelta(t, 0.3, p.RealizedRR.Delta, 1e-9)

	top := table.Progress(10, 0, 10)
	assert.Equal(t, "GOD", top.Current.Name)
	assert.Nil(t, top.Next)

	_, ok := table.Next(table[len(table)-1])
	assert.False(t, ok)
}

// Property: raising profit factor with drawdown and RR fixed never lowers the rank.
func TestProperty_RankMonotonicInProfitFactor(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("level(pf+delta) >= level(pf)", prop.ForAll(
		func(pf, delta, dd, rr float64) bool {
			return Assign(pf+delta, dd, rr).Level >= Assign(pf, dd, rr).Level
		},
		gen.Float64Range(0, 5),
		gen.Float64Range(0, 5),
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 5),
	))

	properties.TestingRun(t)
}
