// Package filter narrows a trade collection by categorical and date criteria.
package filter

import (
	"sort"
	"strconv"
	"strings"
	"time"

	jerrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

// All disables a categorical filter. The empty string does too.
const All = "All"

// DateFilterType selects the date filter variant.
type DateFilterType string

const (
	DateLifetime DateFilterType = "LIFETIME"
	DateRelative DateFilterType = "RELATIVE"
	DateAbsolute DateFilterType = "ABSOLUTE"
)

// DateFilter is a tagged variant: Days is read for RELATIVE, Start/End for
// ABSOLUTE.
type DateFilter struct {
	Type  DateFilterType `json:"type"`
	Days  int            `json:"days,omitempty"`
	Start time.Time      `json:"start,omitempty"`
	End   time.Time      `json:"end,omitempty"`
}

// Lifetime keeps every trade.
func Lifetime() DateFilter { return DateFilter{Type: DateLifetime} }

// Relative keeps trades entered within the last days.
func Relative(days int) DateFilter { return DateFilter{Type: DateRelative, Days: days} }

// Absolute keeps trades entered on calendar days start..end inclusive.
func Absolute(start, end time.Time) DateFilter {
	return DateFilter{Type: DateAbsolute, Start: start, End: end}
}

// Validate checks the variant is well formed.
func (d DateFilter) Validate() error {
	switch d.Type {
	case "", DateLifetime:
		return nil
	case DateRelative:
		if d.Days < 0 {
			return jerrors.NewValidationError("days", d.Days, "must not be negative")
		}
		return nil
	case DateAbsolute:
		if d.End.Before(d.Start) {
			return jerrors.NewValidationError("range", d.End, "end is before start")
		}
		return nil
	default:
		return jerrors.NewValidationError("type", d.Type, "must be LIFETIME, RELATIVE or ABSOLUTE")
	}
}

// Filters is the set of criteria applied to a trade collection. Every
// criterion is optional.
type Filters struct {
	Symbol   string     `json:"symbol,omitempty"`
	Strategy string     `json:"strategy,omitempty"`
	Setup    string     `json:"setup,omitempty"`
	Side     string     `json:"side,omitempty"`
	Quality  string     `json:"quality,omitempty"` // "N Stars"
	Tag      string     `json:"tag,omitempty"`
	Date     DateFilter `json:"date"`
}

// IsZero reports whether no criterion is set.
func (f Filters) IsZero() bool {
	return unset(f.Symbol) && unset(f.Strategy) && unset(f.Setup) && unset(f.Side) &&
		unset(f.Quality) && unset(f.Tag) && (f.Date.Type == "" || f.Date.Type == DateLifetime)
}

type predicate func(*models.Trade) bool

// Apply returns the trades matching every criterion, in input order.
func Apply(trades []models.Trade, f Filters, now time.Time) []models.Trade {
	preds := f.predicates(now)
	out := make([]models.Trade, 0, len(trades))

	for i := range trades {
		t := &trades[i]
		keep := true
		for _, p := range preds {
			if !p(t) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, *t)
		}
	}
	return out
}

// predicates builds the active checks in a fixed order: symbol, strategy,
// setup, side, quality, tag, date.
func (f Filters) predicates(now time.Time) []predicate {
	var preds []predicate

	if !unset(f.Symbol) {
		sym := f.Symbol
		preds = append(preds, func(t *models.Trade) bool { return t.Symbol == sym })
	}
	if !unset(f.Strategy) {
		s := f.Strategy
		preds = append(preds, func(t *models.Trade) bool { return t.Strategy == s || t.StrategyID == s })
	}
	if !unset(f.Setup) {
		s := f.Setup
		preds = append(preds, func(t *models.Trade) bool { return contains(t.Setups, s) })
	}
	if !unset(f.Side) {
		side := models.Side(strings.ToUpper(f.Side))
		preds = append(preds, func(t *models.Trade) bool { return t.Side == side })
	}
	if !unset(f.Quality) {
		q := ParseQuality(f.Quality)
		preds = append(preds, func(t *models.Trade) bool { return t.ExitQuality == q })
	}
	if !unset(f.Tag) {
		tag := f.Tag
		preds = append(preds, func(t *models.Trade) bool {
			return contains(t.EntryReasons, tag) || contains(t.MentalState, tag) || contains(t.Tags, tag)
		})
	}
	if p := f.Date.predicate(now); p != nil {
		preds = append(preds, p)
	}
	return preds
}

func (d DateFilter) predicate(now time.Time) predicate {
	switch d.Type {
	case DateRelative:
		cutoff := now.AddDate(0, 0, -d.Days)
		return func(t *models.Trade) bool { return !t.EntryDate.Before(cutoff) }
	case DateAbsolute:
		from, to := DayBounds(d.Start, d.End)
		return func(t *models.Trade) bool {
			return !t.EntryDate.Before(from) && !t.EntryDate.After(to)
		}
	default:
		return nil
	}
}

// DayBounds expands start and end to [start 00:00:00, end 23:59:59.999999999]
// in their own locations.
func DayBounds(start, end time.Time) (time.Time, time.Time) {
	y, m, d := start.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, start.Location())
	y, m, d = end.Date()
	to := time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), end.Location())
	return from, to
}

// ParseQuality reads the leading integer of a label such as "4 Stars".
// Labels without one parse as 0.
func ParseQuality(label string) int {
	label = strings.TrimSpace(label)
	end := 0
	for end < len(label) && label[end] >= '0' && label[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(label[:end])
	if err != nil {
		return 0
	}
	return n
}

// QualityLabel is the inverse of ParseQuality.
func QualityLabel(q int) string {
	if q == 1 {
		return "1 Star"
	}
	return strconv.Itoa(q) + " Stars"
}

// OptionSet lists the distinct values available for each categorical filter.
type OptionSet struct {
	Symbols    []string `json:"symbols"`
	Strategies []string `json:"strategies"`
	Setups     []string `json:"setups"`
	Tags       []string `json:"tags"`
}

// Options collects sorted distinct symbols, strategies, setups and tags.
// Tags merge entry reasons, mental states and tags, matching the tag filter.
func Options(trades []models.Trade) OptionSet {
	symbols := map[string]struct{}{}
	strategies := map[string]struct{}{}
	setups := map[string]struct{}{}
	tags := map[string]struct{}{}

	for i := range trades {
		t := &trades[i]
		add(symbols, t.Symbol)
		add(strategies, t.Strategy)
		for _, s := range t.Setups {
			add(setups, s)
		}
		for _, list := range [][]string{t.EntryReasons, t.MentalState, t.Tags} {
			for _, s := range list {
				add(tags, s)
			}
		}
	}

	return OptionSet{
		Symbols:    keys(symbols),
		Strategies: keys(strategies),
		Setups:     keys(setups),
		Tags:       keys(tags),
	}
}

func unset(v string) bool {
	return v == "" || v == All
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func add(set map[string]struct{}, v string) {
	if v != "" {
		set[v] = struct{}{}
	}
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
