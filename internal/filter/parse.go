package filter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	jerrors "trade-journal/internal/errors"
)

// ParseDateFilter reads the textual range used by the CLI and HTTP API:
// "" or "lifetime", "<N>d" for the last N days, or "YYYY-MM-DD..YYYY-MM-DD".
// Absolute dates are interpreted in loc.
func ParseDateFilter(s string, loc *time.Location) (DateFilter, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case s == "" || s == "lifetime" || s == strings.ToLower(All):
		return Lifetime(), nil

	case strings.Contains(s, ".."):
		parts := strings.SplitN(s, "..", 2)
		start, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(parts[0]), loc)
		if err != nil {
			return DateFilter{}, jerrors.NewValidationError("range", s, "start must be YYYY-MM-DD")
		}
		end, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(parts[1]), loc)
		if err != nil {
			return DateFilter{}, jerrors.NewValidationError("range", s, "end must be YYYY-MM-DD")
		}
		d := Absolute(start, end)
		return d, d.Validate()

	case strings.HasSuffix(s, "d"):
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return DateFilter{}, jerrors.NewValidationError("range", s, "expected <N>d")
		}
		d := Relative(days)
		return d, d.Validate()
	}
	return DateFilter{}, jerrors.NewValidationError("range", s, "expected lifetime, <N>d or YYYY-MM-DD..YYYY-MM-DD")
}

// String renders the filter in the ParseDateFilter format.
func (d DateFilter) String() string {
	switch d.Type {
	case DateRelative:
		return fmt.Sprintf("%dd", d.Days)
	case DateAbsolute:
		return d.Start.Format("2006-01-02") + ".." + d.End.Format("2006-01-02")
	default:
		return "lifetime"
	}
}
