package marketdata

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/strata/internal/core"
)

var periodPattern = regexp.MustCompile(`^(\d+)(d|wk|mo|y)$`)

// earliest is used as the start of a "max" lookback.
var earliest = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// ParsePeriod resolves a lookback such as "5d", "6mo", "2y", "ytd" or "max"
// into a start time relative to now.
func ParsePeriod(period string, now time.Time) (time.Time, error) {
	p := strings.ToLower(strings.TrimSpace(period))
	switch p {
	case "max":
		return earliest, nil
	case "ytd":
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location()), nil
	}

	m := periodPattern.FindStringSubmatch(p)
	if m == nil {
		return time.Time{}, core.Errorf(core.ErrInvalidConfiguration, "unsupported period %q", period)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return time.Time{}, core.Errorf(core.ErrInvalidConfiguration, "unsupported period %q", period)
	}

	switch m[2] {
	case "d":
		return now.AddDate(0, 0, -n), nil
	case "wk":
		return now.AddDate(0, 0, -7*n), nil
	case "mo":
		return now.AddDate(0, -n, 0), nil
	default:
		return now.AddDate(-n, 0, 0), nil
	}
}
