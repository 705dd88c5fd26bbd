package intent

import (
	"regexp"
	"strconv"
	"time"
)

// Fixed day-count approximations for the numeric offset grammar. These are
// calendar-naive on purpose: downstream consumers depend on the stable
// 30/90/365-day shifts, so do not replace them with calendar arithmetic.
var offsetUnitDays = map[string]int{
	"day":     1,
	"week":    7,
	"month":   30,
	"quarter": 90,
	"year":    365,
}

var numericOffsetRe = regexp.MustCompile(`^([+-]?\d+)_(day|week|month|quarter|year)s?$`)

// ResolveComparisonRange computes the prior-period window to compare the
// current [start, end] window against. It supports a semantic grammar
// (previous_period, prior_month, prior_year) and a numeric one (±N_unit);
// anything else shifts by the current period's own duration. It performs no
// I/O and cannot fail.
func ResolveComparisonRange(currentStart, currentEnd time.Time, offset string) (time.Time, time.Time) {
	spanDays := int(currentEnd.Sub(currentStart).Hours()/24) + 1

	shiftDays := spanDays
	switch offset {
	case "previous_period", "":
		// shift by the span itself
	case "prior_month":
		shiftDays = 30
	case "prior_year":
		shiftDays = 365
	default:
		if m := numericOffsetRe.FindStringSubmatch(offset); m != nil {
			n, _ := strconv.Atoi(m[1])
			if n < 0 {
				n = -n
			}
			shiftDays = n * offsetUnitDays[m[2]]
		}
	}

	start := currentStart.AddDate(0, 0, -shiftDays)
	end := currentEnd.AddDate(0, 0, -shiftDays)
	return start, end
}
