package intent

import (
	"testing"
	"time"
)

func date(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestResolveComparisonRange(t *testing.T) {
	tests := []struct {
		name      string
		start     string
		end       string
		offset    string
		wantStart string
		wantEnd   string
	}{
		{"previous period shifts by span", "2026-07-01", "2026-07-30", "previous_period", "2026-06-01", "2026-06-30"},
		{"empty offset behaves like previous period", "2026-07-01", "2026-07-30", "", "2026-06-01", "2026-06-30"},
		{"prior month is a fixed 30-day shift", "2026-07-10", "2026-07-20", "prior_month", "2026-06-10", "2026-06-20"},
		{"prior year is a fixed 365-day shift", "2026-07-01", "2026-07-30", "prior_year", "2025-07-01", "2025-07-30"},
		{"numeric weeks", "2026-07-15", "2026-07-21", "2_weeks", "2026-07-01", "2026-07-07"},
		{"numeric quarter", "2026-07-01", "2026-07-30", "1_quarter", "2026-04-02", "2026-05-01"},
		{"negative sign is treated as magnitude", "2026-07-15", "2026-07-21", "-1_week", "2026-07-08", "2026-07-14"},
		{"unknown offset falls back to span shift", "2026-07-01", "2026-07-07", "fortnight_ago", "2026-06-24", "2026-06-30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotStart, gotEnd := ResolveComparisonRange(date(tt.start), date(tt.end), tt.offset)
			if gotStart.Format(DateLayout) != tt.wantStart || gotEnd.Format(DateLayout) != tt.wantEnd {
				t.Errorf("ResolveComparisonRange(%s, %s, %q) = [%s, %s], want [%s, %s]",
					tt.start, tt.end, tt.offset,
					gotStart.Format(DateLayout), gotEnd.Format(DateLayout),
					tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestResolveComparisonRangePreservesSpan(t *testing.T) {
	start, end := ResolveComparisonRange(date("2026-01-01"), date("2026-03-15"), "1_year")
	if got := end.Sub(start); got != date("2026-03-15").Sub(date("2026-01-01")) {
		t.Errorf("span changed after shift: %v", got)
	}
}
