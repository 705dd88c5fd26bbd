package intent

import (
	"fmt"

	"github.com/claimlens/claimlens/internal/catalog"
)

// ValidationResult is the outcome of checking an intent against the metric
// catalog. Errors holds every violation found, not just the first.
type ValidationResult struct {
	Valid  bool                      `json:"valid"`
	Errors []string                  `json:"errors,omitempty"`
	Metric *catalog.MetricDefinition `json:"metric,omitempty"`
}

// Validate checks a query intent against a catalog snapshot. It is a pure
// function: no I/O, no mutation of its inputs. It fails closed — any
// violation blocks execution — and collects all violations so the caller can
// report them together.
func Validate(qi QueryIntent, defs []catalog.MetricDefinition) ValidationResult {
	var errs []string

	var metric *catalog.MetricDefinition
	if qi.Metric.Slug == "" {
		errs = append(errs, "missing metric slug")
	} else {
		for i := range defs {
			if defs[i].Slug == qi.Metric.Slug {
				metric = &defs[i]
				break
			}
		}
		switch {
		case metric == nil:
			errs = append(errs, fmt.Sprintf("unknown metric %q", qi.Metric.Slug))
		case !metric.IsActive:
			errs = append(errs, fmt.Sprintf("metric %q is not active", qi.Metric.Slug))
			metric = nil
		}
	}

	if metric != nil {
		for _, dim := range qi.Dimensions {
			if !metric.AllowsDimension(dim) {
				errs = append(errs, fmt.Sprintf("dimension %q is not allowed for metric %q", dim, metric.Slug))
			}
		}
	}

	for _, f := range qi.Filters {
		if !KnownFilterFields[f.Field] {
			errs = append(errs, fmt.Sprintf("unknown filter field %q", f.Field))
		}
		if !KnownOperators[f.Operator] {
			errs = append(errs, fmt.Sprintf("unknown filter operator %q", f.Operator))
		}
	}

	if qi.ChartType != "" && !catalog.KnownChartTypes[catalog.ChartType(qi.ChartType)] {
		errs = append(errs, fmt.Sprintf("unknown chart type %q", qi.ChartType))
	}

	switch {
	case qi.TimeRange == nil:
		errs = append(errs, "missing time range")
	case qi.TimeRange.Start == "" || qi.TimeRange.End == "":
		errs = append(errs, "time range must include both start and end dates")
	default:
		if _, _, err := qi.TimeRange.Bounds(); err != nil {
			errs = append(errs, err.Error())
		}
	}

	result := ValidationResult{Valid: len(errs) == 0, Errors: errs}
	if result.Valid {
		result.Metric = metric
	}
	return result
}
