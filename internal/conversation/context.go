package conversation

import (
	"github.com/claimlens/claimlens/internal/intent"
)

// TurnRecord is one entry in a thread's append-only history.
type TurnRecord struct {
	TurnIndex   int         `json:"turn_index"`
	IntentType  intent.Type `json:"intent_type"`
	MetricSlug  string      `json:"metric_slug,omitempty"`
	UserMessage string      `json:"user_message,omitempty"`
}

// Context is the accumulated conversational state for one thread: the last
// known metric, grouping, filters and time window, plus the turn history.
// It is a value — Merge returns a new Context and never mutates its input —
// so replaying a thread is just folding its turns.
type Context struct {
	Metric     intent.MetricRef   `json:"metric"`
	Dimensions []string           `json:"dimensions,omitempty"`
	Filters    []intent.Filter    `json:"filters,omitempty"`
	TimeRange  *intent.TimeRange  `json:"time_range,omitempty"`
	Comparison *intent.Comparison `json:"comparison,omitempty"`
	ChartType  string             `json:"chart_type,omitempty"`
	Sort       string             `json:"sort,omitempty"`
	Limit      int                `json:"limit,omitempty"`
	History    []TurnRecord       `json:"history,omitempty"`
}

// Merge folds a new intent into the running context and returns the result.
// The merge policy depends on the intent type:
//
//   - query / new_topic: the turn starts a fresh topic, so every query field
//     is replaced wholesale from the intent.
//   - refine: only fields the intent actually populated are patched; filters
//     are upserted by field, so refining "region = west" keeps an existing
//     "status = open" filter.
//   - compare: only the comparison (and time range, if given) change.
//   - drill_down: reads the existing aggregate context without altering it.
//
// Every branch appends exactly one history record. Callers must serialize
// merges for the same thread; concurrent merges into one context are not
// supported.
func Merge(current Context, qi intent.QueryIntent, turnIndex int, userMessage string) Context {
	next := clone(current)

	switch qi.IntentType {
	case intent.TypeQuery, intent.TypeNewTopic:
		next.Metric = qi.Metric
		next.Dimensions = copyStrings(qi.Dimensions)
		next.Filters = copyFilters(qi.Filters)
		next.TimeRange = copyTimeRange(qi.TimeRange)
		next.Comparison = copyComparison(qi.Comparison)
		next.ChartType = qi.ChartType
		next.Sort = qi.Sort
		next.Limit = qi.Limit

	case intent.TypeRefine:
		if qi.Metric.Slug != "" {
			next.Metric = qi.Metric
		}
		if len(qi.Dimensions) > 0 {
			next.Dimensions = copyStrings(qi.Dimensions)
		}
		for _, f := range qi.Filters {
			next.Filters = upsertFilter(next.Filters, f)
		}
		if qi.TimeRange != nil {
			next.TimeRange = copyTimeRange(qi.TimeRange)
		}
		if qi.Comparison != nil {
			next.Comparison = copyComparison(qi.Comparison)
		}
		if qi.ChartType != "" {
			next.ChartType = qi.ChartType
		}
		if qi.Sort != "" {
			next.Sort = qi.Sort
		}
		if qi.Limit > 0 {
			next.Limit = qi.Limit
		}

	case intent.TypeCompare:
		next.Comparison = copyComparison(qi.Comparison)
		if qi.TimeRange != nil {
			next.TimeRange = copyTimeRange(qi.TimeRange)
		}

	case intent.TypeDrillDown:
		// History append only.
	}

	next.History = append(next.History, TurnRecord{
		TurnIndex:   turnIndex,
		IntentType:  qi.IntentType,
		MetricSlug:  qi.Metric.Slug,
		UserMessage: userMessage,
	})
	return next
}

// EffectiveIntent projects the context back into the intent the engine
// should execute for the current turn.
func (c Context) EffectiveIntent(intentType intent.Type) intent.QueryIntent {
	return intent.QueryIntent{
		IntentType: intentType,
		Metric:     c.Metric,
		Dimensions: copyStrings(c.Dimensions),
		Filters:    copyFilters(c.Filters),
		TimeRange:  copyTimeRange(c.TimeRange),
		Comparison: copyComparison(c.Comparison),
		ChartType:  c.ChartType,
		Sort:       c.Sort,
		Limit:      c.Limit,
	}
}

// upsertFilter replaces the filter with the same field, else appends.
func upsertFilter(filters []intent.Filter, f intent.Filter) []intent.Filter {
	for i := range filters {
		if filters[i].Field == f.Field {
			filters[i] = f
			return filters
		}
	}
	return append(filters, f)
}

func clone(c Context) Context {
	c.Dimensions = copyStrings(c.Dimensions)
	c.Filters = copyFilters(c.Filters)
	c.TimeRange = copyTimeRange(c.TimeRange)
	c.Comparison = copyComparison(c.Comparison)
	c.History = append([]TurnRecord(nil), c.History...)
	return c
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func copyFilters(in []intent.Filter) []intent.Filter {
	if in == nil {
		return nil
	}
	return append([]intent.Filter(nil), in...)
}

func copyTimeRange(tr *intent.TimeRange) *intent.TimeRange {
	if tr == nil {
		return nil
	}
	c := *tr
	return &c
}

func copyComparison(cp *intent.Comparison) *intent.Comparison {
	if cp == nil {
		return nil
	}
	c := *cp
	return &c
}
