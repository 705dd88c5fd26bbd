package intent

import (
	"fmt"
	"time"
)

// Type classifies what a conversational turn is asking the engine to do.
type Type string

const (
	TypeQuery     Type = "query"
	TypeRefine    Type = "refine"
	TypeDrillDown Type = "drill_down"
	TypeCompare   Type = "compare"
	TypeNewTopic  Type = "new_topic"
)

// Operator is a filter comparison operator.
type Operator string

const (
	OpEq      Operator = "eq"
	OpNeq     Operator = "neq"
	OpGt      Operator = "gt"
	OpGte     Operator = "gte"
	OpLt      Operator = "lt"
	OpLte     Operator = "lte"
	OpIn      Operator = "in"
	OpNotIn   Operator = "not_in"
	OpBetween Operator = "between"
)

// KnownOperators is the closed set of filter operators the engine accepts.
var KnownOperators = map[Operator]bool{
	OpEq: true, OpNeq: true, OpGt: true, OpGte: true,
	OpLt: true, OpLte: true, OpIn: true, OpNotIn: true, OpBetween: true,
}

// KnownFilterFields is the closed set of claim columns a filter may target.
var KnownFilterFields = map[string]bool{
	"status":      true,
	"claim_type":  true,
	"region":      true,
	"adjuster":    true,
	"amount_paid": true,
}

// Filter is one field/operator/value predicate on the claims dataset.
type Filter struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

// DateLayout is the calendar-date wire format used throughout the engine.
const DateLayout = "2006-01-02"

// TimeRange bounds a query to an inclusive calendar-date window. Value keeps
// the relative token the range was derived from (e.g. "last_30_days") so
// cache keys survive re-resolution.
type TimeRange struct {
	Type  string `json:"type,omitempty"`
	Value string `json:"value,omitempty"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// Bounds parses the start and end dates. An error means the range is
// malformed; validation reports missing bounds separately.
func (tr TimeRange) Bounds() (time.Time, time.Time, error) {
	start, err := time.Parse(DateLayout, tr.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing time range start %q: %w", tr.Start, err)
	}
	end, err := time.Parse(DateLayout, tr.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing time range end %q: %w", tr.End, err)
	}
	return start, end, nil
}

// Comparison asks for a second query over a shifted period.
type Comparison struct {
	Type   string `json:"type,omitempty"`
	Offset string `json:"offset,omitempty"`
}

// Assumption records a default the system silently chose on the user's
// behalf, surfaced so the UI can show "assuming last 30 days".
type Assumption struct {
	Key          string `json:"key"`
	AssumedValue string `json:"assumed_value"`
	Label        string `json:"label"`
}

// MetricRef names the metric an intent targets.
type MetricRef struct {
	Slug        string `json:"slug"`
	DisplayName string `json:"display_name,omitempty"`
}

// QueryIntent is the structured representation of one analytics question,
// produced by the external language-model step and consumed once per turn.
// It is never mutated after validation.
type QueryIntent struct {
	IntentType  Type         `json:"intent_type"`
	Metric      MetricRef    `json:"metric"`
	Dimensions  []string     `json:"dimensions,omitempty"`
	Filters     []Filter     `json:"filters,omitempty"`
	TimeRange   *TimeRange   `json:"time_range,omitempty"`
	Comparison  *Comparison  `json:"comparison,omitempty"`
	ChartType   string       `json:"chart_type,omitempty"`
	Sort        string       `json:"sort,omitempty"`
	Limit       int          `json:"limit,omitempty"`
	Assumptions []Assumption `json:"assumptions,omitempty"`
	Confidence  float64      `json:"confidence"`
}
