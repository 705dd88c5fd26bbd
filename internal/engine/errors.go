package engine

import "fmt"

// QueryError wraps a failure at the query-execution boundary. It keeps the
// metric slug and raw error for operator logs while exposing only a generic
// message to end users — compiled SQL never leaks past this type.
type QueryError struct {
	MetricSlug string
	Err        error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query error for metric %q: %v", e.MetricSlug, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// UserMessage is the caller-facing description of a query failure.
func (e *QueryError) UserMessage() string {
	return "The query could not be completed. Try a different time range, fewer filters, or another metric."
}

// Suggestions are the actionable alternatives surfaced alongside a query
// failure.
func (e *QueryError) Suggestions() []string {
	return []string{
		"Try a shorter or different time range",
		"Remove one or more filters",
		"Ask about a different metric",
	}
}
