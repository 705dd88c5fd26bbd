package engine

import "fmt"

// MetricSlug is the closed set of metrics the compiler can build queries
// for. Keeping the dispatch on a typed switch means a new metric that lacks
// a builder fails at the switch, not at some distant runtime map lookup.
type MetricSlug string

const (
	SlugClaimVolume       MetricSlug = "claim_volume"
	SlugSLABreachRate     MetricSlug = "sla_breach_rate"
	SlugAvgResolutionDays MetricSlug = "avg_resolution_days"
	SlugTotalPayout       MetricSlug = "total_payout"
	SlugReopenRate        MetricSlug = "reopen_rate"
	SlugAdjusterWorkload  MetricSlug = "adjuster_workload"
)

// metricQuery is one metric's aggregation recipe.
type metricQuery struct {
	// selectExpr computes the metric value. Percentage metrics stay
	// fractions (0..1) here; the formatter converts to display units so
	// caching and anomaly math share one numeric domain.
	selectExpr string
	// extraWhere narrows the base claim set, e.g. to closed claims.
	extraWhere string
	// leaderboard orders grouped rows by value descending instead of by
	// the first dimension.
	leaderboard bool
}

// metricQueryFor resolves the builder for a metric slug. An unknown slug is
// a hard error: the catalog may know metrics the compiler does not.
func metricQueryFor(slug MetricSlug) (metricQuery, error) {
	switch slug {
	case SlugClaimVolume:
		return metricQuery{selectExpr: "COUNT(*)"}, nil
	case SlugSLABreachRate:
		return metricQuery{selectExpr: "AVG(sla_breached)"}, nil
	case SlugAvgResolutionDays:
		return metricQuery{
			selectExpr: "AVG(julianday(closed_at) - julianday(opened_at))",
			extraWhere: "closed_at IS NOT NULL",
		}, nil
	case SlugTotalPayout:
		return metricQuery{selectExpr: "COALESCE(SUM(amount_paid), 0)"}, nil
	case SlugReopenRate:
		return metricQuery{selectExpr: "AVG(reopened)"}, nil
	case SlugAdjusterWorkload:
		return metricQuery{selectExpr: "COUNT(*)", leaderboard: true}, nil
	default:
		return metricQuery{}, fmt.Errorf("no query implementation for metric %q", slug)
	}
}
