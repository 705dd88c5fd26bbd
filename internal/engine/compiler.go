package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/claimlens/claimlens/internal/db"
	"github.com/claimlens/claimlens/internal/intent"
)

// CompiledQuery is an immutable SQL/parameters pair for one metric query.
// It is never persisted; the execution boundary consumes it once.
type CompiledQuery struct {
	MetricSlug string
	SQL        string
	Args       []any
}

// Row is one aggregation result row. Dimension columns are named dim_0,
// dim_1, ... in intent order; the aggregate is named value.
type Row map[string]any

// ExecResult carries the rows plus execution metadata.
type ExecResult struct {
	Rows        []Row `json:"rows"`
	RecordCount int   `json:"record_count"`
	QueryMs     int64 `json:"query_ms"`
}

// Compiler maps validated intents to parameterized aggregation queries and
// runs them against the claims store.
type Compiler struct {
	db  *db.DB
	log zerolog.Logger
}

// NewCompiler creates a query compiler over the given database.
func NewCompiler(database *db.DB, log zerolog.Logger) *Compiler {
	return &Compiler{db: database, log: log}
}

// Compile builds the aggregation query for one (metric, intent, tenant)
// triple. Dimensions must already be validated against the catalog; the
// compiler still refuses anything outside its own whitelist.
func (c *Compiler) Compile(slug string, qi intent.QueryIntent, clientID string) (CompiledQuery, error) {
	mq, err := metricQueryFor(MetricSlug(slug))
	if err != nil {
		return CompiledQuery{}, err
	}

	where, args, err := buildWhere(clientID, qi.TimeRange, qi.Filters)
	if err != nil {
		return CompiledQuery{}, err
	}
	if mq.extraWhere != "" {
		where += " AND " + mq.extraWhere
	}

	var selects, groups []string
	for i, dim := range qi.Dimensions {
		expr, ok := dimensionExprs[dim]
		if !ok {
			return CompiledQuery{}, fmt.Errorf("unknown dimension %q", dim)
		}
		selects = append(selects, fmt.Sprintf("%s AS dim_%d", expr, i))
		groups = append(groups, fmt.Sprintf("dim_%d", i))
	}
	selects = append(selects, mq.selectExpr+" AS value")

	sql := "SELECT " + strings.Join(selects, ", ") + " FROM claims WHERE " + where
	if len(groups) > 0 {
		sql += " GROUP BY " + strings.Join(groups, ", ")
		if mq.leaderboard || qi.Sort == "value_desc" {
			sql += " ORDER BY value DESC"
		} else {
			sql += " ORDER BY dim_0 ASC"
		}
	}
	if qi.Limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", qi.Limit)
	}

	return CompiledQuery{MetricSlug: slug, SQL: sql, Args: args}, nil
}

// Execute runs a compiled query. Failures come back as a *QueryError so
// callers can log the raw cause without leaking SQL to end users. Queries
// are never retried here.
func (c *Compiler) Execute(ctx context.Context, cq CompiledQuery) (*ExecResult, error) {
	start := time.Now()

	rows, err := c.db.QueryContext(ctx, cq.SQL, cq.Args...)
	if err != nil {
		return nil, &QueryError{MetricSlug: cq.MetricSlug, Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &QueryError{MetricSlug: cq.MetricSlug, Err: err}
	}

	var out []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &QueryError{MetricSlug: cq.MetricSlug, Err: err}
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = vals[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{MetricSlug: cq.MetricSlug, Err: err}
	}

	elapsed := time.Since(start)
	c.log.Debug().
		Str("metric", cq.MetricSlug).
		Int("rows", len(out)).
		Dur("took", elapsed).
		Msg("query executed")

	return &ExecResult{Rows: out, RecordCount: len(out), QueryMs: elapsed.Milliseconds()}, nil
}

// Total runs a metric with no dimensions over one date window and returns
// the single aggregate value. The anomaly detector and comparison overlays
// are built on this primitive.
func (c *Compiler) Total(ctx context.Context, slug, clientID string, filters []intent.Filter, start, end time.Time) (float64, error) {
	qi := intent.QueryIntent{
		Filters: filters,
		TimeRange: &intent.TimeRange{
			Start: start.Format(intent.DateLayout),
			End:   end.Format(intent.DateLayout),
		},
	}

	cq, err := c.Compile(slug, qi, clientID)
	if err != nil {
		return 0, err
	}
	res, err := c.Execute(ctx, cq)
	if err != nil {
		return 0, err
	}
	if len(res.Rows) == 0 {
		return 0, nil
	}
	return numericValue(res.Rows[0]["value"]), nil
}

// numericValue coerces a scanned aggregate into a float64. SQLite hands
// back int64 for counts and float64 for averages and sums; NULL (no
// matching rows) reads as 0.
func numericValue(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case nil:
		return 0
	default:
		return 0
	}
}
