package engine

import (
	"fmt"
	"strings"

	"github.com/claimlens/claimlens/internal/intent"
)

// dimensionExprs maps logical dimension names to claim columns or
// date-truncation expressions. Anything not in this map never reaches SQL.
var dimensionExprs = map[string]string{
	"status":     "status",
	"claim_type": "claim_type",
	"region":     "region",
	"adjuster":   "adjuster",
	"month":      "strftime('%Y-%m', opened_at)",
	"week":       "strftime('%Y-W%W', opened_at)",
	"day":        "date(opened_at)",
}

// timeGrainDimensions are the dimensions rendered as human date labels.
var timeGrainDimensions = map[string]bool{
	"month": true,
	"week":  true,
	"day":   true,
}

// filterColumns maps filterable fields to claim columns. Filter fields pass
// through intent validation first, but the builder re-checks so a compiled
// query can never reference an unvetted column.
var filterColumns = map[string]string{
	"status":      "status",
	"claim_type":  "claim_type",
	"region":      "region",
	"adjuster":    "adjuster",
	"amount_paid": "amount_paid",
}

// buildWhere assembles the shared WHERE clause: tenant scope first, then the
// time range, then each filter in intent order. Every interpolated value is
// a bound parameter — nothing from the intent is ever spliced into the SQL
// text itself.
func buildWhere(clientID string, tr *intent.TimeRange, filters []intent.Filter) (string, []any, error) {
	clauses := []string{"client_id = ?"}
	args := []any{clientID}

	if tr != nil {
		clauses = append(clauses, "opened_at >= ?", "opened_at <= ?")
		args = append(args, tr.Start, tr.End)
	}

	for _, f := range filters {
		col, ok := filterColumns[f.Field]
		if !ok {
			return "", nil, fmt.Errorf("unknown filter field %q", f.Field)
		}

		clause, clauseArgs, err := filterClause(col, f)
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, clause)
		args = append(args, clauseArgs...)
	}

	return strings.Join(clauses, " AND "), args, nil
}

func filterClause(col string, f intent.Filter) (string, []any, error) {
	switch f.Operator {
	case intent.OpEq:
		return col + " = ?", []any{f.Value}, nil
	case intent.OpNeq:
		return col + " <> ?", []any{f.Value}, nil
	case intent.OpGt:
		return col + " > ?", []any{f.Value}, nil
	case intent.OpGte:
		return col + " >= ?", []any{f.Value}, nil
	case intent.OpLt:
		return col + " < ?", []any{f.Value}, nil
	case intent.OpLte:
		return col + " <= ?", []any{f.Value}, nil
	case intent.OpIn, intent.OpNotIn:
		vals := listValues(f.Value)
		if len(vals) == 0 {
			return "", nil, fmt.Errorf("filter on %q: %s requires a non-empty list", col, f.Operator)
		}
		placeholders := strings.Repeat("?, ", len(vals)-1) + "?"
		op := "IN"
		if f.Operator == intent.OpNotIn {
			op = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", col, op, placeholders), vals, nil
	case intent.OpBetween:
		vals := listValues(f.Value)
		if len(vals) != 2 {
			return "", nil, fmt.Errorf("filter on %q: between requires exactly two values", col)
		}
		return col + " BETWEEN ? AND ?", vals, nil
	default:
		return "", nil, fmt.Errorf("unknown filter operator %q", f.Operator)
	}
}

// listValues normalizes a filter value into a bound-argument list. JSON
// decoding hands us []any for arrays; a bare scalar is treated as a
// single-element list.
func listValues(v any) []any {
	switch vv := v.(type) {
	case []any:
		return vv
	case []string:
		out := make([]any, len(vv))
		for i, s := range vv {
			out[i] = s
		}
		return out
	case nil:
		return nil
	default:
		return []any{v}
	}
}
