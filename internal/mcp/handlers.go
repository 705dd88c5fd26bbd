package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claimlens/claimlens/internal/anomaly"
	"github.com/claimlens/claimlens/internal/engine"
	"github.com/claimlens/claimlens/internal/intent"
)

// handleQueryMetrics runs a single analytics query and renders the result
// as text for agent consumption.
func (s *Server) handleQueryMetrics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metric, err := request.RequireString("metric")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: metric"), nil
	}
	clientID, err := request.RequireString("client_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: client_id"), nil
	}

	endDate := request.GetString("end_date", "")
	if endDate == "" {
		endDate = time.Now().UTC().Format(intent.DateLayout)
	}
	startDate := request.GetString("start_date", "")
	if startDate == "" {
		end, err := time.Parse(intent.DateLayout, endDate)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid end_date %q: use YYYY-MM-DD", endDate)), nil
		}
		startDate = end.AddDate(0, 0, -29).Format(intent.DateLayout)
	}

	qi := intent.QueryIntent{
		IntentType: intent.TypeQuery,
		Metric:     intent.MetricRef{Slug: metric},
		TimeRange:  &intent.TimeRange{Type: "absolute", Start: startDate, End: endDate},
	}
	if dims := request.GetString("dimensions", ""); dims != "" {
		for _, d := range strings.Split(dims, ",") {
			if d = strings.TrimSpace(d); d != "" {
				qi.Dimensions = append(qi.Dimensions, d)
			}
		}
	}
	if offset := request.GetString("compare", ""); offset != "" {
		qi.Comparison = &intent.Comparison{Type: "time_shift", Offset: offset}
	}

	result, err := s.engine.RunTurn(ctx, engine.TurnRequest{ClientID: clientID, Intent: qi})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	if !result.Valid {
		return mcp.NewToolResultError("invalid query: " + strings.Join(result.ValidationErrors, "; ")), nil
	}

	return mcp.NewToolResultText(formatChart(result)), nil
}

// handleListMetrics returns the active metric catalog.
func (s *Server) handleListMetrics(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	defs, err := s.catalog.ListActive(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing metrics: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d metric(s) available:\n", len(defs))
	for _, def := range defs {
		fmt.Fprintf(&sb, "\n- %s (%s)\n", def.Slug, def.DisplayName)
		fmt.Fprintf(&sb, "  Unit: %s, default chart: %s\n", def.Unit, def.DefaultChartType)
		if len(def.AllowedDimensions) > 0 {
			fmt.Fprintf(&sb, "  Dimensions: %s\n", strings.Join(def.AllowedDimensions, ", "))
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleDetectAnomalies runs the z-score scan and reports flagged metrics.
func (s *Server) handleDetectAnomalies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	clientID, err := request.RequireString("client_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: client_id"), nil
	}

	opts := anomaly.Options{
		LookbackDays: request.GetInt("lookback_days", 0),
		Threshold:    request.GetFloat("threshold", 0),
	}
	if metrics := request.GetString("metrics", ""); metrics != "" {
		for _, m := range strings.Split(metrics, ",") {
			if m = strings.TrimSpace(m); m != "" {
				opts.MetricSlugs = append(opts.MetricSlugs, m)
			}
		}
	}

	events, err := s.detector.Detect(ctx, clientID, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("detection failed: %v", err)), nil
	}
	if len(events) == 0 {
		return mcp.NewToolResultText("No anomalies detected."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d anomaly(ies) detected:\n", len(events))
	for _, ev := range events {
		fmt.Fprintf(&sb, "\n- [%s] %s is %s\n", ev.Severity, ev.MetricSlug, ev.Direction)
		fmt.Fprintf(&sb, "  Current: %.2f, baseline: %.2f ± %.2f (z-score %.2f)\n",
			ev.CurrentValue, ev.BaselineMean, ev.BaselineStdDev, ev.ZScore)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// formatChart renders a turn result as plain text.
func formatChart(result *engine.TurnResult) string {
	chart := result.Chart
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s chart)\n", chart.Title, chart.Type)
	if result.FromCache {
		sb.WriteString("Served from cache.\n")
	}

	for _, ds := range chart.Data.Datasets {
		if len(chart.Data.Datasets) > 1 {
			fmt.Fprintf(&sb, "\n%s:\n", ds.Label)
		} else {
			sb.WriteString("\n")
		}
		for i, label := range chart.Data.Labels {
			if i < len(ds.Data) {
				fmt.Fprintf(&sb, "  %s: %g\n", label, ds.Data[i])
			}
		}
	}

	fmt.Fprintf(&sb, "\n%d row(s) in %dms\n", result.RecordCount, result.QueryMs)
	return sb.String()
}
