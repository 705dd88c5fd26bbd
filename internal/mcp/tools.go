package mcp

import "github.com/mark3labs/mcp-go/mcp"

// queryMetricsTool defines the query_metrics MCP tool.
var queryMetricsTool = mcp.NewTool("query_metrics",
	mcp.WithDescription("Run an aggregation query over claims data. Returns the chart-ready result with labels and values."),
	mcp.WithString("metric",
		mcp.Required(),
		mcp.Description("Metric slug, e.g. claim_volume or sla_breach_rate. Use list_metrics to discover slugs."),
	),
	mcp.WithString("client_id",
		mcp.Required(),
		mcp.Description("Client whose claims to query"),
	),
	mcp.WithString("start_date",
		mcp.Description("Range start as YYYY-MM-DD (default: 30 days ago)"),
	),
	mcp.WithString("end_date",
		mcp.Description("Range end as YYYY-MM-DD (default: today)"),
	),
	mcp.WithString("dimensions",
		mcp.Description("Comma-separated grouping dimensions, e.g. \"status\" or \"region,month\""),
	),
	mcp.WithString("compare",
		mcp.Description("Comparison period offset, e.g. previous_period, prior_year or -2_weeks"),
	),
)

// listMetricsTool defines the list_metrics MCP tool.
var listMetricsTool = mcp.NewTool("list_metrics",
	mcp.WithDescription("List the available metrics with their units and allowed grouping dimensions."),
)

// detectAnomaliesTool defines the detect_anomalies MCP tool.
var detectAnomaliesTool = mcp.NewTool("detect_anomalies",
	mcp.WithDescription("Scan recent metric history for statistically unusual values and return any anomalies found."),
	mcp.WithString("client_id",
		mcp.Required(),
		mcp.Description("Client whose claims to scan"),
	),
	mcp.WithString("metrics",
		mcp.Description("Comma-separated metric slugs to scan (default: all active metrics)"),
	),
	mcp.WithNumber("lookback_days",
		mcp.Description("How far back to look (default 30)"),
	),
	mcp.WithNumber("threshold",
		mcp.Description("Z-score threshold for flagging (default 2.0)"),
	),
)
