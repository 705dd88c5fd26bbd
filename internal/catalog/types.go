package catalog

import "time"

// Unit is the display unit of a metric's values.
type Unit string

const (
	UnitCount        Unit = "count"
	UnitPercentage   Unit = "percentage"
	UnitDollars      Unit = "dollars"
	UnitDays         Unit = "days"
	UnitHours        Unit = "hours"
	UnitMilliseconds Unit = "milliseconds"
	UnitTokens       Unit = "tokens"
)

// ChartType identifies a chart rendering style.
type ChartType string

const (
	ChartBar      ChartType = "bar"
	ChartLine     ChartType = "line"
	ChartPie      ChartType = "pie"
	ChartDoughnut ChartType = "doughnut"
	ChartTable    ChartType = "table"
)

// KnownChartTypes is the set of chart types a query intent may request.
var KnownChartTypes = map[ChartType]bool{
	ChartBar:      true,
	ChartLine:     true,
	ChartPie:      true,
	ChartDoughnut: true,
	ChartTable:    true,
}

// MetricDefinition describes one metric in the catalog: what it is called,
// how it is displayed, and which dimensions it may be grouped by.
type MetricDefinition struct {
	Slug              string    `json:"slug"`
	DisplayName       string    `json:"display_name"`
	Category          string    `json:"category"`
	Unit              Unit      `json:"unit"`
	DefaultChartType  ChartType `json:"default_chart_type"`
	AllowedDimensions []string  `json:"allowed_dimensions"`
	IsActive          bool      `json:"is_active"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// AllowsDimension reports whether dim may be used to group this metric.
func (m MetricDefinition) AllowsDimension(dim string) bool {
	for _, d := range m.AllowedDimensions {
		if d == dim {
			return true
		}
	}
	return false
}
