package engine

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/claimlens/claimlens/internal/catalog"
	"github.com/claimlens/claimlens/internal/intent"
)

// Dataset is one named series in a chart.
type Dataset struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
}

// ChartData is the label/series structure chart renderers consume.
type ChartData struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Chart is a fully formatted, render-ready result.
type Chart struct {
	Type  string    `json:"type"`
	Data  ChartData `json:"data"`
	Title string    `json:"title"`
}

// Format reshapes raw aggregation rows into a chart. One label per row,
// dimension columns joined with " / ", values rounded per the metric's unit.
func Format(rows []Row, qi intent.QueryIntent, metric catalog.MetricDefinition) Chart {
	labels := make([]string, 0, len(rows))
	values := make([]float64, 0, len(rows))

	for _, row := range rows {
		labels = append(labels, rowLabel(row, qi.Dimensions, metric))
		values = append(values, roundValue(metric.Unit, numericValue(row["value"])))
	}

	return Chart{
		Type: chartType(qi, metric),
		Data: ChartData{
			Labels:   labels,
			Datasets: []Dataset{{Label: metric.DisplayName, Data: values}},
		},
		Title: chartTitle(qi, metric),
	}
}

// FormatComparison overlays a prior-period row set on the current one. With
// dimensions the two sets are aligned by label (union, missing values 0);
// without dimensions the result collapses to a two-point current/prior
// series.
func FormatComparison(current, prior []Row, qi intent.QueryIntent, metric catalog.MetricDefinition) Chart {
	if len(qi.Dimensions) == 0 {
		var cur, prev float64
		if len(current) > 0 {
			cur = roundValue(metric.Unit, numericValue(current[0]["value"]))
		}
		if len(prior) > 0 {
			prev = roundValue(metric.Unit, numericValue(prior[0]["value"]))
		}
		return Chart{
			Type: chartType(qi, metric),
			Data: ChartData{
				Labels:   []string{"Current Period", "Previous Period"},
				Datasets: []Dataset{{Label: metric.DisplayName, Data: []float64{cur, prev}}},
			},
			Title: chartTitle(qi, metric) + " vs. previous period",
		}
	}

	curByLabel := map[string]float64{}
	var labels []string
	for _, row := range current {
		label := rowLabel(row, qi.Dimensions, metric)
		curByLabel[label] = roundValue(metric.Unit, numericValue(row["value"]))
		labels = append(labels, label)
	}

	priorByLabel := map[string]float64{}
	for _, row := range prior {
		label := rowLabel(row, qi.Dimensions, metric)
		priorByLabel[label] = roundValue(metric.Unit, numericValue(row["value"]))
		if _, seen := curByLabel[label]; !seen {
			labels = append(labels, label)
		}
	}

	curData := make([]float64, len(labels))
	priorData := make([]float64, len(labels))
	for i, label := range labels {
		curData[i] = curByLabel[label]
		priorData[i] = priorByLabel[label]
	}

	return Chart{
		Type: chartType(qi, metric),
		Data: ChartData{
			Labels: labels,
			Datasets: []Dataset{
				{Label: "Current Period", Data: curData},
				{Label: "Previous Period", Data: priorData},
			},
		},
		Title: chartTitle(qi, metric) + " vs. previous period",
	}
}

// roundValue converts a raw aggregate to its display value. Percentage
// metrics arrive as fractions and leave as percentages with two decimals;
// everything else is rounded to two decimals in place.
func roundValue(unit catalog.Unit, v float64) float64 {
	if unit == catalog.UnitPercentage {
		return math.Round(v*10000) / 100
	}
	return math.Round(v*100) / 100
}

func chartType(qi intent.QueryIntent, metric catalog.MetricDefinition) string {
	if qi.ChartType != "" {
		return qi.ChartType
	}
	if metric.DefaultChartType != "" {
		return string(metric.DefaultChartType)
	}
	return string(catalog.ChartBar)
}

func chartTitle(qi intent.QueryIntent, metric catalog.MetricDefinition) string {
	title := metric.DisplayName
	if len(qi.Dimensions) > 0 {
		title += " by " + strings.Join(qi.Dimensions, " / ")
	}
	return title
}

// rowLabel joins a row's dimension columns with " / ". The first column is
// rendered as a human date label when the leading dimension is a time grain.
func rowLabel(row Row, dims []string, metric catalog.MetricDefinition) string {
	if len(dims) == 0 {
		return metric.DisplayName
	}

	parts := make([]string, 0, len(dims))
	for i, dim := range dims {
		raw := stringValue(row[fmt.Sprintf("dim_%d", i)])
		if i == 0 && timeGrainDimensions[dim] {
			raw = humanizeTimeLabel(dim, raw)
		}
		parts = append(parts, raw)
	}
	return strings.Join(parts, " / ")
}

// humanizeTimeLabel rewrites truncated-date columns as readable labels.
// Week labels already come out of SQL in a readable %Y-W%W form.
func humanizeTimeLabel(grain, raw string) string {
	switch grain {
	case "month":
		if t, err := time.Parse("2006-01", raw); err == nil {
			return t.Format("Jan 2006")
		}
	case "day":
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			return t.Format("Jan 2, 2006")
		}
	}
	return raw
}

func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}
