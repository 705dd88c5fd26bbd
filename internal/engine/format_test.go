package engine

import (
	"reflect"
	"testing"

	"github.com/claimlens/claimlens/internal/catalog"
	"github.com/claimlens/claimlens/internal/intent"
)

func percentMetric() catalog.MetricDefinition {
	return catalog.MetricDefinition{
		Slug: "sla_breach_rate", DisplayName: "SLA Breach Rate",
		Unit: catalog.UnitPercentage, DefaultChartType: catalog.ChartBar,
	}
}

func dollarMetric() catalog.MetricDefinition {
	return catalog.MetricDefinition{
		Slug: "total_payout", DisplayName: "Total Payout",
		Unit: catalog.UnitDollars, DefaultChartType: catalog.ChartBar,
	}
}

func TestRoundValue(t *testing.T) {
	if got := roundValue(catalog.UnitPercentage, 0.4567); got != 45.67 {
		t.Errorf("percentage 0.4567 -> %v, want 45.67", got)
	}
	if got := roundValue(catalog.UnitDollars, 1234.567); got != 1234.57 {
		t.Errorf("dollars 1234.567 -> %v, want 1234.57", got)
	}
	if got := roundValue(catalog.UnitCount, 12); got != 12 {
		t.Errorf("count 12 -> %v, want 12", got)
	}
}

func TestFormatLabelsAndValues(t *testing.T) {
	rows := []Row{
		{"dim_0": "A", "value": 0.2},
		{"dim_0": "B", "value": 0.5},
	}
	qi := intent.QueryIntent{Dimensions: []string{"adjuster"}}

	chart := Format(rows, qi, percentMetric())
	if !reflect.DeepEqual(chart.Data.Labels, []string{"A", "B"}) {
		t.Errorf("Labels = %v", chart.Data.Labels)
	}
	if !reflect.DeepEqual(chart.Data.Datasets[0].Data, []float64{20, 50}) {
		t.Errorf("Data = %v, want [20 50]", chart.Data.Datasets[0].Data)
	}
	if chart.Type != "bar" {
		t.Errorf("Type = %q, want metric default", chart.Type)
	}
}

func TestFormatJoinsDimensionsWithSlash(t *testing.T) {
	rows := []Row{{"dim_0": "west", "dim_1": "auto", "value": int64(7)}}
	qi := intent.QueryIntent{Dimensions: []string{"region", "claim_type"}}

	chart := Format(rows, qi, dollarMetric())
	if chart.Data.Labels[0] != "west / auto" {
		t.Errorf("label = %q, want %q", chart.Data.Labels[0], "west / auto")
	}
}

func TestFormatHumanizesLeadingTimeGrain(t *testing.T) {
	rows := []Row{
		{"dim_0": "2026-03", "dim_1": "west", "value": int64(3)},
	}
	qi := intent.QueryIntent{Dimensions: []string{"month", "region"}}

	chart := Format(rows, qi, dollarMetric())
	if chart.Data.Labels[0] != "Mar 2026 / west" {
		t.Errorf("label = %q, want humanized month", chart.Data.Labels[0])
	}

	// A time grain in a later position stays raw.
	rows = []Row{{"dim_0": "west", "dim_1": "2026-03", "value": int64(3)}}
	qi.Dimensions = []string{"region", "month"}
	chart = Format(rows, qi, dollarMetric())
	if chart.Data.Labels[0] != "west / 2026-03" {
		t.Errorf("label = %q, want raw month in second position", chart.Data.Labels[0])
	}
}

func TestFormatComparisonCollapsesWithoutDimensions(t *testing.T) {
	current := []Row{{"value": 100.0}}
	prior := []Row{{"value": 80.0}}

	chart := FormatComparison(current, prior, intent.QueryIntent{}, dollarMetric())
	if !reflect.DeepEqual(chart.Data.Labels, []string{"Current Period", "Previous Period"}) {
		t.Errorf("Labels = %v", chart.Data.Labels)
	}
	if !reflect.DeepEqual(chart.Data.Datasets[0].Data, []float64{100, 80}) {
		t.Errorf("Data = %v, want [100 80]", chart.Data.Datasets[0].Data)
	}
}

func TestFormatComparisonAlignsByLabel(t *testing.T) {
	current := []Row{
		{"dim_0": "A", "value": 0.2},
		{"dim_0": "B", "value": 0.5},
	}
	prior := []Row{
		{"dim_0": "B", "value": 0.25},
		{"dim_0": "C", "value": 0.1},
	}
	qi := intent.QueryIntent{Dimensions: []string{"adjuster"}}

	chart := FormatComparison(current, prior, qi, percentMetric())
	if !reflect.DeepEqual(chart.Data.Labels, []string{"A", "B", "C"}) {
		t.Fatalf("Labels = %v, want union of both sets", chart.Data.Labels)
	}

	currentSet := chart.Data.Datasets[0]
	priorSet := chart.Data.Datasets[1]
	if !reflect.DeepEqual(currentSet.Data, []float64{20, 50, 0}) {
		t.Errorf("current = %v, want missing labels filled with 0", currentSet.Data)
	}
	if !reflect.DeepEqual(priorSet.Data, []float64{0, 25, 10}) {
		t.Errorf("prior = %v", priorSet.Data)
	}
}

func TestFormatEmptyRows(t *testing.T) {
	chart := Format(nil, intent.QueryIntent{Dimensions: []string{"region"}}, dollarMetric())
	if len(chart.Data.Labels) != 0 || len(chart.Data.Datasets[0].Data) != 0 {
		t.Errorf("empty rows should format to an empty series: %+v", chart.Data)
	}
}
