package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/claimlens/claimlens/internal/db"
)

// Store provides read access to the metric catalog table.
type Store struct {
	db *db.DB
}

// NewStore creates a new metric catalog store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// ListActive returns all active metric definitions ordered by slug.
func (s *Store) ListActive(ctx context.Context) ([]MetricDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT slug, display_name, category, unit, default_chart_type, allowed_dimensions, is_active, updated_at
		FROM metric_catalog
		WHERE is_active = 1
		ORDER BY slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []MetricDefinition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, *def)
	}
	return defs, rows.Err()
}

// Get returns the metric definition for slug, active or not, or nil if absent.
func (s *Store) Get(ctx context.Context, slug string) (*MetricDefinition, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT slug, display_name, category, unit, default_chart_type, allowed_dimensions, is_active, updated_at
		FROM metric_catalog
		WHERE slug = ?`, slug)

	def, err := scanDefinition(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return def, err
}

// Upsert inserts or replaces a metric definition.
func (s *Store) Upsert(ctx context.Context, def MetricDefinition) error {
	dims, err := json.Marshal(def.AllowedDimensions)
	if err != nil {
		return fmt.Errorf("marshalling dimensions: %w", err)
	}

	active := 0
	if def.IsActive {
		active = 1
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO metric_catalog (slug, display_name, category, unit, default_chart_type, allowed_dimensions, is_active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			display_name = excluded.display_name,
			category = excluded.category,
			unit = excluded.unit,
			default_chart_type = excluded.default_chart_type,
			allowed_dimensions = excluded.allowed_dimensions,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`,
		def.Slug,
		def.DisplayName,
		def.Category,
		string(def.Unit),
		string(def.DefaultChartType),
		string(dims),
		active,
		time.Now().UTC().Format(time.DateTime),
	)
	return err
}

// SeedDefaults inserts the built-in claims metric definitions, skipping any
// slug already present so operator edits survive restarts.
func (s *Store) SeedDefaults(ctx context.Context) error {
	for _, def := range DefaultMetrics() {
		existing, err := s.Get(ctx, def.Slug)
		if err != nil {
			return fmt.Errorf("checking metric %s: %w", def.Slug, err)
		}
		if existing != nil {
			continue
		}
		if err := s.Upsert(ctx, def); err != nil {
			return fmt.Errorf("seeding metric %s: %w", def.Slug, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDefinition(row rowScanner) (*MetricDefinition, error) {
	var def MetricDefinition
	var unit, chartType, dims, updated string
	var active int

	if err := row.Scan(&def.Slug, &def.DisplayName, &def.Category, &unit, &chartType, &dims, &active, &updated); err != nil {
		return nil, err
	}

	def.Unit = Unit(unit)
	def.DefaultChartType = ChartType(chartType)
	def.IsActive = active != 0
	if err := json.Unmarshal([]byte(dims), &def.AllowedDimensions); err != nil {
		return nil, fmt.Errorf("parsing dimensions for %s: %w", def.Slug, err)
	}
	if t, err := time.Parse(time.DateTime, updated); err == nil {
		def.UpdatedAt = t
	}
	return &def, nil
}

// DefaultMetrics returns the built-in claims metric catalog.
func DefaultMetrics() []MetricDefinition {
	groupable := []string{"status", "claim_type", "region", "adjuster", "month", "week", "day"}
	return []MetricDefinition{
		{
			Slug:              "claim_volume",
			DisplayName:       "Claim Volume",
			Category:          "volume",
			Unit:              UnitCount,
			DefaultChartType:  ChartBar,
			AllowedDimensions: groupable,
			IsActive:          true,
		},
		{
			Slug:              "sla_breach_rate",
			DisplayName:       "SLA Breach Rate",
			Category:          "performance",
			Unit:              UnitPercentage,
			DefaultChartType:  ChartBar,
			AllowedDimensions: []string{"adjuster", "region", "claim_type", "month", "week"},
			IsActive:          true,
		},
		{
			Slug:              "avg_resolution_days",
			DisplayName:       "Average Resolution Time",
			Category:          "performance",
			Unit:              UnitDays,
			DefaultChartType:  ChartLine,
			AllowedDimensions: []string{"adjuster", "region", "claim_type", "month", "week"},
			IsActive:          true,
		},
		{
			Slug:              "total_payout",
			DisplayName:       "Total Payout",
			Category:          "financial",
			Unit:              UnitDollars,
			DefaultChartType:  ChartBar,
			AllowedDimensions: groupable,
			IsActive:          true,
		},
		{
			Slug:              "reopen_rate",
			DisplayName:       "Reopen Rate",
			Category:          "quality",
			Unit:              UnitPercentage,
			DefaultChartType:  ChartBar,
			AllowedDimensions: []string{"adjuster", "region", "claim_type", "month"},
			IsActive:          true,
		},
		{
			Slug:              "adjuster_workload",
			DisplayName:       "Adjuster Workload",
			Category:          "volume",
			Unit:              UnitCount,
			DefaultChartType:  ChartBar,
			AllowedDimensions: []string{"adjuster", "region", "claim_type"},
			IsActive:          true,
		},
	}
}
