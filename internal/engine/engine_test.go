package engine

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/claimlens/claimlens/internal/catalog"
	"github.com/claimlens/claimlens/internal/conversation"
	"github.com/claimlens/claimlens/internal/db"
	"github.com/claimlens/claimlens/internal/intent"
	"github.com/claimlens/claimlens/internal/querycache"
)

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

type testEnv struct {
	db      *db.DB
	engine  *Engine
	catalog *catalog.Store
}

func setupEngine(t *testing.T) *testEnv {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	catStore := catalog.NewStore(database)
	if err := catStore.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("SeedDefaults: %v", err)
	}

	log := testLogger()
	eng := New(
		catalog.NewCached(catStore, time.Minute),
		NewCompiler(database, log),
		querycache.NewSQLStore(database, log),
		conversation.NewStore(database),
		15*time.Minute,
		log,
	)
	return &testEnv{db: database, engine: eng, catalog: catStore}
}

type claim struct {
	client   string
	status   string
	ctype    string
	region   string
	adjuster string
	amount   float64
	opened   string
	closed   string
	breached int
	reopened int
}

func seedClaim(t *testing.T, database *db.DB, c claim) {
	t.Helper()
	if c.status == "" {
		c.status = "closed"
	}
	if c.ctype == "" {
		c.ctype = "auto"
	}
	var closed any
	if c.closed != "" {
		closed = c.closed
	}
	_, err := database.Exec(`
		INSERT INTO claims (id, client_id, claim_number, status, claim_type, region, adjuster, amount_paid, opened_at, closed_at, sla_breached, reopened)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), c.client, "CLM-"+uuid.NewString()[:8],
		c.status, c.ctype, c.region, c.adjuster, c.amount,
		c.opened, closed, c.breached, c.reopened,
	)
	if err != nil {
		t.Fatalf("seeding claim: %v", err)
	}
}

func julyRange() *intent.TimeRange {
	return &intent.TimeRange{Type: "relative", Value: "last_30_days", Start: "2026-07-01", End: "2026-07-30"}
}

func TestRunTurnBreachRateByAdjuster(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()

	// Adjuster A breaches 2 of 10, adjuster B 5 of 10.
	for i := 0; i < 10; i++ {
		breached := 0
		if i < 2 {
			breached = 1
		}
		seedClaim(t, env.db, claim{client: "client-1", adjuster: "A", region: "west", opened: "2026-07-05", breached: breached})
	}
	for i := 0; i < 10; i++ {
		breached := 0
		if i < 5 {
			breached = 1
		}
		seedClaim(t, env.db, claim{client: "client-1", adjuster: "B", region: "east", opened: "2026-07-05", breached: breached})
	}

	result, err := env.engine.RunTurn(ctx, TurnRequest{
		ClientID: "client-1",
		Intent: intent.QueryIntent{
			IntentType: intent.TypeQuery,
			Metric:     intent.MetricRef{Slug: "sla_breach_rate"},
			Dimensions: []string{"adjuster"},
			TimeRange:  julyRange(),
		},
	})
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if !result.Valid {
		t.Fatalf("validation errors: %v", result.ValidationErrors)
	}

	// Raw rows stay fractions.
	if len(result.Rows) != 2 {
		t.Fatalf("Rows = %v, want 2", result.Rows)
	}
	if v := numericValue(result.Rows[0]["value"]); v != 0.2 {
		t.Errorf("row A value = %v, want fraction 0.2", v)
	}
	if v := numericValue(result.Rows[1]["value"]); v != 0.5 {
		t.Errorf("row B value = %v, want fraction 0.5", v)
	}

	// Chart values convert to percent.
	if !reflect.DeepEqual(result.Chart.Data.Labels, []string{"A", "B"}) {
		t.Errorf("Labels = %v", result.Chart.Data.Labels)
	}
	if !reflect.DeepEqual(result.Chart.Data.Datasets[0].Data, []float64{20, 50}) {
		t.Errorf("Data = %v, want [20 50]", result.Chart.Data.Datasets[0].Data)
	}
}

func TestRunTurnTenantIsolation(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()

	seedClaim(t, env.db, claim{client: "client-1", adjuster: "A", opened: "2026-07-05"})
	seedClaim(t, env.db, claim{client: "client-2", adjuster: "A", opened: "2026-07-05"})

	result, err := env.engine.RunTurn(ctx, TurnRequest{
		ClientID: "client-1",
		Intent: intent.QueryIntent{
			IntentType: intent.TypeQuery,
			Metric:     intent.MetricRef{Slug: "claim_volume"},
			TimeRange:  julyRange(),
		},
	})
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if v := numericValue(result.Rows[0]["value"]); v != 1 {
		t.Errorf("claim_volume = %v, want only client-1's claim", v)
	}
}

func TestRunTurnUsesCache(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	seedClaim(t, env.db, claim{client: "client-1", adjuster: "A", opened: "2026-07-05"})

	req := TurnRequest{
		ClientID: "client-1",
		Intent: intent.QueryIntent{
			IntentType: intent.TypeQuery,
			Metric:     intent.MetricRef{Slug: "claim_volume"},
			Dimensions: []string{"adjuster"},
			TimeRange:  julyRange(),
		},
	}

	first, err := env.engine.RunTurn(ctx, req)
	if err != nil {
		t.Fatalf("first RunTurn: %v", err)
	}
	if first.FromCache {
		t.Error("first run should execute live")
	}

	second, err := env.engine.RunTurn(ctx, req)
	if err != nil {
		t.Fatalf("second RunTurn: %v", err)
	}
	if !second.FromCache {
		t.Error("second identical run should hit the cache")
	}
	if !reflect.DeepEqual(first.Chart.Data, second.Chart.Data) {
		t.Errorf("cached result differs:\nlive:   %+v\ncached: %+v", first.Chart.Data, second.Chart.Data)
	}
}

func TestRunTurnComparison(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()

	// Three claims in July, two in June.
	for _, d := range []string{"2026-07-03", "2026-07-10", "2026-07-20"} {
		seedClaim(t, env.db, claim{client: "client-1", adjuster: "A", opened: d})
	}
	for _, d := range []string{"2026-06-05", "2026-06-15"} {
		seedClaim(t, env.db, claim{client: "client-1", adjuster: "A", opened: d})
	}

	result, err := env.engine.RunTurn(ctx, TurnRequest{
		ClientID: "client-1",
		Intent: intent.QueryIntent{
			IntentType: intent.TypeQuery,
			Metric:     intent.MetricRef{Slug: "claim_volume"},
			TimeRange:  julyRange(),
			Comparison: &intent.Comparison{Type: "period", Offset: "previous_period"},
		},
	})
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}

	chart := result.Chart
	if !reflect.DeepEqual(chart.Data.Labels, []string{"Current Period", "Previous Period"}) {
		t.Fatalf("Labels = %v", chart.Data.Labels)
	}
	if !reflect.DeepEqual(chart.Data.Datasets[0].Data, []float64{3, 2}) {
		t.Errorf("Data = %v, want [3 2]", chart.Data.Datasets[0].Data)
	}
}

func TestRunTurnConversationFlow(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()

	seedClaim(t, env.db, claim{client: "client-1", adjuster: "A", region: "west", opened: "2026-07-05"})
	seedClaim(t, env.db, claim{client: "client-1", adjuster: "B", region: "east", opened: "2026-07-06"})

	threadID := "thread-1"
	first, err := env.engine.RunTurn(ctx, TurnRequest{
		ThreadID: threadID,
		ClientID: "client-1",
		Message:  "claim volume by adjuster",
		Intent: intent.QueryIntent{
			IntentType: intent.TypeQuery,
			Metric:     intent.MetricRef{Slug: "claim_volume"},
			Dimensions: []string{"adjuster"},
			TimeRange:  julyRange(),
		},
	})
	if err != nil {
		t.Fatalf("first turn: %v", err)
	}
	if len(first.Rows) != 2 {
		t.Fatalf("first turn rows = %v", first.Rows)
	}

	// Refine down to the west; metric and grouping carry over.
	second, err := env.engine.RunTurn(ctx, TurnRequest{
		ThreadID: threadID,
		ClientID: "client-1",
		Message:  "just the west",
		Intent: intent.QueryIntent{
			IntentType: intent.TypeRefine,
			Filters:    []intent.Filter{{Field: "region", Operator: intent.OpEq, Value: "west"}},
		},
	})
	if err != nil {
		t.Fatalf("second turn: %v", err)
	}
	if len(second.Rows) != 1 {
		t.Fatalf("refined rows = %v, want only the west adjuster", second.Rows)
	}
	if second.Chart.Data.Labels[0] != "A" {
		t.Errorf("Labels = %v", second.Chart.Data.Labels)
	}
}

func TestRunTurnValidationFailure(t *testing.T) {
	env := setupEngine(t)

	result, err := env.engine.RunTurn(context.Background(), TurnRequest{
		ClientID: "client-1",
		Intent: intent.QueryIntent{
			IntentType: intent.TypeQuery,
			Metric:     intent.MetricRef{Slug: "not_a_metric"},
			TimeRange:  julyRange(),
		},
	})
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if result.Valid || result.Chart != nil {
		t.Errorf("invalid intent should not produce a chart: %+v", result)
	}
	if len(result.ValidationErrors) == 0 {
		t.Error("expected validation errors")
	}
}

func TestCompileUnknownMetric(t *testing.T) {
	env := setupEngine(t)

	// Active in the catalog, but no builder behind it.
	if err := env.catalog.Upsert(context.Background(), catalog.MetricDefinition{
		Slug: "mystery_metric", DisplayName: "Mystery", Unit: catalog.UnitCount,
		DefaultChartType: catalog.ChartBar, AllowedDimensions: []string{}, IsActive: true,
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	_, err := env.engine.RunTurn(context.Background(), TurnRequest{
		ClientID: "client-1",
		Intent: intent.QueryIntent{
			IntentType: intent.TypeQuery,
			Metric:     intent.MetricRef{Slug: "mystery_metric"},
			TimeRange:  julyRange(),
		},
	})
	if err == nil || !strings.Contains(err.Error(), "no query implementation") {
		t.Errorf("err = %v, want no-query-implementation error", err)
	}
}

func TestCompileOrdering(t *testing.T) {
	env := setupEngine(t)
	compiler := env.engine.Compiler()

	grouped, err := compiler.Compile("claim_volume", intent.QueryIntent{
		Dimensions: []string{"region", "claim_type"},
		TimeRange:  julyRange(),
	}, "c")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.Contains(grouped.SQL, "ORDER BY dim_0 ASC") {
		t.Errorf("grouped SQL = %q, want first-dimension ascending order", grouped.SQL)
	}

	leaderboard, err := compiler.Compile("adjuster_workload", intent.QueryIntent{
		Dimensions: []string{"adjuster"},
		TimeRange:  julyRange(),
	}, "c")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.Contains(leaderboard.SQL, "ORDER BY value DESC") {
		t.Errorf("leaderboard SQL = %q, want value-descending order", leaderboard.SQL)
	}
}

func TestCompilerTotal(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		seedClaim(t, env.db, claim{client: "client-1", adjuster: fmt.Sprintf("adj-%d", i), opened: "2026-07-10"})
	}

	start, _ := time.Parse(intent.DateLayout, "2026-07-01")
	end, _ := time.Parse(intent.DateLayout, "2026-07-30")
	total, err := env.engine.Compiler().Total(ctx, "claim_volume", "client-1", nil, start, end)
	if err != nil {
		t.Fatalf("Total: %v", err)
	}
	if total != 4 {
		t.Errorf("Total = %v, want 4", total)
	}
}
