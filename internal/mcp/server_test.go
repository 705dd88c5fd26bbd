package mcp

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/claimlens/claimlens/internal/anomaly"
	"github.com/claimlens/claimlens/internal/catalog"
	"github.com/claimlens/claimlens/internal/conversation"
	"github.com/claimlens/claimlens/internal/db"
	"github.com/claimlens/claimlens/internal/engine"
	"github.com/claimlens/claimlens/internal/querycache"
)

func setupMCP(t *testing.T) (*Server, *db.DB) {
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

	log := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	cat := catalog.NewCached(catStore, time.Minute)
	compiler := engine.NewCompiler(database, log)
	eng := engine.New(
		cat,
		compiler,
		querycache.NewSQLStore(database, log),
		conversation.NewStore(database),
		15*time.Minute,
		log,
	)
	detector := anomaly.NewDetector(cat, compiler, anomaly.NewStore(database), log)

	return NewServer(eng, cat, detector), database
}

func seedTestClaim(t *testing.T, database *db.DB, clientID, status, opened string) {
	t.Helper()
	_, err := database.Exec(`
		INSERT INTO claims (id, client_id, claim_number, status, claim_type, region, adjuster, amount_paid, opened_at, sla_breached, reopened)
		VALUES (?, ?, ?, ?, 'auto', 'west', 'sam', 100, ?, 0, 0)`,
		uuid.NewString(), clientID, "CLM-"+uuid.NewString()[:8], status, opened,
	)
	if err != nil {
		t.Fatalf("seeding claim: %v", err)
	}
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"query_metrics", queryMetricsTool, "query_metrics"},
		{"list_metrics", listMetricsTool, "list_metrics"},
		{"detect_anomalies", detectAnomaliesTool, "detect_anomalies"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	srv, _ := setupMCP(t)
	if srv == nil {
		t.Fatal("NewServer returned nil")
	}
	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
}

func TestHandleQueryMetrics(t *testing.T) {
	srv, database := setupMCP(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		seedTestClaim(t, database, "acme", "open", fmt.Sprintf("2026-07-%02d", 10+i))
	}

	t.Run("basic query", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"metric":     "claim_volume",
			"client_id":  "acme",
			"start_date": "2026-07-01",
			"end_date":   "2026-07-31",
		}

		result, err := srv.handleQueryMetrics(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		text := resultText(t, result)
		if !strings.Contains(text, "3") {
			t.Errorf("result should contain the total, got:\n%s", text)
		}
	})

	t.Run("grouped query", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"metric":     "claim_volume",
			"client_id":  "acme",
			"start_date": "2026-07-01",
			"end_date":   "2026-07-31",
			"dimensions": "status",
		}

		result, err := srv.handleQueryMetrics(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		if !strings.Contains(resultText(t, result), "open") {
			t.Error("grouped result should carry the status label")
		}
	})

	t.Run("missing metric", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"client_id": "acme"}

		result, err := srv.handleQueryMetrics(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for missing metric")
		}
	})

	t.Run("unknown metric", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"metric":    "made_up_metric",
			"client_id": "acme",
		}

		result, err := srv.handleQueryMetrics(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for unknown metric")
		}
	})
}

func TestHandleListMetrics(t *testing.T) {
	srv, _ := setupMCP(t)

	result, err := srv.handleListMetrics(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}
	text := resultText(t, result)
	for _, slug := range []string{"claim_volume", "sla_breach_rate", "total_payout"} {
		if !strings.Contains(text, slug) {
			t.Errorf("listing should contain %q, got:\n%s", slug, text)
		}
	}
}

func TestHandleDetectAnomalies(t *testing.T) {
	srv, _ := setupMCP(t)
	ctx := context.Background()

	t.Run("missing client_id", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}

		result, err := srv.handleDetectAnomalies(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for missing client_id")
		}
	})

	t.Run("no data means no anomalies", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"client_id": "acme"}

		result, err := srv.handleDetectAnomalies(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		if !strings.Contains(resultText(t, result), "No anomalies") {
			t.Error("expected the no-anomalies message")
		}
	})
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	var sb strings.Builder
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}
