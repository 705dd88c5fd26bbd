package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/claimlens/claimlens/internal/anomaly"
	"github.com/claimlens/claimlens/internal/catalog"
	"github.com/claimlens/claimlens/internal/engine"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes claims analytics tools so AI
// agents can query metrics and run anomaly detection over stdio.
type Server struct {
	engine   *engine.Engine
	catalog  *catalog.Cached
	detector *anomaly.Detector
	mcp      *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(eng *engine.Engine, cat *catalog.Cached, detector *anomaly.Detector) *Server {
	s := &Server{
		engine:   eng,
		catalog:  cat,
		detector: detector,
	}

	s.mcp = server.NewMCPServer(
		"claimlens",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(queryMetricsTool, s.handleQueryMetrics)
	s.mcp.AddTool(listMetricsTool, s.handleListMetrics)
	s.mcp.AddTool(detectAnomaliesTool, s.handleDetectAnomalies)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
