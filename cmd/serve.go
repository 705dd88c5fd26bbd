package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/claimlens/claimlens/internal/db"
	mcpserver "github.com/claimlens/claimlens/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing claims analytics tools for AI agents like Claude Code.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(cfg)

		database, err := db.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		stack, err := buildStack(cfg, database, log)
		if err != nil {
			return err
		}
		if err := stack.catalogStore.SeedDefaults(cmd.Context()); err != nil {
			return fmt.Errorf("seeding metric catalog: %w", err)
		}

		// Set version from the cmd package variable.
		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "claimlens MCP server started on stdio (database=%s)\n", cfg.Database)

		srv := mcpserver.NewServer(stack.engine, stack.catalog, stack.detector)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
