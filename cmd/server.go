package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/claimlens/claimlens/internal/anomaly"
	"github.com/claimlens/claimlens/internal/assistant"
	"github.com/claimlens/claimlens/internal/catalog"
	"github.com/claimlens/claimlens/internal/config"
	"github.com/claimlens/claimlens/internal/conversation"
	"github.com/claimlens/claimlens/internal/db"
	"github.com/claimlens/claimlens/internal/engine"
	"github.com/claimlens/claimlens/internal/querycache"
	"github.com/claimlens/claimlens/internal/server"
)

var (
	serverPort     int
	serverClientID string
	serverAllowAll bool
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the analytics API server",
	Long:  `Starts the claimlens REST API server that answers dashboard queries, serves the metric catalog, and exposes anomaly detection.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serverPort != 0 {
			cfg.Server.Port = serverPort
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

		// Make sure the standard metrics exist on first run.
		if err := stack.catalogStore.SeedDefaults(cmd.Context()); err != nil {
			return fmt.Errorf("seeding metric catalog: %w", err)
		}

		srv := server.New(server.Config{
			Host:        cfg.Server.Host,
			Port:        cfg.Server.Port,
			CORSOrigins: cfg.Server.CORSOrigins,
			AllowAll:    serverAllowAll,
		}, database, log)

		if err := registerAllRoutes(srv, cfg, stack, log); err != nil {
			return err
		}

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Periodic expired-entry sweep for the SQLite cache backend.
		if stack.sqlCache != nil && cfg.Cache.SweepMinutes > 0 {
			go sweepLoop(ctx, stack.sqlCache, time.Duration(cfg.Cache.SweepMinutes)*time.Minute)
		}

		go func() {
			<-ctx.Done()
			log.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		log.Info().
			Str("version", Version).
			Str("addr", srv.Addr()).
			Str("database", cfg.Database).
			Str("cache", string(cfg.Cache.Backend)).
			Bool("assistant", cfg.AssistantEnabled()).
			Msg("claimlens server starting")

		return srv.Start()
	},
}

// registerAllRoutes wires up all feature routes.
func registerAllRoutes(srv *server.Server, cfg *config.Config, stack *analyticsStack, log zerolog.Logger) error {
	r := srv.Router()

	// Analytics queries
	engine.RegisterRoutes(r, stack.engine, serverClientID)

	// Metric catalog
	catalog.RegisterRoutes(r, stack.catalog)

	// Cache maintenance (SQLite backend only; Redis expires on its own)
	if stack.sqlCache != nil {
		querycache.RegisterRoutes(r, stack.sqlCache)
	}

	// Anomalies
	anomaly.RegisterRoutes(r, stack.detector, stack.anomalyStore, serverClientID)

	// Natural-language assistant, when a provider is configured.
	if cfg.AssistantEnabled() {
		provider, err := createLLMProviderFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("creating LLM provider: %w", err)
		}
		parser := assistant.NewParser(provider, cfg.Assistant.Model, stack.catalog)
		assistant.RegisterRoutes(r, parser, stack.engine, conversation.NewStore(srv.Database()), serverClientID)
		log.Info().Str("provider", string(cfg.Assistant.Provider)).Msg("assistant enabled")
	}

	return nil
}

// sweepLoop deletes expired cache rows on an interval until ctx is done.
func sweepLoop(ctx context.Context, cache *querycache.SQLStore, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cache.SweepExpired(ctx)
		}
	}
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 0, "Port to listen on (overrides config)")
	serverCmd.Flags().StringVar(&serverClientID, "client", "", "Default client ID for requests that omit one")
	serverCmd.Flags().BoolVar(&serverAllowAll, "allow-all-origins", false, "Allow all CORS origins (dev mode)")
	rootCmd.AddCommand(serverCmd)
}
