package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/claimlens/claimlens/internal/anomaly"
	"github.com/claimlens/claimlens/internal/catalog"
	"github.com/claimlens/claimlens/internal/config"
	"github.com/claimlens/claimlens/internal/conversation"
	"github.com/claimlens/claimlens/internal/db"
	"github.com/claimlens/claimlens/internal/engine"
	"github.com/claimlens/claimlens/internal/llm"
	"github.com/claimlens/claimlens/internal/querycache"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `claimlens init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the zerolog logger. Logs go to stderr so stdout stays
// free for MCP protocol messages and command output.
func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

// createLLMProviderFromConfig creates an LLM provider for the assistant,
// or nil when the assistant is disabled.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	if !cfg.AssistantEnabled() {
		return nil, nil
	}
	return llm.NewProvider(string(cfg.Assistant.Provider), cfg.Assistant.Model, cfg.Assistant.BaseURL)
}

// analyticsStack bundles the core components shared by the server, serve
// and detect commands.
type analyticsStack struct {
	catalog      *catalog.Cached
	catalogStore *catalog.Store
	compiler     *engine.Compiler
	cache        querycache.Cache
	sqlCache     *querycache.SQLStore // nil when the backend is Redis
	engine       *engine.Engine
	detector     *anomaly.Detector
	anomalyStore *anomaly.Store
}

// buildStack wires the analytics components over an open database.
func buildStack(cfg *config.Config, database *db.DB, log zerolog.Logger) (*analyticsStack, error) {
	catStore := catalog.NewStore(database)
	cat := catalog.NewCached(catStore, 5*time.Minute)
	compiler := engine.NewCompiler(database, log)

	var cache querycache.Cache
	var sqlCache *querycache.SQLStore
	switch cfg.Cache.Backend {
	case config.CacheRedis:
		redisCache, err := querycache.NewRedisStore(cfg.Cache.RedisURL, log)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		cache = redisCache
	default:
		sqlCache = querycache.NewSQLStore(database, log)
		cache = sqlCache
	}

	ttl := time.Duration(cfg.Cache.TTLMinutes) * time.Minute
	eng := engine.New(cat, compiler, cache, conversation.NewStore(database), ttl, log)

	anomalyStore := anomaly.NewStore(database)
	detector := anomaly.NewDetector(cat, compiler, anomalyStore, log)

	return &analyticsStack{
		catalog:      cat,
		catalogStore: catStore,
		compiler:     compiler,
		cache:        cache,
		sqlCache:     sqlCache,
		engine:       eng,
		detector:     detector,
		anomalyStore: anomalyStore,
	}, nil
}
