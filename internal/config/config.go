package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (CLAIMLENS_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: CLAIMLENS_DATABASE -> database, etc.
	if err := k.Load(env.Provider("CLAIMLENS_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "CLAIMLENS_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validProviders is the set of recognized assistant provider values.
var validProviders = map[ProviderType]bool{
	ProviderOpenAI:     true,
	ProviderCompatible: true,
	ProviderNone:       true,
}

// validBackends is the set of recognized cache backend values.
var validBackends = map[CacheBackend]bool{
	CacheSQLite: true,
	CacheRedis:  true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}

	if !validBackends[c.Cache.Backend] {
		return fmt.Errorf("invalid cache backend %q: must be one of sqlite, redis", c.Cache.Backend)
	}
	if c.Cache.Backend == CacheRedis && c.Cache.RedisURL == "" {
		return fmt.Errorf("cache redis_url is required when backend is redis")
	}
	if c.Cache.TTLMinutes < 1 {
		return fmt.Errorf("cache ttl_minutes must be positive")
	}

	if c.Assistant.Provider != "" && !validProviders[c.Assistant.Provider] {
		return fmt.Errorf("invalid assistant provider %q: must be one of openai, openai_compatible, none", c.Assistant.Provider)
	}
	if c.Assistant.Provider == ProviderCompatible && c.Assistant.BaseURL == "" {
		return fmt.Errorf("assistant base_url is required for openai_compatible")
	}

	if c.Anomaly.LookbackDays < 1 {
		return fmt.Errorf("anomaly lookback_days must be positive")
	}
	if c.Anomaly.Threshold <= 0 {
		return fmt.Errorf("anomaly threshold must be positive")
	}

	return nil
}

// AssistantEnabled reports whether an assistant provider is configured.
func (c *Config) AssistantEnabled() bool {
	return c.Assistant.Provider != "" && c.Assistant.Provider != ProviderNone
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderOpenAI, ProviderCompatible:
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}
