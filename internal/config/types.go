package config

// ProviderType identifies an LLM provider for the assistant boundary.
type ProviderType string

const (
	ProviderOpenAI     ProviderType = "openai"
	ProviderCompatible ProviderType = "openai_compatible"
	ProviderNone       ProviderType = "none"
)

// CacheBackend selects where compiled query results are stored.
type CacheBackend string

const (
	CacheSQLite CacheBackend = "sqlite"
	CacheRedis  CacheBackend = "redis"
)

// Config is the top-level claimlens configuration, corresponding to .claimlens.yml.
type Config struct {
	Database  string          `yaml:"database" koanf:"database"`
	Server    ServerConfig    `yaml:"server" koanf:"server"`
	Cache     CacheConfig     `yaml:"cache" koanf:"cache"`
	Assistant AssistantConfig `yaml:"assistant" koanf:"assistant"`
	Anomaly   AnomalyConfig   `yaml:"anomaly" koanf:"anomaly"`
	LogLevel  string          `yaml:"log_level" koanf:"log_level"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Host        string   `yaml:"host" koanf:"host"`
	Port        int      `yaml:"port" koanf:"port"`
	CORSOrigins []string `yaml:"cors_origins" koanf:"cors_origins"`
}

// CacheConfig holds query-result cache settings.
type CacheConfig struct {
	Backend      CacheBackend `yaml:"backend" koanf:"backend"`
	RedisURL     string       `yaml:"redis_url" koanf:"redis_url"`
	TTLMinutes   int          `yaml:"ttl_minutes" koanf:"ttl_minutes"`
	SweepMinutes int          `yaml:"sweep_minutes" koanf:"sweep_minutes"`
}

// AssistantConfig holds the natural-language assistant settings. The
// analytics API works without it; only /api/analytics/ask needs a provider.
type AssistantConfig struct {
	Provider ProviderType `yaml:"provider" koanf:"provider"`
	Model    string       `yaml:"model" koanf:"model"`
	BaseURL  string       `yaml:"base_url" koanf:"base_url"`
}

// AnomalyConfig holds anomaly detection defaults.
type AnomalyConfig struct {
	LookbackDays int     `yaml:"lookback_days" koanf:"lookback_days"`
	Threshold    float64 `yaml:"threshold" koanf:"threshold"`
}
