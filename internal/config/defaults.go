package config

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: "claimlens.db",
		Server: ServerConfig{
			Host:        "127.0.0.1",
			Port:        8484,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Cache: CacheConfig{
			Backend:      CacheSQLite,
			TTLMinutes:   15,
			SweepMinutes: 10,
		},
		Assistant: AssistantConfig{
			Provider: ProviderNone,
			Model:    "gpt-4o-mini",
		},
		Anomaly: AnomalyConfig{
			LookbackDays: 30,
			Threshold:    2.0,
		},
		LogLevel: "info",
	}
}
