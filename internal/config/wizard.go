package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .claimlens.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to claimlens! Let's configure your analytics server.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Database path.
	dbPrompt := promptui.Prompt{
		Label:   "SQLite database path",
		Default: cfg.Database,
	}
	database, err := dbPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("database path: %w", err)
	}
	cfg.Database = database

	// 2. Server port.
	portPrompt := promptui.Prompt{
		Label:   "HTTP server port",
		Default: strconv.Itoa(cfg.Server.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 || n > 65535 {
				return fmt.Errorf("enter a port between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("server port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	// 3. Cache backend.
	backendPrompt := promptui.Select{
		Label: "Query cache backend",
		Items: []string{
			"sqlite — no extra infrastructure, cache lives in the database",
			"redis  — shared cache for multiple server instances",
		},
	}
	backendIdx, _, err := backendPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("cache backend: %w", err)
	}
	if backendIdx == 1 {
		cfg.Cache.Backend = CacheRedis
		redisPrompt := promptui.Prompt{
			Label:   "Redis URL",
			Default: "redis://localhost:6379/0",
		}
		redisURL, err := redisPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("redis url: %w", err)
		}
		cfg.Cache.RedisURL = redisURL
	}

	// 4. Assistant provider.
	providerPrompt := promptui.Select{
		Label: "Natural-language assistant provider",
		Items: []string{
			"none              — structured queries only",
			"openai            — api.openai.com",
			"openai_compatible — self-hosted or proxy endpoint",
		},
	}
	providerIdx, _, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("assistant provider: %w", err)
	}
	providers := []ProviderType{ProviderNone, ProviderOpenAI, ProviderCompatible}
	cfg.Assistant.Provider = providers[providerIdx]

	if cfg.Assistant.Provider == ProviderCompatible {
		basePrompt := promptui.Prompt{
			Label: "Assistant base URL",
		}
		baseURL, err := basePrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("assistant base url: %w", err)
		}
		cfg.Assistant.BaseURL = baseURL
	}
	if cfg.AssistantEnabled() {
		modelPrompt := promptui.Prompt{
			Label:   "Assistant model",
			Default: cfg.Assistant.Model,
		}
		model, err := modelPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("assistant model: %w", err)
		}
		cfg.Assistant.Model = model
	}

	// Check for API key.
	if cfg.AssistantEnabled() {
		envVar := APIKeyEnvVar(cfg.Assistant.Provider)
		if envVar != "" && os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment before starting the server.\n", envVar)
		}
	}

	// Save to .claimlens.yml.
	configPath := ".claimlens.yml"
	if err := cfg.Save(configPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", configPath)
	return cfg, nil
}
