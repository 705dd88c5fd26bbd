package llm

import (
	"fmt"
	"os"
)

// NewProvider creates an LLM provider for the given provider type and model.
// Supported types: "openai" and "openai_compatible" (any endpoint speaking
// the Chat Completions API, selected via baseURL).
func NewProvider(providerType, model, baseURL string) (Provider, error) {
	switch providerType {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		return NewOpenAIProvider(apiKey, model, ""), nil

	case "openai_compatible":
		if baseURL == "" {
			return nil, fmt.Errorf("base URL is required for openai_compatible provider")
		}
		return NewOpenAIProvider(os.Getenv("OPENAI_API_KEY"), model, baseURL), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}
