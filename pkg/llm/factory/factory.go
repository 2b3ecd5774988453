package factory

import (
	"context"
	"fmt"

	"ai-data-analyst-be/pkg/llm"
	"ai-data-analyst-be/pkg/llm/gemini"
	"ai-data-analyst-be/pkg/llm/huggingface"
	"ai-data-analyst-be/pkg/llm/ollama"
)

// Config selects and configures one backend.
type Config struct {
	Provider string // ollama | huggingface | gemini
	Model    string
	BaseURL  string
	APIKey   string
}

func NewLLMProvider(ctx context.Context, cfg Config) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "ollama", "":
		return ollama.NewOllamaProvider(cfg.BaseURL, cfg.Model), nil
	case "huggingface":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("huggingface provider requires an api key")
		}
		return huggingface.NewHuggingFaceProvider(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	case "gemini":
		return gemini.NewGeminiProvider(ctx, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
