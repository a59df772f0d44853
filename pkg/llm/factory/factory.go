package factory

import (
	"fmt"
	"strings"

	"kaleem-livechat/pkg/llm"
	"kaleem-livechat/pkg/llm/canned"
	"kaleem-livechat/pkg/llm/huggingface"
	"kaleem-livechat/pkg/llm/ollama"
)

type Config struct {
	Provider string // "canned", "ollama" or "huggingface"
	Model    string
	BaseURL  string
	APIKey   string
}

func NewLLMProvider(cfg Config) (llm.LLMProvider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "canned":
		return canned.NewProvider(nil), nil
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewOllamaProvider(baseURL, cfg.Model), nil
	case "huggingface":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("huggingface provider requires an API key")
		}
		return huggingface.NewHuggingFaceProvider(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
