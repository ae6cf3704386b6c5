package llm

import (
	"fmt"
	"time"

	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/llm/anthropic"
	"docqa/internal/llm/openai"
)

// New builds the language model selected by cfg.Type: groq, openai or anthropic.
func New(cfg config.LLMConfig) (domain.LanguageModel, error) {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	switch cfg.Type {
	case "groq", "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("llm.openai section missing for %s", cfg.Type)
		}
		c, err := openai.NewClient(openai.Config{
			BaseURL:     cfg.OpenAI.BaseURL,
			APIKeyEnv:   cfg.OpenAI.APIKeyEnv,
			Model:       cfg.OpenAI.Model,
			Temperature: cfg.OpenAI.Temperature,
			Timeout:     timeout,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case "anthropic":
		if cfg.Anthropic == nil {
			return nil, fmt.Errorf("llm.anthropic section missing")
		}
		c, err := anthropic.NewClient(anthropic.Config{
			BaseURL:     cfg.Anthropic.BaseURL,
			APIKeyEnv:   cfg.Anthropic.APIKeyEnv,
			Model:       cfg.Anthropic.Model,
			MaxTokens:   cfg.Anthropic.MaxTokens,
			Temperature: cfg.Anthropic.Temperature,
			Timeout:     timeout,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown llm: %s", cfg.Type)
	}
}
