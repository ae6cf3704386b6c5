package embedding

import (
	"fmt"
	"time"

	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/embedding/hashing"
	"docqa/internal/embedding/minilm"
	"docqa/internal/embedding/openai"
)

// New builds the embedder selected by cfg.Type.
// The same configuration must be used at build and query time.
func New(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "hashing":
		dim := 1024
		if cfg.Hashing != nil && cfg.Hashing.Dimension > 0 {
			dim = cfg.Hashing.Dimension
		}
		e, err := hashing.NewEmbedder(dim)
		if err != nil {
			return nil, err
		}
		return e, nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("%w: embedder.openai section missing", domain.ErrEmbedding)
		}
		c, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Dimension: cfg.OpenAI.Dimension,
			Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			BatchSize: cfg.OpenAI.BatchSize,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case "minilm":
		if cfg.MiniLM == nil {
			return nil, fmt.Errorf("%w: embedder.minilm section missing", domain.ErrEmbedding)
		}
		e, err := minilm.NewEmbedder(cfg.MiniLM.ModelName, cfg.MiniLM.ModelDir)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("%w: unknown embedder: %s", domain.ErrEmbedding, cfg.Type)
	}
}
