package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CorpusConfig points at the document directory.
type CorpusConfig struct {
	Dir      string   `yaml:"dir"`
	Patterns []string `yaml:"patterns"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type"`
	ChunkSize         int    `yaml:"chunk_size"`
	Overlap           int    `yaml:"overlap"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences"`
}

// HashingEmbedderConfig configures the offline hashed term-vector embedder.
type HashingEmbedderConfig struct {
	Dimension int `yaml:"dimension"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	Dimension   int    `yaml:"dimension"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
}

// MiniLMEmbedderConfig configures the local sentence-transformer embedder.
type MiniLMEmbedderConfig struct {
	ModelName string `yaml:"model_name"`
	ModelDir  string `yaml:"model_dir"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type    string                 `yaml:"type"`
	Hashing *HashingEmbedderConfig `yaml:"hashing,omitempty"`
	OpenAI  *OpenAIEmbedderConfig  `yaml:"openai,omitempty"`
	MiniLM  *MiniLMEmbedderConfig  `yaml:"minilm,omitempty"`
}

// SQLiteIndexConfig holds the database location for the sqlite index storage.
type SQLiteIndexConfig struct {
	Path string `yaml:"path"`
}

// IndexConfig selects where the vector index is persisted.
type IndexConfig struct {
	Type      string             `yaml:"type"`
	Path      string             `yaml:"path"`
	Namespace string             `yaml:"namespace"`
	SQLite    *SQLiteIndexConfig `yaml:"sqlite,omitempty"`
}

// RetrievalConfig configures nearest-neighbour retrieval. A negative
// MaxDistance disables threshold filtering.
type RetrievalConfig struct {
	TopK        int      `yaml:"top_k"`
	MaxDistance *float64 `yaml:"max_distance"`
}

// PromptConfig bounds the grounding prompt.
type PromptConfig struct {
	ChunkCharLimit int    `yaml:"chunk_char_limit"`
	MaxPromptChars int    `yaml:"max_prompt_chars"`
	TemplateFile   string `yaml:"template_file,omitempty"`
}

// OpenAILLMConfig configures an OpenAI-compatible chat completion endpoint (OpenAI, Groq).
type OpenAILLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
}

// AnthropicLLMConfig configures the Anthropic messages endpoint.
type AnthropicLLMConfig struct {
	BaseURL     string  `yaml:"base_url,omitempty"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	MaxTokens   int64   `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// LLMConfig selects and configures the language model.
type LLMConfig struct {
	Type        string              `yaml:"type"`
	TimeoutSecs int                 `yaml:"timeout_secs"`
	OpenAI      *OpenAILLMConfig    `yaml:"openai,omitempty"`
	Anthropic   *AnthropicLLMConfig `yaml:"anthropic,omitempty"`
}

// LoggingConfig configures the slog logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Corpus    CorpusConfig    `yaml:"corpus"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Index     IndexConfig     `yaml:"index"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Prompt    PromptConfig    `yaml:"prompt"`
	LLM       LLMConfig       `yaml:"llm"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DefaultMaxDistance is the squared L2 distance above which retrieved chunks
// are discarded. Embeddings are unit length, so distances lie in [0, 4].
const DefaultMaxDistance = 1.2

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/docqa/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects configurations the pipeline cannot run with.
func (c *AppConfig) Validate() error {
	switch c.Chunker.Type {
	case "fixed":
		if c.Chunker.ChunkSize <= 0 {
			return errors.New("chunker.chunk_size must be positive")
		}
		if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.ChunkSize {
			return fmt.Errorf("chunker.overlap must be in [0, %d)", c.Chunker.ChunkSize)
		}
	case "sentence":
		if c.Chunker.OverlapSentences >= c.Chunker.SentencesPerChunk {
			return errors.New("chunker.overlap_sentences must be smaller than sentences_per_chunk")
		}
	default:
		return fmt.Errorf("unknown chunker: %s", c.Chunker.Type)
	}
	if c.Retrieval.TopK <= 0 {
		return errors.New("retrieval.top_k must be positive")
	}
	if c.Prompt.ChunkCharLimit <= 0 || c.Prompt.MaxPromptChars <= 0 {
		return errors.New("prompt limits must be positive")
	}
	return nil
}

// Threshold returns the configured distance cutoff, or nil when filtering is disabled.
func (r RetrievalConfig) Threshold() *float64 {
	if r.MaxDistance == nil || *r.MaxDistance < 0 {
		return nil
	}
	v := *r.MaxDistance
	return &v
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docqa", "config.yaml"), nil
}

// Default returns the configuration used when no file is present.
func Default() *AppConfig {
	cfg := &AppConfig{
		Corpus:  CorpusConfig{Dir: "data"},
		Chunker: ChunkerConfig{Type: "fixed"},
		Embedder: EmbedderConfig{
			Type:    "hashing",
			Hashing: &HashingEmbedderConfig{},
		},
		Index: IndexConfig{Type: "file"},
		LLM: LLMConfig{
			Type:   "groq",
			OpenAI: &OpenAILLMConfig{},
		},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Corpus.Dir == "" {
		cfg.Corpus.Dir = "data"
	}
	if len(cfg.Corpus.Patterns) == 0 {
		cfg.Corpus.Patterns = []string{"*.md", "*.txt"}
	}

	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "fixed"
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 500
	}
	if cfg.Chunker.Overlap == 0 {
		cfg.Chunker.Overlap = 50
	}
	if cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = 5
	}

	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hashing"
	}
	switch cfg.Embedder.Type {
	case "hashing":
		if cfg.Embedder.Hashing == nil {
			cfg.Embedder.Hashing = &HashingEmbedderConfig{}
		}
		if cfg.Embedder.Hashing.Dimension == 0 {
			cfg.Embedder.Hashing.Dimension = 1024
		}
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.Dimension == 0 {
			cfg.Embedder.OpenAI.Dimension = 1536
			if cfg.Embedder.OpenAI.Model == "text-embedding-3-large" {
				cfg.Embedder.OpenAI.Dimension = 3072
			}
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.BatchSize == 0 {
			cfg.Embedder.OpenAI.BatchSize = 32
		}
	case "minilm":
		if cfg.Embedder.MiniLM == nil {
			cfg.Embedder.MiniLM = &MiniLMEmbedderConfig{}
		}
		if cfg.Embedder.MiniLM.ModelName == "" {
			cfg.Embedder.MiniLM.ModelName = "sentence-transformers/all-MiniLM-L6-v2"
		}
		if cfg.Embedder.MiniLM.ModelDir == "" {
			cfg.Embedder.MiniLM.ModelDir = "./models"
		}
	}

	if cfg.Index.Type == "" {
		cfg.Index.Type = "file"
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = filepath.Join(".docqa", "index")
	}
	if cfg.Index.Namespace == "" {
		cfg.Index.Namespace = "default"
	}
	if cfg.Index.Type == "sqlite" {
		if cfg.Index.SQLite == nil {
			cfg.Index.SQLite = &SQLiteIndexConfig{}
		}
		if cfg.Index.SQLite.Path == "" {
			cfg.Index.SQLite.Path = filepath.Join(".docqa", "index.db")
		}
	}

	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Retrieval.MaxDistance == nil {
		d := DefaultMaxDistance
		cfg.Retrieval.MaxDistance = &d
	}

	if cfg.Prompt.ChunkCharLimit == 0 {
		cfg.Prompt.ChunkCharLimit = 1200
	}
	if cfg.Prompt.MaxPromptChars == 0 {
		cfg.Prompt.MaxPromptChars = 8000
	}

	if cfg.LLM.Type == "" {
		cfg.LLM.Type = "groq"
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = 60
	}
	switch cfg.LLM.Type {
	case "groq", "openai":
		if cfg.LLM.OpenAI == nil {
			cfg.LLM.OpenAI = &OpenAILLMConfig{}
		}
		o := cfg.LLM.OpenAI
		if cfg.LLM.Type == "groq" {
			if o.BaseURL == "" {
				o.BaseURL = "https://api.groq.com/openai/v1"
			}
			if o.APIKeyEnv == "" {
				o.APIKeyEnv = "GROQ_API_KEY"
			}
			if o.Model == "" {
				o.Model = "llama-3.1-8b-instant"
			}
		} else {
			if o.BaseURL == "" {
				o.BaseURL = "https://api.openai.com/v1"
			}
			if o.APIKeyEnv == "" {
				o.APIKeyEnv = "OPENAI_API_KEY"
			}
			if o.Model == "" {
				o.Model = "gpt-4o-mini"
			}
		}
	case "anthropic":
		if cfg.LLM.Anthropic == nil {
			cfg.LLM.Anthropic = &AnthropicLLMConfig{}
		}
		a := cfg.LLM.Anthropic
		if a.APIKeyEnv == "" {
			a.APIKeyEnv = "ANTHROPIC_API_KEY"
		}
		if a.Model == "" {
			a.Model = "claude-3-5-haiku-latest"
		}
		if a.MaxTokens == 0 {
			a.MaxTokens = 1024
		}
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "pretty"
	}
}
