package openai

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"docqa/internal/domain"
)

// Client is an OpenAI-compatible embeddings client implementing domain.Embedder.
// Requests are not retried; failures surface as domain.ErrExternalCall.
type Client struct {
	client    *openai.Client
	model     string
	dimension int
	timeout   time.Duration
	batchSize int
	parallel  int
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Dimension int
	Timeout   time.Duration
	BatchSize int
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: openai embedding model is empty", domain.ErrEmbedding)
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("%w: openai embedding dimension must be positive", domain.ErrEmbedding)
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: missing API key in env %s", domain.ErrEmbedding, cfg.APIKeyEnv)
	}
	clientCfg := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 32
	}
	return &Client{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		dimension: cfg.Dimension,
		timeout:   t,
		batchSize: batch,
		parallel:  4,
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai-" + c.model }

// Dimension returns the dimensionality of the produced embedding vectors.
func (c *Client) Dimension() int { return c.dimension }

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in batches of batchSize with bounded parallelism.
// Blank texts are not sent; they map to the zero vector.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var pending []int
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			out[i] = make([]float32, c.dimension)
			continue
		}
		pending = append(pending, i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallel)
	for start := 0; start < len(pending); start += c.batchSize {
		end := min(start+c.batchSize, len(pending))
		idxs := pending[start:end]
		g.Go(func() error {
			inputs := make([]string, len(idxs))
			for j, idx := range idxs {
				inputs[j] = texts[idx]
			}
			vecs, err := c.request(gctx, inputs)
			if err != nil {
				return err
			}
			for j, idx := range idxs {
				out[idx] = vecs[j]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) request(ctx context.Context, inputs []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.model),
		Input: inputs,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openai embeddings: %w", domain.ErrExternalCall, err)
	}
	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("%w: openai embeddings returned %d vectors for %d inputs", domain.ErrExternalCall, len(resp.Data), len(inputs))
	}
	vecs := make([][]float32, len(inputs))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(inputs) {
			return nil, fmt.Errorf("%w: openai embeddings returned index %d", domain.ErrExternalCall, d.Index)
		}
		if len(d.Embedding) != c.dimension {
			return nil, fmt.Errorf("%w: model %s returned %d dimensions, configured %d", domain.ErrEmbedding, c.model, len(d.Embedding), c.dimension)
		}
		v := make([]float32, len(d.Embedding))
		for i := range d.Embedding {
			v[i] = float32(d.Embedding[i])
		}
		l2normalize(v)
		vecs[d.Index] = v
	}
	for j, v := range vecs {
		if v == nil {
			return nil, fmt.Errorf("%w: openai embeddings missing vector %d", domain.ErrExternalCall, j)
		}
	}
	return vecs, nil
}

// l2normalize normalizes a vector to unit length
func l2normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := 1.0 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}
