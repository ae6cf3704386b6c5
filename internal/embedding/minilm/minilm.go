package minilm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"

	"docqa/internal/domain"
)

// Dimension is the output size of all-MiniLM-L6-v2.
const Dimension = 384

// Embedder runs a sentence-transformer model locally through hugot's pure Go backend.
type Embedder struct {
	mu        sync.Mutex
	modelName string
	session   *hugot.Session
	pipeline  *pipelines.FeatureExtractionPipeline
}

// NewEmbedder prepares the model (downloading it into modelDir if needed)
// and creates the feature extraction pipeline.
func NewEmbedder(modelName, modelDir string) (*Embedder, error) {
	modelPath, err := PrepareModel(modelName, modelDir)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("%w: create hugot session: %w", domain.ErrEmbedding, err)
	}
	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "docqa-embedder",
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("%w: create pipeline: %w (cleanup error: %v)", domain.ErrEmbedding, err, destroyErr)
		}
		return nil, fmt.Errorf("%w: create pipeline: %w", domain.ErrEmbedding, err)
	}
	return &Embedder{modelName: modelName, session: session, pipeline: pipeline}, nil
}

// PrepareModel downloads the model if it doesn't exist and returns the model path.
func PrepareModel(modelName, modelDir string) (string, error) {
	modelPath := filepath.Join(modelDir, strings.ReplaceAll(modelName, "/", "_"))
	if _, err := os.Stat(modelPath); err == nil {
		return modelPath, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: stat model: %w", domain.ErrEmbedding, err)
	}
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create model directory: %w", domain.ErrEmbedding, err)
	}
	opts := hugot.NewDownloadOptions()
	opts.OnnxFilePath = "onnx/model.onnx"
	downloaded, err := hugot.DownloadModel(modelName, modelDir, opts)
	if err != nil {
		return "", fmt.Errorf("%w: download model %s: %w", domain.ErrExternalCall, modelName, err)
	}
	return downloaded, nil
}

func (e *Embedder) Name() string { return "minilm-" + e.modelName }

func (e *Embedder) Dimension() int { return Dimension }

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch runs the pipeline once over all non-blank texts.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var inputs []string
	var idxs []int
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			out[i] = make([]float32, Dimension)
			continue
		}
		inputs = append(inputs, text)
		idxs = append(idxs, i)
	}
	if len(inputs) == 0 {
		return out, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	result, err := e.pipeline.RunPipeline(inputs)
	e.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%w: generate embeddings: %w", domain.ErrEmbedding, err)
	}
	if len(result.Embeddings) != len(inputs) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", domain.ErrEmbedding, len(result.Embeddings), len(inputs))
	}
	for j, idx := range idxs {
		v := result.Embeddings[j]
		if len(v) != Dimension {
			return nil, fmt.Errorf("%w: model %s returned %d dimensions", domain.ErrEmbedding, e.modelName, len(v))
		}
		out[idx] = normalize(v)
	}
	return out, nil
}

// Close releases the hugot session.
func (e *Embedder) Close() error {
	return e.session.Destroy()
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	res := make([]float32, len(v))
	if sum == 0 {
		return res
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		res[i] = float32(float64(x) * inv)
	}
	return res
}
