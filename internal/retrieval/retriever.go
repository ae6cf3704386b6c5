package retrieval

import (
	"context"
	"fmt"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

// Retriever embeds a question and returns the nearest chunks that pass
// the distance threshold. An empty result is a valid outcome.
type Retriever struct {
	embedder    domain.Embedder
	topK        int
	maxDistance *float64
}

// New creates a retriever. A nil maxDistance disables threshold filtering.
func New(embedder domain.Embedder, topK int, maxDistance *float64) *Retriever {
	return &Retriever{embedder: embedder, topK: topK, maxDistance: maxDistance}
}

// TopK returns the configured number of neighbours.
func (r *Retriever) TopK() int { return r.topK }

func (r *Retriever) Retrieve(ctx context.Context, ix *vectorstore.Index, query string) ([]domain.RetrievalResult, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	// Detect zero vector (no tokens)
	if isZero(vec) {
		return nil, nil
	}
	res, err := ix.Search(vec, r.topK)
	if err != nil {
		return nil, err
	}
	if r.maxDistance == nil {
		return res, nil
	}
	kept := res[:0]
	for _, hit := range res {
		if hit.Score <= *r.maxDistance {
			kept = append(kept, hit)
		}
	}
	return kept, nil
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
