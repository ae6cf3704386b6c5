package vectorstore

import (
	"fmt"
	"sort"
	"time"

	"docqa/internal/domain"
)

// Index is an in-memory exact nearest-neighbour index over chunk embeddings.
// Distances are squared Euclidean; with unit vectors they lie in [0, 4].
// An Index is immutable after Build and safe for concurrent Search.
type Index struct {
	Model     string
	Dimension int
	Chunks    []domain.Chunk
	BuiltAt   time.Time
}

// Build creates an index from embedded chunks. Every chunk must carry an
// embedding of the given dimension.
func Build(model string, dimension int, chunks []domain.Chunk) (*Index, error) {
	if len(chunks) == 0 {
		return nil, domain.ErrEmptyCorpus
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: invalid dimension %d", domain.ErrDimensionMismatch, dimension)
	}
	for _, ch := range chunks {
		if len(ch.Embedding) != dimension {
			return nil, fmt.Errorf("%w: chunk %s has %d dimensions, index has %d", domain.ErrDimensionMismatch, ch.ChunkID, len(ch.Embedding), dimension)
		}
	}
	stored := make([]domain.Chunk, len(chunks))
	copy(stored, chunks)
	return &Index{Model: model, Dimension: dimension, Chunks: stored, BuiltAt: time.Now().UTC()}, nil
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int { return len(ix.Chunks) }

// Search returns the k nearest chunks ordered by ascending distance.
// Ties keep insertion order. k larger than the index returns every chunk.
func (ix *Index) Search(query []float32, k int) ([]domain.RetrievalResult, error) {
	if len(query) != ix.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", domain.ErrDimensionMismatch, len(query), ix.Dimension)
	}
	if k <= 0 {
		return nil, nil
	}
	scores := make([]float64, len(ix.Chunks))
	for i := range ix.Chunks {
		scores[i] = squaredL2(ix.Chunks[i].Embedding, query)
	}
	idxs := argsortAsc(scores)
	if k > len(idxs) {
		k = len(idxs)
	}
	results := make([]domain.RetrievalResult, 0, k)
	for _, j := range idxs[:k] {
		results = append(results, domain.RetrievalResult{Chunk: ix.Chunks[j], Score: scores[j]})
	}
	return results, nil
}

func squaredL2(a, b []float32) float64 {
	sum := 0.0
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

func argsortAsc(vals []float64) []int {
	idxs := make([]int, len(vals))
	for i := range vals {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(i, j int) bool { return vals[idxs[i]] < vals[idxs[j]] })
	return idxs
}
