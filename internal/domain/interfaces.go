package domain

import "context"

// Document represents a single text file loaded from the corpus.
// ID is the slash-separated path relative to the corpus root.
type Document struct {
	ID      string
	Path    string
	Content string
}

// Chunk is a fixed window of a document used for indexing.
// Offset is the rune offset of Text inside the owning document.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Text       string
	Index      int
	Offset     int
	Embedding  []float32
}

// RetrievalResult is a matching chunk with its squared Euclidean distance
// to the query. Lower scores are closer.
type RetrievalResult struct {
	Chunk Chunk
	Score float64
}

// GroundedAnswer is the outcome of a single question.
type GroundedAnswer struct {
	QueryID    string
	Text       string
	Grounded   bool
	UsedChunks []int
	Context    []RetrievalResult
}

// QueryState tracks a question through the answer pipeline.
type QueryState string

const (
	StateReceived     QueryState = "RECEIVED"
	StateRetrieved    QueryState = "RETRIEVED"
	StateEmptyContext QueryState = "EMPTY_CONTEXT"
	StatePrompted     QueryState = "PROMPTED"
	StateResponded    QueryState = "RESPONDED"
	StateGrounded     QueryState = "GROUNDED"
	StateRefused      QueryState = "REFUSED"
)

// Embedder converts free text into a numeric vector representation.
// Implementations must be deterministic: the same text always yields the
// same vector, and blank text yields a zero vector of Dimension length.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// LanguageModel is the external text-completion boundary.
type LanguageModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// QAService defines the operation exposed by the application core.
type QAService interface {
	Answer(ctx context.Context, question string) (GroundedAnswer, error)
}
