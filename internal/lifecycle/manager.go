package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"docqa/internal/chunker"
	"docqa/internal/domain"
	"docqa/internal/progress"
	"docqa/internal/vectorstore"
)

const embedBatchSize = 64

// DocumentSource yields the corpus to index.
type DocumentSource interface {
	Load(ctx context.Context) ([]domain.Document, error)
}

// Manager owns the persisted index: it loads it, builds it when none
// exists, and verifies it matches the configured embedder.
//
// Builds are serialised within a process. Two processes building the
// same location concurrently are not coordinated; the last rename wins.
type Manager struct {
	source   DocumentSource
	chunker  domain.Chunker
	embedder domain.Embedder
	storage  vectorstore.Storage
	progress progress.Reporter
	log      *slog.Logger

	mu    sync.Mutex
	index *vectorstore.Index
}

func New(source DocumentSource, ch domain.Chunker, emb domain.Embedder, st vectorstore.Storage, log *slog.Logger) *Manager {
	return &Manager{
		source:   source,
		chunker:  ch,
		embedder: emb,
		storage:  st,
		progress: progress.Nop{},
		log:      log,
	}
}

// SetProgress installs a reporter for embedding progress during builds.
func (m *Manager) SetProgress(p progress.Reporter) {
	if p == nil {
		p = progress.Nop{}
	}
	m.progress = p
}

// EnsureReady returns a usable index, building and persisting one only
// when nothing is stored yet. Any other load failure is returned as is.
func (m *Manager) EnsureReady(ctx context.Context) (*vectorstore.Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index != nil {
		return m.index, nil
	}

	ix, err := m.storage.Load(ctx)
	switch {
	case err == nil:
		if err := m.checkCompatible(ix); err != nil {
			return nil, err
		}
		m.log.Info("Loaded index", slog.String("location", m.storage.Location()), slog.Int("chunks", ix.Len()), slog.String("model", ix.Model))
		m.index = ix
		return ix, nil
	case errors.Is(err, domain.ErrIndexNotFound):
		m.log.Info("No index found, building", slog.String("location", m.storage.Location()))
		return m.build(ctx)
	default:
		return nil, err
	}
}

// Rebuild re-ingests the corpus and replaces the persisted index.
func (m *Manager) Rebuild(ctx context.Context) (*vectorstore.Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = nil
	return m.build(ctx)
}

func (m *Manager) build(ctx context.Context) (*vectorstore.Index, error) {
	start := time.Now()
	docs, err := m.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	chunks, err := chunker.ChunkAll(m.chunker, docs)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %d documents produced no chunks", domain.ErrEmptyCorpus, len(docs))
	}
	m.log.Info("Chunked corpus", slog.Int("documents", len(docs)), slog.Int("chunks", len(chunks)))

	if err := m.embedChunks(ctx, chunks); err != nil {
		return nil, err
	}

	built, err := vectorstore.Build(m.embedder.Name(), m.embedder.Dimension(), chunks)
	if err != nil {
		return nil, err
	}
	if err := m.storage.Persist(ctx, built); err != nil {
		return nil, fmt.Errorf("persist index: %w", err)
	}

	loaded, err := m.storage.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("reload index: %w", err)
	}
	if loaded.Len() != built.Len() || loaded.Dimension != built.Dimension || loaded.Model != built.Model {
		return nil, fmt.Errorf("%w: reloaded index differs from the one just built", domain.ErrIndexCorrupt)
	}
	m.log.Info("Built index",
		slog.String("location", m.storage.Location()),
		slog.Int("chunks", loaded.Len()),
		slog.Int("dimension", loaded.Dimension),
		slog.Duration("took", time.Since(start)))
	m.index = loaded
	return loaded, nil
}

func (m *Manager) embedChunks(ctx context.Context, chunks []domain.Chunk) error {
	m.progress.Start(len(chunks), "embedding")
	defer m.progress.Finish()
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))
		texts := make([]string, 0, end-start)
		for _, ch := range chunks[start:end] {
			texts = append(texts, ch.Text)
		}
		vecs, err := m.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return err
		}
		if len(vecs) != len(texts) {
			return fmt.Errorf("%w: embedder returned %d vectors for %d texts", domain.ErrEmbedding, len(vecs), len(texts))
		}
		for i, v := range vecs {
			chunks[start+i].Embedding = v
		}
		m.progress.Add(len(texts))
	}
	return nil
}

func (m *Manager) checkCompatible(ix *vectorstore.Index) error {
	if ix.Model != m.embedder.Name() || ix.Dimension != m.embedder.Dimension() {
		return fmt.Errorf("%w: index at %s was built with %s (%d dims), embedder is %s (%d dims); rebuild the index",
			domain.ErrDimensionMismatch, m.storage.Location(), ix.Model, ix.Dimension, m.embedder.Name(), m.embedder.Dimension())
	}
	return nil
}
