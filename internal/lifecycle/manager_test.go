package lifecycle

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/chunker"
	"docqa/internal/domain"
	"docqa/internal/embedding/hashing"
	"docqa/internal/loader"
	"docqa/internal/logging"
	"docqa/internal/vectorstore"
	"docqa/internal/vectorstore/file"
)

// countingEmbedder records how many texts were embedded.
type countingEmbedder struct {
	domain.Embedder
	texts atomic.Int64
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.texts.Add(int64(len(texts)))
	return c.Embedder.EmbedBatch(ctx, texts)
}

type fixture struct {
	corpus   string
	indexDir string
	embedder *countingEmbedder
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	corpus := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(corpus, name), []byte(content), 0o644))
	}
	h, err := hashing.NewEmbedder(128)
	require.NoError(t, err)
	return &fixture{corpus: corpus, indexDir: t.TempDir(), embedder: &countingEmbedder{Embedder: h}}
}

func (f *fixture) manager(t *testing.T) *Manager {
	t.Helper()
	ch, err := chunker.NewFixedChunker(100, 20)
	require.NoError(t, err)
	return New(loader.New(f.corpus, []string{"*.md", "*.txt"}), ch, f.embedder, file.NewStorage(f.indexDir, "default"), logging.Discard())
}

func TestEnsureReady(t *testing.T) {
	ctx := context.Background()

	t.Run("Builds once then loads", func(t *testing.T) {
		f := newFixture(t, map[string]string{
			"warranty.md": "The warranty period is 10 years.",
			"delays.txt":  "Delays are compensated weekly.",
		})

		first, err := f.manager(t).EnsureReady(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, first.Len())
		built := f.embedder.texts.Load()
		assert.Equal(t, int64(2), built)

		second, err := f.manager(t).EnsureReady(ctx)
		require.NoError(t, err)
		assert.Equal(t, built, f.embedder.texts.Load(), "second start must not re-embed")
		assert.Equal(t, first.Chunks, second.Chunks)
	})

	t.Run("Repeated calls reuse the loaded index", func(t *testing.T) {
		f := newFixture(t, map[string]string{"a.md": "alpha beta gamma"})
		m := f.manager(t)

		a, err := m.EnsureReady(ctx)
		require.NoError(t, err)
		b, err := m.EnsureReady(ctx)
		require.NoError(t, err)

		assert.Same(t, a, b)
	})

	t.Run("Empty corpus", func(t *testing.T) {
		f := newFixture(t, map[string]string{"blank.md": "   \n"})

		_, err := f.manager(t).EnsureReady(ctx)

		assert.ErrorIs(t, err, domain.ErrEmptyCorpus)
		_, statErr := os.Stat(filepath.Join(f.indexDir, "default.gob"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("Corrupt index is reported, not rebuilt", func(t *testing.T) {
		f := newFixture(t, map[string]string{"a.md": "alpha"})
		require.NoError(t, os.WriteFile(filepath.Join(f.indexDir, "default.gob"), []byte("junk"), 0o644))

		_, err := f.manager(t).EnsureReady(ctx)

		assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
		assert.Zero(t, f.embedder.texts.Load())
	})

	t.Run("Index from another embedder is rejected", func(t *testing.T) {
		f := newFixture(t, map[string]string{"a.md": "alpha"})
		other, err := vectorstore.Build("hashing-fnv1a-64", 64, []domain.Chunk{{ChunkID: "a.md:0", Embedding: make([]float32, 64)}})
		require.NoError(t, err)
		require.NoError(t, file.NewStorage(f.indexDir, "default").Persist(ctx, other))

		_, err = f.manager(t).EnsureReady(ctx)

		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	})

	t.Run("Missing corpus directory", func(t *testing.T) {
		f := newFixture(t, nil)
		f.corpus = filepath.Join(f.corpus, "missing")

		_, err := f.manager(t).EnsureReady(ctx)

		assert.ErrorIs(t, err, domain.ErrIngest)
	})
}

func TestRebuild(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]string{"a.md": "alpha"})
	m := f.manager(t)
	_, err := m.EnsureReady(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(f.corpus, "b.md"), []byte("beta"), 0o644))
	ix, err := m.Rebuild(ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, ix.Len())
	reloaded, err := f.manager(t).EnsureReady(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Len())
}
