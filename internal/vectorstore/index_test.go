package vectorstore

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func chunk(id string, v ...float32) domain.Chunk {
	return domain.Chunk{DocumentID: "doc", ChunkID: id, Text: "text " + id, Embedding: v}
}

func testIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := Build("test-model", 2, []domain.Chunk{
		chunk("a", 1, 0),
		chunk("b", 0, 1),
		chunk("c", 0.6, 0.8),
		chunk("d", 1, 0),
	})
	require.NoError(t, err)
	return ix
}

func TestIndexSearch(t *testing.T) {
	ix := testIndex(t)

	t.Run("Ascending distance with stable ties", func(t *testing.T) {
		res, err := ix.Search([]float32{1, 0}, 3)

		require.NoError(t, err)
		require.Len(t, res, 3)
		assert.Equal(t, "a", res[0].Chunk.ChunkID)
		assert.Equal(t, "d", res[1].Chunk.ChunkID)
		assert.Equal(t, "c", res[2].Chunk.ChunkID)
		assert.InDelta(t, 0.0, res[0].Score, 1e-9)
		assert.InDelta(t, 0.32, res[2].Score, 1e-6)
	})

	t.Run("k larger than index returns everything", func(t *testing.T) {
		res, err := ix.Search([]float32{0, 1}, 10)

		require.NoError(t, err)
		assert.Len(t, res, 4)
		for i := 1; i < len(res); i++ {
			assert.LessOrEqual(t, res[i-1].Score, res[i].Score)
		}
	})

	t.Run("Non-positive k returns nothing", func(t *testing.T) {
		res, err := ix.Search([]float32{0, 1}, 0)

		require.NoError(t, err)
		assert.Empty(t, res)
	})

	t.Run("Query dimension mismatch", func(t *testing.T) {
		_, err := ix.Search([]float32{1, 0, 0}, 1)

		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	})
}

func TestBuild(t *testing.T) {
	t.Run("Empty corpus", func(t *testing.T) {
		_, err := Build("m", 2, nil)
		assert.ErrorIs(t, err, domain.ErrEmptyCorpus)
	})

	t.Run("Mixed dimensions", func(t *testing.T) {
		_, err := Build("m", 2, []domain.Chunk{chunk("a", 1, 0), chunk("b", 1)})
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	})
}

func TestCodec(t *testing.T) {
	t.Run("Round trip preserves search results", func(t *testing.T) {
		ix := testIndex(t)
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, ix))

		loaded, err := Decode(&buf)
		require.NoError(t, err)

		for _, q := range [][]float32{{1, 0}, {0, 1}, {0.7071, 0.7071}} {
			want, err := ix.Search(q, 4)
			require.NoError(t, err)
			got, err := loaded.Search(q, 4)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
		assert.Equal(t, ix.Model, loaded.Model)
		assert.True(t, ix.BuiltAt.Equal(loaded.BuiltAt))
	})

	t.Run("Garbage is corrupt", func(t *testing.T) {
		_, err := Decode(bytes.NewReader([]byte("not a gob stream")))
		assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
	})

	t.Run("Truncated payload is corrupt", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, testIndex(t)))

		_, err := Decode(bytes.NewReader(buf.Bytes()[:buf.Len()/2]))
		assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
	})
}
