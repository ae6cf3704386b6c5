package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func norm(v []float32) float64 {
	s := 0.0
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestEmbedder(t *testing.T) {
	ctx := context.Background()
	e, err := NewEmbedder(256)
	require.NoError(t, err)

	t.Run("Deterministic across calls and instances", func(t *testing.T) {
		texts := []string{"The warranty period is 10 years.", "Délais de livraison", "", "!!!"}
		other, err := NewEmbedder(256)
		require.NoError(t, err)

		for _, text := range texts {
			a, err := e.Embed(ctx, text)
			require.NoError(t, err)
			b, err := e.Embed(ctx, text)
			require.NoError(t, err)
			c, err := other.Embed(ctx, text)
			require.NoError(t, err)

			assert.Equal(t, a, b)
			assert.Equal(t, a, c)
		}
	})

	t.Run("Vectors are unit length", func(t *testing.T) {
		v, err := e.Embed(ctx, "concrete curing takes seven days")
		require.NoError(t, err)

		assert.Len(t, v, 256)
		assert.InDelta(t, 1.0, norm(v), 1e-5)
	})

	t.Run("Blank and stop-word-only text gives the zero vector", func(t *testing.T) {
		for _, text := range []string{"", "   ", "what is the", "?!"} {
			v, err := e.Embed(ctx, text)
			require.NoError(t, err)
			assert.Len(t, v, 256)
			assert.Zero(t, norm(v), "text %q", text)
		}
	})

	t.Run("Batch matches single embeddings", func(t *testing.T) {
		texts := []string{"alpha beta", "gamma", ""}
		batch, err := e.EmbedBatch(ctx, texts)
		require.NoError(t, err)
		require.Len(t, batch, 3)

		for i, text := range texts {
			single, err := e.Embed(ctx, text)
			require.NoError(t, err)
			assert.Equal(t, single, batch[i])
		}
	})

	t.Run("Shared terms bring texts closer", func(t *testing.T) {
		doc, _ := e.Embed(ctx, "The warranty period is 10 years.")
		related, _ := e.Embed(ctx, "What is the warranty period?")
		unrelated, _ := e.Embed(ctx, "What is the capital of France?")

		assert.Less(t, sqDist(doc, related), sqDist(doc, unrelated))
	})

	t.Run("Name encodes dimension", func(t *testing.T) {
		assert.Equal(t, "hashing-fnv1a-256", e.Name())
		assert.Equal(t, 256, e.Dimension())
	})

	t.Run("Non-positive dimension is a misconfiguration", func(t *testing.T) {
		_, err := NewEmbedder(0)
		assert.ErrorIs(t, err, domain.ErrEmbedding)
	})
}

func sqDist(a, b []float32) float64 {
	s := 0.0
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		s += d * d
	}
	return s
}
