package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"docqa/internal/domain"
)

func hits(n int) []domain.RetrievalResult {
	out := make([]domain.RetrievalResult, n)
	for i := range out {
		out[i] = domain.RetrievalResult{Chunk: domain.Chunk{Index: i}, Score: float64(i) / 10}
	}
	return out
}

func TestEvaluate(t *testing.T) {
	t.Run("Grounded answer passes through with citations", func(t *testing.T) {
		raw := "ANSWER:\n- The warranty lasts 10 years.\n\nSOURCE_CHUNKS:\n- Chunk 1\n"

		a := Evaluate(raw, 2, hits(2))

		assert.True(t, a.Grounded)
		assert.Contains(t, a.Text, "10 years")
		assert.Equal(t, []int{1}, a.UsedChunks)
		assert.Len(t, a.Context, 2)
	})

	t.Run("Sentinel anywhere refuses", func(t *testing.T) {
		for _, raw := range []string{
			"NOT FOUND IN DOCUMENTS",
			"Sorry, not found in documents.",
			"ANSWER:\n- I think Paris\nNOT FOUND IN DOCUMENTS",
		} {
			a := Evaluate(raw, 3, hits(3))

			assert.False(t, a.Grounded, raw)
			assert.Equal(t, RefusalMessage, a.Text)
			assert.NotContains(t, a.Text, "Paris")
			assert.Empty(t, a.UsedChunks)
		}
	})

	t.Run("No retrieved context refuses regardless of output", func(t *testing.T) {
		a := Evaluate("ANSWER:\n- Paris", 0, nil)

		assert.False(t, a.Grounded)
		assert.Equal(t, RefusalMessage, a.Text)
	})

	t.Run("Missing citations are not an error", func(t *testing.T) {
		a := Evaluate("The warranty is 10 years.", 3, hits(3))

		assert.True(t, a.Grounded)
		assert.Nil(t, a.UsedChunks)
	})
}

func TestCitations(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		included int
		want     []int
	}{
		{"Section with chunk labels", "ANSWER:\n- x (Chunk 3)\nSOURCE_CHUNKS:\n- Chunk 2\n- Chunk 1", 3, []int{1, 2}},
		{"Comma list", "SOURCE_CHUNKS: Chunks 1, 3 and 2", 3, []int{1, 2, 3}},
		{"Bare numbers in section", "SOURCE_CHUNKS:\n- 2\n- 1\n", 3, []int{1, 2}},
		{"Out of range ignored", "SOURCE_CHUNKS:\n- Chunk 7\n- Chunk 0\n- Chunk 2", 3, []int{2}},
		{"No section scans the whole text", "See chunk #2 and [Chunk 1].", 2, []int{1, 2}},
		{"Bare numbers outside section are ignored", "- 10 years\n- 2", 3, nil},
		{"Inline comma list in section", "SOURCE_CHUNKS: 1, 3", 3, []int{1, 3}},
		{"Bulleted comma list in section", "SOURCE_CHUNKS:\n- 1, 3", 3, []int{1, 3}},
		{"Bracketed list in section", "SOURCE_CHUNKS: [1, 3]", 3, []int{1, 3}},
		{"Duplicates collapse", "SOURCE_CHUNKS:\n- Chunk 1\n- chunk 1", 3, []int{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Citations(tt.raw, tt.included))
		})
	}
}

func TestContainsSentinel(t *testing.T) {
	assert.True(t, ContainsSentinel("not found in documents"))
	assert.True(t, ContainsSentinel("xx NOT FOUND IN DOCUMENTS yy"))
	assert.False(t, ContainsSentinel("NOT FOUND"))
	assert.False(t, ContainsSentinel(""))
}
