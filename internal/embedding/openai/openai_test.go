package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("DOCQA_TEST_KEY", "sk-test")
	c, err := NewClient(Config{
		BaseURL:   srv.URL,
		APIKeyEnv: "DOCQA_TEST_KEY",
		Model:     "text-embedding-3-small",
		Dimension: 3,
		BatchSize: 2,
	})
	require.NoError(t, err)
	return c
}

func TestClientEmbedBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("Batches inputs and normalises vectors", func(t *testing.T) {
		var calls atomic.Int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			assert.Equal(t, "/embeddings", r.URL.Path)
			assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
			var req struct {
				Input []string `json:"input"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			data := make([]map[string]any, len(req.Input))
			for i := range req.Input {
				// reversed order exercises index placement
				j := len(req.Input) - 1 - i
				data[i] = map[string]any{"object": "embedding", "index": j, "embedding": []float32{float32(len(req.Input[j])), 0, 0}}
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "model": "text-embedding-3-small", "data": data})
		})

		out, err := c.EmbedBatch(ctx, []string{"a", "", "bb", "ccc"})

		require.NoError(t, err)
		require.Len(t, out, 4)
		assert.Equal(t, []float32{1, 0, 0}, out[0])
		assert.Equal(t, []float32{0, 0, 0}, out[1])
		assert.Equal(t, []float32{1, 0, 0}, out[2])
		assert.Equal(t, []float32{1, 0, 0}, out[3])
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("Server errors surface as external call errors", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
		})

		_, err := c.Embed(ctx, "hello")

		assert.ErrorIs(t, err, domain.ErrExternalCall)
	})

	t.Run("Unexpected dimension is a misconfiguration", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[1,2]}]}`))
		})

		_, err := c.Embed(ctx, "hello")

		assert.ErrorIs(t, err, domain.ErrEmbedding)
	})

	t.Run("Blank text never calls the API", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("unexpected request")
		})

		v, err := c.Embed(ctx, "  ")

		require.NoError(t, err)
		assert.Equal(t, []float32{0, 0, 0}, v)
	})
}

func TestNewClientMisconfiguration(t *testing.T) {
	t.Setenv("DOCQA_EMPTY_KEY", "")

	_, err := NewClient(Config{APIKeyEnv: "DOCQA_EMPTY_KEY", Model: "m", Dimension: 3})
	assert.ErrorIs(t, err, domain.ErrEmbedding)

	t.Setenv("DOCQA_SET_KEY", "k")
	_, err = NewClient(Config{APIKeyEnv: "DOCQA_SET_KEY", Model: "", Dimension: 3})
	assert.ErrorIs(t, err, domain.ErrEmbedding)
}
