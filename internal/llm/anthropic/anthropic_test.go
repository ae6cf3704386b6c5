package anthropic

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

func newClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("DOCQA_ANTHROPIC_KEY", "sk-ant-test")
	c, err := NewClient(Config{BaseURL: srv.URL, APIKeyEnv: "DOCQA_ANTHROPIC_KEY", Model: "claude-3-5-haiku-latest", MaxTokens: 256})
	require.NoError(t, err)
	return c
}

func TestComplete(t *testing.T) {
	ctx := context.Background()

	t.Run("Concatenates text blocks", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/messages", r.URL.Path)
			assert.Equal(t, "sk-ant-test", r.Header.Get("X-Api-Key"))
			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "claude-3-5-haiku-latest", req["model"])
			assert.EqualValues(t, 256, req["max_tokens"])

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-5-haiku-latest",
				"content":[{"type":"text","text":"ANSWER:\n"},{"type":"text","text":"- 10 years"}],
				"stop_reason":"end_turn","stop_sequence":null,"usage":{"input_tokens":10,"output_tokens":5}}`))
		})

		out, err := c.Complete(ctx, "prompt")

		require.NoError(t, err)
		assert.Equal(t, "ANSWER:\n- 10 years", out)
	})

	t.Run("Failure is not retried", func(t *testing.T) {
		var calls atomic.Int32
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"boom"}}`))
		})

		_, err := c.Complete(ctx, "prompt")

		assert.ErrorIs(t, err, domain.ErrExternalCall)
		assert.Equal(t, int32(1), calls.Load())
	})
}
