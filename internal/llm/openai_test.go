package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podtracker/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	return newTestClientWithRetries(t, 0, handler)
}

func newTestClientWithRetries(t *testing.T, retries int, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(config.LLMConfig{APIKey: "sk-test", BaseURL: srv.URL + "/", Model: "test-model", Timeout: 5 * time.Second, MaxRetries: retries})
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	_, err := New(config.LLMConfig{})
	assert.ErrorIs(t, err, ErrNoAPIKey)

	c, err := New(config.LLMConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, c.Model())
	assert.Equal(t, DefaultBaseURL, c.baseURL)
}

func TestClient_Complete(t *testing.T) {
	t.Run("json mode with zero temperature", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "test-model", body["model"])
			assert.Equal(t, float64(0), body["temperature"])
			assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])
			assert.Len(t, body["messages"], 2)

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"group_by\":[\"retailer\"]}"},"finish_reason":"stop"}]}`))
		})

		out, err := c.Complete(context.Background(), []Message{
			{Role: RoleSystem, Content: "plan"},
			{Role: RoleUser, Content: "pods by retailer"},
		}, Options{JSON: true})

		require.NoError(t, err)
		assert.Equal(t, `{"group_by":["retailer"]}`, out)
	})

	t.Run("plain text omits response format", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.NotContains(t, body, "response_format")
			assert.InDelta(t, 0.1, body["temperature"], 1e-9)
			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"42 PODs"}}]}`))
		})

		out, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "how many?"}}, Options{Temperature: 0.1})

		require.NoError(t, err)
		assert.Equal(t, "42 PODs", out)
	})

	t.Run("api error envelope", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
		})

		_, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, Options{})

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.Equal(t, "invalid api key", apiErr.Message)
	})

	t.Run("non json failure", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
		})

		_, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, Options{})

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
		assert.Equal(t, "upstream unavailable", apiErr.Message)
	})

	t.Run("retries transient failures", func(t *testing.T) {
		var calls atomic.Int32
		c := newTestClientWithRetries(t, 1, func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.Header().Set("Retry-After-Ms", "1")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
				return
			}
			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
		})

		out, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, Options{})

		require.NoError(t, err)
		assert.Equal(t, "ok", out)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("assistant turns keep their role", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Messages []Message `json:"messages"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Len(t, body.Messages, 3)
			assert.Equal(t, RoleAssistant, body.Messages[1].Role)
			assert.Equal(t, "earlier answer", body.Messages[1].Content)
			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
		})

		_, err := c.Complete(context.Background(), []Message{
			{Role: RoleSystem, Content: "context"},
			{Role: RoleAssistant, Content: "earlier answer"},
			{Role: RoleUser, Content: "and now?"},
		}, Options{})

		require.NoError(t, err)
	})

	t.Run("no choices", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		})

		_, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, Options{})

		assert.ErrorContains(t, err, "no response choices")
	})

	t.Run("cancelled context", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("request should not be sent")
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.Complete(ctx, []Message{{Role: RoleUser, Content: "x"}}, Options{})

		assert.Error(t, err)
	})
}
