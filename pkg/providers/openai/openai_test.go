package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nerdneilsfield/legal-simplifier/pkg/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, Config) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := DefaultConfig()
	config.APIKey = "test-key"
	config.APIEndpoint = server.URL + "/"
	config.Timeout = 5 * time.Second
	return server, config
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, "openai", config.Name)
	assert.Equal(t, "gpt-4o-mini", config.Model)
	assert.Equal(t, 0.2, config.Temperature)

	gemini := GeminiConfig()
	assert.Equal(t, "gemini", gemini.Name)
	assert.Equal(t, GeminiEndpoint, gemini.APIEndpoint)
	assert.Equal(t, "gemini", New(gemini).GetName())
}

func TestGenerate(t *testing.T) {
	var captured map[string]interface{}
	_, config := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "  The tenant pays rent monthly.  "}
			}],
			"usage": {"prompt_tokens": 42, "completion_tokens": 7, "total_tokens": 49}
		}`))
	})

	provider := New(config)
	resp, err := provider.Generate(context.Background(), &providers.Request{
		Prompt: "Simplify this clause",
		System: "You simplify legal documents into clear summaries.",
		Model:  "gpt-4o-mini",
	})
	require.NoError(t, err)

	assert.Equal(t, "The tenant pays rent monthly.", resp.Text)
	assert.Equal(t, 42, resp.TokensIn)
	assert.Equal(t, 7, resp.TokensOut)

	assert.Equal(t, "gpt-4o-mini", captured["model"])
	assert.InDelta(t, 0.2, captured["temperature"], 1e-9)
	messages, ok := captured["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])
	assert.Equal(t, "user", messages[1].(map[string]interface{})["role"])
}

func TestGenerateServerError(t *testing.T) {
	calls := 0
	_, config := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": {"message": "overloaded", "type": "server_error"}}`))
	})

	provider := New(config)
	_, err := provider.Generate(context.Background(), &providers.Request{Prompt: "x"})
	require.Error(t, err)

	var providerErr *providers.Error
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, "server_error", providerErr.Code)
	assert.True(t, providerErr.IsRetryable())
	assert.Equal(t, 1, calls, "SDK retries must stay disabled")
}

func TestGenerateNoChoices(t *testing.T) {
	_, config := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "object": "chat.completion", "model": "m", "choices": []}`))
	})

	_, err := New(config).Generate(context.Background(), &providers.Request{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed_response")
}

func TestGenerateCanceled(t *testing.T) {
	_, config := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(config).Generate(ctx, &providers.Request{Prompt: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
