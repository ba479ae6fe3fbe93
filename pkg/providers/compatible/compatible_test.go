package compatible

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nerdneilsfield/legal-simplifier/pkg/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresEndpoint(t *testing.T) {
	_, err := New(DefaultConfig())
	assert.Error(t, err)
}

func TestGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "local-model", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Equal(t, "Simplify this", body.Messages[1].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "1",
			"object": "chat.completion",
			"model": "local-model",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Plain words.\n"}}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5}
		}`))
	}))
	defer server.Close()

	config := DefaultConfig()
	config.APIEndpoint = server.URL + "/v1/"
	config.Model = "local-model"
	provider, err := New(config)
	require.NoError(t, err)

	resp, err := provider.Generate(context.Background(), &providers.Request{Prompt: "Simplify this"})
	require.NoError(t, err)
	assert.Equal(t, "Plain words.", resp.Text)
	assert.Equal(t, 3, resp.TokensIn)
	assert.Equal(t, 2, resp.TokensOut)
	assert.Equal(t, "stop", resp.Metadata["finish_reason"])
}

func TestGenerateAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "slow down", "type": "rate_limit"}}`))
	}))
	defer server.Close()

	config := DefaultConfig()
	config.APIEndpoint = server.URL
	provider, err := New(config)
	require.NoError(t, err)

	_, err = provider.Generate(context.Background(), &providers.Request{Prompt: "x", Model: "m"})
	require.Error(t, err)

	var providerErr *providers.Error
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, "rate_limit", providerErr.Code)
	assert.Equal(t, http.StatusTooManyRequests, providerErr.Status)
}
