package stats

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nerdneilsfield/legal-simplifier/pkg/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	responses []*providers.Response
	errs      []error
	calls     int
}

func (s *stubProvider) Generate(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	i := s.calls
	s.calls++
	return s.responses[i], s.errs[i]
}

func (s *stubProvider) GetName() string { return "stub" }

func TestMiddlewareRecords(t *testing.T) {
	next := &stubProvider{
		responses: []*providers.Response{
			{Text: "ok", TokensIn: 10, TokensOut: 3},
			nil,
			{Text: "  "},
		},
		errs: []error{
			nil,
			providers.ErrorFromStatus("stub", 429, "slow down"),
			nil,
		},
	}
	manager := NewStatsManager("", nil)
	mw := NewStatisticsMiddleware(next, manager, "model-a")

	for i := 0; i < 3; i++ {
		_, _ = mw.Generate(context.Background(), &providers.Request{Prompt: "p"})
	}

	s := manager.GetStats("stub", "model-a")
	require.NotNil(t, s)
	assert.Equal(t, int64(3), s.TotalRequests)
	assert.Equal(t, int64(2), s.SuccessfulRequests)
	assert.Equal(t, int64(1), s.FailedRequests)
	assert.Equal(t, int64(1), s.EmptyResponses)
	assert.Equal(t, int64(10), s.TotalTokensIn)
	assert.Equal(t, int64(1), s.ErrorTypes["rate_limit"])
	assert.InDelta(t, 66.6, s.SuccessRate(), 0.1)
	assert.Equal(t, "stub", mw.GetName())
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, "context_canceled", classifyError(context.Canceled))
	assert.Equal(t, "timeout", classifyError(context.DeadlineExceeded))
	assert.Equal(t, "server_error", classifyError(providers.ErrorFromStatus("x", 502, "")))
	assert.Equal(t, "network_error", classifyError(errors.New("connection refused")))
	assert.Equal(t, "unknown_error", classifyError(errors.New("boom")))
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "provider_stats.json")

	manager := NewStatsManager(path, nil)
	manager.RecordRequest("openai", "gpt-4o-mini", RequestResult{Success: true, TokensIn: 5})
	require.NoError(t, manager.SaveToDB())

	loaded := NewStatsManager(path, nil)
	require.NoError(t, loaded.LoadFromDB())

	s := loaded.GetStats("openai", "gpt-4o-mini")
	require.NotNil(t, s)
	assert.Equal(t, int64(1), s.TotalRequests)
	assert.Equal(t, int64(5), s.TotalTokensIn)

	var buf bytes.Buffer
	loaded.RenderTable(&buf)
	assert.Contains(t, buf.String(), "gpt-4o-mini")
}

func TestLoadMissingFile(t *testing.T) {
	manager := NewStatsManager(filepath.Join(t.TempDir(), "missing.json"), nil)
	assert.NoError(t, manager.LoadFromDB())
	assert.Empty(t, manager.GetAllStats())

	var buf bytes.Buffer
	manager.RenderTable(&buf)
	assert.Contains(t, buf.String(), "No provider statistics")
}
