package simplify

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProcessorConfig(attempts int) ProcessorConfig {
	return ProcessorConfig{ModelID: "test-model", RequestTimeout: time.Second, Retry: noWait(attempts)}
}

func TestProcessSuccess(t *testing.T) {
	var gotPrompt, gotModel string
	gen := GeneratorFunc(func(_ context.Context, prompt, model string) (string, error) {
		gotPrompt, gotModel = prompt, model
		return "  The tenant must pay rent monthly.  \n", nil
	})
	chunk := Chunk{Index: 2, Text: "The Lessee shall remit payment on the first day of each month."}

	res := NewProcessor(gen, testProcessorConfig(3)).Process(context.Background(), chunk, 4)

	require.True(t, res.OK())
	assert.Equal(t, 2, res.Index)
	assert.Equal(t, "The tenant must pay rent monthly.", res.Text)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, "test-model", gotModel)
	assert.Contains(t, gotPrompt, "plain, simple English")
	assert.Contains(t, gotPrompt, "obligations, rights, risks, penalties, and critical dates")
	assert.True(t, strings.HasSuffix(gotPrompt, chunk.Text))
}

func TestProcessRetryBound(t *testing.T) {
	var calls int32
	gen := GeneratorFunc(func(context.Context, string, string) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", errFlaky
	})

	res := NewProcessor(gen, testProcessorConfig(3)).Process(context.Background(), Chunk{Index: 5, Text: "x"}, 5)

	assert.False(t, res.OK())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, 3, res.Attempts)
	assert.ErrorIs(t, res.Err, ErrGeneration)
	assert.ErrorIs(t, res.Err, errFlaky)
	assert.Contains(t, res.ErrorMessage(), "chunk 5")
}

func TestProcessEmptyResponseIsRetried(t *testing.T) {
	responses := []string{"", "   \n", "Plain summary."}
	calls := 0
	gen := GeneratorFunc(func(context.Context, string, string) (string, error) {
		r := responses[calls]
		calls++
		return r, nil
	})

	res := NewProcessor(gen, testProcessorConfig(3)).Process(context.Background(), Chunk{Index: 1, Text: "x"}, 1)
	require.True(t, res.OK())
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, "Plain summary.", res.Text)

	calls = 0
	res = NewProcessor(gen, testProcessorConfig(2)).Process(context.Background(), Chunk{Index: 1, Text: "x"}, 1)
	assert.ErrorIs(t, res.Err, ErrEmptyResponse)
}

func TestProcessRecoversGeneratorPanic(t *testing.T) {
	gen := GeneratorFunc(func(context.Context, string, string) (string, error) {
		panic("boom")
	})

	res := NewProcessor(gen, testProcessorConfig(2)).Process(context.Background(), Chunk{Index: 1, Text: "x"}, 1)
	assert.False(t, res.OK())
	assert.Equal(t, 2, res.Attempts)
	assert.Contains(t, res.ErrorMessage(), "generator panic: boom")
}

func TestProcessRequestTimeout(t *testing.T) {
	gen := GeneratorFunc(func(ctx context.Context, _, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	cfg := ProcessorConfig{RequestTimeout: 10 * time.Millisecond, Retry: noWait(2)}

	res := NewProcessor(gen, cfg).Process(context.Background(), Chunk{Index: 1, Text: "x"}, 1)
	assert.Equal(t, 2, res.Attempts)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.ErrorIs(t, res.Err, ErrGeneration)
}

func TestProcessCanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	gen := GeneratorFunc(func(context.Context, string, string) (string, error) {
		called = true
		return "ok", nil
	})

	res := NewProcessor(gen, testProcessorConfig(3)).Process(ctx, Chunk{Index: 3, Text: "x"}, 3)
	assert.False(t, called)
	assert.Equal(t, 0, res.Attempts)
	assert.ErrorIs(t, res.Err, ErrCanceled)
	assert.True(t, errors.Is(res.Err, context.Canceled))
}

func TestProcessCustomPrompt(t *testing.T) {
	builder, err := NewPromptBuilder("Chunk {{.Index}} of {{.Total}}:\n{{.Text}}")
	require.NoError(t, err)

	var gotPrompt string
	gen := GeneratorFunc(func(_ context.Context, prompt, _ string) (string, error) {
		gotPrompt = prompt
		return "ok", nil
	})

	NewProcessor(gen, testProcessorConfig(1), WithPromptBuilder(builder)).
		Process(context.Background(), Chunk{Index: 2, Text: "Clause {{ not a template }}"}, 7)
	assert.Equal(t, "Chunk 2 of 7:\nClause {{ not a template }}", gotPrompt)
}

func TestNewPromptBuilder(t *testing.T) {
	b, err := NewPromptBuilder("   ")
	require.NoError(t, err)
	prompt, err := b.Build(Chunk{Index: 1, Text: "text"}, 1)
	require.NoError(t, err)
	assert.Contains(t, prompt, "You are a legal document simplifier.")

	_, err = NewPromptBuilder("Summarize this document.")
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewPromptBuilder("{{.Text")
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestDefaultPromptBuilder(t *testing.T) {
	var b *PromptBuilder
	require.NotPanics(t, func() { b = MustDefaultPromptBuilder() })

	prompt, err := b.Build(Chunk{Index: 2, Text: "The lessee shall indemnify the lessor."}, 3)
	require.NoError(t, err)
	assert.Contains(t, prompt, "The lessee shall indemnify the lessor.")
}
