package simplify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errFlaky = errors.New("503 service unavailable")

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	out := Retry(context.Background(), noWait(3), func(_ context.Context, attempt int) (string, error) {
		calls++
		assert.Equal(t, calls, attempt)
		if attempt < 2 {
			return "", errFlaky
		}
		return "done", nil
	})

	assert.True(t, out.OK())
	assert.Equal(t, "done", out.Value)
	assert.Equal(t, 2, out.Attempts)
	assert.NoError(t, out.Err)
}

func TestRetryStopsAtMaxAttempts(t *testing.T) {
	for _, limit := range []int{1, 2, 3, 5} {
		calls := 0
		out := Retry(context.Background(), noWait(limit), func(context.Context, int) (int, error) {
			calls++
			return 0, errFlaky
		})

		assert.False(t, out.OK())
		assert.Equal(t, limit, calls)
		assert.Equal(t, limit, out.Attempts)
		assert.ErrorIs(t, out.Err, errFlaky)
	}
}

func TestRetryZeroAttemptsMeansOne(t *testing.T) {
	calls := 0
	out := Retry(context.Background(), RetryPolicy{}, func(context.Context, int) (int, error) {
		calls++
		return 0, errFlaky
	})
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, out.Attempts)
}

func TestRetryWaitsBetweenAttemptsOnly(t *testing.T) {
	var waits []int
	policy := RetryPolicy{
		MaxAttempts: 3,
		Backoff: func(attempt int) time.Duration {
			waits = append(waits, attempt)
			return time.Millisecond
		},
	}
	Retry(context.Background(), policy, func(context.Context, int) (int, error) {
		return 0, errFlaky
	})
	assert.Equal(t, []int{1, 2}, waits)
}

func TestRetryCanceledBeforeFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	out := Retry(ctx, noWait(3), func(context.Context, int) (int, error) {
		called = true
		return 1, nil
	})

	assert.False(t, called)
	assert.Equal(t, 0, out.Attempts)
	assert.ErrorIs(t, out.Err, context.Canceled)
}

func TestRetryCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	policy := RetryPolicy{MaxAttempts: 3, Backoff: ConstantBackoff(time.Hour)}
	start := time.Now()
	out := Retry(ctx, policy, func(context.Context, int) (int, error) {
		cancel()
		return 0, errFlaky
	})

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, out.Attempts)
	assert.ErrorIs(t, out.Err, errFlaky)
}

func TestBackoffFuncs(t *testing.T) {
	constant := ConstantBackoff(3 * time.Second)
	assert.Equal(t, 3*time.Second, constant(1))
	assert.Equal(t, 3*time.Second, constant(7))

	exp := ExponentialBackoff(100*time.Millisecond, 2, 300*time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, exp(1))
	assert.Equal(t, 200*time.Millisecond, exp(2))
	assert.Equal(t, 300*time.Millisecond, exp(3))

	// factor <= 1 回退为 2
	doubling := ExponentialBackoff(time.Second, 0.5, 0)
	assert.Equal(t, 4*time.Second, doubling(3))
}

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 3*time.Second, p.delay(1))
}
