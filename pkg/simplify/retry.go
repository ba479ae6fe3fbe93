package simplify

import (
	"context"
	"math"
	"time"
)

// 默认重试参数
const (
	DefaultMaxAttempts  = 3
	DefaultRetryBackoff = 3 * time.Second
)

// BackoffFunc 根据已失败的尝试次数（从 1 开始）返回下一次尝试前的等待时间
type BackoffFunc func(attempt int) time.Duration

// ConstantBackoff 固定间隔退避
func ConstantBackoff(d time.Duration) BackoffFunc {
	return func(int) time.Duration { return d }
}

// ExponentialBackoff 指数退避，initial * factor^(attempt-1)，不超过 maxDelay
func ExponentialBackoff(initial time.Duration, factor float64, maxDelay time.Duration) BackoffFunc {
	if factor <= 1.0 {
		factor = 2.0
	}
	return func(attempt int) time.Duration {
		delay := initial
		if attempt > 1 {
			delay = time.Duration(float64(initial) * math.Pow(factor, float64(attempt-1)))
		}
		if maxDelay > 0 && delay > maxDelay {
			delay = maxDelay
		}
		return delay
	}
}

// RetryPolicy 重试策略
type RetryPolicy struct {
	// MaxAttempts 最大尝试次数（包含第一次）
	MaxAttempts int
	// Backoff 两次尝试之间的等待
	Backoff BackoffFunc
}

// DefaultRetryPolicy 返回默认策略：3 次尝试，固定 3 秒间隔
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     ConstantBackoff(DefaultRetryBackoff),
	}
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	if p.Backoff == nil {
		return 0
	}
	return p.Backoff(attempt)
}

// Outcome Retry 的结果
type Outcome[T any] struct {
	Value    T
	Err      error // 最后一次失败的错误，成功时为 nil
	Attempts int   // 实际执行的尝试次数
}

// OK 是否成功
func (o Outcome[T]) OK() bool {
	return o.Err == nil
}

// Retry 按策略执行 fn，直到成功或尝试次数用尽
//
// 失败以值的形式返回，不会 panic。ctx 取消时立即停止，
// Err 为最后一次调用的错误（若尚未调用则为 ctx.Err()）。
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context, attempt int) (T, error)) Outcome[T] {
	var out Outcome[T]
	limit := policy.attempts()

	for attempt := 1; attempt <= limit; attempt++ {
		if err := ctx.Err(); err != nil {
			if out.Err == nil {
				out.Err = err
			}
			return out
		}

		value, err := fn(ctx, attempt)
		out.Attempts = attempt
		if err == nil {
			out.Value = value
			out.Err = nil
			return out
		}
		out.Err = err

		if attempt == limit {
			break
		}
		if !sleepWithContext(ctx, policy.delay(attempt)) {
			return out
		}
	}

	return out
}

// sleepWithContext 等待 d，ctx 取消时返回 false
func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
