package simplify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultRequestTimeout 单次生成调用的默认超时
const DefaultRequestTimeout = 120 * time.Second

// ErrEmptyResponse 生成服务返回空文本
var ErrEmptyResponse = errors.New("empty response from generation service")

// Generator 外部文本生成能力：一次请求、一次响应
type Generator interface {
	Generate(ctx context.Context, prompt string, modelID string) (string, error)
}

// GeneratorFunc 函数适配器
type GeneratorFunc func(ctx context.Context, prompt string, modelID string) (string, error)

// Generate 实现 Generator
func (f GeneratorFunc) Generate(ctx context.Context, prompt string, modelID string) (string, error) {
	return f(ctx, prompt, modelID)
}

// ProcessorConfig 处理器配置，在构造时显式传入
type ProcessorConfig struct {
	ModelID        string
	RequestTimeout time.Duration
	Retry          RetryPolicy
}

// DefaultProcessorConfig 返回默认配置
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		RequestTimeout: DefaultRequestTimeout,
		Retry:          DefaultRetryPolicy(),
	}
}

// Processor 分块处理器：构建提示词，调用生成服务，按策略重试
type Processor struct {
	generator Generator
	config    ProcessorConfig
	prompts   *PromptBuilder
	logger    *zap.Logger
}

// ProcessorOption 处理器选项
type ProcessorOption func(*Processor)

// WithPromptBuilder 设置提示词构建器
func WithPromptBuilder(b *PromptBuilder) ProcessorOption {
	return func(p *Processor) {
		if b != nil {
			p.prompts = b
		}
	}
}

// WithProcessorLogger 设置日志
func WithProcessorLogger(logger *zap.Logger) ProcessorOption {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProcessor 创建分块处理器
func NewProcessor(generator Generator, config ProcessorConfig, opts ...ProcessorOption) *Processor {
	p := &Processor{
		generator: generator,
		config:    config,
		prompts:   MustDefaultPromptBuilder(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process 处理一个分块，失败总是以 Failure 值返回
func (p *Processor) Process(ctx context.Context, chunk Chunk, total int) ChunkResult {
	start := time.Now()

	prompt, err := p.prompts.Build(chunk, total)
	if err != nil {
		res := Failure(chunk.Index, GenerationError(chunk.Index, err), 0)
		res.Duration = time.Since(start)
		return res
	}

	outcome := Retry(ctx, p.config.Retry, func(ctx context.Context, attempt int) (string, error) {
		text, err := p.call(ctx, prompt)
		if err != nil {
			p.logger.Warn("chunk generation failed",
				zap.Int("chunk", chunk.Index),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", p.config.Retry.attempts()),
				zap.Error(err))
			return "", err
		}
		return text, nil
	})

	var res ChunkResult
	switch {
	case outcome.OK():
		res = Success(chunk.Index, outcome.Value, outcome.Attempts)
	case outcome.Attempts == 0 && ctx.Err() != nil:
		res = Failure(chunk.Index, CanceledError(chunk.Index, ctx.Err()), 0)
	default:
		res = Failure(chunk.Index, GenerationError(chunk.Index, outcome.Err), outcome.Attempts)
		p.logger.Error("chunk failed after retries",
			zap.Int("chunk", chunk.Index),
			zap.Int("attempts", outcome.Attempts),
			zap.Error(outcome.Err))
	}
	res.Duration = time.Since(start)
	return res
}

// call 执行一次带超时的生成调用
func (p *Processor) call(ctx context.Context, prompt string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generator panic: %v", r)
		}
	}()

	timeout := p.config.RequestTimeout
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	text, err = p.generator.Generate(ctx, prompt, p.config.ModelID)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
