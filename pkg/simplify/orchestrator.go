package simplify

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ChunkStore 按分块序号持久化原文与简化结果，同一键只写一次
type ChunkStore interface {
	SaveChunk(ctx context.Context, index int, text string) error
	SaveResult(ctx context.Context, index int, text string) error
	// LoadResult 读取已有结果，不存在时 ok 为 false
	LoadResult(ctx context.Context, index int) (text string, ok bool, err error)
}

// ChunkProcessor 处理单个分块
type ChunkProcessor interface {
	Process(ctx context.Context, chunk Chunk, total int) ChunkResult
}

// Observer 批处理进度观察者，回调可能来自多个 goroutine
type Observer interface {
	ChunkStarted(chunk Chunk, total int)
	ChunkFinished(result ChunkResult, total int)
}

// OrchestratorConfig 编排器配置
type OrchestratorConfig struct {
	// Concurrency 并行处理的分块数，<=1 时按顺序处理
	Concurrency int
	// Resume 存储中已有结果的分块不再调用生成服务
	Resume bool
}

// Orchestrator 批处理编排器
type Orchestrator struct {
	processor ChunkProcessor
	store     ChunkStore
	config    OrchestratorConfig
	observer  Observer
	logger    *zap.Logger
}

// OrchestratorOption 编排器选项
type OrchestratorOption func(*Orchestrator)

// WithObserver 设置进度观察者
func WithObserver(o Observer) OrchestratorOption {
	return func(orc *Orchestrator) {
		orc.observer = o
	}
}

// WithOrchestratorLogger 设置日志
func WithOrchestratorLogger(logger *zap.Logger) OrchestratorOption {
	return func(orc *Orchestrator) {
		if logger != nil {
			orc.logger = logger
		}
	}
}

// NewOrchestrator 创建编排器，store 为 nil 时不持久化
func NewOrchestrator(processor ChunkProcessor, store ChunkStore, config OrchestratorConfig, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		processor: processor,
		store:     store,
		config:    config,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunBatch 按序号处理全部分块
//
// 单个分块的失败不会中止批处理。ctx 被取消后尚未开始的分块记为 ErrCanceled
// 失败，已持久化的结果不受影响；此时返回完整报告和 ctx 的错误。
func (o *Orchestrator) RunBatch(ctx context.Context, chunks []Chunk) (*BatchReport, error) {
	start := time.Now()
	total := len(chunks)
	results := make([]ChunkResult, total)

	concurrency := o.config.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	o.logger.Info("batch started",
		zap.Int("chunks", total),
		zap.Int("concurrency", concurrency),
		zap.Bool("resume", o.config.Resume))

	// 不使用 errgroup.WithContext：单个分块失败不能取消其他分块
	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			results[i] = Failure(chunk.Index, CanceledError(chunk.Index, err), 0)
			continue
		}

		i, chunk := i, chunk
		g.Go(func() error {
			// 排队期间可能已被取消
			if err := ctx.Err(); err != nil {
				results[i] = Failure(chunk.Index, CanceledError(chunk.Index, err), 0)
				return nil
			}
			results[i] = o.runChunk(ctx, chunk, total)
			return nil
		})
	}
	_ = g.Wait()

	report := NewBatchReport(results)
	report.Duration = time.Since(start)

	o.logger.Info("batch finished",
		zap.Int("chunks", total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration))

	return report, ctx.Err()
}

// runChunk 持久化原文、处理并持久化结果
func (o *Orchestrator) runChunk(ctx context.Context, chunk Chunk, total int) ChunkResult {
	if o.observer != nil {
		o.observer.ChunkStarted(chunk, total)
	}
	res := o.processChunk(ctx, chunk, total)
	if o.observer != nil {
		o.observer.ChunkFinished(res, total)
	}
	return res
}

func (o *Orchestrator) processChunk(ctx context.Context, chunk Chunk, total int) ChunkResult {
	log := o.logger.With(zap.Int("chunk", chunk.Index), zap.Int("total", total))

	if o.store != nil && o.config.Resume {
		text, ok, err := o.store.LoadResult(ctx, chunk.Index)
		if err != nil {
			log.Warn("cannot read stored result, processing again", zap.Error(err))
		} else if ok {
			log.Debug("reusing stored result")
			res := Success(chunk.Index, text, 0)
			res.Resumed = true
			return res
		}
	}

	if o.store != nil {
		if err := o.store.SaveChunk(ctx, chunk.Index, chunk.Text); err != nil {
			log.Error("cannot persist chunk text", zap.Error(err))
			return Failure(chunk.Index, PersistenceError(chunk.Index, "chunk text", err), 0)
		}
	}

	res := o.processor.Process(ctx, chunk, total)
	if !res.OK() {
		return res
	}

	if o.store != nil {
		if err := o.store.SaveResult(ctx, chunk.Index, res.Text); err != nil {
			log.Error("cannot persist simplified text", zap.Error(err))
			failed := Failure(chunk.Index, PersistenceError(chunk.Index, "simplified text", err), res.Attempts)
			failed.Duration = res.Duration
			return failed
		}
	}

	log.Info("chunk processed", zap.Int("attempts", res.Attempts), zap.Duration("duration", res.Duration))
	return res
}
