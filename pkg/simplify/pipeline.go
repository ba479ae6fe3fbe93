package simplify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PreviewLength 原文预览的字符数
const PreviewLength = 2000

// Document 外部提取得到的原始文本
type Document struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

// Preview 返回原文开头的一段
func (d Document) Preview(n int) string {
	runes := []rune(d.Text)
	if len(runes) <= n {
		return d.Text
	}
	return string(runes[:n])
}

// Extractor 从文件路径提取纯文本
type Extractor interface {
	Extract(ctx context.Context, path string) (Document, error)
}

// Exporter 把最终报告渲染为持久化产物，返回产物路径
type Exporter interface {
	Export(ctx context.Context, report FinalReport) ([]string, error)
}

// PipelineConfig 流水线配置
type PipelineConfig struct {
	ChunkSize    int
	ChunkOverlap int
	Charset      Charset
}

// DefaultPipelineConfig 返回默认配置
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
		Charset:      CharsetASCII,
	}
}

// Option 流水线选项
type Option func(*pipelineOptions)

type pipelineOptions struct {
	extractor    Extractor
	orchestrator *Orchestrator
	exporter     Exporter
	logger       *zap.Logger
}

// WithExtractor 设置文本提取器
func WithExtractor(e Extractor) Option {
	return func(o *pipelineOptions) {
		o.extractor = e
	}
}

// WithOrchestrator 设置批处理编排器
func WithOrchestrator(orc *Orchestrator) Option {
	return func(o *pipelineOptions) {
		o.orchestrator = orc
	}
}

// WithExporter 设置导出器
func WithExporter(e Exporter) Option {
	return func(o *pipelineOptions) {
		o.exporter = e
	}
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(o *pipelineOptions) {
		o.logger = logger
	}
}

// Pipeline 提取 → 规范化 → 分块 → 批处理 → 合并 → 导出
type Pipeline struct {
	normalizer *Normalizer
	chunker    *Chunker
	options    pipelineOptions
}

// RunResult 一次运行的结果
type RunResult struct {
	RunID     string        `json:"run_id"`
	Document  Document      `json:"-"`
	Chunks    []Chunk       `json:"chunks"`
	Report    *BatchReport  `json:"report,omitempty"`
	Final     FinalReport   `json:"final_report"`
	Artifacts []string      `json:"artifacts,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// NewPipeline 创建流水线，分块参数非法时返回 ErrInvalidParameter
func NewPipeline(config PipelineConfig, opts ...Option) (*Pipeline, error) {
	chunker, err := NewChunker(config.ChunkSize, config.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	options := pipelineOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.extractor == nil {
		return nil, InvalidParameterError("pipeline requires an extractor")
	}
	if options.logger == nil {
		options.logger = zap.NewNop()
	}

	return &Pipeline{
		normalizer: NewNormalizer(config.Charset),
		chunker:    chunker,
		options:    options,
	}, nil
}

// Prepare 提取、规范化并分块，不调用生成服务
func (p *Pipeline) Prepare(ctx context.Context, path string) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{RunID: uuid.New().String()}
	log := p.options.logger.With(zap.String("run_id", result.RunID), zap.String("file", path))

	doc, err := p.options.extractor.Extract(ctx, path)
	if err != nil {
		if !IsFatal(err) {
			err = ExtractionError(path, err)
		}
		log.Error("text extraction failed", zap.Error(err))
		return nil, err
	}
	result.Document = doc

	normalized := p.normalizer.Normalize(doc.Text)
	result.Chunks = p.chunker.Split(normalized)
	result.Duration = time.Since(start)

	log.Info("document prepared",
		zap.Int("raw_chars", len([]rune(doc.Text))),
		zap.Int("normalized_chars", len([]rune(normalized))),
		zap.Int("chunks", len(result.Chunks)),
		zap.String("charset", string(p.normalizer.Charset())))

	return result, nil
}

// Run 执行完整流程
//
// 致命错误（格式、提取、配置）直接返回；分块级失败只体现在 Report 中。
// 被取消时返回已完成部分的结果和 ctx 错误。
func (p *Pipeline) Run(ctx context.Context, path string) (*RunResult, error) {
	if p.options.orchestrator == nil {
		return nil, InvalidParameterError("pipeline requires an orchestrator to run")
	}

	start := time.Now()
	result, err := p.Prepare(ctx, path)
	if err != nil {
		return nil, err
	}
	log := p.options.logger.With(zap.String("run_id", result.RunID), zap.String("file", path))

	report, batchErr := p.options.orchestrator.RunBatch(ctx, result.Chunks)
	result.Report = report
	result.Final = Merge(report)
	result.Duration = time.Since(start)

	if batchErr != nil {
		log.Warn("batch interrupted", zap.Error(batchErr))
		return result, fmt.Errorf("batch interrupted: %w", batchErr)
	}

	if p.options.exporter != nil && result.Final != "" {
		artifacts, err := p.options.exporter.Export(ctx, result.Final)
		result.Artifacts = artifacts
		if err != nil {
			log.Error("export failed", zap.Error(err))
			return result, fmt.Errorf("export report: %w", err)
		}
	}

	if report.Failed > 0 {
		log.Warn("run finished with failed chunks",
			zap.Int("succeeded", report.Succeeded),
			zap.Int("failed", report.Failed))
	} else {
		log.Info("run finished", zap.Int("succeeded", report.Succeeded), zap.Duration("duration", result.Duration))
	}
	return result, nil
}

// IsCanceled 判断 Run 的错误是否来自取消
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
