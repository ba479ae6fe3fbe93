package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/nerdneilsfield/legal-simplifier/internal/config"
	"github.com/nerdneilsfield/legal-simplifier/internal/export"
	"github.com/nerdneilsfield/legal-simplifier/internal/extract"
	"github.com/nerdneilsfield/legal-simplifier/internal/logger"
	"github.com/nerdneilsfield/legal-simplifier/internal/store"
	"github.com/nerdneilsfield/legal-simplifier/pkg/providers"
	"github.com/nerdneilsfield/legal-simplifier/pkg/providers/factory"
	pstats "github.com/nerdneilsfield/legal-simplifier/pkg/providers/stats"
	"github.com/nerdneilsfield/legal-simplifier/pkg/simplify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app 一次命令执行所需的配置和依赖
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	prompt *config.PromptFile
	out    io.Writer
	errOut io.Writer

	provider      providers.Provider
	providerStats *pstats.StatsManager

	// extractOptions 追加到文本提取器上，例如替换某个格式的读取方式
	extractOptions []extract.Option
}

// newApp 加载配置、应用命令行覆盖并初始化日志
func newApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	cfg, err := config.LoadConfig(opts.cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	opts.apply(cmd, cfg)

	if cfg.ModelID == "" {
		if d, err := factory.DefaultFactory.Registry().Get(cfg.Provider); err == nil {
			cfg.ModelID = d.DefaultModel
		}
	}

	log, err := logger.New(logger.Options{
		Level:   cfg.LogLevel,
		Debug:   cfg.Debug,
		Verbose: cfg.Verbose,
		File:    cfg.LogFile,
	})
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var prompt *config.PromptFile
	if cfg.PromptFile != "" {
		if prompt, err = config.LoadPromptFile(cfg.PromptFile); err != nil {
			return nil, err
		}
		log.Debug("custom prompt loaded", zap.String("path", cfg.PromptFile))
	}

	return &app{
		cfg:    cfg,
		log:    log,
		prompt: prompt,
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
	}, nil
}

func (a *app) close() {
	if a.providerStats != nil {
		if err := a.providerStats.SaveToDB(); err != nil {
			a.log.Warn("failed to save provider statistics", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}

// providerStatsPath 提供商统计文件与运行历史放在同一目录
func (a *app) providerStatsPath() string {
	if a.cfg.StatsDB == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(a.cfg.StatsDB), "providers.json")
}

// generationProvider 创建带统计的提供商，同一个 app 内只创建一次
func (a *app) generationProvider() (providers.Provider, error) {
	if a.provider != nil {
		return a.provider, nil
	}

	p, err := factory.CreateProvider(a.cfg.ProviderSettings(a.prompt.SystemPrompt()))
	if err != nil {
		return nil, simplify.InvalidParameterError("cannot create provider: %v", err)
	}

	a.providerStats = pstats.NewStatsManager(a.providerStatsPath(), a.log)
	if err := a.providerStats.LoadFromDB(); err != nil {
		a.log.Warn("failed to load provider statistics", zap.Error(err))
	}
	a.provider = pstats.NewStatisticsMiddleware(p, a.providerStats, a.cfg.ModelID)

	a.log.Info("provider ready",
		zap.String("provider", a.cfg.Provider),
		zap.String("model", a.cfg.ModelID))
	return a.provider, nil
}

func (a *app) newExtractor() (*extract.Extractor, error) {
	opts := append([]extract.Option{extract.WithLogger(a.log)}, a.extractOptions...)
	return extract.New(a.cfg.Extract.PDFBackend, opts...)
}

func (a *app) newExporter(source string) (*export.Exporter, error) {
	return export.NewExporter(a.cfg.Export, export.Meta{Source: filepath.Base(source)}, a.log)
}

// newPipeline 组装完整流水线，exporter 和 observer 可以为 nil
func (a *app) newPipeline(ctx context.Context, storeCfg store.Config, exporter simplify.Exporter, observer simplify.Observer) (*simplify.Pipeline, error) {
	p, err := a.generationProvider()
	if err != nil {
		return nil, err
	}
	extractor, err := a.newExtractor()
	if err != nil {
		return nil, err
	}
	chunkStore, err := store.New(ctx, storeCfg)
	if err != nil {
		return nil, err
	}
	builder, err := a.prompt.Builder()
	if err != nil {
		return nil, err
	}

	generator := providers.NewGenerator(p,
		providers.WithSystemPrompt(a.prompt.SystemPrompt()),
		providers.WithTemperature(a.cfg.Temperature),
		providers.WithMaxTokens(a.cfg.MaxOutputTokens))
	processor := simplify.NewProcessor(generator, a.cfg.ProcessorConfig(),
		simplify.WithPromptBuilder(builder),
		simplify.WithProcessorLogger(a.log))

	orcOpts := []simplify.OrchestratorOption{simplify.WithOrchestratorLogger(a.log)}
	if observer != nil {
		orcOpts = append(orcOpts, simplify.WithObserver(observer))
	}
	orchestrator := simplify.NewOrchestrator(processor, chunkStore, a.cfg.OrchestratorConfig(), orcOpts...)

	pc, err := a.cfg.PipelineConfig()
	if err != nil {
		return nil, err
	}
	opts := []simplify.Option{
		simplify.WithExtractor(extractor),
		simplify.WithOrchestrator(orchestrator),
		simplify.WithLogger(a.log),
	}
	if exporter != nil {
		opts = append(opts, simplify.WithExporter(exporter))
	}
	return simplify.NewPipeline(pc, opts...)
}
