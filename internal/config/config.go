package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nerdneilsfield/legal-simplifier/internal/export"
	"github.com/nerdneilsfield/legal-simplifier/internal/extract"
	"github.com/nerdneilsfield/legal-simplifier/internal/store"
	"github.com/nerdneilsfield/legal-simplifier/pkg/providers/factory"
	"github.com/nerdneilsfield/legal-simplifier/pkg/simplify"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 LEGALSIMPLIFY_CHUNK_SIZE
const EnvPrefix = "LEGALSIMPLIFY"

// 重试退避策略
const (
	BackoffConstant    = "constant"
	BackoffExponential = "exponential"
)

// ExtractConfig 文本提取配置
type ExtractConfig struct {
	PDFBackend string `mapstructure:"pdf_backend"`
}

// ServeConfig HTTP 服务配置
type ServeConfig struct {
	Addr        string `mapstructure:"addr"`
	MaxUploadMB int64  `mapstructure:"max_upload_mb"`
}

// Config 保存简化器的所有配置
type Config struct {
	// 生成服务
	Provider        string        `mapstructure:"provider"`
	ModelID         string        `mapstructure:"model_id"`
	APIKey          string        `mapstructure:"api_key"`
	APIKeyEnv       string        `mapstructure:"api_key_env"` // 未设置 api_key 时从该环境变量读取
	BaseURL         string        `mapstructure:"base_url"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxOutputTokens int           `mapstructure:"max_output_tokens"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`

	// 分块
	ChunkSize    int    `mapstructure:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap"`
	Charset      string `mapstructure:"charset"`

	// 重试，max_retries 为包括首次在内的总尝试次数
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	BackoffStrategy string        `mapstructure:"backoff_strategy"`
	MaxBackoff      time.Duration `mapstructure:"max_backoff"`

	// 批处理
	Concurrency int  `mapstructure:"concurrency"`
	Resume      bool `mapstructure:"resume"`

	Store   store.Config  `mapstructure:"store"`
	Export  export.Config `mapstructure:"export"`
	Extract ExtractConfig `mapstructure:"extract"`
	Serve   ServeConfig   `mapstructure:"serve"`

	PromptFile string `mapstructure:"prompt_file"`
	StatsDB    string `mapstructure:"stats_db"`

	// 日志
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
	Debug    bool   `mapstructure:"debug"`
	Verbose  bool   `mapstructure:"verbose"`
}

// LoadConfig 加载配置：默认值 < 配置文件 < .env / 环境变量
func LoadConfig(configPath string) (*Config, error) {
	// .env 不覆盖已存在的环境变量
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".legalsimplify")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	config.resolveAPIKey()

	return &config, nil
}

// NewDefaultConfig 创建默认配置
func NewDefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	// 默认值总能解码
	_ = v.Unmarshal(&config)
	return &config
}

// resolveAPIKey 未直接配置密钥时读取对应的环境变量
func (c *Config) resolveAPIKey() {
	if c.APIKey != "" {
		return
	}
	env := c.APIKeyEnv
	if env == "" {
		env = DefaultAPIKeyEnv(c.Provider)
	}
	if env != "" {
		c.APIKey = os.Getenv(env)
	}
}

// DefaultAPIKeyEnv 提供商默认的密钥环境变量
func DefaultAPIKeyEnv(provider string) string {
	switch provider {
	case "gemini":
		return "GOOGLE_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}

// Validate 在任何处理开始前检查配置
func (c *Config) Validate() error {
	if _, err := simplify.NewChunker(c.ChunkSize, c.ChunkOverlap); err != nil {
		return err
	}
	if c.MaxRetries < 1 {
		return simplify.InvalidParameterError("max_retries must be at least 1, got %d", c.MaxRetries)
	}
	if c.RetryBackoff < 0 || c.MaxBackoff < 0 {
		return simplify.InvalidParameterError("backoff durations must not be negative")
	}
	switch c.BackoffStrategy {
	case "", BackoffConstant, BackoffExponential:
	default:
		return simplify.InvalidParameterError("unknown backoff_strategy %q", c.BackoffStrategy)
	}
	if c.Concurrency < 1 {
		return simplify.InvalidParameterError("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.RequestTimeout <= 0 {
		return simplify.InvalidParameterError("request_timeout must be positive")
	}
	if _, err := simplify.ParseCharset(c.Charset); err != nil {
		return err
	}
	for _, f := range c.Export.Formats {
		if _, err := export.NormalizeFormat(f); err != nil {
			return err
		}
	}
	if _, err := extract.New(c.Extract.PDFBackend); err != nil {
		return err
	}
	switch strings.ToLower(c.Store.Backend) {
	case "", store.BackendFS, store.BackendMemory:
	case store.BackendS3:
		if err := c.Store.S3.Validate(); err != nil {
			return err
		}
	default:
		return simplify.InvalidParameterError("unknown store backend %q", c.Store.Backend)
	}
	return nil
}

// RetryPolicy 构造重试策略
func (c *Config) RetryPolicy() simplify.RetryPolicy {
	policy := simplify.RetryPolicy{MaxAttempts: c.MaxRetries}
	if c.BackoffStrategy == BackoffExponential {
		policy.Backoff = simplify.ExponentialBackoff(c.RetryBackoff, 2, c.MaxBackoff)
	} else {
		policy.Backoff = simplify.ConstantBackoff(c.RetryBackoff)
	}
	return policy
}

// ProcessorConfig 构造分块处理器配置
func (c *Config) ProcessorConfig() simplify.ProcessorConfig {
	return simplify.ProcessorConfig{
		ModelID:        c.ModelID,
		RequestTimeout: c.RequestTimeout,
		Retry:          c.RetryPolicy(),
	}
}

// OrchestratorConfig 构造编排器配置
func (c *Config) OrchestratorConfig() simplify.OrchestratorConfig {
	return simplify.OrchestratorConfig{
		Concurrency: c.Concurrency,
		Resume:      c.Resume,
	}
}

// PipelineConfig 构造流水线配置
func (c *Config) PipelineConfig() (simplify.PipelineConfig, error) {
	charset, err := simplify.ParseCharset(c.Charset)
	if err != nil {
		return simplify.PipelineConfig{}, err
	}
	return simplify.PipelineConfig{
		ChunkSize:    c.ChunkSize,
		ChunkOverlap: c.ChunkOverlap,
		Charset:      charset,
	}, nil
}

// ProviderSettings 构造提供商工厂参数
func (c *Config) ProviderSettings(systemPrompt string) factory.Settings {
	return factory.Settings{
		Provider:        c.Provider,
		ModelID:         c.ModelID,
		APIKey:          c.APIKey,
		BaseURL:         c.BaseURL,
		Temperature:     c.Temperature,
		MaxOutputTokens: c.MaxOutputTokens,
		Timeout:         c.RequestTimeout,
		SystemPrompt:    systemPrompt,
	}
}

// SaveConfig 将配置保存到文件，路径为空时写入 ~/.legalsimplify.yaml
func SaveConfig(config *Config, configPath string) (string, error) {
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configPath = filepath.Join(home, ".legalsimplify.yaml")
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.MergeConfigMap(structToMap(config)); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return "", err
	}
	return configPath, v.WriteConfig()
}

// getDefaultStatsDB 默认运行历史文件
func getDefaultStatsDB() string {
	home, err := os.UserHomeDir()
	if err == nil {
		return filepath.Join(home, ".legalsimplify", "stats.json")
	}
	return filepath.Join(".legalsimplify", "stats.json")
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", "gemini")
	v.SetDefault("model_id", "") // 为空时使用提供商的默认模型
	v.SetDefault("api_key", "")
	v.SetDefault("api_key_env", "")
	v.SetDefault("base_url", "")
	v.SetDefault("temperature", 0.2)
	v.SetDefault("max_output_tokens", 2048)
	v.SetDefault("request_timeout", simplify.DefaultRequestTimeout)

	v.SetDefault("chunk_size", simplify.DefaultChunkSize)
	v.SetDefault("chunk_overlap", simplify.DefaultChunkOverlap)
	v.SetDefault("charset", string(simplify.CharsetASCII))

	v.SetDefault("max_retries", simplify.DefaultMaxAttempts)
	v.SetDefault("retry_backoff", simplify.DefaultRetryBackoff)
	v.SetDefault("backoff_strategy", BackoffConstant)
	v.SetDefault("max_backoff", 30*time.Second)

	v.SetDefault("concurrency", 1)
	v.SetDefault("resume", false)

	v.SetDefault("store.backend", store.BackendFS)
	v.SetDefault("store.chunks_dir", store.DefaultChunksDir)
	v.SetDefault("store.results_dir", store.DefaultResultsDir)
	v.SetDefault("store.s3.bucket", "")
	v.SetDefault("store.s3.prefix", "")
	v.SetDefault("store.s3.region", "")
	v.SetDefault("store.s3.endpoint", "")
	v.SetDefault("store.s3.use_path_style", false)

	v.SetDefault("export.formats", []string{export.FormatText})
	v.SetDefault("export.output_dir", ".")
	v.SetDefault("export.basename", export.DefaultBasename)

	v.SetDefault("extract.pdf_backend", extract.BackendTabula)

	v.SetDefault("serve.addr", ":8080")
	v.SetDefault("serve.max_upload_mb", 32)

	v.SetDefault("prompt_file", "")
	v.SetDefault("stats_db", getDefaultStatsDB())

	v.SetDefault("log_level", "")
	v.SetDefault("log_file", "")
	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)
}

// structToMap 将结构体转换为map，API 密钥不写入文件
func structToMap(config *Config) map[string]interface{} {
	return map[string]interface{}{
		"provider":          config.Provider,
		"model_id":          config.ModelID,
		"api_key_env":       config.APIKeyEnv,
		"base_url":          config.BaseURL,
		"temperature":       config.Temperature,
		"max_output_tokens": config.MaxOutputTokens,
		"request_timeout":   config.RequestTimeout.String(),
		"chunk_size":        config.ChunkSize,
		"chunk_overlap":     config.ChunkOverlap,
		"charset":           config.Charset,
		"max_retries":       config.MaxRetries,
		"retry_backoff":     config.RetryBackoff.String(),
		"backoff_strategy":  config.BackoffStrategy,
		"max_backoff":       config.MaxBackoff.String(),
		"concurrency":       config.Concurrency,
		"resume":            config.Resume,
		"store": map[string]interface{}{
			"backend":     config.Store.Backend,
			"chunks_dir":  config.Store.ChunksDir,
			"results_dir": config.Store.ResultsDir,
			"s3": map[string]interface{}{
				"bucket":         config.Store.S3.Bucket,
				"prefix":         config.Store.S3.Prefix,
				"region":         config.Store.S3.Region,
				"endpoint":       config.Store.S3.Endpoint,
				"use_path_style": config.Store.S3.UsePathStyle,
			},
		},
		"export": map[string]interface{}{
			"formats":    config.Export.Formats,
			"output_dir": config.Export.OutputDir,
			"basename":   config.Export.Basename,
		},
		"extract": map[string]interface{}{
			"pdf_backend": config.Extract.PDFBackend,
		},
		"serve": map[string]interface{}{
			"addr":          config.Serve.Addr,
			"max_upload_mb": config.Serve.MaxUploadMB,
		},
		"prompt_file": config.PromptFile,
		"stats_db":    config.StatsDB,
		"log_level":   config.LogLevel,
		"log_file":    config.LogFile,
		"debug":       config.Debug,
		"verbose":     config.Verbose,
	}
}
