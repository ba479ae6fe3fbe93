package factory

import (
	"fmt"
	"time"

	"github.com/nerdneilsfield/legal-simplifier/pkg/providers"
	"github.com/nerdneilsfield/legal-simplifier/pkg/providers/compatible"
	"github.com/nerdneilsfield/legal-simplifier/pkg/providers/ollama"
	"github.com/nerdneilsfield/legal-simplifier/pkg/providers/openai"
	"github.com/nerdneilsfield/legal-simplifier/pkg/providers/raw"
)

// Settings 创建提供商所需的配置
type Settings struct {
	Provider        string
	ModelID         string
	APIKey          string
	BaseURL         string
	Temperature     float64
	MaxOutputTokens int
	Timeout         time.Duration
	SystemPrompt    string
}

type builder func(base providers.BaseConfig, s Settings) (providers.Provider, error)

// ProviderFactory 提供商工厂
type ProviderFactory struct {
	registry *providers.Registry
	builders map[string]builder
}

// New 创建注册了内置提供商的工厂
func New() *ProviderFactory {
	f := &ProviderFactory{
		registry: providers.NewRegistry(),
		builders: make(map[string]builder),
	}

	f.register(providers.Descriptor{
		Name:            "gemini",
		Description:     "Google Gemini via its OpenAI-compatible endpoint",
		RequiresAPIKey:  true,
		DefaultModel:    "gemini-1.5-flash",
		DefaultEndpoint: openai.GeminiEndpoint,
	}, createOpenAI)
	f.register(providers.Descriptor{
		Name:           "openai",
		Description:    "OpenAI chat completions (official SDK)",
		RequiresAPIKey: true,
		DefaultModel:   "gpt-4o-mini",
	}, createOpenAI)
	f.register(providers.Descriptor{
		Name:            "compatible",
		Description:     "Any OpenAI-compatible server (vLLM, LM Studio, OpenRouter)",
		RequiresBaseURL: true,
	}, createCompatible)
	f.register(providers.Descriptor{
		Name:            "ollama",
		Description:     "Local Ollama server",
		DefaultModel:    "llama3",
		DefaultEndpoint: ollama.DefaultEndpoint,
	}, createOllama)
	f.register(providers.Descriptor{
		Name:         "raw",
		Description:  "No model; echoes the prompt for inspection",
		DefaultModel: "raw",
	}, createRaw)

	return f
}

func (f *ProviderFactory) register(d providers.Descriptor, b builder) {
	// 内置名称不会重复
	_ = f.registry.Register(d)
	f.builders[d.Name] = b
}

// Registry 返回提供商描述注册表
func (f *ProviderFactory) Registry() *providers.Registry {
	return f.registry
}

// CreateProvider 根据配置创建提供商
func (f *ProviderFactory) CreateProvider(s Settings) (providers.Provider, error) {
	d, err := f.registry.Get(s.Provider)
	if err != nil {
		return nil, fmt.Errorf("unsupported provider type %q (available: %v)", s.Provider, f.registry.Names())
	}
	if d.RequiresAPIKey && s.APIKey == "" {
		return nil, fmt.Errorf("provider %s requires an API key", d.Name)
	}
	if d.RequiresBaseURL && s.BaseURL == "" {
		return nil, fmt.Errorf("provider %s requires base_url", d.Name)
	}

	base := providers.DefaultConfig()
	base.APIKey = s.APIKey
	base.APIEndpoint = s.BaseURL
	if base.APIEndpoint == "" {
		base.APIEndpoint = d.DefaultEndpoint
	}
	if s.Timeout > 0 {
		base.Timeout = s.Timeout
	}
	if s.SystemPrompt != "" {
		base.SystemPrompt = s.SystemPrompt
	}
	if s.ModelID == "" {
		s.ModelID = d.DefaultModel
	}

	return f.builders[d.Name](base, s)
}

// GetSupportedProviders 获取支持的提供商列表
func (f *ProviderFactory) GetSupportedProviders() []string {
	return f.registry.Names()
}

// createOpenAI 创建 OpenAI 或 Gemini 提供商
func createOpenAI(base providers.BaseConfig, s Settings) (providers.Provider, error) {
	config := openai.DefaultConfig()
	config.BaseConfig = base
	config.Name = s.Provider
	config.Model = s.ModelID
	config.Temperature = s.Temperature
	if s.MaxOutputTokens > 0 {
		config.MaxTokens = s.MaxOutputTokens
	}
	return openai.New(config), nil
}

func createCompatible(base providers.BaseConfig, s Settings) (providers.Provider, error) {
	config := compatible.DefaultConfig()
	config.BaseConfig = base
	config.Model = s.ModelID
	config.Temperature = s.Temperature
	if s.MaxOutputTokens > 0 {
		config.MaxTokens = s.MaxOutputTokens
	}
	return compatible.New(config)
}

func createOllama(base providers.BaseConfig, s Settings) (providers.Provider, error) {
	config := ollama.DefaultConfig()
	config.BaseConfig = base
	config.Model = s.ModelID
	config.Temperature = s.Temperature
	if s.MaxOutputTokens > 0 {
		config.MaxTokens = s.MaxOutputTokens
	}
	return ollama.New(config), nil
}

func createRaw(base providers.BaseConfig, s Settings) (providers.Provider, error) {
	return raw.New(), nil
}

// DefaultFactory 全局工厂实例
var DefaultFactory = New()

// CreateProvider 使用默认工厂创建提供商
func CreateProvider(s Settings) (providers.Provider, error) {
	return DefaultFactory.CreateProvider(s)
}
