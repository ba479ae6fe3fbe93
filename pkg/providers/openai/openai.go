package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nerdneilsfield/legal-simplifier/pkg/providers"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// GeminiEndpoint Gemini 的 OpenAI 兼容端点
const GeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/openai/"

// getModel 根据字符串获取模型常量
func getModel(model string) openai.ChatModel {
	switch model {
	case "gpt-4o":
		return openai.ChatModelGPT4o
	case "gpt-4o-mini":
		return openai.ChatModelGPT4oMini
	case "gpt-4-turbo":
		return openai.ChatModelGPT4Turbo
	default:
		// 对于新模型或自定义模型，使用字符串
		return openai.ChatModel(model)
	}
}

// Config OpenAI配置（使用官方SDK）
type Config struct {
	providers.BaseConfig
	Name        string  `json:"name"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	OrgID       string  `json:"org_id,omitempty"` // 可选的组织ID
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseConfig:  providers.DefaultConfig(),
		Name:        "openai",
		Model:       "gpt-4o-mini",
		Temperature: 0.2,
		MaxTokens:   2048,
	}
}

// GeminiConfig 返回使用 Gemini 兼容端点的配置
func GeminiConfig() Config {
	cfg := DefaultConfig()
	cfg.Name = "gemini"
	cfg.Model = "gemini-1.5-flash"
	cfg.APIEndpoint = GeminiEndpoint
	return cfg
}

// Provider OpenAI提供商
type Provider struct {
	config Config
	client openai.Client
}

var (
	_ providers.Provider      = (*Provider)(nil)
	_ providers.HealthChecker = (*Provider)(nil)
)

// New 创建新的OpenAI提供商
func New(config Config) *Provider {
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		// 重试由分块处理器统一负责，SDK 内部不再重试
		option.WithMaxRetries(0),
	}

	if config.APIEndpoint != "" {
		opts = append(opts, option.WithBaseURL(config.APIEndpoint))
	}
	if config.OrgID != "" {
		opts = append(opts, option.WithOrganization(config.OrgID))
	}
	for k, v := range config.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}
	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(config.Timeout))
	}
	if config.Name == "" {
		config.Name = "openai"
	}

	return &Provider{
		config: config,
		client: openai.NewClient(opts...),
	}
}

// Generate 执行生成
func (p *Provider) Generate(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	system := req.System
	if system == "" {
		system = p.config.SystemPrompt
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    getModel(model),
	}

	temperature := p.config.Temperature
	if req.Temperature > 0 {
		temperature = req.Temperature
	}
	params.Temperature = openai.Float(temperature)

	maxTokens := p.config.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, p.wrapError(err)
	}

	if len(completion.Choices) == 0 {
		return nil, providers.NewError(p.config.Name, "malformed_response", "no choices in response")
	}

	return &providers.Response{
		Text:      strings.TrimSpace(completion.Choices[0].Message.Content),
		Model:     completion.Model,
		TokensIn:  int(completion.Usage.PromptTokens),
		TokensOut: int(completion.Usage.CompletionTokens),
		Metadata: map[string]interface{}{
			"finish_reason": completion.Choices[0].FinishReason,
			"id":            completion.ID,
		},
	}, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return p.config.Name
}

// HealthCheck 健康检查
func (p *Provider) HealthCheck(ctx context.Context) error {
	_, err := p.Generate(ctx, &providers.Request{Prompt: "Hello", MaxTokens: 5})
	return err
}

// wrapError 把 SDK 错误转换为提供商错误，上下文错误原样返回
func (p *Provider) wrapError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return providers.ErrorFromStatus(p.config.Name, apiErr.StatusCode, apiErr.Message)
	}
	return fmt.Errorf("%s request failed: %w", p.config.Name, err)
}
