// Package compatible 通过 go-openai 访问任意 OpenAI 兼容端点（vLLM、LM Studio、OpenRouter 等）
package compatible

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nerdneilsfield/legal-simplifier/pkg/providers"
	openai "github.com/sashabaranov/go-openai"
)

// Config 兼容端点配置
type Config struct {
	providers.BaseConfig
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseConfig:  providers.DefaultConfig(),
		Temperature: 0.2,
		MaxTokens:   2048,
	}
}

// Provider OpenAI 兼容提供商
type Provider struct {
	config Config
	client *openai.Client
}

var _ providers.Provider = (*Provider)(nil)

// New 创建提供商，端点为空时返回错误
func New(config Config) (*Provider, error) {
	if strings.TrimSpace(config.APIEndpoint) == "" {
		return nil, fmt.Errorf("compatible provider requires base_url")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	clientConfig.BaseURL = strings.TrimRight(config.APIEndpoint, "/")

	return &Provider{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
	}, nil
}

// Generate 执行生成
func (p *Provider) Generate(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	system := req.System
	if system == "" {
		system = p.config.SystemPrompt
	}

	var messages []openai.ChatCompletionMessage
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	temperature := p.config.Temperature
	if req.Temperature > 0 {
		temperature = req.Temperature
	}
	maxTokens := p.config.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: float32(temperature),
		MaxTokens:   maxTokens,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, providers.ErrorFromStatus(p.GetName(), apiErr.HTTPStatusCode, apiErr.Message)
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return nil, providers.ErrorFromStatus(p.GetName(), reqErr.HTTPStatusCode, reqErr.Error())
		}
		return nil, fmt.Errorf("compatible request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, providers.NewError(p.GetName(), "malformed_response", "no choices in response")
	}

	return &providers.Response{
		Text:      strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:     resp.Model,
		TokensIn:  resp.Usage.PromptTokens,
		TokensOut: resp.Usage.CompletionTokens,
		Metadata: map[string]interface{}{
			"finish_reason": string(resp.Choices[0].FinishReason),
		},
	}, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "compatible"
}
