package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nerdneilsfield/legal-simplifier/pkg/simplify"
)

// BaseConfig 基础配置
type BaseConfig struct {
	// API配置
	APIKey      string `json:"api_key,omitempty"`
	APIEndpoint string `json:"api_endpoint,omitempty"`

	// 超时（HTTP 客户端级别；单次调用的超时由分块处理器控制）
	Timeout time.Duration `json:"timeout"`

	// SystemPrompt 系统角色提示词
	SystemPrompt string `json:"system_prompt,omitempty"`

	// 自定义头部
	Headers map[string]string `json:"headers,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() BaseConfig {
	return BaseConfig{
		Timeout:      5 * time.Minute,
		SystemPrompt: simplify.DefaultSystemPrompt,
		Headers:      make(map[string]string),
	}
}

// Provider 生成服务提供商接口
type Provider interface {
	// Generate 执行一次生成请求
	Generate(ctx context.Context, req *Request) (*Response, error)

	// GetName 获取提供商名称
	GetName() string
}

// HealthChecker 可选的健康检查能力
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Request 生成请求
type Request struct {
	Prompt      string                 `json:"prompt"`
	System      string                 `json:"system,omitempty"`
	Model       string                 `json:"model,omitempty"`
	Temperature float64                `json:"temperature,omitempty"`
	MaxTokens   int                    `json:"max_tokens,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Response 生成响应
type Response struct {
	Text      string                 `json:"text"`
	Model     string                 `json:"model,omitempty"`
	TokensIn  int                    `json:"tokens_in,omitempty"`
	TokensOut int                    `json:"tokens_out,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Error 提供商错误
type Error struct {
	Provider string `json:"provider"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Status   int    `json:"status,omitempty"`
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Provider, e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Code, e.Message)
}

// IsRetryable 判断错误是否可重试
func (e *Error) IsRetryable() bool {
	switch e.Code {
	case "rate_limit", "timeout", "server_error":
		return true
	default:
		return false
	}
}

// NewError 创建提供商错误
func NewError(provider, code, message string) *Error {
	return &Error{
		Provider: provider,
		Code:     code,
		Message:  message,
	}
}

// ErrorFromStatus 按 HTTP 状态码创建错误
func ErrorFromStatus(provider string, status int, message string) *Error {
	code := "client_error"
	switch {
	case status == 429:
		code = "rate_limit"
	case status == 408 || status == 504:
		code = "timeout"
	case status == 401 || status == 403:
		code = "auth"
	case status >= 500:
		code = "server_error"
	}
	return &Error{Provider: provider, Code: code, Message: strings.TrimSpace(message), Status: status}
}

// Generator 把 Provider 适配为分块处理器使用的 simplify.Generator
type Generator struct {
	provider    Provider
	system      string
	temperature float64
	maxTokens   int
}

var _ simplify.Generator = (*Generator)(nil)

// GeneratorOption 适配器选项
type GeneratorOption func(*Generator)

// WithSystemPrompt 设置系统提示词
func WithSystemPrompt(system string) GeneratorOption {
	return func(g *Generator) {
		g.system = system
	}
}

// WithTemperature 设置温度
func WithTemperature(t float64) GeneratorOption {
	return func(g *Generator) {
		g.temperature = t
	}
}

// WithMaxTokens 设置最大输出 token
func WithMaxTokens(n int) GeneratorOption {
	return func(g *Generator) {
		g.maxTokens = n
	}
}

// NewGenerator 创建适配器
func NewGenerator(p Provider, opts ...GeneratorOption) *Generator {
	g := &Generator{provider: p, system: simplify.DefaultSystemPrompt}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Provider 返回底层提供商
func (g *Generator) Provider() Provider {
	return g.provider
}

// Generate 实现 simplify.Generator
func (g *Generator) Generate(ctx context.Context, prompt string, modelID string) (string, error) {
	resp, err := g.provider.Generate(ctx, &Request{
		Prompt:      prompt,
		System:      g.system,
		Model:       modelID,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", NewError(g.provider.GetName(), "malformed_response", "nil response")
	}
	return resp.Text, nil
}
