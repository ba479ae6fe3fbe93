package ollama

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nerdneilsfield/legal-simplifier/pkg/providers"
)

// DefaultEndpoint 本地 Ollama 默认地址
const DefaultEndpoint = "http://localhost:11434"

// DefaultContextWindow 默认上下文窗口，足够容纳模板加一个分块
const DefaultContextWindow = 8192

// Config Ollama配置
type Config struct {
	providers.BaseConfig
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	// ContextWindow 对应 num_ctx，Ollama 默认值较小，长分块会被截断
	ContextWindow int `json:"context_window"`
	// KeepAlive 请求结束后模型保留在内存中的时间，例如 "10m"
	KeepAlive string `json:"keep_alive,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseConfig:    providers.DefaultConfig(),
		Model:         "llama3",
		Temperature:   0.2,
		MaxTokens:     2048,
		ContextWindow: DefaultContextWindow,
		KeepAlive:     "10m",
	}
}

// Provider Ollama提供商
type Provider struct {
	config     Config
	httpClient *http.Client
}

var (
	_ providers.Provider      = (*Provider)(nil)
	_ providers.HealthChecker = (*Provider)(nil)
)

// New 创建新的Ollama提供商
func New(config Config) *Provider {
	if config.APIEndpoint == "" {
		config.APIEndpoint = DefaultEndpoint
	}
	config.APIEndpoint = strings.TrimRight(config.APIEndpoint, "/")

	return &Provider{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Generate 执行生成
func (p *Provider) Generate(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	resp, err := p.generate(ctx, p.buildRequest(req))
	if err != nil {
		return nil, err
	}

	return &providers.Response{
		Text:      strings.TrimSpace(resp.Response),
		Model:     resp.Model,
		TokensIn:  resp.PromptEvalCount,
		TokensOut: resp.EvalCount,
		Metadata: map[string]interface{}{
			"created_at":     resp.CreatedAt,
			"total_duration": resp.TotalDuration,
			"eval_duration":  resp.EvalDuration,
		},
	}, nil
}

// buildRequest 请求级参数优先于配置
func (p *Provider) buildRequest(req *providers.Request) GenerateRequest {
	out := GenerateRequest{
		Model:     cmp.Or(req.Model, p.config.Model),
		Prompt:    req.Prompt,
		System:    cmp.Or(req.System, p.config.SystemPrompt),
		KeepAlive: p.config.KeepAlive,
		Options: GenerateOptions{
			Temperature: p.config.Temperature,
			NumPredict:  cmp.Or(req.MaxTokens, p.config.MaxTokens),
			NumCtx:      p.config.ContextWindow,
		},
	}
	if req.Temperature > 0 {
		out.Options.Temperature = req.Temperature
	}
	return out
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "ollama"
}

// HealthCheck 健康检查
func (p *Provider) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.APIEndpoint+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return providers.ErrorFromStatus("ollama", resp.StatusCode, resp.Status)
	}
	return nil
}

// generate 执行生成请求
func (p *Provider) generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.APIEndpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range p.config.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

		var apiErr APIError
		if json.Unmarshal(errBody, &apiErr) == nil && apiErr.ErrorMsg != "" {
			return nil, providers.ErrorFromStatus("ollama", resp.StatusCode, apiErr.ErrorMsg)
		}
		return nil, providers.ErrorFromStatus("ollama", resp.StatusCode, resp.Status)
	}

	var generateResp GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&generateResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &generateResp, nil
}

// GenerateRequest /api/generate 请求体，只使用非流式模式
type GenerateRequest struct {
	Model     string          `json:"model"`
	Prompt    string          `json:"prompt"`
	System    string          `json:"system,omitempty"`
	Stream    bool            `json:"stream"`
	KeepAlive string          `json:"keep_alive,omitempty"`
	Options   GenerateOptions `json:"options"`
}

// GenerateOptions 模型运行参数
type GenerateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
	NumCtx      int     `json:"num_ctx,omitempty"`
}

// GenerateResponse 生成响应
type GenerateResponse struct {
	Model              string    `json:"model"`
	CreatedAt          time.Time `json:"created_at"`
	Response           string    `json:"response"`
	Done               bool      `json:"done"`
	TotalDuration      int64     `json:"total_duration"`
	LoadDuration       int64     `json:"load_duration"`
	PromptEvalCount    int       `json:"prompt_eval_count"`
	PromptEvalDuration int64     `json:"prompt_eval_duration"`
	EvalCount          int       `json:"eval_count"`
	EvalDuration       int64     `json:"eval_duration"`
}

// APIError API错误
type APIError struct {
	ErrorMsg string `json:"error"`
}

func (e *APIError) Error() string {
	return e.ErrorMsg
}
