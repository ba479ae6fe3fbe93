package raw

import (
	"context"

	"github.com/nerdneilsfield/legal-simplifier/pkg/providers"
)

// Provider Raw 提供商实现（不调用模型，原样返回提示词，用于检查发送内容）
type Provider struct{}

var _ providers.Provider = (*Provider)(nil)

// New 创建新的 Raw 提供商
func New() *Provider {
	return &Provider{}
}

// Generate 直接返回提示词
func (p *Provider) Generate(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &providers.Response{
		Text:  req.Prompt,
		Model: "raw",
		Metadata: map[string]interface{}{
			"type": "raw_passthrough",
		},
	}, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "raw"
}
