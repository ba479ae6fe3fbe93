package stats

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nerdneilsfield/legal-simplifier/pkg/providers"
)

// StatisticsMiddleware 统计中间件
type StatisticsMiddleware struct {
	next         providers.Provider
	statsManager *StatsManager
	modelName    string
}

var _ providers.Provider = (*StatisticsMiddleware)(nil)

// NewStatisticsMiddleware 创建统计中间件
func NewStatisticsMiddleware(next providers.Provider, statsManager *StatsManager, modelName string) *StatisticsMiddleware {
	return &StatisticsMiddleware{
		next:         next,
		statsManager: statsManager,
		modelName:    modelName,
	}
}

// Generate 带统计的生成方法
func (sm *StatisticsMiddleware) Generate(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	startTime := time.Now()
	resp, err := sm.next.Generate(ctx, req)

	result := RequestResult{
		Success: err == nil,
		Latency: time.Since(startTime),
	}
	if err != nil {
		result.ErrorType = classifyError(err)
	} else if resp != nil {
		result.TokensIn = resp.TokensIn
		result.TokensOut = resp.TokensOut
		result.Empty = strings.TrimSpace(resp.Text) == ""
	}

	model := sm.modelName
	if req != nil && req.Model != "" {
		model = req.Model
	}
	sm.statsManager.RecordRequest(sm.next.GetName(), model, result)

	return resp, err
}

// GetName 获取提供商名称
func (sm *StatisticsMiddleware) GetName() string {
	return sm.next.GetName()
}

// HealthCheck 透传健康检查
func (sm *StatisticsMiddleware) HealthCheck(ctx context.Context) error {
	if hc, ok := sm.next.(providers.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// classifyError 分类错误类型
func classifyError(err error) string {
	var providerErr *providers.Error
	if errors.As(err, &providerErr) {
		return providerErr.Code
	}

	switch {
	case errors.Is(err, context.Canceled):
		return "context_canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "timeout"):
		return "timeout"
	case strings.Contains(errStr, "rate limit") || strings.Contains(errStr, "429"):
		return "rate_limit"
	case strings.Contains(errStr, "connection") || strings.Contains(errStr, "network"):
		return "network_error"
	case strings.Contains(errStr, "401") || strings.Contains(errStr, "unauthorized"):
		return "auth"
	default:
		return "unknown_error"
	}
}
