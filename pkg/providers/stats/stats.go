package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/zap"
)

// ProviderStats Provider性能统计
type ProviderStats struct {
	ProviderName       string `json:"provider_name"`
	ModelName          string `json:"model_name"`
	TotalRequests      int64  `json:"total_requests"`
	SuccessfulRequests int64  `json:"successful_requests"`
	FailedRequests     int64  `json:"failed_requests"`
	TotalTokensIn      int64  `json:"total_tokens_in"`
	TotalTokensOut     int64  `json:"total_tokens_out"`
	EmptyResponses     int64  `json:"empty_responses"`

	// 性能指标
	AverageLatency time.Duration `json:"average_latency"`
	MinLatency     time.Duration `json:"min_latency"`
	MaxLatency     time.Duration `json:"max_latency"`
	TotalLatency   time.Duration `json:"total_latency"`

	// 按错误类型统计
	ErrorTypes map[string]int64 `json:"error_types"`

	FirstRequestTime time.Time `json:"first_request_time"`
	LastRequestTime  time.Time `json:"last_request_time"`
}

// RequestResult 单次请求结果
type RequestResult struct {
	Success   bool
	Latency   time.Duration
	TokensIn  int
	TokensOut int
	Empty     bool
	ErrorType string
}

// SuccessRate 成功率（百分比）
func (ps *ProviderStats) SuccessRate() float64 {
	if ps.TotalRequests == 0 {
		return 0
	}
	return float64(ps.SuccessfulRequests) / float64(ps.TotalRequests) * 100
}

// StatsManager 统计管理器
type StatsManager struct {
	stats  map[string]*ProviderStats // key: provider:model
	dbPath string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewStatsManager 创建统计管理器，dbPath 为空时只保存在内存中
func NewStatsManager(dbPath string, logger *zap.Logger) *StatsManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsManager{
		stats:  make(map[string]*ProviderStats),
		dbPath: dbPath,
		logger: logger,
	}
}

func key(provider, model string) string {
	return fmt.Sprintf("%s:%s", provider, model)
}

// RecordRequest 记录请求结果
func (sm *StatsManager) RecordRequest(provider, model string, result RequestResult) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	k := key(provider, model)
	stats, ok := sm.stats[k]
	if !ok {
		stats = &ProviderStats{
			ProviderName: provider,
			ModelName:    model,
			ErrorTypes:   make(map[string]int64),
		}
		sm.stats[k] = stats
	}

	now := time.Now()
	if stats.FirstRequestTime.IsZero() {
		stats.FirstRequestTime = now
	}
	stats.LastRequestTime = now

	stats.TotalRequests++
	if result.Success {
		stats.SuccessfulRequests++
	} else {
		stats.FailedRequests++
		if result.ErrorType != "" {
			stats.ErrorTypes[result.ErrorType]++
		}
	}
	if result.Empty {
		stats.EmptyResponses++
	}

	stats.TotalTokensIn += int64(result.TokensIn)
	stats.TotalTokensOut += int64(result.TokensOut)

	stats.TotalLatency += result.Latency
	if stats.MinLatency == 0 || result.Latency < stats.MinLatency {
		stats.MinLatency = result.Latency
	}
	if result.Latency > stats.MaxLatency {
		stats.MaxLatency = result.Latency
	}
	stats.AverageLatency = stats.TotalLatency / time.Duration(stats.TotalRequests)
}

// GetStats 获取指定Provider的统计副本，不存在时返回 nil
func (sm *StatsManager) GetStats(provider, model string) *ProviderStats {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	stats, ok := sm.stats[key(provider, model)]
	if !ok {
		return nil
	}
	return stats.clone()
}

// GetAllStats 获取所有统计信息，按键排序
func (sm *StatsManager) GetAllStats() []*ProviderStats {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	keys := make([]string, 0, len(sm.stats))
	for k := range sm.stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]*ProviderStats, 0, len(keys))
	for _, k := range keys {
		result = append(result, sm.stats[k].clone())
	}
	return result
}

func (ps *ProviderStats) clone() *ProviderStats {
	c := *ps
	c.ErrorTypes = make(map[string]int64, len(ps.ErrorTypes))
	for k, v := range ps.ErrorTypes {
		c.ErrorTypes[k] = v
	}
	return &c
}

// SaveToDB 保存统计数据
func (sm *StatsManager) SaveToDB() error {
	if sm.dbPath == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(sm.dbPath), 0o755); err != nil {
		return fmt.Errorf("failed to create stats directory: %w", err)
	}

	all := sm.GetAllStats()
	data := make(map[string]*ProviderStats, len(all))
	for _, s := range all {
		data[key(s.ProviderName, s.ModelName)] = s
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal stats data: %w", err)
	}

	tempPath := sm.dbPath + ".tmp"
	if err := os.WriteFile(tempPath, jsonData, 0o644); err != nil {
		return fmt.Errorf("failed to write stats file: %w", err)
	}
	if err := os.Rename(tempPath, sm.dbPath); err != nil {
		return fmt.Errorf("failed to rename stats file: %w", err)
	}

	sm.logger.Debug("provider stats saved", zap.String("path", sm.dbPath))
	return nil
}

// LoadFromDB 加载统计数据，文件不存在时从空白开始
func (sm *StatsManager) LoadFromDB() error {
	if sm.dbPath == "" {
		return nil
	}

	data, err := os.ReadFile(sm.dbPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read stats file: %w", err)
	}

	var statsData map[string]*ProviderStats
	if err := json.Unmarshal(data, &statsData); err != nil {
		return fmt.Errorf("failed to unmarshal stats data: %w", err)
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	for k, stats := range statsData {
		if stats.ErrorTypes == nil {
			stats.ErrorTypes = make(map[string]int64)
		}
		sm.stats[k] = stats
	}

	sm.logger.Debug("provider stats loaded",
		zap.String("path", sm.dbPath),
		zap.Int("providers", len(statsData)))
	return nil
}

// RenderTable 输出统计表格
func (sm *StatsManager) RenderTable(w io.Writer) {
	all := sm.GetAllStats()
	if len(all) == 0 {
		fmt.Fprintln(w, "No provider statistics available.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Provider", "Model", "Requests", "Success%", "Empty", "Avg Latency", "Tokens In", "Tokens Out"})
	for _, s := range all {
		t.AppendRow(table.Row{
			s.ProviderName,
			s.ModelName,
			s.TotalRequests,
			fmt.Sprintf("%.1f", s.SuccessRate()),
			s.EmptyResponses,
			s.AverageLatency.Round(time.Millisecond),
			s.TotalTokensIn,
			s.TotalTokensOut,
		})
	}
	t.Render()
}
