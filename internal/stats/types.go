package stats

import (
	"time"
)

// 运行状态
const (
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

// StatisticsDB 统计数据库结构
type StatisticsDB struct {
	Version     string    `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`

	// 总体统计
	TotalRuns         int64         `json:"total_runs"`
	TotalChunks       int64         `json:"total_chunks"`
	TotalFailedChunks int64         `json:"total_failed_chunks"`
	TotalCharacters   int64         `json:"total_characters"`
	TotalErrors       int64         `json:"total_errors"`
	TotalDuration     time.Duration `json:"total_duration"`

	// 按提供商/模型统计
	Providers map[string]*ProviderUsage `json:"providers"`

	// 按输入格式统计
	FormatStats map[string]*FormatStats `json:"format_stats"`

	// 最近的运行记录
	RecentRuns []*RunRecord `json:"recent_runs"`

	PerformanceStats PerformanceStatistics `json:"performance_stats"`
}

// ProviderUsage 提供商使用统计
type ProviderUsage struct {
	Provider        string        `json:"provider"`
	Model           string        `json:"model"`
	RunCount        int64         `json:"run_count"`
	ChunkCount      int64         `json:"chunk_count"`
	FailedChunks    int64         `json:"failed_chunks"`
	AverageDuration time.Duration `json:"average_duration"`
	LastUsed        time.Time     `json:"last_used"`
}

// FormatStats 输入格式统计
type FormatStats struct {
	Format          string        `json:"format"`
	FileCount       int64         `json:"file_count"`
	CharacterCount  int64         `json:"character_count"`
	AverageFileSize int64         `json:"average_file_size"`
	AverageDuration time.Duration `json:"average_duration"`
	SuccessRate     float64       `json:"success_rate"`
	LastUsed        time.Time     `json:"last_used"`
}

// RunRecord 一次简化运行的记录
type RunRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	InputFile string    `json:"input_file"`
	Format    string    `json:"format"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`

	TotalChunks     int           `json:"total_chunks"`
	SucceededChunks int           `json:"succeeded_chunks"`
	FailedChunks    int           `json:"failed_chunks"`
	ResumedChunks   int           `json:"resumed_chunks"`
	CharacterCount  int           `json:"character_count"`
	Duration        time.Duration `json:"duration"`
	Status          string        `json:"status"`

	ErrorMessage string   `json:"error_message,omitempty"`
	Artifacts    []string `json:"artifacts,omitempty"`
}

// Progress 完成百分比
func (r *RunRecord) Progress() float64 {
	if r.TotalChunks == 0 {
		return 0
	}
	return float64(r.SucceededChunks) / float64(r.TotalChunks) * 100
}

// PerformanceStatistics 性能统计
type PerformanceStatistics struct {
	AverageSpeed           float64       `json:"average_speed"` // 字符/秒
	FastestRun             time.Duration `json:"fastest_run"`
	SlowestRun             time.Duration `json:"slowest_run"`
	AverageChunksPerMinute float64       `json:"average_chunks_per_minute"`
}
