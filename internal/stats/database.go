package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	StatsDBVersion   = "1.0.0"
	MaxRecentRecords = 100
)

// Database 运行历史数据库（单个 JSON 文件）
type Database struct {
	filePath string
	data     *StatisticsDB
	mutex    sync.RWMutex
	logger   *zap.Logger
}

// NewDatabase 创建统计数据库
func NewDatabase(filePath string, logger *zap.Logger) (*Database, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db := &Database{
		filePath: filePath,
		logger:   logger,
	}

	// 确保目录存在
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create stats directory: %w", err)
	}

	if err := db.load(); err != nil {
		return nil, fmt.Errorf("failed to load stats database: %w", err)
	}

	return db, nil
}

// load 加载统计数据，文件不存在时创建空库
func (db *Database) load() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if _, err := os.Stat(db.filePath); os.IsNotExist(err) {
		db.data = &StatisticsDB{
			Version:     StatsDBVersion,
			CreatedAt:   time.Now(),
			LastUpdated: time.Now(),
			Providers:   make(map[string]*ProviderUsage),
			FormatStats: make(map[string]*FormatStats),
			RecentRuns:  make([]*RunRecord, 0),
		}
		return db.saveUnsafe()
	}

	data, err := os.ReadFile(db.filePath)
	if err != nil {
		return fmt.Errorf("failed to read stats file: %w", err)
	}

	var statsDB StatisticsDB
	if err := json.Unmarshal(data, &statsDB); err != nil {
		return fmt.Errorf("failed to parse stats file: %w", err)
	}

	// 初始化可能为 nil 的字段
	if statsDB.Providers == nil {
		statsDB.Providers = make(map[string]*ProviderUsage)
	}
	if statsDB.FormatStats == nil {
		statsDB.FormatStats = make(map[string]*FormatStats)
	}
	if statsDB.RecentRuns == nil {
		statsDB.RecentRuns = make([]*RunRecord, 0)
	}

	db.data = &statsDB
	db.logger.Debug("loaded statistics database",
		zap.String("version", statsDB.Version),
		zap.Int64("total_runs", statsDB.TotalRuns))

	return nil
}

// Save 保存统计数据
func (db *Database) Save() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	return db.saveUnsafe()
}

// saveUnsafe 需要已持有锁
func (db *Database) saveUnsafe() error {
	db.data.LastUpdated = time.Now()

	data, err := json.MarshalIndent(db.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal stats data: %w", err)
	}

	// 原子写入
	tempFile := db.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp stats file: %w", err)
	}
	if err := os.Rename(tempFile, db.filePath); err != nil {
		return fmt.Errorf("failed to rename stats file: %w", err)
	}

	return nil
}

// AddRunRecord 添加运行记录并更新汇总
func (db *Database) AddRunRecord(record *RunRecord) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	db.data.TotalRuns++
	db.data.TotalChunks += int64(record.TotalChunks)
	db.data.TotalFailedChunks += int64(record.FailedChunks)
	db.data.TotalCharacters += int64(record.CharacterCount)
	db.data.TotalDuration += record.Duration
	if record.Failed() {
		db.data.TotalErrors++
	}

	// 提供商统计
	key := fmt.Sprintf("%s/%s", record.Provider, record.Model)
	usage, exists := db.data.Providers[key]
	if !exists {
		usage = &ProviderUsage{Provider: record.Provider, Model: record.Model}
		db.data.Providers[key] = usage
	}
	usage.RunCount++
	usage.ChunkCount += int64(record.TotalChunks)
	usage.FailedChunks += int64(record.FailedChunks)
	usage.LastUsed = record.Timestamp
	usage.AverageDuration = runningAverage(usage.AverageDuration, record.Duration, usage.RunCount)

	// 格式统计
	formatStats, exists := db.data.FormatStats[record.Format]
	if !exists {
		formatStats = &FormatStats{Format: record.Format}
		db.data.FormatStats[record.Format] = formatStats
	}
	formatStats.FileCount++
	formatStats.CharacterCount += int64(record.CharacterCount)
	formatStats.LastUsed = record.Timestamp
	formatStats.AverageFileSize = formatStats.CharacterCount / formatStats.FileCount
	successCount := int64(formatStats.SuccessRate*float64(formatStats.FileCount-1) + 0.5)
	if !record.Failed() {
		successCount++
	}
	formatStats.SuccessRate = float64(successCount) / float64(formatStats.FileCount)
	formatStats.AverageDuration = runningAverage(formatStats.AverageDuration, record.Duration, formatStats.FileCount)

	db.data.RecentRuns = append(db.data.RecentRuns, record)
	if len(db.data.RecentRuns) > MaxRecentRecords {
		sort.Slice(db.data.RecentRuns, func(i, j int) bool {
			return db.data.RecentRuns[i].Timestamp.After(db.data.RecentRuns[j].Timestamp)
		})
		db.data.RecentRuns = db.data.RecentRuns[:MaxRecentRecords]
	}

	db.updatePerformanceStats(record)

	return db.saveUnsafe()
}

func runningAverage(avg, sample time.Duration, count int64) time.Duration {
	if count <= 0 {
		return sample
	}
	total := time.Duration(int64(avg) * (count - 1))
	return (total + sample) / time.Duration(count)
}

// updatePerformanceStats 更新性能统计
func (db *Database) updatePerformanceStats(record *RunRecord) {
	if record.Duration <= 0 {
		return
	}
	perf := &db.data.PerformanceStats
	n := float64(db.data.TotalRuns)

	if record.CharacterCount > 0 {
		speed := float64(record.CharacterCount) / record.Duration.Seconds()
		perf.AverageSpeed = (perf.AverageSpeed*(n-1) + speed) / n
	}
	if record.TotalChunks > 0 {
		perMinute := float64(record.TotalChunks) / record.Duration.Minutes()
		perf.AverageChunksPerMinute = (perf.AverageChunksPerMinute*(n-1) + perMinute) / n
	}

	if perf.FastestRun == 0 || record.Duration < perf.FastestRun {
		perf.FastestRun = record.Duration
	}
	if record.Duration > perf.SlowestRun {
		perf.SlowestRun = record.Duration
	}
}

// GetStats 获取统计数据（只读副本）
func (db *Database) GetStats() *StatisticsDB {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	data, _ := json.Marshal(db.data)
	var copy StatisticsDB
	_ = json.Unmarshal(data, &copy)

	return &copy
}

// GetRecentRuns 获取最近的运行记录，最新的在前
func (db *Database) GetRecentRuns(limit int) []*RunRecord {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	if limit <= 0 || limit > len(db.data.RecentRuns) {
		limit = len(db.data.RecentRuns)
	}

	sorted := make([]*RunRecord, len(db.data.RecentRuns))
	copy(sorted, db.data.RecentRuns)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	return sorted[:limit]
}

// Reset 清空所有统计
func (db *Database) Reset() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	db.data = &StatisticsDB{
		Version:     StatsDBVersion,
		CreatedAt:   time.Now(),
		Providers:   make(map[string]*ProviderUsage),
		FormatStats: make(map[string]*FormatStats),
		RecentRuns:  make([]*RunRecord, 0),
	}
	return db.saveUnsafe()
}
