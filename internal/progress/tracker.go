// Package progress 跟踪批处理中各分块的状态并在终端显示进度
package progress

import (
	"sync"
	"time"

	"github.com/nerdneilsfield/legal-simplifier/pkg/simplify"
	"go.uber.org/zap"
)

// ChunkStatus 分块状态
type ChunkStatus string

const (
	StatusRunning   ChunkStatus = "running"
	StatusSucceeded ChunkStatus = "succeeded"
	StatusResumed   ChunkStatus = "resumed"
	StatusFailed    ChunkStatus = "failed"
)

// ChunkProgress 单个分块的进度
type ChunkProgress struct {
	Index        int
	Status       ChunkStatus
	StartTime    time.Time
	CompleteTime time.Time
	Attempts     int
	Error        string
}

// ErrorInfo 错误信息
type ErrorInfo struct {
	Time  time.Time
	Chunk int
	Error string
}

// ProgressInfo 进度快照
type ProgressInfo struct {
	TotalChunks         int
	CompletedChunks     int
	FailedChunks        int
	ResumedChunks       int
	RunningChunks       int
	StartTime           time.Time
	EstimatedCompletion time.Time
	Progress            float64
	Errors              []ErrorInfo
}

// Tracker 进度跟踪器，实现 simplify.Observer，可被多个 goroutine 并发调用
type Tracker struct {
	mu        sync.RWMutex
	logger    *zap.Logger
	total     int
	startTime time.Time
	chunks    map[int]*ChunkProgress
	errors    []ErrorInfo

	completed int
	failed    int
	resumed   int
}

var _ simplify.Observer = (*Tracker)(nil)

// NewTracker 创建进度跟踪器
func NewTracker(logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		logger:    logger,
		startTime: time.Now(),
		chunks:    make(map[int]*ChunkProgress),
	}
}

// ChunkStarted 分块开始处理
func (t *Tracker) ChunkStarted(chunk simplify.Chunk, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total = total
	t.chunks[chunk.Index] = &ChunkProgress{
		Index:     chunk.Index,
		Status:    StatusRunning,
		StartTime: time.Now(),
	}
	t.logger.Debug("chunk started", zap.Int("chunk", chunk.Index), zap.Int("total", total))
}

// ChunkFinished 分块处理结束
func (t *Tracker) ChunkFinished(result simplify.ChunkResult, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total = total
	cp, exists := t.chunks[result.Index]
	if !exists {
		cp = &ChunkProgress{Index: result.Index, StartTime: time.Now()}
		t.chunks[result.Index] = cp
	}
	// 重复回调不重复计数
	if cp.Status != StatusRunning && cp.Status != "" {
		return
	}

	cp.CompleteTime = time.Now()
	cp.Attempts = result.Attempts
	switch {
	case !result.OK():
		cp.Status = StatusFailed
		cp.Error = result.ErrorMessage()
		t.failed++
		t.errors = append(t.errors, ErrorInfo{Time: cp.CompleteTime, Chunk: result.Index, Error: cp.Error})
	case result.Resumed:
		cp.Status = StatusResumed
		t.completed++
		t.resumed++
	default:
		cp.Status = StatusSucceeded
		t.completed++
	}
}

// Chunk 返回某个分块的进度
func (t *Tracker) Chunk(index int) (ChunkProgress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cp, ok := t.chunks[index]
	if !ok {
		return ChunkProgress{}, false
	}
	return *cp, true
}

// GetProgress 获取进度信息
func (t *Tracker) GetProgress() ProgressInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	done := t.completed + t.failed
	info := ProgressInfo{
		TotalChunks:     t.total,
		CompletedChunks: t.completed,
		FailedChunks:    t.failed,
		ResumedChunks:   t.resumed,
		RunningChunks:   len(t.chunks) - done,
		StartTime:       t.startTime,
		Errors:          append([]ErrorInfo(nil), t.errors...),
	}
	if t.total > 0 {
		info.Progress = float64(done) / float64(t.total) * 100
	}

	// 估算剩余时间，续跑的分块几乎不耗时，不参与估算
	processed := done - t.resumed
	if processed > 0 && done < t.total {
		elapsed := time.Since(t.startTime)
		avg := elapsed / time.Duration(processed)
		info.EstimatedCompletion = time.Now().Add(avg * time.Duration(t.total-done))
	}
	return info
}
