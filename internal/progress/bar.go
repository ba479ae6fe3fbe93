package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/nerdneilsfield/legal-simplifier/pkg/simplify"
	"github.com/pterm/pterm"
)

// Bar 终端进度条，同时更新内部的 Tracker
type Bar struct {
	tracker *Tracker
	title   string
	writer  io.Writer

	mu  sync.Mutex
	bar *pterm.ProgressbarPrinter
}

var _ simplify.Observer = (*Bar)(nil)

// NewBar 创建进度条，进度条在第一个分块开始时才显示
func NewBar(title string, w io.Writer, tracker *Tracker) *Bar {
	if tracker == nil {
		tracker = NewTracker(nil)
	}
	return &Bar{tracker: tracker, title: title, writer: w}
}

// Tracker 返回内部跟踪器
func (b *Bar) Tracker() *Tracker {
	return b.tracker
}

// ChunkStarted 实现 simplify.Observer
func (b *Bar) ChunkStarted(chunk simplify.Chunk, total int) {
	b.tracker.ChunkStarted(chunk, total)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar != nil || total == 0 {
		return
	}
	bar, err := pterm.DefaultProgressbar.
		WithTotal(total).
		WithTitle(b.title).
		WithWriter(b.writer).
		WithShowElapsedTime(true).
		WithShowCount(true).
		Start()
	if err == nil {
		b.bar = bar
	}
}

// ChunkFinished 实现 simplify.Observer
func (b *Bar) ChunkFinished(result simplify.ChunkResult, total int) {
	b.tracker.ChunkFinished(result, total)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar == nil {
		return
	}
	info := b.tracker.GetProgress()
	b.bar.UpdateTitle(statusTitle(b.title, info))
	b.bar.Increment()
}

// Stop 结束进度条
func (b *Bar) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar != nil {
		_, _ = b.bar.Stop()
		b.bar = nil
	}
}

func statusTitle(title string, info ProgressInfo) string {
	if info.FailedChunks == 0 {
		return title
	}
	return fmt.Sprintf("%s (%d failed)", title, info.FailedChunks)
}
