package store

import (
	"context"
	"sync"

	"github.com/nerdneilsfield/legal-simplifier/pkg/simplify"
)

// Memory 内存存储，用于 serve 模式和测试
type Memory struct {
	mu      sync.RWMutex
	chunks  map[int]string
	results map[int]string
	writes  map[string]int
}

var _ simplify.ChunkStore = (*Memory)(nil)

// NewMemory 创建内存存储
func NewMemory() *Memory {
	return &Memory{
		chunks:  make(map[int]string),
		results: make(map[int]string),
		writes:  make(map[string]int),
	}
}

// SaveChunk 保存分块原文
func (m *Memory) SaveChunk(ctx context.Context, index int, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks[index] = text
	m.writes[ChunkName(index)]++
	return nil
}

// SaveResult 保存简化结果
func (m *Memory) SaveResult(ctx context.Context, index int, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[index] = text
	m.writes[ResultName(index)]++
	return nil
}

// LoadResult 读取简化结果
func (m *Memory) LoadResult(ctx context.Context, index int) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	text, ok := m.results[index]
	return text, ok, nil
}

// Chunk 读取分块原文
func (m *Memory) Chunk(index int) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	text, ok := m.chunks[index]
	return text, ok
}

// Writes 返回某个文件名被写入的次数
func (m *Memory) Writes(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes[name]
}
