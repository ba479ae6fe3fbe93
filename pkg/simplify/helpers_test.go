package simplify

import (
	"context"
	"sync"
)

// memStore 测试用的内存存储，可注入写入错误
type memStore struct {
	mu        sync.Mutex
	chunks    map[int]string
	results   map[int]string
	chunkErr  map[int]error
	resultErr map[int]error
	loadErr   error
}

func newMemStore() *memStore {
	return &memStore{
		chunks:    make(map[int]string),
		results:   make(map[int]string),
		chunkErr:  make(map[int]error),
		resultErr: make(map[int]error),
	}
}

func (s *memStore) SaveChunk(_ context.Context, index int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.chunkErr[index]; err != nil {
		return err
	}
	s.chunks[index] = text
	return nil
}

func (s *memStore) SaveResult(_ context.Context, index int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.resultErr[index]; err != nil {
		return err
	}
	s.results[index] = text
	return nil
}

func (s *memStore) LoadResult(_ context.Context, index int) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return "", false, s.loadErr
	}
	text, ok := s.results[index]
	return text, ok, nil
}

// processorFunc 把函数适配为 ChunkProcessor
type processorFunc func(ctx context.Context, chunk Chunk, total int) ChunkResult

func (f processorFunc) Process(ctx context.Context, chunk Chunk, total int) ChunkResult {
	return f(ctx, chunk, total)
}

type recordingObserver struct {
	mu       sync.Mutex
	started  []int
	finished []ChunkResult
}

func (o *recordingObserver) ChunkStarted(chunk Chunk, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, chunk.Index)
}

func (o *recordingObserver) ChunkFinished(result ChunkResult, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, result)
}

type staticExtractor struct {
	text string
	err  error
}

func (e staticExtractor) Extract(_ context.Context, path string) (Document, error) {
	if e.err != nil {
		return Document{}, e.err
	}
	return Document{Source: path, Text: e.text}, nil
}

type captureExporter struct {
	reports []FinalReport
	err     error
}

func (e *captureExporter) Export(_ context.Context, report FinalReport) ([]string, error) {
	e.reports = append(e.reports, report)
	if e.err != nil {
		return nil, e.err
	}
	return []string{"out/Final_Summary_Report.txt"}, nil
}

// chunksOf 构造 n 个简单分块
func chunksOf(n int) []Chunk {
	chunks := make([]Chunk, n)
	for i := range chunks {
		chunks[i] = Chunk{Index: i + 1, Start: i * 10, End: i*10 + 10, Text: "clause text"}
	}
	return chunks
}

// noWait 不等待的重试策略
func noWait(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, Backoff: ConstantBackoff(0)}
}
