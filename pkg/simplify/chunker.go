package simplify

import (
	"iter"
	"strings"
)

// 默认分块参数
const (
	DefaultChunkSize    = 1200
	DefaultChunkOverlap = 200
)

// Chunk 规范化文本中的一个重叠窗口
type Chunk struct {
	// Index 从 1 开始的连续序号
	Index int `json:"index"`
	// Start 窗口在规范化文本中的起始字符偏移
	Start int `json:"start"`
	// End 窗口结束偏移（不含）
	End int `json:"end"`
	// Text 去除首尾空白后的窗口内容
	Text string `json:"text"`
}

// Len 返回窗口长度（字符数）
func (c Chunk) Len() int {
	return c.End - c.Start
}

// Chunker 固定大小、固定重叠的分块器
type Chunker struct {
	size    int
	overlap int
}

// NewChunker 创建分块器，参数非法时返回 ErrInvalidParameter
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, InvalidParameterError("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, InvalidParameterError("overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size 返回块大小
func (c *Chunker) Size() int { return c.size }

// Overlap 返回重叠大小
func (c *Chunker) Overlap() int { return c.overlap }

// Split 将文本切分为分块序列
func (c *Chunker) Split(text string) []Chunk {
	var chunks []Chunk
	for ch := range c.Windows(text) {
		chunks = append(chunks, ch)
	}
	return chunks
}

// Windows 惰性地产生分块；每次迭代都从头开始，不保留状态。
// 与单纯的 "cursor < L" 循环不同，窗口一旦覆盖到文本末尾就停止，
// 因此分块数等于 ExpectedChunkCount，不会产生完全落在前一块内的尾块。
func (c *Chunker) Windows(text string) iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		runes := []rune(text)
		length := len(runes)
		step := c.size - c.overlap

		index := 1
		for cursor := 0; cursor < length; cursor += step {
			end := cursor + c.size
			if end > length {
				end = length
			}
			ch := Chunk{
				Index: index,
				Start: cursor,
				End:   end,
				Text:  strings.TrimSpace(string(runes[cursor:end])),
			}
			if !yield(ch) {
				return
			}
			// 已覆盖到文本末尾，后续窗口只会是当前窗口的子集
			if end == length {
				return
			}
			index++
		}
	}
}

// Split 按给定参数切分文本
func Split(text string, chunkSize, overlap int) ([]Chunk, error) {
	c, err := NewChunker(chunkSize, overlap)
	if err != nil {
		return nil, err
	}
	return c.Split(text), nil
}

// ExpectedChunkCount 返回给定长度文本将产生的分块数
func ExpectedChunkCount(length, chunkSize, overlap int) int {
	if length <= 0 {
		return 0
	}
	if length <= chunkSize {
		return 1
	}
	step := chunkSize - overlap
	return (length - overlap + step - 1) / step
}
