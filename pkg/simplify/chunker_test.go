package simplify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChunkerRejectsInvalidParameters(t *testing.T) {
	tests := []struct {
		size, overlap int
	}{
		{0, 0},
		{-1, 0},
		{100, 100},
		{100, 150},
		{100, -1},
	}
	for _, tt := range tests {
		_, err := NewChunker(tt.size, tt.overlap)
		assert.ErrorIs(t, err, ErrInvalidParameter, "size=%d overlap=%d", tt.size, tt.overlap)

		_, err = Split("some text", tt.size, tt.overlap)
		assert.ErrorIs(t, err, ErrInvalidParameter)
	}
}

func TestSplitEmptyAndShortText(t *testing.T) {
	c, err := NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	require.NoError(t, err)

	assert.Empty(t, c.Split(""))

	chunks := c.Split("The tenant pays rent.")
	require.Len(t, chunks, 1)
	assert.Equal(t, Chunk{Index: 1, Start: 0, End: 21, Text: "The tenant pays rent."}, chunks[0])

	// 长度等于块大小仍然只有一块
	exact := strings.Repeat("x", DefaultChunkSize)
	assert.Len(t, c.Split(exact), 1)
}

func TestSplitDefaultWindows(t *testing.T) {
	text := strings.Repeat("abcdefghij", 130) // 1300 个字符
	chunks, err := Split(text, 1200, 200)
	require.NoError(t, err)

	require.Len(t, chunks, 2)
	assert.Equal(t, 1, chunks[0].Index)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, 1200, chunks[0].End)
	assert.Equal(t, 2, chunks[1].Index)
	assert.Equal(t, 1000, chunks[1].Start)
	assert.Equal(t, 1300, chunks[1].End)
	assert.Equal(t, text[1000:1200], chunks[0].Text[1000:])
	assert.Equal(t, text[1000:1200], chunks[1].Text[:200])
}

func TestSplitCoverageAndOverlap(t *testing.T) {
	params := []struct{ size, overlap int }{
		{10, 0}, {10, 3}, {10, 9}, {50, 20}, {1200, 200},
	}
	for _, p := range params {
		c, err := NewChunker(p.size, p.overlap)
		require.NoError(t, err)

		for length := 0; length <= 3*p.size+7; length++ {
			text := strings.Repeat("a", length)
			chunks := c.Split(text)

			require.Len(t, chunks, ExpectedChunkCount(length, p.size, p.overlap),
				"size=%d overlap=%d length=%d", p.size, p.overlap, length)
			if length == 0 {
				continue
			}

			assert.Equal(t, 0, chunks[0].Start)
			assert.Equal(t, length, chunks[len(chunks)-1].End)
			for i, ch := range chunks {
				assert.Equal(t, i+1, ch.Index)
				assert.LessOrEqual(t, ch.Len(), p.size)
				if i > 0 {
					prev := chunks[i-1]
					assert.Equal(t, p.size-p.overlap, ch.Start-prev.Start)
					assert.Equal(t, p.overlap, prev.End-ch.Start)
				}
			}
		}
	}
}

func TestSplitCountsRunesNotBytes(t *testing.T) {
	text := strings.Repeat("é", 10)
	chunks, err := Split(text, 4, 1)
	require.NoError(t, err)

	require.Len(t, chunks, 3)
	assert.Equal(t, "éééé", chunks[0].Text)
	assert.Equal(t, 6, chunks[2].Start)
	assert.Equal(t, 10, chunks[2].End)
}

func TestSplitTrimsChunkText(t *testing.T) {
	chunks, err := Split("aaaa bbbb", 5, 0)
	require.NoError(t, err)

	require.Len(t, chunks, 2)
	assert.Equal(t, "aaaa", chunks[0].Text)
	assert.Equal(t, 5, chunks[0].Len())
	assert.Equal(t, "bbbb", chunks[1].Text)
}

func TestWindowsIsRestartable(t *testing.T) {
	c, err := NewChunker(10, 2)
	require.NoError(t, err)
	seq := c.Windows(strings.Repeat("z", 35))

	var first []int
	for ch := range seq {
		first = append(first, ch.Index)
		if ch.Index == 2 {
			break
		}
	}
	assert.Equal(t, []int{1, 2}, first)

	var all []int
	for ch := range seq {
		all = append(all, ch.Index)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, all)
}

func TestExpectedChunkCount(t *testing.T) {
	assert.Equal(t, 0, ExpectedChunkCount(0, 1200, 200))
	assert.Equal(t, 1, ExpectedChunkCount(150, 1200, 200))
	assert.Equal(t, 1, ExpectedChunkCount(1200, 1200, 200))
	assert.Equal(t, 2, ExpectedChunkCount(1201, 1200, 200))
	assert.Equal(t, 2, ExpectedChunkCount(1300, 1200, 200))
	assert.Equal(t, 3, ExpectedChunkCount(2201, 1200, 200))
}

func TestSplitStopsAtEndOfText(t *testing.T) {
	chunks, err := Split(strings.Repeat("a", 1100), 1200, 200)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 1100, chunks[0].End)

	chunks, err = Split(strings.Repeat("a", 2100), 1200, 200)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, [2]int{0, 1200}, [2]int{chunks[0].Start, chunks[0].End})
	assert.Equal(t, [2]int{1000, 2100}, [2]int{chunks[1].Start, chunks[1].End})
	assert.Equal(t, ExpectedChunkCount(2100, 1200, 200), len(chunks))
}
