package simplify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeFormat(t *testing.T) {
	report := NewBatchReport([]ChunkResult{
		Success(1, "OK:1", 1),
		Success(2, "OK:2", 2),
	})

	assert.Equal(t,
		FinalReport("### Summary of Chunk 1\nOK:1\n\n### Summary of Chunk 2\nOK:2\n"),
		Merge(report))
}

func TestMergeSkipsFailuresAndKeepsIndices(t *testing.T) {
	report := NewBatchReport([]ChunkResult{
		Success(1, "first", 1),
		Failure(2, errFlaky, 3),
		Success(3, "third", 1),
	})

	assert.Equal(t,
		FinalReport("### Summary of Chunk 1\nfirst\n\n### Summary of Chunk 3\nthird\n"),
		Merge(report))
}

func TestMergeEmpty(t *testing.T) {
	assert.Equal(t, FinalReport(""), Merge(nil))
	assert.Equal(t, FinalReport(""), Merge(NewBatchReport(nil)))
	assert.Equal(t, FinalReport(""), Merge(NewBatchReport([]ChunkResult{Failure(1, errFlaky, 3)})))
}

func TestSectionHeader(t *testing.T) {
	assert.Equal(t, "### Summary of Chunk 12", SectionHeader(12))
}

func TestSectionsRoundTrip(t *testing.T) {
	report := Merge(NewBatchReport([]ChunkResult{
		Success(1, "Pay rent monthly.\nLate fees apply.", 1),
		Success(4, "Notice period is 30 days.", 1),
	}))

	sections := report.Sections()
	require.Len(t, sections, 2)
	assert.Equal(t, Section{Chunk: 1, Title: "Summary of Chunk 1", Body: "Pay rent monthly.\nLate fees apply."}, sections[0])
	assert.Equal(t, Section{Chunk: 4, Title: "Summary of Chunk 4", Body: "Notice period is 30 days."}, sections[1])
}

func TestSectionsWithPreambleAndForeignHeadings(t *testing.T) {
	report := FinalReport("Intro line\n\n### Key Risks\nEviction.\n### Summary of Chunk x\nbad index\n")

	sections := report.Sections()
	require.Len(t, sections, 3)
	assert.Equal(t, Section{Body: "Intro line"}, sections[0])
	assert.Equal(t, Section{Title: "Key Risks", Body: "Eviction."}, sections[1])
	assert.Equal(t, 0, sections[2].Chunk)
	assert.Empty(t, FinalReport("").Sections())
}

func TestBatchReportCounts(t *testing.T) {
	report := NewBatchReport([]ChunkResult{Success(1, "a", 1), Failure(2, errors.New("x"), 3), Success(3, "c", 1)})
	assert.Equal(t, 3, report.Total())
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, report.Total(), report.Succeeded+report.Failed)
	assert.Len(t, report.Failures(), 1)
	assert.Equal(t, "", report.Results[0].ErrorMessage())
	assert.Equal(t, "x", report.Results[1].ErrorMessage())
}
