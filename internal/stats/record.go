package stats

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nerdneilsfield/legal-simplifier/pkg/simplify"
)

// NewRunRecord 由一次运行的结果生成记录，run 为 nil 表示运行在分块前失败
func NewRunRecord(inputFile, provider, model string, run *simplify.RunResult, runErr error) *RunRecord {
	record := &RunRecord{
		Timestamp: time.Now(),
		InputFile: inputFile,
		Format:    strings.TrimPrefix(strings.ToLower(filepath.Ext(inputFile)), "."),
		Provider:  provider,
		Model:     model,
		Status:    StatusCompleted,
	}

	if run != nil {
		record.ID = run.RunID
		record.TotalChunks = len(run.Chunks)
		record.Duration = run.Duration
		record.Artifacts = run.Artifacts
		for _, c := range run.Chunks {
			record.CharacterCount += c.Len()
		}
		if run.Report != nil {
			record.SucceededChunks = run.Report.Succeeded
			record.FailedChunks = run.Report.Failed
			for _, r := range run.Report.Results {
				if r.Resumed {
					record.ResumedChunks++
				}
			}
		}
	}

	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	switch {
	case runErr != nil && simplify.IsCanceled(runErr):
		record.Status = StatusCanceled
		record.ErrorMessage = runErr.Error()
	case runErr != nil:
		record.Status = StatusFailed
		record.ErrorMessage = runErr.Error()
	case record.FailedChunks > 0 && record.SucceededChunks == 0:
		record.Status = StatusFailed
	case record.FailedChunks > 0:
		record.Status = StatusPartial
	}
	return record
}

// Failed 运行是否存在失败
func (r *RunRecord) Failed() bool {
	return r.Status != StatusCompleted || r.FailedChunks > 0
}
