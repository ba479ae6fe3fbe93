package simplify

import "time"

// ChunkResult 单个分块的处理结果：成功（Text）或失败（Err, Attempts）
type ChunkResult struct {
	Index    int           `json:"index"`
	Text     string        `json:"text,omitempty"`
	Err      error         `json:"-"`
	Attempts int           `json:"attempts"`
	Resumed  bool          `json:"resumed,omitempty"` // 结果来自存储中已有的输出
	Duration time.Duration `json:"duration"`
}

// Success 创建成功结果
func Success(index int, text string, attempts int) ChunkResult {
	return ChunkResult{Index: index, Text: text, Attempts: attempts}
}

// Failure 创建失败结果
func Failure(index int, err error, attempts int) ChunkResult {
	return ChunkResult{Index: index, Err: err, Attempts: attempts}
}

// OK 是否成功
func (r ChunkResult) OK() bool {
	return r.Err == nil
}

// ErrorMessage 返回错误文本，成功时为空
func (r ChunkResult) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// BatchReport 一次批处理的权威记录，Results 与分块序列按序号对齐
type BatchReport struct {
	Results   []ChunkResult `json:"results"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// NewBatchReport 由有序结果构建报告并统计成功/失败数
func NewBatchReport(results []ChunkResult) *BatchReport {
	report := &BatchReport{Results: results}
	for _, r := range results {
		if r.OK() {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}
	return report
}

// Total 分块总数
func (r *BatchReport) Total() int {
	return len(r.Results)
}

// Failures 返回失败的结果
func (r *BatchReport) Failures() []ChunkResult {
	var failed []ChunkResult
	for _, res := range r.Results {
		if !res.OK() {
			failed = append(failed, res)
		}
	}
	return failed
}

// Complete 是否全部成功
func (r *BatchReport) Complete() bool {
	return r.Failed == 0
}
