package simplify

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// SectionPrefix 段落标题前缀，导出器据此识别标题
const SectionPrefix = "### "

// sectionTitle 段落标题文本
const sectionTitle = "Summary of Chunk "

// FinalReport 合并后的报告文本
type FinalReport string

// Section 报告中的一个段落
type Section struct {
	Chunk int
	Title string
	Body  string
}

// SectionHeader 返回分块对应的标题行（不含换行）
func SectionHeader(index int) string {
	return fmt.Sprintf("%s%s%d", SectionPrefix, sectionTitle, index)
}

// Merge 按序号合并成功结果；失败的分块跳过，只体现在报告计数中
func Merge(report *BatchReport) FinalReport {
	if report == nil {
		return ""
	}

	sections := make([]string, 0, report.Succeeded)
	for _, r := range report.Results {
		if !r.OK() {
			continue
		}
		sections = append(sections, SectionHeader(r.Index)+"\n"+r.Text+"\n")
	}
	return FinalReport(strings.Join(sections, "\n"))
}

// String 实现 fmt.Stringer
func (f FinalReport) String() string {
	return string(f)
}

// Sections 把报告解析回段落；标题之前的文本归入 Chunk 为 0 的段落
func (f FinalReport) Sections() []Section {
	var sections []Section
	var current *Section
	var body []string

	flush := func() {
		if current == nil {
			return
		}
		current.Body = strings.TrimSpace(strings.Join(body, "\n"))
		sections = append(sections, *current)
	}

	scanner := bufio.NewScanner(strings.NewReader(string(f)))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, SectionPrefix) {
			flush()
			title := strings.TrimSpace(strings.TrimPrefix(line, SectionPrefix))
			current = &Section{Title: title, Chunk: parseChunkIndex(title)}
			body = body[:0]
			continue
		}
		if current == nil {
			if strings.TrimSpace(line) == "" {
				continue
			}
			current = &Section{}
		}
		body = append(body, line)
	}
	flush()
	return sections
}

func parseChunkIndex(title string) int {
	if !strings.HasPrefix(title, sectionTitle) {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(title, sectionTitle)))
	if err != nil {
		return 0
	}
	return n
}
