package stats

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
)

// Visualizer 统计数据可视化器
type Visualizer struct {
	db  *Database
	out io.Writer
}

// NewVisualizer 创建可视化器
func NewVisualizer(db *Database, out io.Writer) *Visualizer {
	return &Visualizer{db: db, out: out}
}

// ShowOverview 显示总览
func (v *Visualizer) ShowOverview() {
	stats := v.db.GetStats()

	title := color.New(color.FgCyan, color.Bold)
	title.Fprintln(v.out, "📊 Simplification Statistics Overview")
	title.Fprintln(v.out, strings.Repeat("=", 50))

	fmt.Fprintln(v.out)
	v.printSection("🎯 Overall Statistics", [][]string{
		{"Total Runs", formatNumber(stats.TotalRuns)},
		{"Total Chunks", formatNumber(stats.TotalChunks)},
		{"Failed Chunks", formatNumber(stats.TotalFailedChunks)},
		{"Total Characters", formatNumber(stats.TotalCharacters)},
		{"Runs With Errors", formatNumber(stats.TotalErrors)},
		{"Total Duration", formatDuration(stats.TotalDuration)},
		{"Database Created", formatTime(stats.CreatedAt)},
		{"Last Updated", formatTime(stats.LastUpdated)},
	})

	fmt.Fprintln(v.out)
	v.printSection("⚡ Performance Statistics", [][]string{
		{"Avg Speed", fmt.Sprintf("%.2f chars/sec", stats.PerformanceStats.AverageSpeed)},
		{"Avg Chunks/Minute", fmt.Sprintf("%.2f", stats.PerformanceStats.AverageChunksPerMinute)},
		{"Fastest Run", formatDuration(stats.PerformanceStats.FastestRun)},
		{"Slowest Run", formatDuration(stats.PerformanceStats.SlowestRun)},
	})
}

// ShowProviders 显示提供商统计
func (v *Visualizer) ShowProviders() {
	stats := v.db.GetStats()

	title := color.New(color.FgMagenta, color.Bold)
	title.Fprintln(v.out, "🤖 Provider Statistics")
	title.Fprintln(v.out, strings.Repeat("=", 50))

	if len(stats.Providers) == 0 {
		fmt.Fprintln(v.out, "No provider data available.")
		return
	}

	usages := make([]*ProviderUsage, 0, len(stats.Providers))
	for _, u := range stats.Providers {
		usages = append(usages, u)
	}
	sort.Slice(usages, func(i, j int) bool {
		if usages[i].RunCount != usages[j].RunCount {
			return usages[i].RunCount > usages[j].RunCount
		}
		return usages[i].Provider+usages[i].Model < usages[j].Provider+usages[j].Model
	})

	fmt.Fprintln(v.out)
	for i, u := range usages {
		if i > 0 {
			fmt.Fprintln(v.out)
		}
		successRate := 100.0
		if u.ChunkCount > 0 {
			successRate = float64(u.ChunkCount-u.FailedChunks) / float64(u.ChunkCount) * 100
		}
		v.printSection(fmt.Sprintf("🔌 %s / %s", u.Provider, u.Model), [][]string{
			{"Runs", formatNumber(u.RunCount)},
			{"Chunks", formatNumber(u.ChunkCount)},
			{"Failed Chunks", formatNumber(u.FailedChunks)},
			{"Chunk Success Rate", fmt.Sprintf("%.1f%%", successRate)},
			{"Avg Duration", formatDuration(u.AverageDuration)},
			{"Last Used", formatTime(u.LastUsed)},
		})
	}
}

// ShowFormatStats 显示输入格式统计
func (v *Visualizer) ShowFormatStats() {
	stats := v.db.GetStats()

	title := color.New(color.FgGreen, color.Bold)
	title.Fprintln(v.out, "📄 Input Format Statistics")
	title.Fprintln(v.out, strings.Repeat("=", 50))

	if len(stats.FormatStats) == 0 {
		fmt.Fprintln(v.out, "No format data available.")
		return
	}

	formats := make([]*FormatStats, 0, len(stats.FormatStats))
	for _, format := range stats.FormatStats {
		formats = append(formats, format)
	}
	sort.Slice(formats, func(i, j int) bool {
		return formats[i].FileCount > formats[j].FileCount
	})

	fmt.Fprintln(v.out)
	for i, format := range formats {
		if i > 0 {
			fmt.Fprintln(v.out)
		}

		v.printSection(fmt.Sprintf("📋 %s Format", strings.ToUpper(format.Format)), [][]string{
			{"Files Processed", formatNumber(format.FileCount)},
			{"Total Characters", formatNumber(format.CharacterCount)},
			{"Avg File Size", formatNumber(format.AverageFileSize) + " chars"},
			{"Success Rate", fmt.Sprintf("%.1f%%", format.SuccessRate*100)},
			{"Avg Duration", formatDuration(format.AverageDuration)},
			{"Last Used", formatTime(format.LastUsed)},
		})
	}
}

// ShowRecentRuns 显示最近的运行
func (v *Visualizer) ShowRecentRuns(limit int) {
	records := v.db.GetRecentRuns(limit)

	title := color.New(color.FgBlue, color.Bold)
	title.Fprintf(v.out, "🕒 Recent Runs (Last %d)\n", len(records))
	title.Fprintln(v.out, strings.Repeat("=", 50))

	if len(records) == 0 {
		fmt.Fprintln(v.out, "No recent runs found.")
		return
	}

	for i, record := range records {
		if i > 0 {
			fmt.Fprintln(v.out)
		}

		status := "✅"
		if record.Failed() {
			status = "❌"
		}

		heading := fmt.Sprintf("%s %s", status, record.InputFile)
		if len(heading) > 60 {
			heading = heading[:57] + "..."
		}

		rows := [][]string{
			{"Timestamp", formatTime(record.Timestamp)},
			{"Provider", fmt.Sprintf("%s / %s", record.Provider, record.Model)},
			{"Status", record.Status},
			{"Progress", fmt.Sprintf("%.1f%% (%d/%d chunks, %d resumed)",
				record.Progress(), record.SucceededChunks, record.TotalChunks, record.ResumedChunks)},
			{"Characters", formatNumber(int64(record.CharacterCount))},
			{"Duration", formatDuration(record.Duration)},
		}
		if len(record.Artifacts) > 0 {
			rows = append(rows, []string{"Artifacts", strings.Join(record.Artifacts, ", ")})
		}
		v.printSection(heading, rows)

		if record.ErrorMessage != "" {
			errorColor := color.New(color.FgRed)
			errorColor.Fprintf(v.out, "  ❌ Error: %s\n", record.ErrorMessage)
		}
	}
}

// printSection 打印一个统计部分
func (v *Visualizer) printSection(title string, data [][]string) {
	sectionColor := color.New(color.FgYellow, color.Bold)
	sectionColor.Fprintf(v.out, "%s\n", title)

	maxLabelLen := 0
	for _, row := range data {
		if len(row[0]) > maxLabelLen {
			maxLabelLen = len(row[0])
		}
	}

	labelColor := color.New(color.FgCyan)
	valueColor := color.New(color.FgWhite, color.Bold)
	for _, row := range data {
		labelColor.Fprintf(v.out, "  %-*s: ", maxLabelLen, row[0])
		valueColor.Fprintln(v.out, row[1])
	}
}

// formatNumber 格式化数字（添加千位分隔符）
func formatNumber(n int64) string {
	str := strconv.FormatInt(n, 10)
	if len(str) <= 3 {
		return str
	}

	var result strings.Builder
	for i, char := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(char)
	}
	return result.String()
}

// formatDuration 格式化持续时间
func formatDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	if d < time.Second {
		return fmt.Sprintf("%.0fms", float64(d.Nanoseconds())/1e6)
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}

// formatTime 格式化时间
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}

	now := time.Now()
	if t.Year() == now.Year() && t.Month() == now.Month() && t.Day() == now.Day() {
		return t.Format("15:04:05")
	}
	if t.Year() == now.Year() {
		return t.Format("Jan 02 15:04")
	}
	return t.Format("2006-01-02 15:04")
}
