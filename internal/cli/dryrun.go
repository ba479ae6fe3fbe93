package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/nerdneilsfield/legal-simplifier/pkg/simplify"
)

// previewWidth 分块计划中每行预览的显示宽度
const previewWidth = 60

// runDryRun 只提取和分块，不调用生成服务
func runDryRun(ctx context.Context, a *app, input string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	extractor, err := a.newExtractor()
	if err != nil {
		return err
	}
	pc, err := a.cfg.PipelineConfig()
	if err != nil {
		return err
	}
	pipeline, err := simplify.NewPipeline(pc, simplify.WithExtractor(extractor), simplify.WithLogger(a.log))
	if err != nil {
		return err
	}

	result, err := pipeline.Prepare(ctx, input)
	if err != nil {
		return err
	}

	w := a.out
	color.New(color.FgCyan, color.Bold).Fprintln(w, "🎭 Dry run: nothing will be sent to the model")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "📄 Input: %s\n", input)
	fmt.Fprintf(w, "🤖 Provider: %s / %s\n", a.cfg.Provider, a.cfg.ModelID)
	fmt.Fprintf(w, "✂️  Chunking: size %d, overlap %d, charset %s\n", pc.ChunkSize, pc.ChunkOverlap, pc.Charset)
	fmt.Fprintf(w, "🔁 Attempts per chunk: %d, concurrency: %d\n", a.cfg.MaxRetries, a.cfg.Concurrency)
	fmt.Fprintln(w)

	renderChunkPlan(w, result.Chunks)
	fmt.Fprintln(w)
	printPreview(w, result.Document)

	if len(result.Chunks) == 0 {
		color.New(color.FgYellow).Fprintln(w, "⚠️  The document contains no text after normalization.")
	}
	return nil
}

// renderChunkPlan 输出分块计划表
func renderChunkPlan(w io.Writer, chunks []simplify.Chunk) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Start", "End", "Chars", "Preview"})

	total := 0
	for _, c := range chunks {
		total += c.Len()
		t.AppendRow(table.Row{c.Index, c.Start, c.End, c.Len(), chunkPreview(c.Text, previewWidth)})
	}
	t.AppendFooter(table.Row{"", "", "Total", total, fmt.Sprintf("%d chunks", len(chunks))})
	t.Render()
}

// chunkPreview 截断到指定显示宽度，CJK 等宽字符按 2 列计算
func chunkPreview(text string, width int) string {
	text = strings.Join(strings.Fields(text), " ")
	return runewidth.Truncate(text, width, "…")
}
