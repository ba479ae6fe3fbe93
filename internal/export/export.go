// Package export 把合并后的报告渲染为 txt / md / html / docx 并写入输出目录
package export

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Kunde21/markdownfmt/v3"
	"github.com/Kunde21/markdownfmt/v3/markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/nerdneilsfield/legal-simplifier/pkg/simplify"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
	"go.uber.org/zap"
)

// 导出格式
const (
	FormatText     = "txt"
	FormatMarkdown = "md"
	FormatHTML     = "html"
	FormatDOCX     = "docx"
)

// 默认值
const (
	DefaultBasename = "Final_Summary_Report"
	DefaultTitle    = "Final Summary Report"
)

// Meta 报告元数据
type Meta struct {
	Title       string
	Source      string
	GeneratedAt time.Time
}

type renderFunc func(report simplify.FinalReport, meta Meta) ([]byte, error)

var renderers = map[string]renderFunc{
	FormatText:     renderText,
	FormatMarkdown: renderMarkdown,
	FormatHTML:     renderHTML,
	FormatDOCX:     renderDOCX,
}

// NormalizeFormat 规范化格式名称，例如 "markdown" → "md"
func NormalizeFormat(format string) (string, error) {
	f := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	switch f {
	case "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	case "docx", "word":
		return FormatDOCX, nil
	}
	return "", simplify.InvalidParameterError("unknown export format %q (supported: %s)",
		format, strings.Join(Formats(), ", "))
}

// Formats 列出支持的格式
func Formats() []string {
	list := make([]string, 0, len(renderers))
	for f := range renderers {
		list = append(list, f)
	}
	sort.Strings(list)
	return list
}

// Renderer 报告渲染器
type Renderer struct {
	Meta Meta
}

// NewRenderer 创建渲染器
func NewRenderer(m Meta) *Renderer {
	if m.Title == "" {
		m.Title = DefaultTitle
	}
	return &Renderer{Meta: m}
}

// Render 按格式渲染报告
func (r *Renderer) Render(report simplify.FinalReport, format string) ([]byte, error) {
	f, err := NormalizeFormat(format)
	if err != nil {
		return nil, err
	}
	m := r.Meta
	if m.GeneratedAt.IsZero() {
		m.GeneratedAt = time.Now()
	}
	return renderers[f](report, m)
}

func renderText(report simplify.FinalReport, _ Meta) ([]byte, error) {
	return []byte(report), nil
}

// markdownSource 带 YAML front matter 的 Markdown 原文
func markdownSource(report simplify.FinalReport, m Meta) string {
	var sb strings.Builder
	sb.WriteString("---\n")
	fmt.Fprintf(&sb, "title: %q\n", m.Title)
	if m.Source != "" {
		fmt.Fprintf(&sb, "source: %q\n", m.Source)
	}
	fmt.Fprintf(&sb, "generated_at: %q\n", m.GeneratedAt.Format(time.RFC3339))
	sb.WriteString("---\n\n")
	fmt.Fprintf(&sb, "# %s\n\n", m.Title)
	sb.WriteString(string(report))
	return sb.String()
}

func renderMarkdown(report simplify.FinalReport, m Meta) ([]byte, error) {
	src := markdownSource(report, m)
	front, body := splitFrontMatter(src)

	formatted, err := markdownfmt.Process("", []byte(body),
		markdown.WithCodeFormatters(markdown.GoCodeFormatter))
	if err != nil {
		return nil, fmt.Errorf("markdown formatting failed: %w", err)
	}
	return append([]byte(front), formatted...), nil
}

// splitFrontMatter markdownfmt 不认识 front matter，格式化前先拆开
func splitFrontMatter(src string) (front, body string) {
	if !strings.HasPrefix(src, "---\n") {
		return "", src
	}
	end := strings.Index(src[4:], "\n---\n")
	if end < 0 {
		return "", src
	}
	cut := 4 + end + len("\n---\n")
	return src[:cut] + "\n", strings.TrimLeft(src[cut:], "\n")
}

func renderHTML(report simplify.FinalReport, m Meta) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(meta.Meta))
	pctx := parser.NewContext()

	var buf bytes.Buffer
	if err := md.Convert([]byte(markdownSource(report, m)), &buf, parser.WithContext(pctx)); err != nil {
		return nil, fmt.Errorf("html conversion failed: %w", err)
	}

	title := m.Title
	if t, ok := meta.Get(pctx)["title"].(string); ok && t != "" {
		title = t
	}

	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		return nil, fmt.Errorf("parse generated html: %w", err)
	}
	doc.Find("head").AppendHtml(fmt.Sprintf(`<meta charset="utf-8"/><title>%s</title>`, html.EscapeString(title)))

	// 为每个分块标题加锚点并生成目录
	var toc strings.Builder
	doc.Find("h3").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		id := fmt.Sprintf("section-%d", i+1)
		if n, ok := strings.CutPrefix(text, "Summary of Chunk "); ok {
			id = "chunk-" + strings.TrimSpace(n)
		}
		s.SetAttr("id", id)
		fmt.Fprintf(&toc, `<li><a href="#%s">%s</a></li>`, id, html.EscapeString(text))
	})
	if toc.Len() > 0 {
		doc.Find("h1").First().AfterHtml(`<nav class="toc"><ul>` + toc.String() + `</ul></nav>`)
	}

	out, err := doc.Html()
	if err != nil {
		return nil, err
	}
	return []byte("<!DOCTYPE html>\n" + out), nil
}

// Exporter 把报告写入 <dir>/<basename>.<ext>
type Exporter struct {
	renderer  *Renderer
	outputDir string
	basename  string
	formats   []string
	logger    *zap.Logger
}

var _ simplify.Exporter = (*Exporter)(nil)

// Config 导出配置
type Config struct {
	Formats   []string `mapstructure:"formats"`
	OutputDir string   `mapstructure:"output_dir"`
	Basename  string   `mapstructure:"basename"`
}

// NewExporter 创建导出器，格式非法时返回 ErrInvalidParameter
func NewExporter(cfg Config, m Meta, logger *zap.Logger) (*Exporter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	formats := cfg.Formats
	if len(formats) == 0 {
		formats = []string{FormatText}
	}

	seen := make(map[string]bool)
	normalized := make([]string, 0, len(formats))
	for _, f := range formats {
		nf, err := NormalizeFormat(f)
		if err != nil {
			return nil, err
		}
		if !seen[nf] {
			seen[nf] = true
			normalized = append(normalized, nf)
		}
	}

	basename := cfg.Basename
	if basename == "" {
		basename = DefaultBasename
	}
	dir := cfg.OutputDir
	if dir == "" {
		dir = "."
	}

	return &Exporter{
		renderer:  NewRenderer(m),
		outputDir: dir,
		basename:  basename,
		formats:   normalized,
		logger:    logger,
	}, nil
}

// Path 返回某个格式的输出路径
func (e *Exporter) Path(format string) string {
	return filepath.Join(e.outputDir, e.basename+"."+format)
}

// Export 渲染并写入全部格式，返回写入的文件路径
func (e *Exporter) Export(ctx context.Context, report simplify.FinalReport) ([]string, error) {
	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var written []string
	for _, f := range e.formats {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		data, err := e.renderer.Render(report, f)
		if err != nil {
			return written, fmt.Errorf("render %s: %w", f, err)
		}
		path := e.Path(f)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		e.logger.Info("report exported", zap.String("format", f), zap.String("path", path), zap.Int("bytes", len(data)))
		written = append(written, path)
	}
	return written, nil
}
