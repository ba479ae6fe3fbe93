// Package extract 把 PDF / DOCX 文件转换为纯文本
package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nerdneilsfield/legal-simplifier/pkg/simplify"
	"github.com/tsawler/tabula"
	"go.uber.org/zap"
)

// PDF 提取后端
const (
	BackendTabula     = "tabula"
	BackendLedongthuc = "ledongthuc"
)

// SupportedExtensions 支持的输入扩展名
var SupportedExtensions = []string{".pdf", ".docx"}

// Source 从文件读取文本，返回文本和非致命警告
type Source func(path string) (text string, warnings []string, err error)

// Extractor 按扩展名分派的文本提取器
type Extractor struct {
	sources map[string]Source
	logger  *zap.Logger
}

var _ simplify.Extractor = (*Extractor)(nil)

// Option 提取器选项
type Option func(*Extractor)

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithSource 覆盖某个扩展名的读取方式
func WithSource(ext string, src Source) Option {
	return func(e *Extractor) {
		e.sources[strings.ToLower(ext)] = src
	}
}

// New 创建提取器，pdfBackend 为空时使用 tabula
func New(pdfBackend string, opts ...Option) (*Extractor, error) {
	e := &Extractor{
		sources: map[string]Source{
			".docx": tabulaText,
		},
		logger: zap.NewNop(),
	}

	switch strings.ToLower(strings.TrimSpace(pdfBackend)) {
	case "", BackendTabula:
		e.sources[".pdf"] = tabulaText
	case BackendLedongthuc:
		e.sources[".pdf"] = ledongthucText
	default:
		return nil, simplify.InvalidParameterError("unknown pdf backend %q (want %s or %s)",
			pdfBackend, BackendTabula, BackendLedongthuc)
	}

	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Extract 提取文本
//
// 扩展名不受支持时返回 ErrUnsupportedFormat，读取失败时返回 ErrExtraction。
func (e *Extractor) Extract(ctx context.Context, path string) (simplify.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	src, ok := e.sources[ext]
	if !ok {
		return simplify.Document{}, simplify.UnsupportedFormatError(path, ext)
	}
	if err := ctx.Err(); err != nil {
		return simplify.Document{}, simplify.ExtractionError(path, err)
	}

	if _, err := os.Stat(path); err != nil {
		return simplify.Document{}, simplify.ExtractionError(path, err)
	}

	text, warnings, err := src(path)
	if err != nil {
		return simplify.Document{}, simplify.ExtractionError(path, err)
	}
	for _, w := range warnings {
		e.logger.Warn("extraction warning", zap.String("file", path), zap.String("warning", w))
	}

	e.logger.Debug("text extracted",
		zap.String("file", path),
		zap.String("format", ext),
		zap.Int("chars", len([]rune(text))))

	return simplify.Document{Source: path, Text: text}, nil
}

// IsSupported 判断文件扩展名是否受支持
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedExtensions {
		if s == ext {
			return true
		}
	}
	return false
}

func tabulaText(path string) (string, []string, error) {
	text, warnings, err := tabula.Open(path).Text()
	if err != nil {
		return "", nil, err
	}
	messages := make([]string, 0, len(warnings))
	for _, w := range warnings {
		messages = append(messages, w.Message)
	}
	return text, messages, nil
}

func ledongthucText(path string) (text string, warnings []string, err error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	// 损坏的字体表会让 ledongthuc/pdf panic
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdf reader panic: %v", rec)
		}
	}()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", nil, err
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", nil, err
	}
	return string(b), nil, nil
}
