package simplify

import (
	"fmt"
	"strings"
	"text/template"
)

// DefaultSystemPrompt 默认系统提示词
const DefaultSystemPrompt = "You simplify legal documents into clear summaries."

// DefaultPromptTemplate 默认的分块简化提示词模板
//
// 可用变量：.Text（分块原文）、.Index（分块序号）、.Total（分块总数）
const DefaultPromptTemplate = `You are a legal document simplifier. Read the following text and:
1. Summarize it in plain, simple English.
2. List any obligations, rights, risks, penalties, and critical dates clearly.

Text:
{{.Text}}`

// PromptData 模板变量
type PromptData struct {
	Text  string
	Index int
	Total int
}

// PromptBuilder 根据模板构建提示词
type PromptBuilder struct {
	tmpl *template.Template
}

// NewPromptBuilder 解析模板，空模板使用 DefaultPromptTemplate
func NewPromptBuilder(text string) (*PromptBuilder, error) {
	if strings.TrimSpace(text) == "" {
		text = DefaultPromptTemplate
	}
	if !strings.Contains(text, ".Text") {
		return nil, InvalidParameterError("prompt template must reference {{.Text}}")
	}
	tmpl, err := template.New("chunk").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, InvalidParameterError("parse prompt template: %v", err)
	}
	return &PromptBuilder{tmpl: tmpl}, nil
}

// MustDefaultPromptBuilder 返回使用默认模板的构建器。
// 只解析常量 DefaultPromptTemplate，panic 仅在该常量本身写错时发生。
func MustDefaultPromptBuilder() *PromptBuilder {
	b, err := NewPromptBuilder(DefaultPromptTemplate)
	if err != nil {
		panic(err)
	}
	return b
}

// Build 为分块构建提示词，分块文本按原样嵌入
func (b *PromptBuilder) Build(chunk Chunk, total int) (string, error) {
	var sb strings.Builder
	if err := b.tmpl.Execute(&sb, PromptData{Text: chunk.Text, Index: chunk.Index, Total: total}); err != nil {
		return "", fmt.Errorf("render prompt for chunk %d: %w", chunk.Index, err)
	}
	return sb.String(), nil
}
