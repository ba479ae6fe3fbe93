package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/nerdneilsfield/legal-simplifier/pkg/simplify"
)

// PromptFile 自定义提示词文件（TOML）
//
//	system = "You explain contracts to tenants."
//	template = """Simplify:
//	{{.Text}}"""
//
//	[terms]
//	indemnify = "promise to cover someone else's losses"
type PromptFile struct {
	System   string            `toml:"system"`
	Template string            `toml:"template"`
	Terms    map[string]string `toml:"terms"`
}

// LoadPromptFile 读取并校验提示词文件
func LoadPromptFile(path string) (*PromptFile, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, simplify.InvalidParameterError("prompt file not found: %s", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file: %w", err)
	}
	prompt := &PromptFile{}
	if err := toml.Unmarshal(content, prompt); err != nil {
		return nil, simplify.InvalidParameterError("failed to parse prompt file %s: %v", path, err)
	}
	if _, err := prompt.Builder(); err != nil {
		return nil, err
	}
	return prompt, nil
}

// Builder 构建分块提示词构建器，未设置模板时使用默认模板
func (p *PromptFile) Builder() (*simplify.PromptBuilder, error) {
	if p == nil {
		return simplify.NewPromptBuilder("")
	}
	return simplify.NewPromptBuilder(p.Template)
}

// SystemPrompt 返回系统提示词，术语表追加在末尾
func (p *PromptFile) SystemPrompt() string {
	if p == nil {
		return simplify.DefaultSystemPrompt
	}
	system := strings.TrimSpace(p.System)
	if system == "" {
		system = simplify.DefaultSystemPrompt
	}
	if len(p.Terms) == 0 {
		return system
	}

	terms := make([]string, 0, len(p.Terms))
	for term := range p.Terms {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	var sb strings.Builder
	sb.WriteString(system)
	sb.WriteString("\n\nWhen these terms appear, explain them as follows:\n")
	for _, term := range terms {
		fmt.Fprintf(&sb, "- %s: %s\n", term, p.Terms[term])
	}
	return strings.TrimRight(sb.String(), "\n")
}
