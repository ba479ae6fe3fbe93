package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nerdneilsfield/legal-simplifier/internal/config"
	"github.com/nerdneilsfield/legal-simplifier/pkg/providers/factory"
)

// printProviders 列出可用的生成提供商
func printProviders(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Supported providers")
	t.AppendHeader(table.Row{"Name", "Default model", "API key", "Description"})

	for _, d := range factory.DefaultFactory.Registry().List() {
		key := "-"
		if d.RequiresAPIKey {
			key = "required"
			if env := config.DefaultAPIKeyEnv(d.Name); env != "" {
				key = env
			}
		}
		model := d.DefaultModel
		if model == "" {
			model = "-"
		}
		t.AppendRow(table.Row{d.Name, model, key, d.Description})
	}
	t.Render()
}

// printConfig 输出生效的配置，API 密钥打码
func printConfig(w io.Writer, cfg *config.Config) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Effective configuration")
	t.AppendHeader(table.Row{"Key", "Value"})

	rows := []table.Row{
		{"provider", cfg.Provider},
		{"model_id", cfg.ModelID},
		{"api_key", maskSecret(cfg.APIKey)},
		{"base_url", orDash(cfg.BaseURL)},
		{"temperature", cfg.Temperature},
		{"request_timeout", cfg.RequestTimeout},
		{"chunk_size", cfg.ChunkSize},
		{"chunk_overlap", cfg.ChunkOverlap},
		{"charset", cfg.Charset},
		{"max_retries", cfg.MaxRetries},
		{"retry_backoff", fmt.Sprintf("%s (%s)", cfg.RetryBackoff, cfg.BackoffStrategy)},
		{"concurrency", cfg.Concurrency},
		{"resume", cfg.Resume},
		{"store.backend", cfg.Store.Backend},
		{"export.formats", strings.Join(cfg.Export.Formats, ", ")},
		{"export.output_dir", orDash(cfg.Export.OutputDir)},
		{"extract.pdf_backend", cfg.Extract.PDFBackend},
		{"prompt_file", orDash(cfg.PromptFile)},
		{"stats_db", orDash(cfg.StatsDB)},
	}
	if cfg.Store.Backend == "s3" {
		rows = append(rows, table.Row{"store.s3.bucket", cfg.Store.S3.Bucket})
	}
	for _, r := range rows {
		t.AppendRow(r)
	}
	t.Render()
}

// maskSecret 只保留最后四位
func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 4 {
		return "****"
	}
	return strings.Repeat("*", 8) + s[len(s)-4:]
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
