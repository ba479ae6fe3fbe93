package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerdneilsfield/legal-simplifier/internal/export"
	"github.com/nerdneilsfield/legal-simplifier/internal/store"
	"github.com/nerdneilsfield/legal-simplifier/pkg/simplify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, 1200, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 3*time.Second, cfg.RetryBackoff)
	assert.Equal(t, 120*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "ascii", cfg.Charset)
	assert.Equal(t, 1, cfg.Concurrency)
	assert.Equal(t, store.BackendFS, cfg.Store.Backend)
	assert.Equal(t, "chunks", cfg.Store.ChunksDir)
	assert.Equal(t, "summaries", cfg.Store.ResultsDir)
	assert.Equal(t, []string{export.FormatText}, cfg.Export.Formats)
	assert.Equal(t, export.DefaultBasename, cfg.Export.Basename)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeFile(t, "cfg.yaml", `
provider: openai
model_id: gpt-4o-mini
chunk_size: 800
chunk_overlap: 100
retry_backoff: 500ms
backoff_strategy: exponential
concurrency: 4
store:
  backend: memory
export:
  formats: [md, html]
  output_dir: out
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, 800, cfg.ChunkSize)
	assert.Equal(t, 100, cfg.ChunkOverlap)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, store.BackendMemory, cfg.Store.Backend)
	assert.Equal(t, []string{"md", "html"}, cfg.Export.Formats)
	assert.Equal(t, "out", cfg.Export.OutputDir)
	// 未覆盖的键保持默认
	assert.Equal(t, 3, cfg.MaxRetries)
	require.NoError(t, cfg.Validate())

	policy := cfg.RetryPolicy()
	assert.Equal(t, 3, policy.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, policy.Backoff(1))
	assert.Equal(t, time.Second, policy.Backoff(2))
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeFile(t, "cfg.yaml", "chunk_size: 800\n")
	t.Setenv("LEGALSIMPLIFY_CHUNK_SIZE", "1500")
	t.Setenv("LEGALSIMPLIFY_STORE_BACKEND", "memory")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 1500, cfg.ChunkSize)
	assert.Equal(t, store.BackendMemory, cfg.Store.Backend)
}

func TestLoadConfigResolvesAPIKey(t *testing.T) {
	path := writeFile(t, "cfg.yaml", "provider: gemini\n")
	t.Setenv("GOOGLE_API_KEY", "google-secret")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "google-secret", cfg.APIKey)

	path = writeFile(t, "cfg.yaml", "provider: compatible\napi_key_env: MY_LLM_KEY\n")
	t.Setenv("MY_LLM_KEY", "custom-secret")
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "custom-secret", cfg.APIKey)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }},
		{"overlap equals size", func(c *Config) { c.ChunkOverlap = c.ChunkSize }},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }},
		{"zero retries", func(c *Config) { c.MaxRetries = 0 }},
		{"negative backoff", func(c *Config) { c.RetryBackoff = -time.Second }},
		{"unknown backoff strategy", func(c *Config) { c.BackoffStrategy = "fibonacci" }},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }},
		{"unknown charset", func(c *Config) { c.Charset = "ebcdic" }},
		{"unknown export format", func(c *Config) { c.Export.Formats = []string{"pdf"} }},
		{"unknown pdf backend", func(c *Config) { c.Extract.PDFBackend = "ocr" }},
		{"unknown store", func(c *Config) { c.Store.Backend = "redis" }},
		{"s3 without bucket", func(c *Config) { c.Store.Backend = store.BackendS3 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), simplify.ErrInvalidParameter)
		})
	}
}

func TestDerivedConfigs(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Charset = "unicode"
	cfg.Resume = true
	cfg.Concurrency = 3

	pc, err := cfg.PipelineConfig()
	require.NoError(t, err)
	assert.Equal(t, simplify.CharsetUnicode, pc.Charset)
	assert.Equal(t, 1200, pc.ChunkSize)

	oc := cfg.OrchestratorConfig()
	assert.True(t, oc.Resume)
	assert.Equal(t, 3, oc.Concurrency)

	settings := cfg.ProviderSettings("sys")
	assert.Equal(t, "gemini", settings.Provider)
	assert.Equal(t, "sys", settings.SystemPrompt)
	assert.Equal(t, cfg.RequestTimeout, settings.Timeout)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.ChunkSize = 900
	cfg.APIKey = "do-not-persist"
	cfg.Export.Formats = []string{"docx"}

	path, err := SaveConfig(cfg, filepath.Join(t.TempDir(), "nested", "cfg.yaml"))
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "do-not-persist")

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 900, loaded.ChunkSize)
	assert.Equal(t, []string{"docx"}, loaded.Export.Formats)
}

func TestLoadPromptFile(t *testing.T) {
	path := writeFile(t, "prompt.toml", `
system = "You explain leases to tenants."
template = """Chunk {{.Index}} of {{.Total}}:
{{.Text}}"""

[terms]
lessee = "the tenant"
indemnify = "cover someone else's losses"
`)
	p, err := LoadPromptFile(path)
	require.NoError(t, err)

	assert.Equal(t, "You explain leases to tenants.\n\nWhen these terms appear, explain them as follows:\n- indemnify: cover someone else's losses\n- lessee: the tenant",
		p.SystemPrompt())

	b, err := p.Builder()
	require.NoError(t, err)
	prompt, err := b.Build(simplify.Chunk{Index: 2, Text: "The lessee shall pay."}, 5)
	require.NoError(t, err)
	assert.Equal(t, "Chunk 2 of 5:\nThe lessee shall pay.", prompt)
}

func TestLoadPromptFileErrors(t *testing.T) {
	_, err := LoadPromptFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, simplify.ErrInvalidParameter)

	path := writeFile(t, "bad.toml", `template = "no placeholder here"`)
	_, err = LoadPromptFile(path)
	assert.ErrorIs(t, err, simplify.ErrInvalidParameter)

	var nilPrompt *PromptFile
	assert.Equal(t, simplify.DefaultSystemPrompt, nilPrompt.SystemPrompt())
}
