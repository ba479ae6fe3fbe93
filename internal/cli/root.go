package cli

import (
	"fmt"

	"github.com/nerdneilsfield/legal-simplifier/internal/config"
	"github.com/spf13/cobra"
)

// rootOptions 命令行标志
type rootOptions struct {
	cfgFile string
	debug   bool
	verbose bool

	provider     string
	model        string
	baseURL      string
	chunkSize    int
	chunkOverlap int
	concurrency  int
	maxRetries   int
	charset      string
	resume       bool
	formats      []string
	outputDir    string
	storeBackend string
	promptFile   string
	pdfBackend   string

	dryRun        bool
	listProviders bool
	showConfig    bool
	noStats       bool
}

// apply 用显式设置的命令行标志覆盖配置
func (o *rootOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("debug") {
		cfg.Debug = o.debug
	}
	if flags.Changed("verbose") {
		cfg.Verbose = o.verbose
	}
	if flags.Changed("provider") {
		cfg.Provider = o.provider
		// 换了提供商后原模型和密钥大概率不可用
		if !flags.Changed("model") {
			cfg.ModelID = ""
		}
		if cfg.APIKeyEnv == "" {
			cfg.APIKey = ""
			if env := config.DefaultAPIKeyEnv(o.provider); env != "" {
				cfg.APIKey = lookupEnv(env)
			}
		}
	}
	if flags.Changed("model") {
		cfg.ModelID = o.model
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = o.baseURL
	}
	if flags.Changed("chunk-size") {
		cfg.ChunkSize = o.chunkSize
	}
	if flags.Changed("chunk-overlap") {
		cfg.ChunkOverlap = o.chunkOverlap
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = o.concurrency
	}
	if flags.Changed("max-retries") {
		cfg.MaxRetries = o.maxRetries
	}
	if flags.Changed("charset") {
		cfg.Charset = o.charset
	}
	if flags.Changed("resume") {
		cfg.Resume = o.resume
	}
	if flags.Changed("format") {
		cfg.Export.Formats = o.formats
	}
	if flags.Changed("output-dir") {
		cfg.Export.OutputDir = o.outputDir
	}
	if flags.Changed("store") {
		cfg.Store.Backend = o.storeBackend
	}
	if flags.Changed("prompt-file") {
		cfg.PromptFile = o.promptFile
	}
	if flags.Changed("pdf-backend") {
		cfg.Extract.PDFBackend = o.pdfBackend
	}
}

// NewRootCommand 创建根命令
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "legalsimplify [flags] input_file",
		Short: "Turn long legal documents into plain-English summaries",
		Long: `legalsimplify extracts the text of a PDF or DOCX legal document, splits it into
overlapping chunks, asks a language model to simplify each chunk, and merges
the results into a single report (obligations, rights, risks, penalties and
critical dates in plain English).

Supported providers:
  - gemini: Google Gemini (default, GOOGLE_API_KEY)
  - openai: OpenAI chat models (OPENAI_API_KEY)
  - compatible: any OpenAI-compatible server (--base-url)
  - ollama: local Ollama server
  - raw: no model, echoes prompts (for inspection)`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.listProviders || opts.showConfig {
				return nil
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.listProviders {
				printProviders(cmd.OutOrStdout())
				return nil
			}

			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()

			if opts.showConfig {
				printConfig(a.out, a.cfg)
				return nil
			}
			if opts.dryRun {
				return runDryRun(cmd.Context(), a, args[0])
			}
			return runSimplify(cmd.Context(), a, args[0], !opts.noStats)
		},
	}

	addGlobalFlags(rootCmd, opts)

	rootCmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Extract and chunk only; print the chunk plan and a text preview")
	rootCmd.Flags().BoolVar(&opts.listProviders, "list-providers", false, "List supported providers")
	rootCmd.Flags().BoolVar(&opts.showConfig, "show-config", false, "Show the effective configuration")
	rootCmd.Flags().BoolVar(&opts.noStats, "no-stats", false, "Do not record this run in the history database")

	rootCmd.AddCommand(newSearchCommand(opts))
	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newStatsCommand(opts))
	rootCmd.AddCommand(newInitConfigCommand())

	return rootCmd
}

func addGlobalFlags(rootCmd *cobra.Command, opts *rootOptions) {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.cfgFile, "config", "", "Config file (default ~/.legalsimplify.yaml or ./.legalsimplify.yaml)")
	pf.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Show info-level logs and the document preview")

	pf.StringVarP(&opts.provider, "provider", "p", "", "Generation provider (gemini, openai, compatible, ollama, raw)")
	pf.StringVarP(&opts.model, "model", "m", "", "Model identifier")
	pf.StringVar(&opts.baseURL, "base-url", "", "Provider endpoint override")
	pf.IntVar(&opts.chunkSize, "chunk-size", 0, "Chunk size in characters (default 1200)")
	pf.IntVar(&opts.chunkOverlap, "chunk-overlap", 0, "Overlap between chunks in characters (default 200)")
	pf.IntVarP(&opts.concurrency, "concurrency", "c", 0, "Chunks processed in parallel (default 1)")
	pf.IntVar(&opts.maxRetries, "max-retries", 0, "Attempts per chunk including the first (default 3)")
	pf.StringVar(&opts.charset, "charset", "", "Characters kept by normalization (ascii, latin1, unicode)")
	pf.BoolVar(&opts.resume, "resume", false, "Reuse summaries already in the store")
	pf.StringSliceVarP(&opts.formats, "format", "f", nil, "Export formats (txt, md, html, docx)")
	pf.StringVarP(&opts.outputDir, "output-dir", "o", "", "Directory for the final report")
	pf.StringVar(&opts.storeBackend, "store", "", "Chunk store backend (fs, s3, memory)")
	pf.StringVar(&opts.promptFile, "prompt-file", "", "TOML file overriding the system prompt and template")
	pf.StringVar(&opts.pdfBackend, "pdf-backend", "", "PDF text extractor (tabula, ledongthuc)")
}
