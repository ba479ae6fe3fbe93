package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nerdneilsfield/legal-simplifier/internal/export"
	"github.com/nerdneilsfield/legal-simplifier/pkg/simplify"
	"github.com/spf13/cobra"
)

func newSearchCommand(opts *rootOptions) *cobra.Command {
	var (
		fuzzy   bool
		regex   bool
		limit   int
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "search [report] <query>",
		Short: "Search a final report for a term such as \"penalty\"",
		Long: `Search a generated text report line by line. Without a report path the
default report in the configured output directory is searched.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()

			query := args[len(args)-1]
			path := defaultReportPath(a.cfg.Export)
			if len(args) == 2 {
				path = args[0]
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read report: %w", err)
			}

			result, err := simplify.Search(simplify.FinalReport(data), query,
				simplify.SearchOptions{Fuzzy: fuzzy, Regex: regex, Limit: limit})
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			printSearchResult(a, path, result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&fuzzy, "fuzzy", false, "Fuzzy matching (characters in order)")
	cmd.Flags().BoolVar(&regex, "regex", false, "Treat the query as a regular expression")
	cmd.Flags().IntVar(&limit, "limit", simplify.DefaultSearchLimit, "Maximum matches to show")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print matches as JSON")
	cmd.MarkFlagsMutuallyExclusive("fuzzy", "regex")
	return cmd
}

// defaultReportPath 文本格式报告的默认位置
func defaultReportPath(cfg export.Config) string {
	dir := cfg.OutputDir
	if dir == "" {
		dir = "."
	}
	base := cfg.Basename
	if base == "" {
		base = export.DefaultBasename
	}
	return filepath.Join(dir, base+"."+export.FormatText)
}

func printSearchResult(a *app, path string, result simplify.SearchResult) {
	if len(result.Matches) == 0 {
		color.New(color.FgYellow).Fprintf(a.out, "No matches for %q in %s\n", result.Query, path)
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(a.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Chunk", "Line", "Text"})
	for _, m := range result.Matches {
		chunk := "-"
		if m.Chunk > 0 {
			chunk = fmt.Sprint(m.Chunk)
		}
		t.AppendRow(table.Row{chunk, m.Line, chunkPreview(m.Text, 100)})
	}
	t.Render()

	if result.Total > len(result.Matches) {
		fmt.Fprintf(a.out, "Showing %d of %d matches (use --limit to see more)\n", len(result.Matches), result.Total)
	} else {
		fmt.Fprintf(a.out, "%d matches\n", result.Total)
	}
}
