package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/nerdneilsfield/legal-simplifier/internal/stats"
	pstats "github.com/nerdneilsfield/legal-simplifier/pkg/providers/stats"
	"github.com/spf13/cobra"
)

func newStatsCommand(opts *rootOptions) *cobra.Command {
	var (
		recent     int
		providers  bool
		formats    bool
		exportPath string
		reset      bool
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show run history and provider statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()

			if a.cfg.StatsDB == "" {
				return fmt.Errorf("stats_db is not configured")
			}
			db, err := stats.NewDatabase(a.cfg.StatsDB, a.log)
			if err != nil {
				return fmt.Errorf("failed to open run history: %w", err)
			}

			if reset {
				if !yes && !confirm(cmd, "Reset all statistics? [y/N]: ") {
					fmt.Fprintln(a.out, "Aborted.")
					return nil
				}
				if err := db.Reset(); err != nil {
					return err
				}
				color.New(color.FgGreen).Fprintln(a.out, "✅ Statistics reset")
				return nil
			}

			if exportPath != "" {
				data, err := json.MarshalIndent(db.GetStats(), "", "  ")
				if err != nil {
					return err
				}
				if err := os.WriteFile(exportPath, data, 0o644); err != nil {
					return fmt.Errorf("failed to export statistics: %w", err)
				}
				fmt.Fprintf(a.out, "Statistics exported to %s\n", exportPath)
				return nil
			}

			v := stats.NewVisualizer(db, a.out)
			switch {
			case providers:
				v.ShowProviders()
				fmt.Fprintln(a.out)
				mgr := pstats.NewStatsManager(a.providerStatsPath(), a.log)
				if err := mgr.LoadFromDB(); err != nil {
					return err
				}
				mgr.RenderTable(a.out)
			case formats:
				v.ShowFormatStats()
			case cmd.Flags().Changed("recent"):
				v.ShowRecentRuns(recent)
			default:
				v.ShowOverview()
				fmt.Fprintln(a.out)
				v.ShowRecentRuns(recent)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&recent, "recent", 5, "Show the N most recent runs")
	cmd.Flags().BoolVar(&providers, "providers", false, "Show per-provider statistics")
	cmd.Flags().BoolVar(&formats, "formats", false, "Show per input format statistics")
	cmd.Flags().StringVar(&exportPath, "export", "", "Export the statistics database as JSON")
	cmd.Flags().BoolVar(&reset, "reset", false, "Delete all statistics")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
