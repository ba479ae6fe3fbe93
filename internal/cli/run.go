package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/nerdneilsfield/legal-simplifier/internal/progress"
	"github.com/nerdneilsfield/legal-simplifier/internal/stats"
	"github.com/nerdneilsfield/legal-simplifier/pkg/simplify"
	"go.uber.org/zap"
)

var lookupEnv = os.Getenv

// runSimplify 执行完整流程并打印汇总
func runSimplify(ctx context.Context, a *app, input string, recordStats bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	exporter, err := a.newExporter(input)
	if err != nil {
		return err
	}
	bar := progress.NewBar("Simplifying", a.errOut, progress.NewTracker(a.log))
	pipeline, err := a.newPipeline(ctx, a.cfg.Store, exporter, bar)
	if err != nil {
		return err
	}

	result, runErr := pipeline.Run(ctx, input)
	bar.Stop()

	if recordStats {
		recordRun(a, input, result, runErr)
	}
	if result == nil {
		return runErr
	}

	if a.cfg.Verbose {
		printPreview(a.out, result.Document)
	}
	printRunSummary(a.out, result)

	if runErr != nil {
		if simplify.IsCanceled(runErr) {
			color.New(color.FgYellow).Fprintln(a.out, "⚠️  Run interrupted; summaries already written are kept. Re-run with --resume to continue.")
		}
		return runErr
	}
	if len(result.Chunks) > 0 && result.Report.Succeeded == 0 {
		return fmt.Errorf("no chunk could be simplified (%d failed)", result.Report.Failed)
	}
	return nil
}

// recordRun 写入运行历史，失败只记录日志
func recordRun(a *app, input string, result *simplify.RunResult, runErr error) {
	if a.cfg.StatsDB == "" {
		return
	}
	db, err := stats.NewDatabase(a.cfg.StatsDB, a.log)
	if err != nil {
		a.log.Warn("failed to open run history", zap.Error(err))
		return
	}
	record := stats.NewRunRecord(input, a.cfg.Provider, a.cfg.ModelID, result, runErr)
	if err := db.AddRunRecord(record); err != nil {
		a.log.Warn("failed to record run", zap.Error(err))
	}
}

// printRunSummary 打印成功/失败计数、失败的分块和导出文件
func printRunSummary(w io.Writer, result *simplify.RunResult) {
	report := result.Report
	if report == nil {
		return
	}

	fmt.Fprintln(w)
	if report.Total() == 0 {
		color.New(color.FgYellow).Fprintln(w, "⚠️  The document contains no text after normalization; nothing to simplify.")
		return
	}

	resumed := 0
	for _, r := range report.Results {
		if r.Resumed {
			resumed++
		}
	}

	summary := fmt.Sprintf("%d/%d chunks simplified", report.Succeeded, report.Total())
	if resumed > 0 {
		summary += fmt.Sprintf(" (%d resumed)", resumed)
	}
	summary += fmt.Sprintf(" in %s", result.Duration.Round(time.Millisecond))
	if report.Complete() {
		color.New(color.FgGreen, color.Bold).Fprintf(w, "✅ %s\n", summary)
	} else {
		color.New(color.FgYellow, color.Bold).Fprintf(w, "⚠️  %s, %d failed\n", summary, report.Failed)
		errColor := color.New(color.FgRed)
		for _, f := range report.Failures() {
			errColor.Fprintf(w, "  ❌ chunk %d (%d attempts): %s\n", f.Index, f.Attempts, f.ErrorMessage())
		}
	}

	for _, path := range result.Artifacts {
		fmt.Fprintf(w, "📝 %s\n", path)
	}
}

// printPreview 打印原文开头
func printPreview(w io.Writer, doc simplify.Document) {
	preview := doc.Preview(simplify.PreviewLength)
	if strings.TrimSpace(preview) == "" {
		return
	}
	color.New(color.FgCyan, color.Bold).Fprintf(w, "📄 Preview of %s\n", doc.Source)
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintln(w, preview)
	if len([]rune(doc.Text)) > simplify.PreviewLength {
		fmt.Fprintln(w, "…")
	}
	fmt.Fprintln(w, strings.Repeat("-", 60))
}
