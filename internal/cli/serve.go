package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerdneilsfield/legal-simplifier/internal/server"
	"github.com/nerdneilsfield/legal-simplifier/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var (
		addr        string
		maxUploadMB int64
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the simplification pipeline over HTTP",
		Long: `Start an HTTP server exposing:

  GET  /healthz       liveness probe
  POST /v1/simplify   multipart upload (field "file", .pdf or .docx); returns the
                      merged report and per-chunk failures as JSON

Each request uses its own in-memory chunk store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()

			if cmd.Flags().Changed("addr") {
				a.cfg.Serve.Addr = addr
			}
			if cmd.Flags().Changed("max-upload-mb") {
				a.cfg.Serve.MaxUploadMB = maxUploadMB
			}

			// 提供商在所有请求之间共享，先创建好
			if _, err := a.generationProvider(); err != nil {
				return err
			}

			runners := func(ctx context.Context) (server.Runner, error) {
				return a.newPipeline(ctx, store.Config{Backend: store.BackendMemory}, nil, nil)
			}
			srv := server.New(server.Config{
				Addr:           a.cfg.Serve.Addr,
				MaxUploadBytes: a.cfg.Serve.MaxUploadMB << 20,
			}, runners, a.log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a.log.Warn("server listening", zap.String("addr", a.cfg.Serve.Addr),
				zap.String("provider", a.cfg.Provider), zap.String("model", a.cfg.ModelID))
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().Int64Var(&maxUploadMB, "max-upload-mb", 32, "Maximum upload size in MiB")
	return cmd
}
