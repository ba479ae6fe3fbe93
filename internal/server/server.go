// Package server 通过 HTTP 暴露简化流水线
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nerdneilsfield/legal-simplifier/internal/extract"
	"github.com/nerdneilsfield/legal-simplifier/pkg/simplify"
	"go.uber.org/zap"
)

// 默认值
const (
	DefaultMaxUploadBytes = 32 << 20
	uploadField           = "file"
)

// Runner 执行一次完整的简化流程
type Runner interface {
	Run(ctx context.Context, path string) (*simplify.RunResult, error)
}

// RunnerFactory 为每个请求创建独立的 Runner，保证请求之间不共享存储
type RunnerFactory func(ctx context.Context) (Runner, error)

// Config 服务配置
type Config struct {
	Addr           string
	MaxUploadBytes int64
}

// Server HTTP 服务
type Server struct {
	config  Config
	runners RunnerFactory
	logger  *zap.Logger
	mux     *http.ServeMux
}

// ChunkFailure 失败分块的描述
type ChunkFailure struct {
	Chunk    int    `json:"chunk"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error"`
}

// SimplifyResponse POST /v1/simplify 的响应
type SimplifyResponse struct {
	RunID       string         `json:"run_id"`
	Source      string         `json:"source"`
	Chunks      int            `json:"chunks"`
	Succeeded   int            `json:"succeeded"`
	Failed      int            `json:"failed"`
	Failures    []ChunkFailure `json:"failures,omitempty"`
	FinalReport string         `json:"final_report"`
	DurationMS  int64          `json:"duration_ms"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// New 创建服务
func New(config Config, runners RunnerFactory, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = DefaultMaxUploadBytes
	}
	s := &Server{
		config:  config,
		runners: runners,
		logger:  logger,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("POST /v1/simplify", s.handleSimplify)
	return s
}

// Handler 返回 HTTP 处理器
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe 启动服务，ctx 取消后优雅关闭
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", s.config.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.logger.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSimplify(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid multipart upload: %v", err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("missing %q file field", uploadField))
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !extract.IsSupported(name) {
		writeError(w, http.StatusUnsupportedMediaType, "unsupported_format",
			fmt.Sprintf("unsupported file format %q (supported: %s)", filepath.Ext(name), strings.Join(extract.SupportedExtensions, ", ")))
		return
	}

	path, cleanup, err := saveUpload(file, name)
	if err != nil {
		s.logger.Error("cannot store upload", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "cannot store upload")
		return
	}
	defer cleanup()

	runner, err := s.runners(r.Context())
	if err != nil {
		s.logger.Error("cannot build pipeline", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	result, err := runner.Run(r.Context(), path)
	if err != nil {
		status, code := statusFor(err)
		s.logger.Warn("simplify request failed", zap.String("file", name), zap.Error(err))
		writeError(w, status, code, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, newSimplifyResponse(name, result))
}

// saveUpload 把上传内容写入临时文件，保留扩展名以便按格式分派
func saveUpload(src io.Reader, name string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "legalsimplify-upload-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	path := filepath.Join(dir, name)
	dst, err := os.Create(path)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		cleanup()
		return "", nil, err
	}
	if err := dst.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}

func newSimplifyResponse(source string, result *simplify.RunResult) SimplifyResponse {
	resp := SimplifyResponse{
		RunID:       result.RunID,
		Source:      source,
		Chunks:      len(result.Chunks),
		FinalReport: result.Final.String(),
		DurationMS:  result.Duration.Milliseconds(),
	}
	if result.Report != nil {
		resp.Succeeded = result.Report.Succeeded
		resp.Failed = result.Report.Failed
		for _, f := range result.Report.Failures() {
			resp.Failures = append(resp.Failures, ChunkFailure{
				Chunk:    f.Index,
				Attempts: f.Attempts,
				Error:    f.ErrorMessage(),
			})
		}
	}
	return resp
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, simplify.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, "unsupported_format"
	case errors.Is(err, simplify.ErrExtraction):
		return http.StatusUnprocessableEntity, "extraction_failed"
	case errors.Is(err, simplify.ErrInvalidParameter):
		return http.StatusBadRequest, "invalid_parameter"
	case simplify.IsCanceled(err):
		return http.StatusServiceUnavailable, "canceled"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}
