package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/nerdneilsfield/legal-simplifier/pkg/simplify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runnerFunc func(ctx context.Context, path string) (*simplify.RunResult, error)

func (f runnerFunc) Run(ctx context.Context, path string) (*simplify.RunResult, error) {
	return f(ctx, path)
}

func factoryFor(r Runner) RunnerFactory {
	return func(context.Context) (Runner, error) { return r, nil }
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/simplify", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	srv := New(Config{}, factoryFor(nil), nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSimplify(t *testing.T) {
	var seenPath string
	var seenContent []byte
	runner := runnerFunc(func(_ context.Context, path string) (*simplify.RunResult, error) {
		seenPath = path
		var err error
		seenContent, err = os.ReadFile(path)
		require.NoError(t, err)

		report := simplify.NewBatchReport([]simplify.ChunkResult{
			simplify.Success(1, "OK:1", 1),
			simplify.Failure(2, simplify.GenerationError(2, errors.New("503")), 3),
		})
		return &simplify.RunResult{
			RunID:  "run-42",
			Chunks: []simplify.Chunk{{Index: 1}, {Index: 2}},
			Report: report,
			Final:  simplify.Merge(report),
		}, nil
	})

	srv := New(Config{}, factoryFor(runner), nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, "lease.pdf", []byte("%PDF-1.4 fake")))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp SimplifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "run-42", resp.RunID)
	assert.Equal(t, "lease.pdf", resp.Source)
	assert.Equal(t, 2, resp.Chunks)
	assert.Equal(t, 1, resp.Succeeded)
	assert.Equal(t, 1, resp.Failed)
	require.Len(t, resp.Failures, 1)
	assert.Equal(t, 2, resp.Failures[0].Chunk)
	assert.Equal(t, 3, resp.Failures[0].Attempts)
	assert.Equal(t, "### Summary of Chunk 1\nOK:1\n", resp.FinalReport)

	assert.Equal(t, ".pdf", filepath.Ext(seenPath))
	assert.Equal(t, "%PDF-1.4 fake", string(seenContent))
	// 临时文件在请求结束后删除
	_, err := os.Stat(seenPath)
	assert.True(t, os.IsNotExist(err))
}

func TestSimplifyRejectsBadUploads(t *testing.T) {
	srv := New(Config{}, factoryFor(runnerFunc(func(context.Context, string) (*simplify.RunResult, error) {
		t.Fatal("runner must not be called")
		return nil, nil
	})), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, "notes.txt", []byte("hello")))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported_format")

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/simplify", bytes.NewBufferString("plain"))
	req.Header.Set("Content-Type", "text/plain")
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/simplify", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSimplifyMapsErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{simplify.ExtractionError("x.pdf", errors.New("corrupt")), http.StatusUnprocessableEntity},
		{simplify.UnsupportedFormatError("x.pdf", ".pdf"), http.StatusUnsupportedMediaType},
		{simplify.InvalidParameterError("bad"), http.StatusBadRequest},
		{context.Canceled, http.StatusServiceUnavailable},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		err := tt.err
		srv := New(Config{}, factoryFor(runnerFunc(func(context.Context, string) (*simplify.RunResult, error) {
			return nil, err
		})), nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, uploadRequest(t, "contract.docx", []byte("PK")))
		assert.Equal(t, tt.status, rec.Code, err.Error())
	}
}

func TestSimplifyTooLarge(t *testing.T) {
	srv := New(Config{MaxUploadBytes: 64}, factoryFor(nil), nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, "big.pdf", bytes.Repeat([]byte("a"), 1024)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
