package store

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/nerdneilsfield/legal-simplifier/pkg/simplify"
)

// FS 本地目录存储，写入使用同目录临时文件加 rename
type FS struct {
	chunksDir  string
	resultsDir string
	permFile   os.FileMode
	permDir    os.FileMode
}

var _ simplify.ChunkStore = (*FS)(nil)

// NewFS 创建目录存储并确保目录存在
func NewFS(chunksDir, resultsDir string) (*FS, error) {
	if strings.TrimSpace(chunksDir) == "" || strings.TrimSpace(resultsDir) == "" {
		return nil, simplify.InvalidParameterError("store directories must not be empty")
	}
	s := &FS{
		chunksDir:  chunksDir,
		resultsDir: resultsDir,
		permFile:   0o644,
		permDir:    0o755,
	}
	for _, dir := range []string{chunksDir, resultsDir} {
		if err := os.MkdirAll(dir, s.permDir); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ChunkPath 分块原文路径
func (s *FS) ChunkPath(index int) string {
	return filepath.Join(s.chunksDir, ChunkName(index))
}

// ResultPath 简化结果路径
func (s *FS) ResultPath(index int) string {
	return filepath.Join(s.resultsDir, ResultName(index))
}

// SaveChunk 保存分块原文
func (s *FS) SaveChunk(ctx context.Context, index int, text string) error {
	return s.writeAtomic(ctx, s.ChunkPath(index), text)
}

// SaveResult 保存简化结果
func (s *FS) SaveResult(ctx context.Context, index int, text string) error {
	return s.writeAtomic(ctx, s.ResultPath(index), text)
}

// LoadResult 读取简化结果
func (s *FS) LoadResult(ctx context.Context, index int) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	b, err := os.ReadFile(s.ResultPath(index))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(b), true, nil
}

func (s *FS) writeAtomic(ctx context.Context, dest, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, s.permDir); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, s.permFile)

	bw := bufio.NewWriter(tmp)
	if _, err := bw.WriteString(text); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
