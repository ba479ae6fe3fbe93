// Package store 持久化分块原文与简化结果
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/nerdneilsfield/legal-simplifier/pkg/simplify"
)

// 存储后端
const (
	BackendFS     = "fs"
	BackendS3     = "s3"
	BackendMemory = "memory"
)

// 默认目录
const (
	DefaultChunksDir  = "chunks"
	DefaultResultsDir = "summaries"
)

// ChunkName 分块原文文件名
func ChunkName(index int) string {
	return fmt.Sprintf("chunk_%d.txt", index)
}

// ResultName 简化结果文件名
func ResultName(index int) string {
	return fmt.Sprintf("simplified_%d.txt", index)
}

// Config 存储配置
type Config struct {
	Backend    string   `mapstructure:"backend"`
	ChunksDir  string   `mapstructure:"chunks_dir"`
	ResultsDir string   `mapstructure:"results_dir"`
	S3         S3Config `mapstructure:"s3"`
}

// New 按配置创建存储
func New(ctx context.Context, cfg Config) (simplify.ChunkStore, error) {
	chunksDir := cfg.ChunksDir
	if chunksDir == "" {
		chunksDir = DefaultChunksDir
	}
	resultsDir := cfg.ResultsDir
	if resultsDir == "" {
		resultsDir = DefaultResultsDir
	}

	switch strings.ToLower(cfg.Backend) {
	case "", BackendFS:
		s, err := NewFS(chunksDir, resultsDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendMemory:
		return NewMemory(), nil
	case BackendS3:
		s, err := NewS3(ctx, cfg.S3, chunksDir, resultsDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, simplify.InvalidParameterError("unknown store backend %q", cfg.Backend)
	}
}
