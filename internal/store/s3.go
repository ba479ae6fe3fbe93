package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/nerdneilsfield/legal-simplifier/pkg/simplify"
)

// S3Config S3 存储配置
type S3Config struct {
	// Bucket 桶名（必需）
	Bucket string `mapstructure:"bucket"`
	// Prefix 对象键前缀，例如按运行区分
	Prefix string `mapstructure:"prefix"`
	// Region 为空时使用默认凭证链中的区域
	Region string `mapstructure:"region"`
	// Endpoint S3 兼容服务地址（MinIO、R2），为空使用 AWS
	Endpoint string `mapstructure:"endpoint"`
	// UsePathStyle 大多数兼容服务需要路径风格寻址
	UsePathStyle bool `mapstructure:"use_path_style"`
}

// Validate 检查必需配置
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return simplify.InvalidParameterError("store.s3.bucket is required for the s3 backend")
	}
	return nil
}

// objectAPI S3 客户端中用到的部分
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 对象存储，键为 <prefix>/<dir>/<name>
type S3 struct {
	client     objectAPI
	bucket     string
	prefix     string
	chunksDir  string
	resultsDir string
}

var _ simplify.ChunkStore = (*S3)(nil)

// NewS3 使用 AWS 默认凭证链创建 S3 存储
func NewS3(ctx context.Context, cfg S3Config, chunksDir, resultsDir string) (*S3, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return newS3WithClient(s3.NewFromConfig(awsConfig, s3Opts...), cfg, chunksDir, resultsDir), nil
}

func newS3WithClient(client objectAPI, cfg S3Config, chunksDir, resultsDir string) *S3 {
	return &S3{
		client:     client,
		bucket:     cfg.Bucket,
		prefix:     strings.Trim(cfg.Prefix, "/"),
		chunksDir:  strings.Trim(chunksDir, "/"),
		resultsDir: strings.Trim(resultsDir, "/"),
	}
}

// ChunkKey 分块原文对象键
func (s *S3) ChunkKey(index int) string {
	return path.Join(s.prefix, s.chunksDir, ChunkName(index))
}

// ResultKey 简化结果对象键
func (s *S3) ResultKey(index int) string {
	return path.Join(s.prefix, s.resultsDir, ResultName(index))
}

// SaveChunk 保存分块原文
func (s *S3) SaveChunk(ctx context.Context, index int, text string) error {
	return s.put(ctx, s.ChunkKey(index), text)
}

// SaveResult 保存简化结果
func (s *S3) SaveResult(ctx context.Context, index int, text string) error {
	return s.put(ctx, s.ResultKey(index), text)
}

// LoadResult 读取简化结果，对象不存在时 ok 为 false
func (s *S3) LoadResult(ctx context.Context, index int) (string, bool, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.ResultKey(index)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get s3://%s/%s: %w", s.bucket, s.ResultKey(index), err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return "", false, err
	}
	return string(b), true, nil
}

func (s *S3) put(ctx context.Context, key, text string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(text),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}
