package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options 日志选项
type Options struct {
	// Level 显式日志级别（debug/info/warn/error），为空时由 Debug/Verbose 决定
	Level string
	Debug bool
	// Verbose 为 false 时控制台只输出警告及以上，避免干扰进度条
	Verbose bool
	// File 额外写入的 JSON 日志文件，始终记录 debug 级别
	File string
}

// NewLogger 创建一个新的日志记录器
func NewLogger(debug bool) *zap.Logger {
	return NewLoggerWithVerbose(debug, true)
}

// NewLoggerWithVerbose 创建日志记录器，verbose 控制控制台输出的详细程度
func NewLoggerWithVerbose(debug, verbose bool) *zap.Logger {
	logger, err := New(Options{Debug: debug, Verbose: verbose})
	if err != nil {
		panic("初始化日志系统失败: " + err.Error())
	}
	return logger
}

// New 按选项创建日志记录器
func New(opts Options) (*zap.Logger, error) {
	level, err := consoleLevel(opts)
	if err != nil {
		return nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	consoleConfig := encoderConfig
	consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.Lock(os.Stderr), level),
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(f), zap.DebugLevel))
	}

	return zap.New(zapcore.NewTee(cores...)), nil
}

func consoleLevel(opts Options) (zap.AtomicLevel, error) {
	if opts.Level != "" {
		lvl, err := zap.ParseAtomicLevel(strings.ToLower(opts.Level))
		if err != nil {
			return zap.AtomicLevel{}, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		// 命令行 --debug 优先于配置文件
		if opts.Debug {
			lvl.SetLevel(zap.DebugLevel)
		}
		return lvl, nil
	}
	switch {
	case opts.Debug:
		return zap.NewAtomicLevelAt(zap.DebugLevel), nil
	case opts.Verbose:
		return zap.NewAtomicLevelAt(zap.InfoLevel), nil
	default:
		return zap.NewAtomicLevelAt(zap.WarnLevel), nil
	}
}
