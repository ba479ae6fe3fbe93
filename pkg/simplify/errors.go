package simplify

import (
	"errors"
	"fmt"
)

// 预定义错误
var (
	// ErrInvalidParameter 分块参数或其他配置非法，在任何处理开始前失败
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrUnsupportedFormat 不支持的输入文件格式
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrExtraction 文本提取失败
	ErrExtraction = errors.New("extraction failed")

	// ErrGeneration 生成服务调用失败（超时、网络、鉴权、限流、空响应）
	ErrGeneration = errors.New("generation failed")

	// ErrPersistence 分块或结果写入存储失败
	ErrPersistence = errors.New("persistence failed")

	// ErrCanceled 批处理被取消，分块未开始处理
	ErrCanceled = errors.New("canceled")
)

// 错误代码常量
const (
	ErrCodeInvalidParameter  = "INVALID_PARAMETER"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	ErrCodeExtraction        = "EXTRACTION_ERROR"
	ErrCodeGeneration        = "GENERATION_ERROR"
	ErrCodePersistence       = "PERSISTENCE_ERROR"
	ErrCodeCanceled          = "CANCELED"
)

// Error 带错误代码的流水线错误
type Error struct {
	Code    string // 错误代码
	Message string // 错误消息
	Chunk   int    // 相关分块序号，0 表示与分块无关
	Kind    error  // 错误类别（上面的预定义错误之一）
	Cause   error  // 原因
}

// Error 实现 error 接口
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Chunk > 0 {
		msg = fmt.Sprintf("[%s] chunk %d: %s", e.Code, e.Chunk, e.Message)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap 返回原因错误
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 使 errors.Is 能够按错误类别匹配
func (e *Error) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

func newError(kind error, code string, chunk int, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Chunk:   chunk,
		Kind:    kind,
		Cause:   cause,
	}
}

// InvalidParameterError 创建参数错误
func InvalidParameterError(format string, args ...interface{}) *Error {
	return newError(ErrInvalidParameter, ErrCodeInvalidParameter, 0, fmt.Sprintf(format, args...), nil)
}

// UnsupportedFormatError 创建格式错误
func UnsupportedFormatError(path, ext string) *Error {
	return newError(ErrUnsupportedFormat, ErrCodeUnsupportedFormat, 0,
		fmt.Sprintf("%s: unsupported file format %q, use PDF or DOCX", path, ext), nil)
}

// ExtractionError 包装提取错误
func ExtractionError(path string, cause error) *Error {
	return newError(ErrExtraction, ErrCodeExtraction, 0, fmt.Sprintf("cannot extract text from %s", path), cause)
}

// GenerationError 包装生成服务错误
func GenerationError(chunk int, cause error) *Error {
	return newError(ErrGeneration, ErrCodeGeneration, chunk, "generation call failed", cause)
}

// PersistenceError 包装存储错误
func PersistenceError(chunk int, what string, cause error) *Error {
	return newError(ErrPersistence, ErrCodePersistence, chunk, "cannot persist "+what, cause)
}

// CanceledError 表示分块因取消而未处理
func CanceledError(chunk int, cause error) *Error {
	return newError(ErrCanceled, ErrCodeCanceled, chunk, "batch canceled before chunk started", cause)
}

// IsFatal 判断错误是否会终止整个运行
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvalidParameter) ||
		errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrExtraction)
}
