// Package errors 定义库的通用错误类型
package errors

import (
	"errors"
	"fmt"
)

// 配置相关错误（致命，在任何工作开始前抛出）
var (
	// ErrInvalidConfig 选择策略配置无效
	ErrInvalidConfig = errors.New("invalid selection configuration")
	// ErrInvalidPipelineConfig 压缩管道配置无效
	ErrInvalidPipelineConfig = errors.New("invalid pipeline configuration")
	// ErrContextCanceled 上下文被取消
	ErrContextCanceled = errors.New("context canceled")
)

// 候选池相关错误
var (
	// ErrEmptyPool 候选池为空（建议性错误，调用方可以继续构建零上下文提示）
	ErrEmptyPool = errors.New("candidate pool is empty")
	// ErrDuplicateCandidate 候选项 ID 重复
	ErrDuplicateCandidate = errors.New("duplicate candidate id")
)

// 外部协作方相关错误
var (
	// ErrEmbeddingFailed 嵌入调用失败
	ErrEmbeddingFailed = errors.New("embedding failed")
	// ErrLLMFailed LLM 调用失败
	ErrLLMFailed = errors.New("llm request failed")
	// ErrRateLimited 请求被限速
	ErrRateLimited = errors.New("rate limited")
	// ErrTimeout 请求超时
	ErrTimeout = errors.New("request timeout")
	// ErrInvalidAPIKey API 密钥无效
	ErrInvalidAPIKey = errors.New("invalid API key")
	// ErrProviderUnavailable 提供商不可用
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrInvalidResponse 响应无法解析（可恢复的解析失败，而非崩溃）
	ErrInvalidResponse = errors.New("invalid response")
)

// WrapError 包装错误并添加上下文信息
func WrapError(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// IsRetryable 判断错误是否可重试
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrProviderUnavailable)
}

// IsFatal 判断错误是否为致命错误（不可恢复）
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrInvalidAPIKey) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrInvalidPipelineConfig)
}

// IsAdvisory 判断错误是否为建议性错误
//
// 建议性错误表示操作已降级完成，调用方可以选择忽略并继续。
func IsAdvisory(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrEmptyPool)
}
