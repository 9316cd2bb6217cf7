package selection

import (
	"fmt"

	"github.com/easyops/contextpipe-go/pkg/core/errors"
	"github.com/easyops/contextpipe-go/pkg/otel"
)

// ThresholdDisabled 哨兵阈值，表示只排序不过滤
//
// NGramOverlap 策略在阈值等于该值时返回全部候选项的排序结果，
// 任何候选项都不会被排除。
const ThresholdDisabled = -1.0

// Option 选择配置选项函数
type Option func(*Config)

// Config 选择配置
//
// 每个策略只认一个预算字段：LengthBudget 使用 MaxLength，
// 其余策略使用 K。仅使用阈值的策略允许两个预算字段都不设置。
type Config struct {
	// K 最大选择数量
	K int
	// MaxLength 字符/Token 预算
	MaxLength int
	// Threshold 相似度/重叠度下限
	Threshold float64
	// Lambda MMR 相关性与多样性的权衡系数，取值 [0, 1]
	Lambda float64
	// Counter 长度度量器（LengthBudget 使用）
	Counter TokenCounter
	// Tracer 追踪器
	Tracer otel.Tracer
	// Metrics 指标
	Metrics otel.Metrics
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Threshold: ThresholdDisabled,
		Lambda:    0.5,
		Counter:   NewRuneCounter(),
		Tracer:    otel.NewNoopTracer(),
		Metrics:   otel.NewNoopMetrics(),
	}
}

// WithK 设置最大选择数量
func WithK(k int) Option {
	return func(c *Config) {
		c.K = k
	}
}

// WithMaxLength 设置长度预算
func WithMaxLength(n int) Option {
	return func(c *Config) {
		c.MaxLength = n
	}
}

// WithThreshold 设置阈值
func WithThreshold(t float64) Option {
	return func(c *Config) {
		c.Threshold = t
	}
}

// WithLambda 设置 MMR 权衡系数
func WithLambda(lambda float64) Option {
	return func(c *Config) {
		c.Lambda = lambda
	}
}

// WithTokenCounter 设置长度度量器
func WithTokenCounter(counter TokenCounter) Option {
	return func(c *Config) {
		c.Counter = counter
	}
}

// WithTracer 设置追踪器
func WithTracer(tracer otel.Tracer) Option {
	return func(c *Config) {
		c.Tracer = tracer
	}
}

// WithMetrics 设置指标
func WithMetrics(metrics otel.Metrics) Option {
	return func(c *Config) {
		c.Metrics = metrics
	}
}

// Validate 校验配置对指定策略是否有效
//
// 配置错误是致命的，在任何选择工作开始之前返回。
func (c *Config) Validate(kind Kind) error {
	switch kind {
	case KindLengthBudget:
		if c.MaxLength <= 0 {
			return fmt.Errorf("%w: length budget requires maxLength > 0, got %d",
				errors.ErrInvalidConfig, c.MaxLength)
		}
	case KindNGramOverlap:
		if c.Threshold != ThresholdDisabled && c.Threshold < 0 {
			return fmt.Errorf("%w: ngram threshold must be >= 0 or the disabled sentinel, got %v",
				errors.ErrInvalidConfig, c.Threshold)
		}
	case KindEmbeddingSimilarity:
		if c.K <= 0 {
			return fmt.Errorf("%w: embedding similarity requires k > 0, got %d",
				errors.ErrInvalidConfig, c.K)
		}
	case KindMMR:
		if c.K <= 0 {
			return fmt.Errorf("%w: mmr requires k > 0, got %d",
				errors.ErrInvalidConfig, c.K)
		}
		if c.Lambda < 0 || c.Lambda > 1 {
			return fmt.Errorf("%w: mmr lambda must be in [0, 1], got %v",
				errors.ErrInvalidConfig, c.Lambda)
		}
	default:
		return fmt.Errorf("%w: unknown strategy kind %q", errors.ErrInvalidConfig, kind)
	}

	return nil
}
