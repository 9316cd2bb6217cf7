// Package selection 实现候选项选择策略与选择器
//
// 给定一个查询和一个参考候选池，按可互换的策略返回应注入
// few-shot 提示词的子集及其顺序，并执行预算和阈值约束。
package selection

import (
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter 定义长度度量接口
//
// LengthBudget 策略通过它把字符预算或 Token 预算统一成
// 同一套贪心逻辑。
type TokenCounter interface {
	// Count 返回给定文本的度量长度
	Count(text string) int
}

// RuneCounter 按 Unicode 字符计数，提供字符预算
type RuneCounter struct{}

// NewRuneCounter 创建新的 RuneCounter
func NewRuneCounter() *RuneCounter {
	return &RuneCounter{}
}

// Count 返回文本的字符数
func (c *RuneCounter) Count(text string) int {
	return utf8.RuneCountInString(text)
}

// TiktokenCounter 使用 tiktoken 实现精确的 Token 计数
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
	model    string
}

// TiktokenOption 配置 TiktokenCounter
type TiktokenOption func(*TiktokenCounter)

// WithModel 设置 Token 编码使用的模型。
// 支持的模型：gpt-4、gpt-4o、gpt-3.5-turbo 等。
func WithModel(model string) TiktokenOption {
	return func(c *TiktokenCounter) {
		c.model = model
	}
}

// NewTiktokenCounter 创建新的 TiktokenCounter。
// 默认使用 cl100k_base 编码（GPT-4、GPT-4o 等使用）。
func NewTiktokenCounter(opts ...TiktokenOption) (*TiktokenCounter, error) {
	c := &TiktokenCounter{
		model: "gpt-4o",
	}

	for _, opt := range opts {
		opt(c)
	}

	// 尝试获取模型对应的编码
	encoding, err := tiktoken.EncodingForModel(c.model)
	if err != nil {
		// 降级到 cl100k_base 编码
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}

	c.encoding = encoding
	return c, nil
}

// Count 返回给定文本的 Token 数量
func (c *TiktokenCounter) Count(text string) int {
	if c.encoding == nil {
		return utf8.RuneCountInString(text) / 4
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// DefaultTokenCounter 返回默认的长度度量器（字符预算）
func DefaultTokenCounter() TokenCounter {
	return NewRuneCounter()
}

// 编译时接口检查
var _ TokenCounter = (*RuneCounter)(nil)
var _ TokenCounter = (*TiktokenCounter)(nil)
