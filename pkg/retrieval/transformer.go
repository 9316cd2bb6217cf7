package retrieval

import (
	"context"
	"fmt"
	"strings"
)

// LLM 定义查询扩展依赖的补全接口
type LLM interface {
	// Generate 根据提示词生成响应文本
	Generate(ctx context.Context, prompt string) (string, error)
}

// QueryTransformer 查询变换器接口
//
// 将原始查询转换为一个或多个检索查询。
type QueryTransformer interface {
	// Transform 变换查询
	Transform(ctx context.Context, query string) ([]TransformedQuery, error)
}

// TransformedQuery 变换后的查询
type TransformedQuery struct {
	// Query 变换后的查询文本
	Query string
	// Weight 融合时的权重，默认 1.0
	Weight float64
	// Source 来源标记（original / expanded / fallback）
	Source string
}

// multiQueryPrompt 多查询扩展提示词模板
const multiQueryPrompt = `You are an AI language model assistant. Your task is to generate %d different versions of the given user question to retrieve relevant documents from a vector database. By generating multiple perspectives on the user question, your goal is to help the user overcome some of the limitations of distance-based similarity search.

Original question: %s

Provide these alternative questions, one per line, without numbering:`

// MultiQueryTransformer 多查询扩展变换器
//
// 让 LLM 把原始查询改写成 N 个语义相关的变体，每个变体
// 独立检索后按 ID 去重融合。LLM 失败或输出无法解析时
// 可恢复地降级为只用原始查询，不会让检索失败。
type MultiQueryTransformer struct {
	llm             LLM
	numQueries      int
	includeOriginal bool
	prompt          string
}

// MultiQueryOption 多查询扩展选项函数
type MultiQueryOption func(*MultiQueryTransformer)

// WithNumQueries 设置扩展查询数量
func WithNumQueries(n int) MultiQueryOption {
	return func(t *MultiQueryTransformer) {
		t.numQueries = n
	}
}

// WithIncludeOriginal 设置是否包含原始查询
func WithIncludeOriginal(include bool) MultiQueryOption {
	return func(t *MultiQueryTransformer) {
		t.includeOriginal = include
	}
}

// WithExpansionPrompt 设置自定义提示模板
//
// 模板需要两个占位符：%d（扩展数量）和 %s（原始查询）。
func WithExpansionPrompt(prompt string) MultiQueryOption {
	return func(t *MultiQueryTransformer) {
		t.prompt = prompt
	}
}

// NewMultiQueryTransformer 创建多查询扩展变换器
func NewMultiQueryTransformer(llm LLM, opts ...MultiQueryOption) *MultiQueryTransformer {
	t := &MultiQueryTransformer{
		llm:             llm,
		numQueries:      3,
		includeOriginal: true,
		prompt:          multiQueryPrompt,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Transform 执行多查询扩展
func (t *MultiQueryTransformer) Transform(ctx context.Context, query string) ([]TransformedQuery, error) {
	var results []TransformedQuery

	if t.includeOriginal {
		results = append(results, TransformedQuery{
			Query:  query,
			Weight: 1.0,
			Source: "original",
		})
	}

	prompt := fmt.Sprintf(t.prompt, t.numQueries, query)

	response, err := t.llm.Generate(ctx, prompt)
	if err != nil {
		// LLM 失败时降级：有原始查询就用原始查询
		if len(results) > 0 {
			return results, nil
		}
		return []TransformedQuery{{Query: query, Weight: 1.0, Source: "fallback"}}, nil
	}

	limit := t.numQueries
	if t.includeOriginal {
		limit++
	}

	for _, line := range strings.Split(response, "\n") {
		line = stripNumberPrefix(strings.TrimSpace(line))
		if line == "" || line == query {
			continue
		}
		results = append(results, TransformedQuery{
			Query:  line,
			Weight: 1.0,
			Source: "expanded",
		})
		if len(results) >= limit {
			break
		}
	}

	// 输出完全无法解析时同样降级
	if len(results) == 0 {
		return []TransformedQuery{{Query: query, Weight: 1.0, Source: "fallback"}}, nil
	}

	return results, nil
}

// stripNumberPrefix 移除 "1." "2)" "3:" 一类的编号前缀
func stripNumberPrefix(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i < len(s) && (s[i] == '.' || s[i] == ')' || s[i] == ':') {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}

// 编译时接口检查
var _ QueryTransformer = (*MultiQueryTransformer)(nil)
