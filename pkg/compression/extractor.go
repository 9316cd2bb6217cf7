package compression

import (
	"context"
	"fmt"
	"strings"

	"github.com/easyops/contextpipe-go/pkg/candidate"
	"github.com/easyops/contextpipe-go/pkg/core/parallel"
)

// noOutputMarker LLM 表示无相关内容的标记
const noOutputMarker = "NO_OUTPUT"

// extractPromptTemplate 抽取提示词模板
const extractPromptTemplate = `Given the following question and context, extract any part of the context *as is* that is relevant to answer the question. If none of the context is relevant, return %s.

Remember, *do not* edit the extracted parts of the context.

> Question: %s
> Context:
>>>
%s
>>>
Extracted relevant parts:`

// Extractor 抽取阶段
//
// 对每个幸存候选项调用外部 LLM，只抽取与查询相关的子段。
// 各候选项的抽取互相独立，通过有界工作池并发执行，全部
// 完成后按原始顺序汇总，完成顺序不影响输出顺序。
//
// 抽取结果为空的候选项被整个丢弃，绝不输出空文本的候选项。
// 单个候选项的 LLM 失败被捕获并记录告警后丢弃该项，
// 绝不中止整个管道；上下文取消则向调用方返回
// ErrContextCanceled。
type Extractor struct {
	llm     LLM
	workers int
}

// ExtractorOption 抽取阶段选项函数
type ExtractorOption func(*Extractor)

// WithExtractorWorkers 设置并发工作协程数
func WithExtractorWorkers(n int) ExtractorOption {
	return func(e *Extractor) {
		e.workers = n
	}
}

// NewExtractor 创建抽取阶段
func NewExtractor(llm LLM, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		llm:     llm,
		workers: 4,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Name 返回阶段名称
func (e *Extractor) Name() string {
	return "extractor"
}

// validate 校验阶段配置
func (e *Extractor) validate() error {
	if e.llm == nil {
		return invalidStageConfig("extractor requires an llm")
	}
	if e.workers <= 0 {
		return invalidStageConfig("extractor workers must be > 0, got %d", e.workers)
	}
	return nil
}

// Transform 抽取每个候选项中与查询相关的子段
func (e *Extractor) Transform(ctx context.Context, pool *candidate.Pool) (*candidate.Pool, error) {
	extracted := make([]string, len(pool.Items))
	failures := make([]error, len(pool.Items))

	err := parallel.Run(ctx, e.workers, len(pool.Items), func(i int) error {
		prompt := fmt.Sprintf(extractPromptTemplate, noOutputMarker, pool.Query, pool.Items[i].Text)

		output, err := e.llm.Generate(ctx, prompt)
		if err != nil {
			failures[i] = err
			return nil
		}

		extracted[i] = strings.TrimSpace(output)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 屏障之后按原始顺序汇总
	next := pool.WithItems(nil)
	kept := make([]candidate.Item, 0, len(pool.Items))

	for i, item := range pool.Items {
		if failures[i] != nil {
			next.AddWarning("candidate %s dropped: extraction failed: %v", item.ID, failures[i])
			continue
		}
		if extracted[i] == "" || extracted[i] == noOutputMarker {
			continue
		}

		result := item.Clone()
		result.Text = extracted[i]
		kept = append(kept, result)
	}

	next.Items = kept
	return next, nil
}

// 编译时接口检查
var _ Stage = (*Extractor)(nil)
