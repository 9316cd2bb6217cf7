package compression

import (
	"context"
	"fmt"
	"strings"

	"github.com/easyops/contextpipe-go/pkg/candidate"
	"github.com/easyops/contextpipe-go/pkg/core/parallel"
)

// filterPromptTemplate 相关性判定提示词模板
const filterPromptTemplate = `Given the following question and context, return YES if the context is relevant to the question and NO if it isn't.

> Question: %s
> Context:
>>>
%s
>>>
> Relevant (YES / NO):`

// LLMFilter LLM 相关性判定阶段
//
// 让外部 LLM 对每个候选项做与查询相关/无关的二元判定，
// 无关的候选项被移除，保留的候选项文本原封不动——这是它与
// Extractor（改写文本）和 RelevanceFilter（嵌入相似度阈值）
// 的区别。各候选项的判定互相独立，通过有界工作池并发执行。
//
// 判定输出无法解析成 YES/NO 时保守放行该候选项并记录告警；
// 单个候选项的 LLM 失败同样放行并告警，绝不中止管道。
type LLMFilter struct {
	llm     LLM
	workers int
}

// LLMFilterOption LLM 相关性判定阶段选项函数
type LLMFilterOption func(*LLMFilter)

// WithLLMFilterWorkers 设置并发工作协程数
func WithLLMFilterWorkers(n int) LLMFilterOption {
	return func(f *LLMFilter) {
		f.workers = n
	}
}

// NewLLMFilter 创建 LLM 相关性判定阶段
func NewLLMFilter(llm LLM, opts ...LLMFilterOption) *LLMFilter {
	f := &LLMFilter{
		llm:     llm,
		workers: 4,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Name 返回阶段名称
func (f *LLMFilter) Name() string {
	return "llm_filter"
}

// validate 校验阶段配置
func (f *LLMFilter) validate() error {
	if f.llm == nil {
		return invalidStageConfig("llm filter requires an llm")
	}
	if f.workers <= 0 {
		return invalidStageConfig("llm filter workers must be > 0, got %d", f.workers)
	}
	return nil
}

// filterVerdict 单个候选项的判定结果
type filterVerdict int

const (
	verdictKeep filterVerdict = iota
	verdictDrop
	verdictUnparsable
	verdictFailed
)

// Transform 移除 LLM 判定为无关的候选项
func (f *LLMFilter) Transform(ctx context.Context, pool *candidate.Pool) (*candidate.Pool, error) {
	verdicts := make([]filterVerdict, len(pool.Items))
	outputs := make([]string, len(pool.Items))
	failures := make([]error, len(pool.Items))

	err := parallel.Run(ctx, f.workers, len(pool.Items), func(i int) error {
		prompt := fmt.Sprintf(filterPromptTemplate, pool.Query, pool.Items[i].Text)

		output, err := f.llm.Generate(ctx, prompt)
		if err != nil {
			verdicts[i] = verdictFailed
			failures[i] = err
			return nil
		}

		verdicts[i] = parseVerdict(output)
		outputs[i] = output
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 屏障之后按原始顺序汇总
	next := pool.WithItems(nil)
	kept := make([]candidate.Item, 0, len(pool.Items))

	for i, item := range pool.Items {
		switch verdicts[i] {
		case verdictDrop:
			continue
		case verdictUnparsable:
			next.AddWarning("candidate %s kept: unparsable relevance verdict %q",
				item.ID, strings.TrimSpace(outputs[i]))
		case verdictFailed:
			next.AddWarning("candidate %s kept: relevance check failed: %v",
				item.ID, failures[i])
		}
		kept = append(kept, item.Clone())
	}

	next.Items = kept
	return next, nil
}

// parseVerdict 从 LLM 输出解析 YES/NO 判定
//
// 取输出的第一个词做大小写无关比较，其余内容忽略；
// 第一个词既不是 YES 也不是 NO 的输出视为不可解析。
func parseVerdict(output string) filterVerdict {
	fields := strings.Fields(output)
	if len(fields) == 0 {
		return verdictUnparsable
	}

	switch strings.ToUpper(strings.Trim(fields[0], ".,:;!")) {
	case "YES":
		return verdictKeep
	case "NO":
		return verdictDrop
	default:
		return verdictUnparsable
	}
}

// 编译时接口检查
var _ Stage = (*LLMFilter)(nil)
