package compression

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/easyops/contextpipe-go/pkg/candidate"
)

// rerankPromptTemplate 重排提示词模板
const rerankPromptTemplate = `Rank the following documents by relevance to the question, most relevant first. Answer with the document numbers only, comma separated.

Question: %s

%s
Ranking:`

// Reranker 重排阶段
//
// 让外部 LLM 返回候选项序号的相关性排列。越界序号被忽略，
// 重复序号只取首次出现，最多返回 K 项。
//
// LLM 输出无法解析出任何有效序号时阶段"安全失败"：
// 原样返回输入池并记录告警，而不是猜测一个顺序。
type Reranker struct {
	llm LLM
	k   int
}

// RerankerOption 重排阶段选项函数
type RerankerOption func(*Reranker)

// WithRerankK 设置重排后保留的最大数量
func WithRerankK(k int) RerankerOption {
	return func(r *Reranker) {
		r.k = k
	}
}

// NewReranker 创建重排阶段
func NewReranker(llm LLM, opts ...RerankerOption) *Reranker {
	r := &Reranker{llm: llm}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Name 返回阶段名称
func (r *Reranker) Name() string {
	return "reranker"
}

// validate 校验阶段配置
func (r *Reranker) validate() error {
	if r.llm == nil {
		return invalidStageConfig("reranker requires an llm")
	}
	if r.k < 0 {
		return invalidStageConfig("reranker k must be >= 0, got %d", r.k)
	}
	return nil
}

// Transform 按 LLM 给出的排列重排候选项
func (r *Reranker) Transform(ctx context.Context, pool *candidate.Pool) (*candidate.Pool, error) {
	if len(pool.Items) == 0 {
		return pool.Clone(), nil
	}

	var docs strings.Builder
	for i, item := range pool.Items {
		fmt.Fprintf(&docs, "Document %d: %s\n", i+1, item.Text)
	}

	prompt := fmt.Sprintf(rerankPromptTemplate, pool.Query, docs.String())

	output, err := r.llm.Generate(ctx, prompt)
	if err != nil {
		// 单次 LLM 失败不中止管道，原样放行并告警
		next := pool.Clone()
		next.AddWarning("rerank skipped: llm call failed: %v", err)
		return next, nil
	}

	indices := parseRanking(output, len(pool.Items))
	if len(indices) == 0 {
		// 解析失败：恒等回退，输入池原样返回
		next := pool.Clone()
		next.AddWarning("rerank skipped: unparsable ranking %q", strings.TrimSpace(output))
		return next, nil
	}

	limit := len(indices)
	if r.k > 0 && r.k < limit {
		limit = r.k
	}

	items := make([]candidate.Item, 0, limit)
	for _, idx := range indices[:limit] {
		items = append(items, pool.Items[idx].Clone())
	}

	return pool.WithItems(items), nil
}

// parseRanking 从 LLM 输出解析 1 起始的序号排列
//
// 越界序号被忽略，重复序号只取首次出现；
// 没有任何有效序号时返回空切片。
func parseRanking(output string, n int) []int {
	fields := strings.FieldsFunc(output, func(r rune) bool {
		return r < '0' || r > '9'
	})

	seen := make(map[int]struct{}, n)
	var indices []int

	for _, field := range fields {
		num, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		if num < 1 || num > n {
			continue
		}
		idx := num - 1
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		indices = append(indices, idx)
	}

	return indices
}

// 编译时接口检查
var _ Stage = (*Reranker)(nil)
