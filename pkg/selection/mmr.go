package selection

import (
	"context"

	"github.com/easyops/contextpipe-go/pkg/candidate"
)

// MMR 最大边际相关性策略
//
// 迭代式多样性重排：每一步从未选项中挑出
// lambda*sim(q,d) - (1-lambda)*max(sim(d,s)) 最大的候选项，
// 其中 s 遍历已选项；直到选满 K 项或候选耗尽。
//
// lambda=1.0 退化为纯相关性排序（与 EmbeddingSimilarity 等价，
// 含相同的原始池顺序决胜规则）；lambda=0.0 退化为纯多样性。
type MMR struct {
	embedder Embedder
}

// NewMMR 创建最大边际相关性策略
func NewMMR(embedder Embedder) *MMR {
	return &MMR{embedder: embedder}
}

// Kind 返回策略类型标签
func (s *MMR) Kind() Kind {
	return KindMMR
}

// Select 迭代选出兼顾相关性与多样性的前 K 项
func (s *MMR) Select(ctx context.Context, query string, pool *candidate.Pool, config *Config) ([]candidate.Item, error) {
	queryVector, err := embedQuery(ctx, s.embedder, query)
	if err != nil {
		return nil, err
	}

	// 只保留能计算相似度的候选项，其余跳过并告警
	scored := scoreByQuerySimilarity(queryVector, pool)

	lambda := config.Lambda
	selected := make([]candidate.Item, 0, config.K)
	remaining := make([]candidate.Item, len(scored))
	copy(remaining, scored)

	for len(selected) < config.K && len(remaining) > 0 {
		best := -1
		bestScore := 0.0

		for i, item := range remaining {
			// 与已选项的最大相似度（冗余度）
			redundancy := 0.0
			haveRedundancy := false
			for _, sel := range selected {
				sim, ok := candidate.CosineSimilarity(item.Vector, sel.Vector)
				if !ok {
					continue
				}
				if !haveRedundancy || sim > redundancy {
					redundancy = sim
					haveRedundancy = true
				}
			}

			score := lambda*item.Score - (1-lambda)*redundancy

			// 分数相同时更早的候选项优先
			if best == -1 || score > bestScore {
				best = i
				bestScore = score
			}
		}

		selected = append(selected, remaining[best])
		remaining = append(remaining[:best], remaining[best+1:]...)
	}

	return selected, nil
}

// 编译时接口检查
var _ Strategy = (*MMR)(nil)
