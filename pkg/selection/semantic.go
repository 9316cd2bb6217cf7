package selection

import (
	"context"
	"sort"

	"github.com/easyops/contextpipe-go/pkg/candidate"
	"github.com/easyops/contextpipe-go/pkg/core/errors"
)

// EmbeddingSimilarity 嵌入相似度策略
//
// 通过外部嵌入器对查询生成向量，与候选项预计算的向量做余弦
// 相似度，返回相似度最高的前 K 项，相似度相同时保持原始池顺序。
//
// 嵌入器调用失败会直接向调用方传播，不做静默降级；
// 缺少向量或范数为零的候选项被跳过并在池上记录告警。
type EmbeddingSimilarity struct {
	embedder Embedder
}

// NewEmbeddingSimilarity 创建嵌入相似度策略
func NewEmbeddingSimilarity(embedder Embedder) *EmbeddingSimilarity {
	return &EmbeddingSimilarity{embedder: embedder}
}

// Kind 返回策略类型标签
func (s *EmbeddingSimilarity) Kind() Kind {
	return KindEmbeddingSimilarity
}

// Select 按查询相似度选出前 K 项
func (s *EmbeddingSimilarity) Select(ctx context.Context, query string, pool *candidate.Pool, config *Config) ([]candidate.Item, error) {
	queryVector, err := embedQuery(ctx, s.embedder, query)
	if err != nil {
		return nil, err
	}

	scored := scoreByQuerySimilarity(queryVector, pool)

	// 按相似度降序，相似度相同时按原始池顺序
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	limit := len(scored)
	if config.K < limit {
		limit = config.K
	}

	return scored[:limit], nil
}

// embedQuery 生成查询向量
func embedQuery(ctx context.Context, embedder Embedder, query string) ([]float32, error) {
	if embedder == nil {
		return nil, errors.WrapError(errors.ErrEmbeddingFailed, "embedder is nil")
	}

	vectors, err := embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, errors.WrapError(err, "embed query")
	}
	if len(vectors) != 1 {
		return nil, errors.WrapError(errors.ErrEmbeddingFailed, "unexpected embedding count")
	}

	return vectors[0], nil
}

// scoreByQuerySimilarity 计算每个候选项与查询向量的余弦相似度
//
// 无法计算相似度的候选项（缺向量、维度不符、零范数）被跳过，
// 并在池上记录告警；跳空后的空结果不是错误。
func scoreByQuerySimilarity(queryVector []float32, pool *candidate.Pool) []candidate.Item {
	scored := make([]candidate.Item, 0, len(pool.Items))

	for _, item := range pool.Items {
		score, ok := candidate.CosineSimilarity(queryVector, item.Vector)
		if !ok {
			pool.AddWarning("candidate %s skipped: no usable vector", item.ID)
			continue
		}
		scored = append(scored, item.WithScore(score))
	}

	return scored
}

// 编译时接口检查
var _ Strategy = (*EmbeddingSimilarity)(nil)
