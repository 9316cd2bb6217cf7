package compression

import (
	"context"

	"github.com/easyops/contextpipe-go/pkg/candidate"
	"github.com/easyops/contextpipe-go/pkg/core/errors"
)

// SimilarityThresholdDisabled 哨兵阈值，表示关闭相关性过滤
//
// 阈值小于等于该值（含未设置的零值）时阶段原样放行所有候选项。
const SimilarityThresholdDisabled = 0.0

// RelevanceFilter 相关性过滤阶段
//
// 移除与查询的嵌入相似度低于阈值的候选项。
// 阈值未设置或处于关闭哨兵时不移除任何候选项。
type RelevanceFilter struct {
	embedder  Embedder
	threshold float64
}

// RelevanceOption 相关性过滤阶段选项函数
type RelevanceOption func(*RelevanceFilter)

// WithSimilarityThreshold 设置查询相似度下限
func WithSimilarityThreshold(t float64) RelevanceOption {
	return func(f *RelevanceFilter) {
		f.threshold = t
	}
}

// NewRelevanceFilter 创建相关性过滤阶段
func NewRelevanceFilter(embedder Embedder, opts ...RelevanceOption) *RelevanceFilter {
	f := &RelevanceFilter{
		embedder:  embedder,
		threshold: SimilarityThresholdDisabled,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Name 返回阶段名称
func (f *RelevanceFilter) Name() string {
	return "relevance_filter"
}

// validate 校验阶段配置
func (f *RelevanceFilter) validate() error {
	if f.threshold > 1 {
		return invalidStageConfig("similarity threshold must be <= 1, got %v", f.threshold)
	}
	return nil
}

// Transform 移除与查询相关性不足的候选项
func (f *RelevanceFilter) Transform(ctx context.Context, pool *candidate.Pool) (*candidate.Pool, error) {
	// 关闭哨兵：原样放行
	if f.threshold <= SimilarityThresholdDisabled {
		return pool.Clone(), nil
	}

	if f.embedder == nil {
		return nil, errors.WrapError(errors.ErrEmbeddingFailed, "embedder is nil")
	}

	queryVectors, err := f.embedder.Embed(ctx, []string{pool.Query})
	if err != nil {
		return nil, errors.WrapError(err, "embed query")
	}
	if len(queryVectors) != 1 {
		return nil, errors.WrapError(errors.ErrEmbeddingFailed, "unexpected embedding count")
	}
	queryVector := queryVectors[0]

	items, err := ensureVectors(ctx, f.embedder, pool)
	if err != nil {
		return nil, err
	}

	next := pool.WithItems(nil)
	kept := make([]candidate.Item, 0, len(items))

	for _, item := range items {
		sim, ok := candidate.CosineSimilarity(queryVector, item.Vector)
		if !ok {
			next.AddWarning("candidate %s skipped: no usable vector", item.ID)
			continue
		}
		if sim < f.threshold {
			continue
		}
		kept = append(kept, item.WithScore(sim))
	}

	next.Items = kept
	return next, nil
}

// 编译时接口检查
var _ Stage = (*RelevanceFilter)(nil)
