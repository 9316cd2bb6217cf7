package compression

import (
	"context"

	"github.com/easyops/contextpipe-go/pkg/candidate"
	"github.com/easyops/contextpipe-go/pkg/core/errors"
)

// RedundancyFilter 去冗余阶段
//
// 移除与任何更早保留的候选项嵌入相似度超过阈值的候选项。
// 每个近重复簇只保留首次出现的一项，幸存者维持原始顺序。
// 对自身输出再次运行是无操作（幂等）。
type RedundancyFilter struct {
	embedder  Embedder
	threshold float64
}

// RedundancyOption 去冗余阶段选项函数
type RedundancyOption func(*RedundancyFilter)

// WithRedundancyThreshold 设置近重复判定阈值
func WithRedundancyThreshold(t float64) RedundancyOption {
	return func(f *RedundancyFilter) {
		f.threshold = t
	}
}

// NewRedundancyFilter 创建去冗余阶段
//
// 缺少向量的候选项通过嵌入器现场补齐向量。
func NewRedundancyFilter(embedder Embedder, opts ...RedundancyOption) *RedundancyFilter {
	f := &RedundancyFilter{
		embedder:  embedder,
		threshold: 0.95,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Name 返回阶段名称
func (f *RedundancyFilter) Name() string {
	return "redundancy_filter"
}

// validate 校验阶段配置
func (f *RedundancyFilter) validate() error {
	if f.threshold <= 0 || f.threshold > 1 {
		return invalidStageConfig("redundancy threshold must be in (0, 1], got %v", f.threshold)
	}
	return nil
}

// Transform 移除近重复的候选项
func (f *RedundancyFilter) Transform(ctx context.Context, pool *candidate.Pool) (*candidate.Pool, error) {
	items, err := ensureVectors(ctx, f.embedder, pool)
	if err != nil {
		return nil, err
	}

	kept := make([]candidate.Item, 0, len(items))

	for _, item := range items {
		redundant := false
		for _, prev := range kept {
			sim, ok := candidate.CosineSimilarity(item.Vector, prev.Vector)
			if ok && sim > f.threshold {
				redundant = true
				break
			}
		}
		if !redundant {
			kept = append(kept, item)
		}
	}

	return pool.WithItems(kept), nil
}

// ensureVectors 返回候选项副本，缺向量的通过嵌入器补齐
//
// 嵌入失败影响整个阶段的前置条件，直接向调用方返回。
func ensureVectors(ctx context.Context, embedder Embedder, pool *candidate.Pool) ([]candidate.Item, error) {
	items := make([]candidate.Item, len(pool.Items))
	var missing []int

	for i, item := range pool.Items {
		items[i] = item.Clone()
		if len(item.Vector) == 0 {
			missing = append(missing, i)
		}
	}

	if len(missing) == 0 {
		return items, nil
	}

	if embedder == nil {
		return nil, errors.WrapError(errors.ErrEmbeddingFailed, "embedder is nil")
	}

	texts := make([]string, len(missing))
	for i, idx := range missing {
		texts[i] = items[idx].Text
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, errors.WrapError(err, "embed candidates")
	}
	if len(vectors) != len(missing) {
		return nil, errors.WrapError(errors.ErrEmbeddingFailed, "unexpected embedding count")
	}

	for i, idx := range missing {
		items[idx].Vector = vectors[i]
	}

	return items, nil
}

// 编译时接口检查
var _ Stage = (*RedundancyFilter)(nil)
