// Package retrieval 实现检索编排层
//
// 把外部基础检索器与选择器或压缩管道接成统一的
// "Retrieve(query) -> []Item" 契约，并提供多查询扩展、
// 结果融合与异步入口。
package retrieval

import (
	"context"

	"github.com/easyops/contextpipe-go/pkg/candidate"
	"github.com/easyops/contextpipe-go/pkg/core/errors"
)

// Retriever 基础检索器接口
//
// 可以由向量索引支撑；本层把它当作按查询返回候选项的
// 黑盒，候选项的向量字段可选填充。
type Retriever interface {
	// Retrieve 检索与查询相关的候选项
	//
	// 参数:
	//   - ctx: 上下文
	//   - query: 查询文本
	//   - topK: 返回的最大数量
	//
	// 返回:
	//   - []candidate.Item: 候选项列表（按相关性降序）
	//   - error: 检索错误
	Retrieve(ctx context.Context, query string, topK int) ([]candidate.Item, error)
}

// Embedder 嵌入器接口
type Embedder interface {
	// Embed 生成文本嵌入向量
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// StoreRetriever 向量存储检索器
//
// 用嵌入器生成查询向量，再从向量存储中按相似度搜索。
type StoreRetriever struct {
	store          VectorStore
	embedder       Embedder
	scoreThreshold float64
}

// StoreRetrieverOption 向量存储检索器选项
type StoreRetrieverOption func(*StoreRetriever)

// WithScoreThreshold 设置分数阈值
func WithScoreThreshold(threshold float64) StoreRetrieverOption {
	return func(r *StoreRetriever) {
		r.scoreThreshold = threshold
	}
}

// NewStoreRetriever 创建向量存储检索器
func NewStoreRetriever(store VectorStore, embedder Embedder, opts ...StoreRetrieverOption) *StoreRetriever {
	r := &StoreRetriever{
		store:    store,
		embedder: embedder,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Retrieve 检索与查询相关的候选项
func (r *StoreRetriever) Retrieve(ctx context.Context, query string, topK int) ([]candidate.Item, error) {
	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, errors.WrapError(err, "embed query")
	}
	if len(embeddings) == 0 {
		return nil, nil
	}

	results, err := r.store.Search(ctx, embeddings[0], topK)
	if err != nil {
		return nil, err
	}

	// 应用分数阈值过滤
	if r.scoreThreshold > 0 {
		filtered := make([]candidate.Item, 0, len(results))
		for _, item := range results {
			if item.Score >= r.scoreThreshold {
				filtered = append(filtered, item)
			}
		}
		results = filtered
	}

	return results, nil
}

// 编译时接口检查
var _ Retriever = (*StoreRetriever)(nil)
