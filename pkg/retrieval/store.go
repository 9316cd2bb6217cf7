package retrieval

import (
	"context"
	"sort"
	"sync"

	"github.com/easyops/contextpipe-go/pkg/candidate"
)

// VectorStore 向量存储接口
type VectorStore interface {
	// Add 添加候选项
	Add(ctx context.Context, items []candidate.Item) error
	// Search 按查询向量搜索相似候选项
	Search(ctx context.Context, query []float32, topK int) ([]candidate.Item, error)
	// Delete 删除候选项
	Delete(ctx context.Context, ids []string) error
	// Clear 清空存储
	Clear(ctx context.Context) error
	// Size 返回存储的候选项数量
	Size() int
}

// InMemoryVectorStore 内存向量存储
//
// 测试与示例用的后端；生产环境的向量索引是外部协作方，
// 通过 Retriever 边界接入。
type InMemoryVectorStore struct {
	items map[string]candidate.Item
	mu    sync.RWMutex
}

// NewInMemoryVectorStore 创建内存向量存储
func NewInMemoryVectorStore() *InMemoryVectorStore {
	return &InMemoryVectorStore{
		items: make(map[string]candidate.Item),
	}
}

// Add 添加候选项
func (s *InMemoryVectorStore) Add(ctx context.Context, items []candidate.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		s.items[item.ID] = item.Clone()
	}
	return nil
}

// Search 按查询向量搜索相似候选项
//
// 分数相同的候选项按 ID 排序，结果顺序与存储内部的
// 遍历顺序无关。
func (s *InMemoryVectorStore) Search(ctx context.Context, query []float32, topK int) ([]candidate.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scored := make([]candidate.Item, 0, len(s.items))

	for _, item := range s.items {
		score, ok := candidate.CosineSimilarity(query, item.Vector)
		if !ok {
			continue
		}
		scored = append(scored, item.WithScore(score))
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})

	if topK > len(scored) {
		topK = len(scored)
	}

	results := make([]candidate.Item, topK)
	for i := 0; i < topK; i++ {
		results[i] = scored[i].Clone()
	}

	return results, nil
}

// Delete 删除候选项
func (s *InMemoryVectorStore) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.items, id)
	}
	return nil
}

// Clear 清空存储
func (s *InMemoryVectorStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]candidate.Item)
	return nil
}

// Size 返回存储的候选项数量
func (s *InMemoryVectorStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.items)
}

// 编译时接口检查
var _ VectorStore = (*InMemoryVectorStore)(nil)
