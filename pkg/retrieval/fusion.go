package retrieval

import (
	"sort"

	"github.com/easyops/contextpipe-go/pkg/candidate"
)

// FusionStrategy 融合策略接口
//
// 合并多个子查询的检索结果，按候选项 ID 去重。
type FusionStrategy interface {
	// Fuse 融合多个结果集
	//
	// 参数:
	//   - results: 每个子查询的检索结果列表
	//   - weights: 每个子查询的权重（可选，长度应与 results 相同）
	//   - topK: 返回的最大结果数
	Fuse(results [][]candidate.Item, weights []float64, topK int) []candidate.Item
}

// RRFFusion 倒数排名融合 (Reciprocal Rank Fusion)
//
// 使用公式 score = sum(1 / (k + rank)) 计算融合分数。
type RRFFusion struct {
	// K 排名常数，默认 60
	K int
}

// NewRRFFusion 创建 RRF 融合策略
func NewRRFFusion(k int) *RRFFusion {
	if k <= 0 {
		k = 60
	}
	return &RRFFusion{K: k}
}

// Fuse 执行 RRF 融合
func (f *RRFFusion) Fuse(results [][]candidate.Item, weights []float64, topK int) []candidate.Item {
	if len(results) == 0 {
		return nil
	}

	scoreMap := make(map[string]float64)
	itemMap := make(map[string]candidate.Item)
	order := make([]string, 0)

	for queryIdx, queryResults := range results {
		weight := 1.0
		if queryIdx < len(weights) && weights[queryIdx] > 0 {
			weight = weights[queryIdx]
		}

		for rank, item := range queryResults {
			// RRF 公式: 1 / (k + rank)，rank 从 1 开始
			scoreMap[item.ID] += weight * (1.0 / float64(f.K+rank+1))

			// 按 ID 去重，保留首次出现的候选项
			if _, exists := itemMap[item.ID]; !exists {
				itemMap[item.ID] = item
				order = append(order, item.ID)
			}
		}
	}

	return rankFused(order, itemMap, scoreMap, topK)
}

// ScoreFusion 基于分数的融合策略
//
// 合并所有结果，按 ID 去重后保留最高加权分数。
type ScoreFusion struct{}

// NewScoreFusion 创建基于分数的融合策略
func NewScoreFusion() *ScoreFusion {
	return &ScoreFusion{}
}

// Fuse 执行基于分数的融合
func (f *ScoreFusion) Fuse(results [][]candidate.Item, weights []float64, topK int) []candidate.Item {
	if len(results) == 0 {
		return nil
	}

	scoreMap := make(map[string]float64)
	itemMap := make(map[string]candidate.Item)
	order := make([]string, 0)

	for queryIdx, queryResults := range results {
		weight := 1.0
		if queryIdx < len(weights) && weights[queryIdx] > 0 {
			weight = weights[queryIdx]
		}

		for _, item := range queryResults {
			weightedScore := item.Score * weight

			existing, exists := scoreMap[item.ID]
			if !exists {
				order = append(order, item.ID)
			}
			if !exists || weightedScore > existing {
				scoreMap[item.ID] = weightedScore
				itemMap[item.ID] = item
			}
		}
	}

	return rankFused(order, itemMap, scoreMap, topK)
}

// rankFused 按融合分数降序排列去重后的候选项
//
// 分数相同时按首次出现的顺序决胜，融合结果与 map 遍历
// 顺序无关。
func rankFused(order []string, itemMap map[string]candidate.Item, scoreMap map[string]float64, topK int) []candidate.Item {
	fused := make([]candidate.Item, 0, len(order))
	for _, id := range order {
		fused = append(fused, itemMap[id].WithScore(scoreMap[id]))
	}

	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].Score > fused[j].Score
	})

	if topK > 0 && topK < len(fused) {
		fused = fused[:topK]
	}

	return fused
}

// 编译时接口检查
var _ FusionStrategy = (*RRFFusion)(nil)
var _ FusionStrategy = (*ScoreFusion)(nil)
