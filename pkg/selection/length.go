package selection

import (
	"context"

	"github.com/easyops/contextpipe-go/pkg/candidate"
)

// LengthBudget 长度预算贪心策略
//
// 以查询的度量长度为目标，每一步从剩余候选项中挑选度量长度
// 与目标差值最小的一项，差值相同时池内更早的候选项优先；
// 当加入下一项会超出 MaxLength 预算时停止。
// 选中的候选项按原始池顺序输出。
type LengthBudget struct{}

// NewLengthBudget 创建长度预算策略
func NewLengthBudget() *LengthBudget {
	return &LengthBudget{}
}

// Kind 返回策略类型标签
func (s *LengthBudget) Kind() Kind {
	return KindLengthBudget
}

// Select 在长度预算内选择候选项
func (s *LengthBudget) Select(ctx context.Context, query string, pool *candidate.Pool, config *Config) ([]candidate.Item, error) {
	counter := config.Counter
	if counter == nil {
		counter = DefaultTokenCounter()
	}

	target := counter.Count(query)

	// 预先度量所有候选项
	lengths := make([]int, len(pool.Items))
	for i, item := range pool.Items {
		lengths[i] = counter.Count(item.Text)
	}

	// 贪心挑选：每步取与目标差值最小的未选项
	picked := make([]bool, len(pool.Items))
	used := 0

	for {
		best := -1
		bestDiff := 0

		for i := range pool.Items {
			if picked[i] {
				continue
			}
			diff := lengths[i] - target
			if diff < 0 {
				diff = -diff
			}
			// 差值相同时更早的候选项优先
			if best == -1 || diff < bestDiff {
				best = i
				bestDiff = diff
			}
		}

		if best == -1 {
			break
		}
		if used+lengths[best] > config.MaxLength {
			break
		}

		picked[best] = true
		used += lengths[best]
	}

	// 按原始池顺序输出
	selected := make([]candidate.Item, 0, len(pool.Items))
	for i, item := range pool.Items {
		if picked[i] {
			selected = append(selected, item)
		}
	}

	return selected, nil
}

// 编译时接口检查
var _ Strategy = (*LengthBudget)(nil)
