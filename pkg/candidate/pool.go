package candidate

import (
	"fmt"
)

// Pool 候选池
//
// 一次查询对应一个候选池（不跨查询缓存）。
// 不变式：一次选择过程中池内不允许出现重复 ID，
// 重复项应由去重阶段显式移除而不是静默保留。
type Pool struct {
	// Query 产生此候选池的原始查询
	Query string `json:"query"`
	// Items 候选项列表（有序）
	Items []Item `json:"items"`
	// Warnings 非致命告警（候选项被跳过、阶段降级等）
	Warnings []string `json:"warnings,omitempty"`
}

// NewPool 创建候选池
func NewPool(query string, items []Item) *Pool {
	return &Pool{
		Query: query,
		Items: items,
	}
}

// Len 返回候选项数量
func (p *Pool) Len() int {
	return len(p.Items)
}

// AddWarning 记录一条非致命告警
func (p *Pool) AddWarning(format string, args ...interface{}) {
	p.Warnings = append(p.Warnings, fmt.Sprintf(format, args...))
}

// Clone 创建候选池的深拷贝
//
// 阶段实现应在副本上工作，绝不原地修改输入池。
func (p *Pool) Clone() *Pool {
	clone := &Pool{
		Query: p.Query,
		Items: make([]Item, len(p.Items)),
	}

	for i, item := range p.Items {
		clone.Items[i] = item.Clone()
	}

	if len(p.Warnings) > 0 {
		clone.Warnings = make([]string, len(p.Warnings))
		copy(clone.Warnings, p.Warnings)
	}

	return clone
}

// WithItems 返回替换候选项列表后的新池（保留查询与告警）
func (p *Pool) WithItems(items []Item) *Pool {
	next := &Pool{
		Query: p.Query,
		Items: items,
	}

	if len(p.Warnings) > 0 {
		next.Warnings = make([]string, len(p.Warnings))
		copy(next.Warnings, p.Warnings)
	}

	return next
}

// HasDuplicateID 检查池内是否存在重复 ID
func (p *Pool) HasDuplicateID() bool {
	seen := make(map[string]struct{}, len(p.Items))
	for _, item := range p.Items {
		if _, ok := seen[item.ID]; ok {
			return true
		}
		seen[item.ID] = struct{}{}
	}
	return false
}

// DedupByID 按 ID 去重，保留首次出现的候选项并维持原有顺序
func DedupByID(items []Item) []Item {
	seen := make(map[string]struct{}, len(items))
	result := make([]Item, 0, len(items))

	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		result = append(result, item)
	}

	return result
}
