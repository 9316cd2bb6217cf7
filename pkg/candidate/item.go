// Package candidate 定义候选项与候选池的共享数据模型
//
// 候选项由外部检索器产生，经过选择或压缩后注入提示词。
// 本包只包含数据类型，不依赖任何策略或管道实现。
package candidate

import (
	"github.com/google/uuid"
)

// Item 候选项
//
// 检索器产生后不可变；Score 由策略在选择过程中附加，
// 属于临时字段，不参与持久化。
type Item struct {
	// ID 唯一标识
	ID string `json:"id"`
	// Text 文本内容
	Text string `json:"text"`
	// Vector 嵌入向量（可选，由检索器或嵌入器填充）
	Vector []float32 `json:"vector,omitempty"`
	// Metadata 元数据
	Metadata map[string]string `json:"metadata,omitempty"`
	// Score 相关性分数（临时，由策略写入）
	Score float64 `json:"score,omitempty"`
}

// NewItem 创建候选项，ID 为空时自动生成
func NewItem(id, text string) Item {
	if id == "" {
		id = uuid.New().String()
	}
	return Item{ID: id, Text: text}
}

// Clone 创建候选项的深拷贝
func (i Item) Clone() Item {
	clone := Item{
		ID:    i.ID,
		Text:  i.Text,
		Score: i.Score,
	}

	if len(i.Vector) > 0 {
		clone.Vector = make([]float32, len(i.Vector))
		copy(clone.Vector, i.Vector)
	}

	if len(i.Metadata) > 0 {
		clone.Metadata = make(map[string]string, len(i.Metadata))
		for k, v := range i.Metadata {
			clone.Metadata[k] = v
		}
	}

	return clone
}

// WithScore 返回附加分数的副本
func (i Item) WithScore(score float64) Item {
	i.Score = score
	return i
}

// WithVector 返回附加向量的副本
func (i Item) WithVector(vector []float32) Item {
	i.Vector = vector
	return i
}
