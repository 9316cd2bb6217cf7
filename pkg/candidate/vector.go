package candidate

import (
	"math"
)

// CosineSimilarity 计算两个向量的余弦相似度
//
// 全库统一采用相似度约定（越高越相关），基于距离的后端
// 应在检索器边界处完成符号转换。
//
// 返回:
//   - float64: 相似度，范围 [-1, 1]
//   - bool: 是否有效；向量维度不匹配或任一向量范数为零时为 false
func CosineSimilarity(a, b []float32) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}

	var dotProduct, normA, normB float64

	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, false
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB)), true
}
