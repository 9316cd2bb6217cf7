package selection

import (
	"context"

	"github.com/easyops/contextpipe-go/pkg/candidate"
)

// Kind 策略类型标签
//
// 策略集合是封闭的：调用方通过标签切换策略，
// 无需触碰选择器的编排逻辑。
type Kind string

const (
	// KindLengthBudget 长度预算贪心策略
	KindLengthBudget Kind = "length_budget"
	// KindNGramOverlap N-gram 重叠度策略
	KindNGramOverlap Kind = "ngram_overlap"
	// KindEmbeddingSimilarity 嵌入相似度策略
	KindEmbeddingSimilarity Kind = "embedding_similarity"
	// KindMMR 最大边际相关性策略
	KindMMR Kind = "mmr"
)

// Strategy 定义选择策略接口
//
// 策略本身无状态，对输入池只读；跳过候选项等非致命情况
// 通过 pool.AddWarning 记录在传入的池上。
type Strategy interface {
	// Kind 返回策略类型标签
	Kind() Kind

	// Select 从候选池中选出注入提示词的子集
	//
	// 参数:
	//   - ctx: 上下文
	//   - query: 查询文本
	//   - pool: 候选池（告警写回该池）
	//   - config: 已通过 Validate 的配置
	//
	// 返回:
	//   - []candidate.Item: 选中的候选项（有序）
	//   - error: 选择错误
	Select(ctx context.Context, query string, pool *candidate.Pool, config *Config) ([]candidate.Item, error)
}

// Embedder 定义嵌入接口
//
// 同一进程内对相同输入必须返回相同向量。
type Embedder interface {
	// Embed 生成文本嵌入向量
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
