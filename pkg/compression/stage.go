// Package compression 实现检索结果的上下文压缩管道
//
// 把检索得到的候选池经过分块、去冗余、相关性过滤、抽取与
// 重排等有序阶段，转换成更小、信号更强的候选池，再交给
// 提示词构建。
package compression

import (
	"context"

	"github.com/easyops/contextpipe-go/pkg/candidate"
)

// Stage 定义管道阶段接口
//
// 阶段是纯转换：绝不原地修改输入池或其中的候选项，
// 总是返回新的候选池。单个候选项的可恢复失败记录为
// 池上的告警，不作为错误返回。
type Stage interface {
	// Name 返回阶段名称
	Name() string

	// Transform 将候选池转换为新的候选池
	//
	// 参数:
	//   - ctx: 上下文
	//   - pool: 输入候选池（只读）
	//
	// 返回:
	//   - *candidate.Pool: 转换后的新候选池
	//   - error: 影响整个阶段前置条件的错误
	Transform(ctx context.Context, pool *candidate.Pool) (*candidate.Pool, error)
}

// Embedder 定义嵌入接口
type Embedder interface {
	// Embed 生成文本嵌入向量
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// LLM 定义抽取与重排阶段依赖的补全接口
//
// 返回的自由文本由各阶段自行解析，格式错误按可恢复的
// 解析失败处理。
type LLM interface {
	// Generate 根据提示词生成响应文本
	Generate(ctx context.Context, prompt string) (string, error)
}
