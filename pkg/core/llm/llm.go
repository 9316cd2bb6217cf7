// Package llm 提供 LLM 与嵌入服务的统一接口
package llm

import (
	"context"
)

// Provider 定义 LLM 提供商接口
//
// 统一抽取、重排序和查询扩展所依赖的外部补全与嵌入调用。
// 调用方对返回的字符串自行解析，格式错误应作为可恢复的
// 解析失败处理而不是崩溃。
type Provider interface {
	// Generate 根据提示词生成响应文本
	//
	// 参数:
	//   - ctx: 上下文
	//   - prompt: 提示词
	//
	// 返回:
	//   - string: 生成的文本
	//   - error: 调用错误
	Generate(ctx context.Context, prompt string) (string, error)

	// Embed 生成文本嵌入向量
	//
	// 同一进程内对相同输入必须返回相同结果。
	//
	// 参数:
	//   - ctx: 上下文
	//   - texts: 待嵌入的文本列表
	//
	// 返回:
	//   - [][]float32: 嵌入向量列表，与输入一一对应
	//   - error: 调用错误
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Name 返回提供商名称
	Name() string

	// Model 返回当前模型名称
	Model() string

	// Close 关闭客户端连接
	Close() error
}
