package otel

import "go.opentelemetry.io/otel/attribute"

// 预定义的语义属性键
// 遵循 OpenTelemetry 语义约定
const (
	// Selection 相关属性
	AttrSelectionStrategy = "selection.strategy"
	AttrSelectionK        = "selection.k"

	// Pipeline 相关属性
	AttrPipelineStage = "pipeline.stage"

	// Retrieval 相关属性
	AttrRetrievalTopK    = "retrieval.top_k"
	AttrRetrievalQueries = "retrieval.query_count"
	AttrRetrievalPartial = "retrieval.partial"
	AttrPoolSize         = "pool.size"

	// LLM 相关属性
	AttrLLMProvider = "llm.provider"
	AttrLLMModel    = "llm.model"

	// Embedding 相关属性
	AttrEmbeddingCount = "embedding.count"

	// Error 相关属性
	AttrErrorType      = "error.type"
	AttrErrorMessage   = "error.message"
	AttrErrorRetryable = "error.retryable"
)

// SelectionStrategy 创建选择策略属性
func SelectionStrategy(strategy string) attribute.KeyValue {
	return attribute.String(AttrSelectionStrategy, strategy)
}

// SelectionK 创建选择数量属性
func SelectionK(k int) attribute.KeyValue {
	return attribute.Int(AttrSelectionK, k)
}

// PipelineStage 创建管道阶段属性
func PipelineStage(stage string) attribute.KeyValue {
	return attribute.String(AttrPipelineStage, stage)
}

// RetrievalTopK 创建检索 top-k 属性
func RetrievalTopK(k int) attribute.KeyValue {
	return attribute.Int(AttrRetrievalTopK, k)
}

// RetrievalQueries 创建检索查询数量属性
func RetrievalQueries(n int) attribute.KeyValue {
	return attribute.Int(AttrRetrievalQueries, n)
}

// RetrievalPartial 创建部分结果属性
func RetrievalPartial(partial bool) attribute.KeyValue {
	return attribute.Bool(AttrRetrievalPartial, partial)
}

// PoolSize 创建候选池大小属性
func PoolSize(size int) attribute.KeyValue {
	return attribute.Int(AttrPoolSize, size)
}

// LLMProvider 创建 LLM 提供商属性
func LLMProvider(provider string) attribute.KeyValue {
	return attribute.String(AttrLLMProvider, provider)
}

// LLMModel 创建 LLM 模型属性
func LLMModel(model string) attribute.KeyValue {
	return attribute.String(AttrLLMModel, model)
}

// EmbeddingCount 创建嵌入数量属性
func EmbeddingCount(n int) attribute.KeyValue {
	return attribute.Int(AttrEmbeddingCount, n)
}

// ErrorAttrs 创建错误属性
func ErrorAttrs(errType, message string, retryable bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrErrorType, errType),
		attribute.String(AttrErrorMessage, message),
		attribute.Bool(AttrErrorRetryable, retryable),
	}
}
