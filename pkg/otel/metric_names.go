package otel

// 预定义的指标名称
// 遵循 OpenTelemetry 语义约定
const (
	// Selection 指标
	MetricSelectionRuns     = "selection.runs"         // 计数器: 选择执行次数
	MetricSelectionDuration = "selection.duration"     // 直方图: 选择执行时间(ms)
	MetricSelectionSelected = "selection.selected"     // 直方图: 每次选中的候选数
	MetricSelectionErrors   = "selection.errors"       // 计数器: 选择错误次数

	// Pipeline 指标
	MetricPipelineRuns          = "pipeline.runs"           // 计数器: 管道执行次数
	MetricPipelineStageDuration = "pipeline.stage.duration" // 直方图: 阶段执行时间(ms)
	MetricPipelineDropped       = "pipeline.dropped"        // 计数器: 被过滤的候选数
	MetricPipelineErrors        = "pipeline.errors"         // 计数器: 管道错误次数

	// Retrieval 指标
	MetricRetrievalQueries       = "retrieval.queries"        // 计数器: 检索查询次数
	MetricRetrievalDuration      = "retrieval.duration"       // 直方图: 检索时间(ms)
	MetricRetrievalCandidatesIn  = "retrieval.candidates.in"  // 计数器: 融合前候选总数
	MetricRetrievalCandidatesOut = "retrieval.candidates.out" // 计数器: 精炼后候选总数
	MetricRetrievalPartial       = "retrieval.partial"        // 计数器: 部分结果次数

	// LLM 指标
	MetricLLMRequests        = "llm.requests"         // 计数器: LLM 请求次数
	MetricLLMRequestDuration = "llm.request.duration" // 直方图: LLM 请求时间(ms)
	MetricLLMErrors          = "llm.errors"           // 计数器: LLM 错误次数
	MetricLLMRetries         = "llm.retries"          // 计数器: LLM 重试次数

	// Embedding 指标
	MetricEmbeddingRequests = "embedding.requests" // 计数器: 嵌入请求次数
	MetricEmbeddingDuration = "embedding.duration" // 直方图: 嵌入请求时间(ms)
	MetricEmbeddingVectors  = "embedding.vectors"  // 计数器: 生成的向量数
	MetricEmbeddingErrors   = "embedding.errors"   // 计数器: 嵌入错误次数
)

// MetricUnit 指标单位
type MetricUnit string

const (
	UnitNone         MetricUnit = ""
	UnitMilliseconds MetricUnit = "ms"
	UnitSeconds      MetricUnit = "s"
	UnitBytes        MetricUnit = "By"
	UnitCount        MetricUnit = "1"
)

// MetricDescription 指标描述
type MetricDescription struct {
	Name        string
	Description string
	Unit        MetricUnit
	Type        string // counter, histogram, gauge
}

// PredefinedMetrics 预定义指标列表
var PredefinedMetrics = []MetricDescription{
	{MetricSelectionRuns, "Number of selection runs", UnitCount, "counter"},
	{MetricSelectionDuration, "Duration of selection runs", UnitMilliseconds, "histogram"},
	{MetricSelectionSelected, "Number of candidates selected per run", UnitCount, "histogram"},
	{MetricSelectionErrors, "Number of selection errors", UnitCount, "counter"},

	{MetricPipelineRuns, "Number of pipeline runs", UnitCount, "counter"},
	{MetricPipelineStageDuration, "Duration of pipeline stages", UnitMilliseconds, "histogram"},
	{MetricPipelineDropped, "Number of candidates dropped by pipeline stages", UnitCount, "counter"},
	{MetricPipelineErrors, "Number of pipeline errors", UnitCount, "counter"},

	{MetricRetrievalQueries, "Number of retrieval queries", UnitCount, "counter"},
	{MetricRetrievalDuration, "Duration of retrieval queries", UnitMilliseconds, "histogram"},
	{MetricRetrievalCandidatesIn, "Number of candidates before fusion", UnitCount, "counter"},
	{MetricRetrievalCandidatesOut, "Number of candidates after refinement", UnitCount, "counter"},
	{MetricRetrievalPartial, "Number of partial retrieval results", UnitCount, "counter"},

	{MetricLLMRequests, "Number of LLM requests", UnitCount, "counter"},
	{MetricLLMRequestDuration, "Duration of LLM requests", UnitMilliseconds, "histogram"},
	{MetricLLMErrors, "Number of LLM errors", UnitCount, "counter"},
	{MetricLLMRetries, "Number of LLM retries", UnitCount, "counter"},

	{MetricEmbeddingRequests, "Number of embedding requests", UnitCount, "counter"},
	{MetricEmbeddingDuration, "Duration of embedding requests", UnitMilliseconds, "histogram"},
	{MetricEmbeddingVectors, "Number of vectors produced", UnitCount, "counter"},
	{MetricEmbeddingErrors, "Number of embedding errors", UnitCount, "counter"},
}
