package retrieval

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/easyops/contextpipe-go/pkg/candidate"
	"github.com/easyops/contextpipe-go/pkg/compression"
	"github.com/easyops/contextpipe-go/pkg/core/errors"
	"github.com/easyops/contextpipe-go/pkg/core/parallel"
	"github.com/easyops/contextpipe-go/pkg/otel"
	"github.com/easyops/contextpipe-go/pkg/selection"
)

// Result 检索结果
//
// Partial 表示运行被取消、只包含已完成前缀的结果；
// Warnings 记录降级完成的细节。两者让调用方把
// "降级/部分完成"与彻底失败区分开。
type Result struct {
	// Items 最终候选项（有序）
	Items []candidate.Item
	// Warnings 非致命告警
	Warnings []string
	// Partial 是否为取消后的部分结果
	Partial bool
}

// Refiner 定义检索后精炼接口
//
// 选择器和压缩管道通过各自的适配器统一到这个接口上。
type Refiner interface {
	// Refine 精炼候选池
	Refine(ctx context.Context, pool *candidate.Pool) (*candidate.Pool, error)
}

// SelectorRefiner 选择策略适配器
//
// 对每个检索到的候选池按策略执行一次选择。
type SelectorRefiner struct {
	strategy selection.Strategy
	opts     []selection.Option
}

// NewSelectorRefiner 创建选择策略适配器
func NewSelectorRefiner(strategy selection.Strategy, opts ...selection.Option) *SelectorRefiner {
	return &SelectorRefiner{strategy: strategy, opts: opts}
}

// Refine 对候选池执行选择
func (r *SelectorRefiner) Refine(ctx context.Context, pool *candidate.Pool) (*candidate.Pool, error) {
	selector, err := selection.NewSelector(r.strategy, pool.Items, r.opts...)
	if err != nil {
		return nil, err
	}

	result, err := selector.Select(ctx, pool.Query)
	if err != nil && !errors.IsAdvisory(err) {
		return nil, err
	}

	next := pool.WithItems(result.Items)
	next.Warnings = append(next.Warnings, result.Warnings...)
	return next, nil
}

// PipelineRefiner 压缩管道适配器
type PipelineRefiner struct {
	pipeline *compression.Pipeline
}

// NewPipelineRefiner 创建压缩管道适配器
func NewPipelineRefiner(pipeline *compression.Pipeline) *PipelineRefiner {
	return &PipelineRefiner{pipeline: pipeline}
}

// Refine 对候选池执行压缩管道
func (r *PipelineRefiner) Refine(ctx context.Context, pool *candidate.Pool) (*candidate.Pool, error) {
	return r.pipeline.Run(ctx, pool)
}

// ContextRetriever 上下文检索编排器
//
// 包装一个基础检索器和可选的精炼器，对外暴露统一的
// Retrieve(query) 契约：先调基础检索器获得初始候选池，
// 再应用选择器或压缩管道，返回最终的有序候选项。
//
// 配置了查询变换器时，子查询通过有界工作池并发检索，
// 全部完成后（严格屏障）才进入融合与精炼；最终顺序只由
// 融合与精炼规则决定，与任务完成顺序无关。
type ContextRetriever struct {
	base        Retriever
	refiner     Refiner
	transformer QueryTransformer
	fusion      FusionStrategy
	topK        int
	workers     int

	tracer  otel.Tracer
	logger  otel.Logger
	metrics otel.Metrics
}

// ContextRetrieverOption 编排器选项函数
type ContextRetrieverOption func(*ContextRetriever)

// WithRefiner 设置精炼器
func WithRefiner(refiner Refiner) ContextRetrieverOption {
	return func(r *ContextRetriever) {
		r.refiner = refiner
	}
}

// WithSelection 用选择策略做精炼
func WithSelection(strategy selection.Strategy, opts ...selection.Option) ContextRetrieverOption {
	return func(r *ContextRetriever) {
		r.refiner = NewSelectorRefiner(strategy, opts...)
	}
}

// WithCompression 用压缩管道做精炼
func WithCompression(pipeline *compression.Pipeline) ContextRetrieverOption {
	return func(r *ContextRetriever) {
		r.refiner = NewPipelineRefiner(pipeline)
	}
}

// WithQueryTransformer 设置查询变换器（多查询扩展）
func WithQueryTransformer(transformer QueryTransformer) ContextRetrieverOption {
	return func(r *ContextRetriever) {
		r.transformer = transformer
	}
}

// WithFusion 设置融合策略
func WithFusion(fusion FusionStrategy) ContextRetrieverOption {
	return func(r *ContextRetriever) {
		r.fusion = fusion
	}
}

// WithTopK 设置基础检索数量
func WithTopK(topK int) ContextRetrieverOption {
	return func(r *ContextRetriever) {
		r.topK = topK
	}
}

// WithWorkers 设置并发工作协程数
func WithWorkers(n int) ContextRetrieverOption {
	return func(r *ContextRetriever) {
		r.workers = n
	}
}

// WithTracer 设置追踪器
func WithTracer(tracer otel.Tracer) ContextRetrieverOption {
	return func(r *ContextRetriever) {
		r.tracer = tracer
	}
}

// WithLogger 设置日志器
func WithLogger(logger otel.Logger) ContextRetrieverOption {
	return func(r *ContextRetriever) {
		r.logger = logger
	}
}

// WithMetrics 设置指标
func WithMetrics(metrics otel.Metrics) ContextRetrieverOption {
	return func(r *ContextRetriever) {
		r.metrics = metrics
	}
}

// NewContextRetriever 创建上下文检索编排器
func NewContextRetriever(base Retriever, opts ...ContextRetrieverOption) (*ContextRetriever, error) {
	if base == nil {
		return nil, errors.WrapError(errors.ErrInvalidConfig, "base retriever is nil")
	}

	r := &ContextRetriever{
		base:    base,
		fusion:  NewRRFFusion(0),
		topK:    4,
		workers: 4,
		tracer:  otel.NewNoopTracer(),
		logger:  otel.NewNoopLogger(),
		metrics: otel.NewNoopMetrics(),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.topK <= 0 {
		return nil, errors.WrapError(errors.ErrInvalidConfig, "topK must be > 0")
	}

	return r, nil
}

// Retrieve 检索并精炼候选项
//
// 取消时返回已完成前缀的部分结果（Partial=true）并记录告警，
// 而不是静默的空结果。
func (r *ContextRetriever) Retrieve(ctx context.Context, query string) (*Result, error) {
	ctx, span := r.tracer.Start(ctx, "retrieval.retrieve",
		otel.WithAttributes(otel.RetrievalTopK(r.topK)))
	defer span.End()

	start := time.Now()
	r.metrics.Counter(otel.MetricRetrievalQueries).Add(ctx, 1)

	result, err := r.retrieve(ctx, span, query)

	r.metrics.Histogram(otel.MetricRetrievalDuration).Record(ctx,
		float64(time.Since(start).Milliseconds()))

	if err != nil {
		span.SetAttributes(otel.ErrorAttrs("retrieval", err.Error(), errors.IsRetryable(err))...)
		span.RecordError(err)
		span.SetStatus(otel.StatusError, err.Error())
		return nil, err
	}

	span.SetAttributes(
		otel.PoolSize(len(result.Items)),
		otel.RetrievalPartial(result.Partial),
	)
	r.metrics.Counter(otel.MetricRetrievalCandidatesOut).Add(ctx, int64(len(result.Items)))

	if result.Partial {
		r.metrics.Counter(otel.MetricRetrievalPartial).Add(ctx, 1)
		r.logger.WithContext(ctx).Warn("retrieval canceled, returning partial result",
			"items", len(result.Items))
	}
	for _, warning := range result.Warnings {
		r.logger.WithContext(ctx).Warn("retrieval degraded", "warning", warning)
	}

	return result, nil
}

// AsyncResult 异步检索结果
type AsyncResult struct {
	// Result 检索结果（Err 非空时为 nil）
	Result *Result
	// Err 检索错误
	Err error
}

// RetrieveAsync 异步检索入口
//
// 返回的通道只投递一个结果后关闭。子查询检索等独立任务
// 在内部通过有界工作池并发执行；取消语义与 Retrieve 一致。
func (r *ContextRetriever) RetrieveAsync(ctx context.Context, query string) <-chan AsyncResult {
	ch := make(chan AsyncResult, 1)

	go func() {
		defer close(ch)
		result, err := r.Retrieve(ctx, query)
		ch <- AsyncResult{Result: result, Err: err}
	}()

	return ch
}

// retrieve 执行检索、融合与精炼
func (r *ContextRetriever) retrieve(ctx context.Context, span otel.Span, query string) (*Result, error) {
	// 1. 查询扩展
	queries := []TransformedQuery{{Query: query, Weight: 1.0, Source: "original"}}
	if r.transformer != nil {
		expanded, err := r.transformer.Transform(ctx, query)
		if err == nil && len(expanded) > 0 {
			queries = expanded
		}
	}
	span.SetAttributes(otel.RetrievalQueries(len(queries)))

	// 2. 并发检索所有子查询，屏障等待全部完成
	subResults := make([][]candidate.Item, len(queries))
	err := parallel.Run(ctx, r.workers, len(queries), func(i int) error {
		items, err := r.base.Retrieve(ctx, queries[i].Query, r.topK)
		if err != nil {
			return err
		}
		subResults[i] = items
		return nil
	})

	canceled := stderrors.Is(err, errors.ErrContextCanceled) || stderrors.Is(err, context.Canceled)
	if err != nil && !canceled {
		return nil, errors.WrapError(err, "base retrieval")
	}

	for _, items := range subResults {
		r.metrics.Counter(otel.MetricRetrievalCandidatesIn).Add(ctx, int64(len(items)))
	}

	// 3. 融合与按 ID 去重
	var items []candidate.Item
	if len(queries) == 1 {
		items = candidate.DedupByID(subResults[0])
	} else {
		weights := make([]float64, len(queries))
		for i, q := range queries {
			weights[i] = q.Weight
		}
		items = r.fusion.Fuse(subResults, weights, 0)
	}

	pool := candidate.NewPool(query, items)

	// 取消：返回已完成前缀，不再进入精炼阶段
	if canceled {
		pool.AddWarning("retrieval canceled before refinement completed")
		return &Result{Items: pool.Items, Warnings: pool.Warnings, Partial: true}, nil
	}

	// 4. 精炼
	if r.refiner != nil {
		refined, err := r.refiner.Refine(ctx, pool)
		if err != nil {
			if stderrors.Is(err, errors.ErrContextCanceled) {
				pool.AddWarning("refinement canceled, returning unrefined candidates")
				return &Result{Items: pool.Items, Warnings: pool.Warnings, Partial: true}, nil
			}
			return nil, errors.WrapError(err, "refine")
		}
		pool = refined
	}

	return &Result{Items: pool.Items, Warnings: pool.Warnings}, nil
}
