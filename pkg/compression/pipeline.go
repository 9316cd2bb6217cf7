package compression

import (
	"context"
	"fmt"
	"time"

	"github.com/easyops/contextpipe-go/pkg/candidate"
	"github.com/easyops/contextpipe-go/pkg/core/errors"
	"github.com/easyops/contextpipe-go/pkg/otel"
)

// Pipeline 压缩管道
//
// 按配置顺序严格执行各阶段，前一阶段的输出池是后一阶段的
// 输入池。空阶段列表是恒等变换。
//
// 管道绝不因单个阶段内部的可恢复失败而报错，告警随候选池
// 逐阶段累积；只有结构性的配置错误在任何工作开始前返回。
type Pipeline struct {
	stages  []Stage
	tracer  otel.Tracer
	metrics otel.Metrics
}

// NewPipeline 创建压缩管道
//
// 结构性校验在这里完成：nil 阶段或阶段自身的非法配置
// 返回 ErrInvalidPipelineConfig，不会执行任何阶段。
func NewPipeline(stages ...Stage) (*Pipeline, error) {
	for i, stage := range stages {
		if stage == nil {
			return nil, fmt.Errorf("%w: stage %d is nil", errors.ErrInvalidPipelineConfig, i)
		}
		if v, ok := stage.(interface{ validate() error }); ok {
			if err := v.validate(); err != nil {
				return nil, err
			}
		}
	}

	return &Pipeline{
		stages:  stages,
		tracer:  otel.NewNoopTracer(),
		metrics: otel.NewNoopMetrics(),
	}, nil
}

// WithTracer 设置追踪器，返回管道自身便于链式配置
func (p *Pipeline) WithTracer(tracer otel.Tracer) *Pipeline {
	p.tracer = tracer
	return p
}

// WithMetrics 设置指标，返回管道自身便于链式配置
func (p *Pipeline) WithMetrics(metrics otel.Metrics) *Pipeline {
	p.metrics = metrics
	return p
}

// Stages 返回管道包含的阶段名称
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, stage := range p.stages {
		names[i] = stage.Name()
	}
	return names
}

// Run 依次执行所有阶段
//
// 返回的候选池带有所有阶段累积的告警，调用方可以据此
// 区分降级完成和彻底失败。
func (p *Pipeline) Run(ctx context.Context, pool *candidate.Pool) (*candidate.Pool, error) {
	ctx, span := p.tracer.Start(ctx, "compression.run",
		otel.WithAttributes(otel.PoolSize(len(pool.Items))))
	defer span.End()

	p.metrics.Counter(otel.MetricPipelineRuns).Add(ctx, 1)

	current := pool.Clone()

	for _, stage := range p.stages {
		select {
		case <-ctx.Done():
			return current, errors.ErrContextCanceled
		default:
		}

		start := time.Now()
		next, err := stage.Transform(ctx, current)
		p.metrics.Histogram(otel.MetricPipelineStageDuration).Record(ctx,
			float64(time.Since(start).Milliseconds()),
			otel.NewAttr("stage", stage.Name()))

		if err != nil {
			span.SetAttributes(otel.PipelineStage(stage.Name()))
			span.RecordError(err)
			span.SetStatus(otel.StatusError, err.Error())
			p.metrics.Counter(otel.MetricPipelineErrors).Add(ctx, 1,
				otel.NewAttr("stage", stage.Name()))
			return nil, errors.WrapError(err, stage.Name())
		}

		if dropped := len(current.Items) - len(next.Items); dropped > 0 {
			p.metrics.Counter(otel.MetricPipelineDropped).Add(ctx, int64(dropped),
				otel.NewAttr("stage", stage.Name()))
		}
		current = next
	}

	return current, nil
}

// invalidStageConfig 构造结构性配置错误
func invalidStageConfig(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errors.ErrInvalidPipelineConfig, fmt.Sprintf(format, args...))
}

// 编译时接口检查
var _ Stage = (*identityStage)(nil)

// identityStage 恒等阶段，用于在管道中占位
type identityStage struct{}

// Identity 返回恒等阶段
func Identity() Stage {
	return identityStage{}
}

func (identityStage) Name() string {
	return "identity"
}

func (identityStage) Transform(_ context.Context, pool *candidate.Pool) (*candidate.Pool, error) {
	return pool.Clone(), nil
}
