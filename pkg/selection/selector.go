package selection

import (
	"context"
	"fmt"
	"time"

	"github.com/easyops/contextpipe-go/pkg/candidate"
	"github.com/easyops/contextpipe-go/pkg/core/errors"
	"github.com/easyops/contextpipe-go/pkg/otel"
)

// Result 选择结果
//
// Warnings 记录降级完成的细节（候选项被跳过等），
// 调用方可以据此区分降级完成和彻底失败。
type Result struct {
	// Items 选中的候选项（有序）
	Items []candidate.Item
	// Warnings 非致命告警
	Warnings []string
}

// Selector 候选项选择器
//
// 持有一个可变的后备候选池和一个可互换的策略。
// 非线程安全：并发调用 AddCandidate 与 Select 需要
// 调用方自行加锁。
type Selector struct {
	strategy Strategy
	config   *Config
	items    []candidate.Item
	ids      map[string]struct{}
}

// NewSelector 创建选择器
//
// 配置在这里校验：对所选策略无效的配置立即返回
// ErrInvalidConfig，不会开始任何选择工作。
func NewSelector(strategy Strategy, items []candidate.Item, opts ...Option) (*Selector, error) {
	if strategy == nil {
		return nil, fmt.Errorf("%w: strategy is nil", errors.ErrInvalidConfig)
	}

	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}

	if err := config.Validate(strategy.Kind()); err != nil {
		return nil, err
	}

	s := &Selector{
		strategy: strategy,
		config:   config,
		ids:      make(map[string]struct{}, len(items)),
	}

	for _, item := range items {
		if err := s.AddCandidate(item); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// AddCandidate 向后备池追加候选项
//
// 这是唯一支持的增量更新形式。ID 重复返回
// ErrDuplicateCandidate，池保持不变。
func (s *Selector) AddCandidate(item candidate.Item) error {
	if _, ok := s.ids[item.ID]; ok {
		return fmt.Errorf("%w: %s", errors.ErrDuplicateCandidate, item.ID)
	}

	s.ids[item.ID] = struct{}{}
	s.items = append(s.items, item.Clone())
	return nil
}

// Len 返回后备池中的候选项数量
func (s *Selector) Len() int {
	return len(s.items)
}

// Select 针对查询执行选择
//
// 空池返回空结果和建议性的 ErrEmptyPool，调用方可以按
// "没有示例"继续构建提示词而不是中止。
func (s *Selector) Select(ctx context.Context, query string) (*Result, error) {
	ctx, span := s.config.Tracer.Start(ctx, "selection.select",
		otel.WithAttributes(
			otel.SelectionStrategy(string(s.strategy.Kind())),
			otel.SelectionK(s.config.K),
			otel.PoolSize(len(s.items)),
		))
	defer span.End()

	start := time.Now()
	s.config.Metrics.Counter(otel.MetricSelectionRuns).Add(ctx, 1,
		otel.NewAttr("strategy", string(s.strategy.Kind())))

	result, err := s.doSelect(ctx, query)

	s.config.Metrics.Histogram(otel.MetricSelectionDuration).Record(ctx,
		float64(time.Since(start).Milliseconds()),
		otel.NewAttr("strategy", string(s.strategy.Kind())))

	if err != nil && !errors.IsAdvisory(err) {
		span.RecordError(err)
		span.SetStatus(otel.StatusError, err.Error())
		s.config.Metrics.Counter(otel.MetricSelectionErrors).Add(ctx, 1,
			otel.NewAttr("strategy", string(s.strategy.Kind())))
		return nil, err
	}

	s.config.Metrics.Histogram(otel.MetricSelectionSelected).Record(ctx,
		float64(len(result.Items)),
		otel.NewAttr("strategy", string(s.strategy.Kind())))

	// 建议性错误（空池）随结果一并向上传递
	return result, err
}

// doSelect 执行不带观测包装的选择
func (s *Selector) doSelect(ctx context.Context, query string) (*Result, error) {
	if len(s.items) == 0 {
		return &Result{
			Warnings: []string{"candidate pool is empty, selecting nothing"},
		}, errors.ErrEmptyPool
	}

	// 策略在池的副本上工作，后备池不受影响
	pool := candidate.NewPool(query, make([]candidate.Item, len(s.items)))
	for i, item := range s.items {
		pool.Items[i] = item.Clone()
	}

	selected, err := s.strategy.Select(ctx, query, pool, s.config)
	if err != nil {
		return nil, err
	}

	// K 是所有策略共同遵守的上限
	if s.config.K > 0 && len(selected) > s.config.K {
		selected = selected[:s.config.K]
	}

	return &Result{
		Items:    selected,
		Warnings: pool.Warnings,
	}, nil
}
