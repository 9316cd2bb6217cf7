// Package otel provides observability integration for the context pipeline
package otel

import (
	"context"
	"time"

	"github.com/easyops/contextpipe-go/pkg/core/llm"
	"go.opentelemetry.io/otel/attribute"
)

// TracedProvider wraps an LLM provider with tracing support
type TracedProvider struct {
	provider llm.Provider
	tracer   Tracer
	metrics  Metrics
}

// TracedProviderOption configures the traced provider
type TracedProviderOption func(*TracedProvider)

// WithTracedProviderTracer sets the tracer
func WithTracedProviderTracer(tracer Tracer) TracedProviderOption {
	return func(p *TracedProvider) {
		p.tracer = tracer
	}
}

// WithTracedProviderMetrics sets the metrics
func WithTracedProviderMetrics(metrics Metrics) TracedProviderOption {
	return func(p *TracedProvider) {
		p.metrics = metrics
	}
}

// NewTracedProvider creates a traced LLM provider wrapper
func NewTracedProvider(provider llm.Provider, opts ...TracedProviderOption) *TracedProvider {
	tp := &TracedProvider{
		provider: provider,
		tracer:   NewNoopTracer(),
		metrics:  NewNoopMetrics(),
	}

	for _, opt := range opts {
		opt(tp)
	}

	return tp
}

// Generate generates a completion with tracing
func (p *TracedProvider) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := p.tracer.Start(ctx, "llm.generate",
		WithSpanKind(SpanKindClient),
		WithAttributes(
			LLMProvider(p.provider.Name()),
			LLMModel(p.provider.Model()),
		),
	)
	defer span.End()

	startTime := time.Now()
	result, err := p.provider.Generate(ctx, prompt)
	duration := time.Since(startTime)

	p.metrics.Histogram(MetricLLMRequestDuration).Record(ctx, duration.Seconds()*1000,
		NewAttr("provider", p.provider.Name()),
		NewAttr("model", p.provider.Model()),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(StatusError, err.Error())
		p.metrics.Counter(MetricLLMRequests).Add(ctx, 1,
			NewAttr("provider", p.provider.Name()),
			NewAttr("model", p.provider.Model()),
			NewAttr("status", "error"),
		)
		p.metrics.Counter(MetricLLMErrors).Add(ctx, 1,
			NewAttr("provider", p.provider.Name()),
			NewAttr("model", p.provider.Model()),
		)
		return "", err
	}

	p.metrics.Counter(MetricLLMRequests).Add(ctx, 1,
		NewAttr("provider", p.provider.Name()),
		NewAttr("model", p.provider.Model()),
		NewAttr("status", "success"),
	)
	span.SetAttributes(attribute.Int("output_length", len(result)))
	span.SetStatus(StatusOK, "")

	return result, nil
}

// Embed generates embeddings with tracing
func (p *TracedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, span := p.tracer.Start(ctx, "llm.embed",
		WithSpanKind(SpanKindClient),
		WithAttributes(
			LLMProvider(p.provider.Name()),
			LLMModel(p.provider.Model()),
			EmbeddingCount(len(texts)),
		),
	)
	defer span.End()

	startTime := time.Now()
	result, err := p.provider.Embed(ctx, texts)
	duration := time.Since(startTime)

	p.metrics.Histogram(MetricEmbeddingDuration).Record(ctx, duration.Seconds()*1000,
		NewAttr("provider", p.provider.Name()),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(StatusError, err.Error())
		p.metrics.Counter(MetricEmbeddingErrors).Add(ctx, 1,
			NewAttr("provider", p.provider.Name()),
		)
		return nil, err
	}

	p.metrics.Counter(MetricEmbeddingRequests).Add(ctx, 1,
		NewAttr("provider", p.provider.Name()),
		NewAttr("status", "success"),
	)
	p.metrics.Counter(MetricEmbeddingVectors).Add(ctx, int64(len(result)),
		NewAttr("provider", p.provider.Name()),
	)
	span.SetAttributes(attribute.Int("output_count", len(result)))
	span.SetStatus(StatusOK, "")
	return result, nil
}

// Name returns the provider name
func (p *TracedProvider) Name() string {
	return p.provider.Name()
}

// Model returns the model name
func (p *TracedProvider) Model() string {
	return p.provider.Model()
}

// Close closes the underlying provider
func (p *TracedProvider) Close() error {
	return p.provider.Close()
}

// compile-time interface check
var _ llm.Provider = (*TracedProvider)(nil)
