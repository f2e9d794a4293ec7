// Package telemetry wires OpenTelemetry tracing. Tracing is opt-in; when it
// is disabled Setup installs nothing and returns a no-op shutdown.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/storymesh/config"
	"github.com/hupe1980/storymesh/metrics"
	"github.com/hupe1980/storymesh/model"
)

// InstrumentationName names the tracer used by SpanRecorder.
const InstrumentationName = "github.com/hupe1980/storymesh"

// Setup installs a global tracer provider exporting over OTLP/HTTP when
// cfg.Enabled is set and an endpoint is configured. The returned shutdown
// flushes pending spans and should be deferred by the caller.
func Setup(ctx context.Context, cfg config.Telemetry) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	if !cfg.Enabled || cfg.Endpoint == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.Endpoint))
	if err != nil {
		return noop, fmt.Errorf("creating otlp exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)))
	if err != nil {
		return noop, fmt.Errorf("creating resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

// Attribute keys set on recorded spans.
const (
	AttrStoryID          = attribute.Key("storymesh.story_id")
	AttrOperation        = attribute.Key("storymesh.operation")
	AttrPromptTokens     = attribute.Key("storymesh.tokens.prompt")
	AttrCompletionTokens = attribute.Key("storymesh.tokens.completion")
	AttrTotalTokens      = attribute.Key("storymesh.tokens.total")
)

// SpanRecorder turns metric observations into spans. Each observation
// becomes a span that ends now and started d ago, parented to the span in
// ctx if any.
type SpanRecorder struct {
	tracer trace.Tracer
}

var (
	_ metrics.Recorder      = (*SpanRecorder)(nil)
	_ metrics.TokenRecorder = (*SpanRecorder)(nil)
)

// NewSpanRecorder creates a recorder on tp, or on the global provider when
// tp is nil.
func NewSpanRecorder(tp trace.TracerProvider) *SpanRecorder {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &SpanRecorder{tracer: tp.Tracer(InstrumentationName)}
}

// Record implements metrics.Recorder.
func (r *SpanRecorder) Record(ctx context.Context, op string, d time.Duration, success bool) {
	end := time.Now()
	attrs := []attribute.KeyValue{AttrOperation.String(op)}
	if id := metrics.StoryFromContext(ctx); id != "" {
		attrs = append(attrs, AttrStoryID.String(id))
	}

	_, span := r.tracer.Start(ctx, op,
		trace.WithTimestamp(end.Add(-d)),
		trace.WithAttributes(attrs...),
	)
	if success {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, op+" degraded")
	}
	span.End(trace.WithTimestamp(end))
}

// RecordTokens implements metrics.TokenRecorder by adding an event to the
// span active in ctx.
func (r *SpanRecorder) RecordTokens(ctx context.Context, op string, usage model.TokenUsage) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent("token_usage", trace.WithAttributes(
		AttrOperation.String(op),
		AttrPromptTokens.Int(usage.PromptTokens),
		AttrCompletionTokens.Int(usage.CompletionTokens),
		AttrTotalTokens.Int(usage.TotalTokens),
	))
}

// StartSpan starts a span on the global tracer. Used around a whole pipeline
// run so per-stage spans nest under it.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(InstrumentationName).Start(ctx, name, trace.WithAttributes(attrs...))
}
