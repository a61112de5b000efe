package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"ecrwatch/internal/config"
)

type TracerProvider struct {
	tp *sdktrace.TracerProvider
}

func (tp *TracerProvider) Tracer(name string) trace.Tracer {
	return tp.tp.Tracer(name)
}

func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.tp != nil {
		return tp.tp.Shutdown(ctx)
	}
	return nil
}

func Init(cfg config.TracingConfig, serviceName string) (*TracerProvider, error) {
	if !cfg.Enabled {
		tp := sdktrace.NewTracerProvider()
		return &TracerProvider{tp: tp}, nil
	}

	if serviceName == "" {
		serviceName = cfg.ServiceName
	}
	if serviceName == "" {
		serviceName = "ecrwatch"
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.OTLP.Endpoint),
	}
	if cfg.OTLP.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	sampler := createSampler(cfg.Sampler)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(tp)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{tp: tp}, nil
}

func createSampler(cfg config.SamplerConfig) sdktrace.Sampler {
	switch cfg.Type {
	case "always_off":
		return sdktrace.NeverSample()
	case "traceidratio":
		return sdktrace.TraceIDRatioBased(cfg.Param)
	case "parentbased_always_on":
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case "parentbased_traceidratio":
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Param))
	case "always_on":
		fallthrough
	default:
		return sdktrace.AlwaysSample()
	}
}

func GetTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// StartEventSpan starts the span that covers the processing of one push event.
func StartEventSpan(ctx context.Context, eventID, repository, tag string) (context.Context, trace.Span) {
	ctx, span := GetTracer("ecrwatch-watcher").Start(ctx, "watcher.process_event")
	span.SetAttributes(
		attribute.String("ecr.event_id", eventID),
		attribute.String("ecr.repository", repository),
		attribute.String("ecr.image_tag", tag),
	)
	return ctx, span
}

// StartControlPlaneSpan starts a client span for one control-plane operation.
func StartControlPlaneSpan(ctx context.Context, operation, serviceARN string) (context.Context, trace.Span) {
	ctx, span := GetTracer("ecrwatch-apprunner").Start(ctx, "apprunner."+operation, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(attribute.String("apprunner.service_arn", serviceARN))
	return ctx, span
}

// StartSpanFromHeaders continues the trace carried in transport headers.
// Both broker implementations flatten their headers into a string map.
func StartSpanFromHeaders(ctx context.Context, operationName string, headers map[string]string) (context.Context, trace.Span) {
	if len(headers) > 0 {
		ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(headers))
	}
	return GetTracer("ecrwatch-broker").Start(ctx, operationName, trace.WithSpanKind(trace.SpanKindConsumer))
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
