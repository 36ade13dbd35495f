// Package telemetry wires the gateway's tracer provider (spec §1.4's
// ambient observability stack). Grounded on the teacher's own
// go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp +
// go.opentelemetry.io/otel/sdk dependency pair (server/gateway.go's
// InitTracer call site, whose body the teacher repo does not ship) and
// on hanpama-protograph/internal/otel/otel.go's Setup (batched
// OTLP exporter behind a TracerProvider, semconv resource attributes,
// a Shutdown func callers defer).
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Shutdown flushes and stops a configured tracer provider.
type Shutdown func(context.Context) error

// Init configures the global TracerProvider to export spans to
// endpoint via OTLP/HTTP under serviceName/serviceVersion, or installs a
// no-op shutdown when endpoint is empty (tracing disabled, spec §1.4's
// "Opentelemetry.TracingSetting.Enable" toggle).
func Init(ctx context.Context, endpoint, serviceName, serviceVersion string) (Shutdown, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint))
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// Tracer returns the gateway's named tracer, for span creation at
// request/operation/subgraph-call boundaries (spec §9's suspension
// points are natural span boundaries: HTTP request, bound operation,
// per-partition subgraph fetch).
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
