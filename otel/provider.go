package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ProviderConfig configures the OTLP trace provider bootstrap.
type ProviderConfig struct {
	// Endpoint is the OTLP/HTTP collector endpoint, host:port.
	Endpoint string

	// Insecure disables TLS towards the collector.
	Insecure bool

	// ServiceName identifies this process in exported traces.
	// Defaults to "loom".
	ServiceName string
}

// InitTraceProvider builds a TracerProvider exporting over OTLP/HTTP,
// installs it as the global provider, and returns it. Callers own the
// shutdown:
//
//	tp, err := otel.InitTraceProvider(ctx, cfg)
//	defer tp.Shutdown(ctx)
func InitTraceProvider(ctx context.Context, cfg ProviderConfig) (*sdktrace.TracerProvider, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("otel: endpoint is required")
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "loom"
	}

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otel: creating OTLP exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		attribute.String("library", "loom"),
	))
	if err != nil {
		return nil, fmt.Errorf("otel: building resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}
