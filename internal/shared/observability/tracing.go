package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const tracerName = "refactorimports"

// Tracer delegates to whichever provider is installed globally; without
// SetupTracing it is a no-op.
var Tracer = otel.Tracer(tracerName)

// SetupTracing installs an OTLP gRPC exporter when endpoint is non-empty.
// The returned shutdown func flushes pending spans and is always safe to call.
func SetupTracing(ctx context.Context, endpoint string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	slog.Debug("otlp tracing enabled", "endpoint", endpoint)
	return tp.Shutdown, nil
}
