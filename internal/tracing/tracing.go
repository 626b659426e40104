// Package tracing installs the global OpenTelemetry tracer provider used for
// per-event spans. When telemetry is disabled the no-op provider stays in place.
package tracing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/nextlevelbuilder/agdabot/internal/config"
)

// TracerName is the instrumentation scope for spans emitted by the bot.
const TracerName = "github.com/nextlevelbuilder/agdabot"

// ShutdownFunc flushes pending spans and releases the exporter.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Init configures OTLP export according to cfg and installs the provider
// globally. The returned ShutdownFunc is always non-nil.
func Init(ctx context.Context, cfg config.TelemetryConfig, version string) (ShutdownFunc, error) {
	if !cfg.Enabled {
		return noopShutdown, nil
	}
	if cfg.Endpoint == "" {
		return noopShutdown, fmt.Errorf("telemetry enabled but no endpoint configured")
	}

	exp, err := newExporter(ctx, cfg)
	if err != nil {
		return noopShutdown, err
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "agdabot"
	}
	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", version),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	slog.Info("telemetry enabled", "endpoint", cfg.Endpoint, "protocol", protocol(cfg), "service", serviceName)
	return tp.Shutdown, nil
}

func protocol(cfg config.TelemetryConfig) string {
	if cfg.Protocol == "" {
		return "grpc"
	}
	return cfg.Protocol
}

func newExporter(ctx context.Context, cfg config.TelemetryConfig) (sdktrace.SpanExporter, error) {
	switch protocol(cfg) {
	case "grpc":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(stripScheme(cfg.Endpoint))}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
		}
		exp, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("create otlp grpc exporter: %w", err)
		}
		return exp, nil
	case "http":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(stripScheme(cfg.Endpoint))}
		if cfg.Insecure || strings.HasPrefix(cfg.Endpoint, "http://") {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
		}
		exp, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("create otlp http exporter: %w", err)
		}
		return exp, nil
	default:
		return nil, fmt.Errorf("unknown telemetry protocol %q", cfg.Protocol)
	}
}

// stripScheme turns "https://host:4318" into "host:4318"; the exporters
// take a bare host:port.
func stripScheme(endpoint string) string {
	for _, p := range []string{"https://", "http://"} {
		if strings.HasPrefix(endpoint, p) {
			return strings.TrimSuffix(strings.TrimPrefix(endpoint, p), "/")
		}
	}
	return endpoint
}
