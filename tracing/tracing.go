// Package tracing wires OpenTelemetry for webdevchat.
package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/hupe1980/webdevchat/logging"
)

// ServiceName is reported as service.name on every span.
const ServiceName = "webdevchat"

// Config holds tracing configuration
type Config struct {
	Enabled  bool
	Endpoint string // OTLP gRPC endpoint (e.g., "localhost:4317")
	Insecure bool   // Plaintext gRPC
	Version  string
}

// Provider wraps an OpenTelemetry TracerProvider. When disabled it hands out
// no-op tracers.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	fallback       trace.TracerProvider
	logger         logging.Logger
	enabled        bool
}

// NewProvider creates and initializes the tracing provider
func NewProvider(cfg Config, logger logging.Logger) (*Provider, error) {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	if !cfg.Enabled {
		logger.Debug("tracing.disabled")
		return &Provider{fallback: noop.NewTracerProvider(), logger: logger}, nil
	}

	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("tracing enabled but endpoint not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	otlpOptions := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		otlpOptions = append(otlpOptions, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, otlpOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", ServiceName),
		attribute.String("service.version", version),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	logger.Info("tracing.initialized", "endpoint", cfg.Endpoint, "insecure", cfg.Insecure)

	return &Provider{tracerProvider: tp, logger: logger, enabled: true}, nil
}

// TracerProvider returns the provider to hand to instrumented components.
func (p *Provider) TracerProvider() trace.TracerProvider {
	if !p.enabled {
		return p.fallback
	}
	return p.tracerProvider
}

// Tracer returns a named tracer.
func (p *Provider) Tracer(name string) trace.Tracer {
	return p.TracerProvider().Tracer(name)
}

// Enabled reports whether spans are exported.
func (p *Provider) Enabled() bool { return p.enabled }

// Shutdown flushes remaining spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.enabled {
		return nil
	}
	if err := p.tracerProvider.Shutdown(ctx); err != nil {
		p.logger.Error("tracing.shutdown.failed", "error", err)
		return err
	}
	p.logger.Info("tracing.stopped")
	return nil
}
