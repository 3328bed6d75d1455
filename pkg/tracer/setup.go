package tracer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	"github.com/docsense/aicore/pkg/logger"
)

// Tracer wraps the OpenTelemetry TracerProvider and installs it globally.
// Components obtain tracers through otel.Tracer(name); this type only owns
// provider setup and shutdown.
type Tracer struct {
	provider *trace.TracerProvider
	logger   *logger.Logger
}

// NewClient creates the tracer provider, registers it as the global
// OpenTelemetry provider and configures W3C context propagation.
//
// When cfg.EnableExport is set, spans are batched to an OTLP/HTTP exporter;
// otherwise spans stay in process (useful for tests and local runs).
func NewClient(cfg Config, l *logger.Logger) *Tracer {
	var options []trace.TracerProviderOption

	if cfg.EnableExport {
		client := otlptracehttp.NewClient()
		exporter, err := otlptrace.New(context.Background(), client)
		if err != nil {
			l.Fatal("cannot initiate trace exporter", err, nil)
			return nil
		}
		options = append(options, trace.WithBatcher(exporter))
	}

	options = append(options, trace.WithResource(resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.DeploymentEnvironment(cfg.AppEnv),
		attribute.String("environment", cfg.AppEnv),
	)))

	tp := trace.NewTracerProvider(options...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return &Tracer{provider: tp, logger: l}
}
