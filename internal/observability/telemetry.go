package observability

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// ServiceName is the diagnostics namespace: the tracer and meter share it.
const ServiceName = "zone-forecast-service"

// Config selects telemetry exporters. Empty or "none" disables the
// corresponding output without disabling instrumentation.
type Config struct {
	ServiceVersion  string
	TraceExporter   string // stdout|none
	MetricsExporter string // prometheus|stdout|none
}

// Telemetry owns the trace and metric providers plus the metric instruments
// used by the instrumentation decorators.
type Telemetry struct {
	Tracer      trace.Tracer
	Meter       metric.Meter
	Instruments *Instruments

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	promRegistry   *prometheus.Registry
}

// NewTelemetry builds trace and metric providers per cfg and creates the
// service's metric instruments.
func NewTelemetry(ctx context.Context, cfg Config) (*Telemetry, error) {
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	spanExporter, err := newSpanExporter(cfg.TraceExporter)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExporter),
		sdktrace.WithResource(res),
	)

	t := &Telemetry{tracerProvider: tp}

	reader, registry, err := newMetricsReader(cfg.MetricsExporter)
	if err != nil {
		return nil, err
	}
	t.promRegistry = registry
	t.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)

	t.Tracer = tp.Tracer(ServiceName)
	t.Meter = t.meterProvider.Meter(ServiceName)
	t.Instruments, err = NewInstruments(t.Meter)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func newSpanExporter(name string) (sdktrace.SpanExporter, error) {
	switch name {
	case "stdout":
		return stdouttrace.New(stdouttrace.WithWriter(os.Stdout))
	case "none", "":
		return stdouttrace.New(stdouttrace.WithWriter(io.Discard))
	default:
		return nil, fmt.Errorf("unknown trace exporter: %q", name)
	}
}

// newMetricsReader returns the configured reader. The prometheus registry is
// non-nil only for the prometheus exporter.
func newMetricsReader(name string) (sdkmetric.Reader, *prometheus.Registry, error) {
	switch name {
	case "prometheus":
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewGoCollector(),
		)
		exp, err := otelprom.New(otelprom.WithRegisterer(registry))
		if err != nil {
			return nil, nil, fmt.Errorf("prometheus exporter: %w", err)
		}
		return exp, registry, nil
	case "stdout":
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stdout))
		if err != nil {
			return nil, nil, fmt.Errorf("stdout metrics exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil, nil
	case "none", "":
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(io.Discard))
		if err != nil {
			return nil, nil, fmt.Errorf("noop metrics exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown metrics exporter: %q", name)
	}
}

// MetricsHandler returns the Prometheus exposition handler, or nil when the
// prometheus exporter is not configured.
func (t *Telemetry) MetricsHandler() http.Handler {
	if t.promRegistry == nil {
		return nil
	}
	return promhttp.HandlerFor(t.promRegistry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops both providers. Idempotent per provider; returns
// the first error encountered.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var first error
	if err := t.tracerProvider.Shutdown(ctx); err != nil {
		first = err
	}
	if err := t.meterProvider.Shutdown(ctx); err != nil && first == nil {
		first = err
	}
	return first
}
