package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Trace exporters understood by NewProvider.
const (
	TracesNone   = "none"
	TracesStdout = "stdout"
)

// ProviderConfig configures the SDK providers for one run.
type ProviderConfig struct {
	ServiceName    string
	ServiceVersion string
	MeterName      string

	// Traces selects the span exporter: none or stdout.
	Traces string

	// TraceOutput receives stdout spans. Defaults to os.Stderr.
	TraceOutput io.Writer
}

// Provider owns the OTel SDK meter and tracer providers. Metrics are read
// on demand through a manual reader.
type Provider struct {
	reader  *metric.ManualReader
	meters  *metric.MeterProvider
	tracers *sdktrace.TracerProvider
	metrics *MetricsProvider
	tracer  trace.Tracer
}

// NewProvider creates the SDK providers.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "tileagent"
	}
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	)

	reader := metric.NewManualReader()
	meters := metric.NewMeterProvider(metric.WithReader(reader), metric.WithResource(res))

	p := &Provider{
		reader:  reader,
		meters:  meters,
		metrics: NewMetricsProvider(MetricsConfig{MeterName: cfg.MeterName, Provider: meters}),
		tracer:  noop.NewTracerProvider().Tracer(cfg.ServiceName),
	}
	if err := p.metrics.Error(); err != nil {
		return nil, fmt.Errorf("create instruments: %w", err)
	}

	switch cfg.Traces {
	case "", TracesNone:
	case TracesStdout:
		out := cfg.TraceOutput
		if out == nil {
			out = os.Stderr
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(out), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create trace exporter: %w", err)
		}
		p.tracers = sdktrace.NewTracerProvider(
			sdktrace.WithSyncer(exp),
			sdktrace.WithResource(res),
		)
		p.tracer = p.tracers.Tracer(cfg.ServiceName)
	default:
		return nil, fmt.Errorf("unknown trace exporter: %s", cfg.Traces)
	}
	return p, nil
}

// Metrics returns the instrumented metrics recorder.
func (p *Provider) Metrics() *MetricsProvider {
	return p.metrics
}

// Tracer returns the step tracer. It is a no-op unless traces are exported.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Totals collects every integer sum and returns its total per instrument.
func (p *Provider) Totals(ctx context.Context) (map[string]int64, error) {
	var rm metricdata.ResourceMetrics
	if err := p.reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}

	totals := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
			}
		}
	}
	return totals, nil
}

// SortedNames returns the keys of totals in order.
func SortedNames(totals map[string]int64) []string {
	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Shutdown flushes and stops both providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.tracers != nil {
		errs = append(errs, p.tracers.Shutdown(ctx))
	}
	errs = append(errs, p.meters.Shutdown(ctx))
	return errors.Join(errs...)
}
