// Package telemetry provides OpenTelemetry metrics for the decision loop.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics defines the interface for metrics recording.
type Metrics interface {
	RecordStep(ctx context.Context, agentID, state string, duration time.Duration)
	RecordStateTransition(ctx context.Context, agentID, fromState, toState string)
	RecordCollaboratorFailure(ctx context.Context, collaborator, state string)
	RecordRenderCycle(ctx context.Context, outcome string, terminal bool)
	RecordQuotaReport(ctx context.Context, category string, amount int)
	RecordRenderBudget(ctx context.Context, agentID string, delta int)
	RecordCircuitBreakerStateChange(ctx context.Context, collaborator string, isOpen bool)
}

// MetricsProvider records decision loop metrics through an OTel meter.
type MetricsProvider struct {
	meter metric.Meter

	steps                metric.Int64Counter
	stateTransitions     metric.Int64Counter
	collaboratorFailures metric.Int64Counter
	renderCycles         metric.Int64Counter
	quotaReported        metric.Int64Counter
	stepDuration         metric.Float64Histogram
	renderBudget         metric.Int64UpDownCounter
	circuitBreakerOpen   metric.Int64UpDownCounter

	initErr error
}

// MetricsConfig configures the metrics provider.
type MetricsConfig struct {
	// MeterName is the name of the meter.
	MeterName string
	// MeterVersion is the version of the meter.
	MeterVersion string
	// Provider overrides the global meter provider.
	Provider metric.MeterProvider
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterName:    "github.com/felixgeelhaar/tileagent",
		MeterVersion: "1.0.0",
	}
}

// NewMetricsProvider creates a new metrics provider.
func NewMetricsProvider(config MetricsConfig) *MetricsProvider {
	defaults := DefaultMetricsConfig()
	if config.MeterName == "" {
		config.MeterName = defaults.MeterName
	}
	if config.MeterVersion == "" {
		config.MeterVersion = defaults.MeterVersion
	}

	provider := config.Provider
	if provider == nil {
		provider = otel.GetMeterProvider()
	}

	mp := &MetricsProvider{
		meter: provider.Meter(config.MeterName, metric.WithInstrumentationVersion(config.MeterVersion)),
	}
	mp.initErr = mp.initInstruments()
	return mp
}

func (mp *MetricsProvider) initInstruments() error {
	var err error

	if mp.steps, err = mp.meter.Int64Counter(
		"tileagent.steps",
		metric.WithDescription("Number of decision steps dispatched"),
		metric.WithUnit("{step}"),
	); err != nil {
		return err
	}

	if mp.stateTransitions, err = mp.meter.Int64Counter(
		"tileagent.state.transitions",
		metric.WithDescription("Number of committed state transitions"),
		metric.WithUnit("{transition}"),
	); err != nil {
		return err
	}

	if mp.collaboratorFailures, err = mp.meter.Int64Counter(
		"tileagent.collaborator.failures",
		metric.WithDescription("Number of failed world collaborator calls"),
		metric.WithUnit("{failure}"),
	); err != nil {
		return err
	}

	if mp.renderCycles, err = mp.meter.Int64Counter(
		"tileagent.render.cycles",
		metric.WithDescription("Number of render advances by outcome"),
		metric.WithUnit("{cycle}"),
	); err != nil {
		return err
	}

	if mp.quotaReported, err = mp.meter.Int64Counter(
		"tileagent.quota.reported",
		metric.WithDescription("Resource units reported to the completion tracker"),
		metric.WithUnit("{unit}"),
	); err != nil {
		return err
	}

	if mp.stepDuration, err = mp.meter.Float64Histogram(
		"tileagent.step.duration",
		metric.WithDescription("Duration of decision steps"),
		metric.WithUnit("ms"),
	); err != nil {
		return err
	}

	if mp.renderBudget, err = mp.meter.Int64UpDownCounter(
		"tileagent.render.budget",
		metric.WithDescription("Remaining render budget"),
		metric.WithUnit("{render}"),
	); err != nil {
		return err
	}

	mp.circuitBreakerOpen, err = mp.meter.Int64UpDownCounter(
		"tileagent.circuitbreaker.open",
		metric.WithDescription("Number of open collaborator circuit breakers"),
		metric.WithUnit("{circuit}"),
	)
	return err
}

// Error returns any initialization error.
func (mp *MetricsProvider) Error() error {
	return mp.initErr
}

// RecordStep records one dispatched step.
func (mp *MetricsProvider) RecordStep(ctx context.Context, agentID, state string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("agent.id", agentID),
		attribute.String("agent.state", state),
	)
	mp.steps.Add(ctx, 1, attrs)
	mp.stepDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
}

// RecordStateTransition records a committed transition.
func (mp *MetricsProvider) RecordStateTransition(ctx context.Context, agentID, fromState, toState string) {
	mp.stateTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("agent.id", agentID),
		attribute.String("state.from", fromState),
		attribute.String("state.to", toState),
	))
}

// RecordCollaboratorFailure records a failed collaborator call.
func (mp *MetricsProvider) RecordCollaboratorFailure(ctx context.Context, collaborator, state string) {
	mp.collaboratorFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("collaborator", collaborator),
		attribute.String("agent.state", state),
	))
}

// RecordRenderCycle records one render advance.
func (mp *MetricsProvider) RecordRenderCycle(ctx context.Context, outcome string, terminal bool) {
	mp.renderCycles.Add(ctx, 1, metric.WithAttributes(
		attribute.String("render.outcome", outcome),
		attribute.Bool("render.terminal", terminal),
	))
}

// RecordQuotaReport records units reported to the tracker.
func (mp *MetricsProvider) RecordQuotaReport(ctx context.Context, category string, amount int) {
	mp.quotaReported.Add(ctx, int64(amount), metric.WithAttributes(
		attribute.String("resource.category", category),
	))
}

// RecordRenderBudget applies a change to the remaining render budget.
func (mp *MetricsProvider) RecordRenderBudget(ctx context.Context, agentID string, delta int) {
	mp.renderBudget.Add(ctx, int64(delta), metric.WithAttributes(
		attribute.String("agent.id", agentID),
	))
}

// RecordCircuitBreakerStateChange records a breaker opening or closing.
func (mp *MetricsProvider) RecordCircuitBreakerStateChange(ctx context.Context, collaborator string, isOpen bool) {
	delta := int64(-1)
	if isOpen {
		delta = 1
	}
	mp.circuitBreakerOpen.Add(ctx, delta, metric.WithAttributes(
		attribute.String("collaborator", collaborator),
	))
}

// NoopMetricsProvider is a no-op metrics provider for tests or when metrics are disabled.
type NoopMetricsProvider struct{}

func (NoopMetricsProvider) RecordStep(context.Context, string, string, time.Duration)     {}
func (NoopMetricsProvider) RecordStateTransition(context.Context, string, string, string) {}
func (NoopMetricsProvider) RecordCollaboratorFailure(context.Context, string, string)     {}
func (NoopMetricsProvider) RecordRenderCycle(context.Context, string, bool)               {}
func (NoopMetricsProvider) RecordQuotaReport(context.Context, string, int)                {}
func (NoopMetricsProvider) RecordRenderBudget(context.Context, string, int)               {}
func (NoopMetricsProvider) RecordCircuitBreakerStateChange(context.Context, string, bool) {}

var (
	_ Metrics = (*MetricsProvider)(nil)
	_ Metrics = NoopMetricsProvider{}
)
