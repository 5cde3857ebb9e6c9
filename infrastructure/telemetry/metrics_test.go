package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupTestMetrics builds a provider backed by a manual reader.
func setupTestMetrics(t *testing.T) (*metric.ManualReader, *MetricsProvider) {
	t.Helper()

	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	mp := NewMetricsProvider(MetricsConfig{Provider: provider})
	if mp.Error() != nil {
		t.Fatalf("failed to create metrics provider: %v", mp.Error())
	}
	return reader, mp
}

func collect(t *testing.T, reader *metric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumInt64(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: expected Sum[int64], got %T", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetricsProvider_Counters(t *testing.T) {
	t.Parallel()

	reader, mp := setupTestMetrics(t)
	ctx := context.Background()

	mp.RecordStep(ctx, "a-1", "explore", 2*time.Millisecond)
	mp.RecordStep(ctx, "a-1", "locate", time.Millisecond)
	mp.RecordStateTransition(ctx, "a-1", "explore", "locate")
	mp.RecordCollaboratorFailure(ctx, "scanner", "explore")
	mp.RecordRenderCycle(ctx, "finished", false)
	mp.RecordRenderCycle(ctx, "finished_unit", false)
	mp.RecordRenderCycle(ctx, "finished", true)
	mp.RecordQuotaReport(ctx, "tree", 3)
	mp.RecordQuotaReport(ctx, "rock", 2)

	got := collect(t, reader)

	tests := []struct {
		name string
		want int64
	}{
		{"tileagent.steps", 2},
		{"tileagent.state.transitions", 1},
		{"tileagent.collaborator.failures", 1},
		{"tileagent.render.cycles", 3},
		{"tileagent.quota.reported", 5},
	}
	for _, tt := range tests {
		m, ok := got[tt.name]
		if !ok {
			t.Errorf("%s metric not found", tt.name)
			continue
		}
		if total := sumInt64(t, m); total != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, total, tt.want)
		}
	}

	hist, ok := got["tileagent.step.duration"]
	if !ok {
		t.Fatal("tileagent.step.duration metric not found")
	}
	h, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", hist.Data)
	}
	var count uint64
	for _, dp := range h.DataPoints {
		count += dp.Count
	}
	if count != 2 {
		t.Errorf("step.duration count = %d, want 2", count)
	}
}

func TestMetricsProvider_UpDownCounters(t *testing.T) {
	t.Parallel()

	reader, mp := setupTestMetrics(t)
	ctx := context.Background()

	mp.RecordRenderBudget(ctx, "a-1", 4)
	mp.RecordRenderBudget(ctx, "a-1", -1)
	mp.RecordCircuitBreakerStateChange(ctx, "scanner", true)
	mp.RecordCircuitBreakerStateChange(ctx, "renderer", true)
	mp.RecordCircuitBreakerStateChange(ctx, "scanner", false)

	got := collect(t, reader)

	if total := sumInt64(t, got["tileagent.render.budget"]); total != 3 {
		t.Errorf("render.budget = %d, want 3", total)
	}
	if total := sumInt64(t, got["tileagent.circuitbreaker.open"]); total != 1 {
		t.Errorf("circuitbreaker.open = %d, want 1", total)
	}
}

func TestDefaultMetricsConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultMetricsConfig()
	if cfg.MeterName != "github.com/felixgeelhaar/tileagent" {
		t.Errorf("MeterName = %s", cfg.MeterName)
	}
	if cfg.Provider != nil {
		t.Error("default config should use the global provider")
	}
}

func TestNoopMetricsProvider(t *testing.T) {
	t.Parallel()

	var m Metrics = NoopMetricsProvider{}
	ctx := context.Background()

	m.RecordStep(ctx, "a", "init", time.Second)
	m.RecordStateTransition(ctx, "a", "init", "explore")
	m.RecordCollaboratorFailure(ctx, "planner", "explore")
	m.RecordRenderCycle(ctx, "finished", true)
	m.RecordQuotaReport(ctx, "tree", 1)
	m.RecordRenderBudget(ctx, "a", -1)
	m.RecordCircuitBreakerStateChange(ctx, "scanner", true)
}
