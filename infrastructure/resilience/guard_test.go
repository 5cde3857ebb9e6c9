package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/tileagent/domain/world"
	"github.com/felixgeelhaar/tileagent/infrastructure/telemetry"
)

type stubHandle struct{}

func (stubHandle) Position() world.Coordinate { return world.At(0, 0) }
func (stubHandle) Energy() int                { return 10 }
func (stubHandle) Size() int                  { return 10 }

type stubScanner struct {
	calls   int
	outcome world.ScanOutcome
}

func (s *stubScanner) Scan(context.Context, world.Handle, world.ScanRequest) world.ScanOutcome {
	s.calls++
	return s.outcome
}

type stubCollector struct {
	calls int
	fails int
}

func (c *stubCollector) CollectNearby(context.Context, world.Handle, world.Category) (int, error) {
	c.calls++
	if c.calls <= c.fails {
		return 0, errors.New("backpack jammed")
	}
	return 3, nil
}

type stubRenderer struct {
	calls int
	err   error
}

func (r *stubRenderer) Advance(context.Context, world.Handle, world.Artifact, world.Coordinate) (world.RenderOutcome, error) {
	r.calls++
	return world.RenderFinished, r.err
}

type stubPlanner struct {
	calls int
	err   error
}

func (p *stubPlanner) Plan(world.Snapshot, world.Coordinate) error { return nil }
func (p *stubPlanner) ActionsTo(world.Coordinate) ([]world.Action, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return []world.Action{world.Move(world.East)}, nil
}
func (p *stubPlanner) CoordinatesMatching(world.Category) []world.Coordinate {
	return []world.Coordinate{world.At(1, 1)}
}

type recordingMetrics struct {
	telemetry.NoopMetricsProvider
	mu      sync.Mutex
	changes []bool
}

func (m *recordingMetrics) RecordCircuitBreakerStateChange(_ context.Context, _ string, isOpen bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes = append(m.changes, isOpen)
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	config := DefaultConfig()
	if config.BreakerThreshold != 5 {
		t.Errorf("BreakerThreshold = %d, want 5", config.BreakerThreshold)
	}
	if config.BreakerTimeout != 30*time.Second {
		t.Errorf("BreakerTimeout = %v, want 30s", config.BreakerTimeout)
	}
	if config.CollectRetryAttempts != 1 {
		t.Errorf("CollectRetryAttempts = %d, want 1", config.CollectRetryAttempts)
	}
}

func TestOptions(t *testing.T) {
	t.Parallel()

	config := DefaultConfig()
	for _, opt := range []Option{
		WithBreakerThreshold(2),
		WithBreakerTimeout(time.Minute),
		WithCollectRetryAttempts(3),
		WithRetryDelay(time.Millisecond),
	} {
		opt(&config)
	}

	if config.BreakerThreshold != 2 || config.BreakerTimeout != time.Minute {
		t.Errorf("breaker config = %d/%v", config.BreakerThreshold, config.BreakerTimeout)
	}
	if config.CollectRetryAttempts != 3 || config.RetryInitialDelay != time.Millisecond {
		t.Errorf("retry config = %d/%v", config.CollectRetryAttempts, config.RetryInitialDelay)
	}
}

func TestGuard_ScannerOpensAfterThreshold(t *testing.T) {
	t.Parallel()

	metrics := &recordingMetrics{}
	g := NewGuard(metrics, WithBreakerThreshold(2), WithBreakerTimeout(time.Minute))
	next := &stubScanner{outcome: world.ScanOutcome{Status: world.ScanFailed, Reason: "no energy"}}
	scanner := g.Scanner(next)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if got := scanner.Scan(ctx, stubHandle{}, world.ScanRequest{}); got.Status != world.ScanFailed || got.Reason != "no energy" {
			t.Fatalf("Scan() #%d = %+v, want the scanner's own failure", i, got)
		}
	}

	got := scanner.Scan(ctx, stubHandle{}, world.ScanRequest{})
	if got.Status != world.ScanFailed {
		t.Errorf("Scan() with open breaker = %+v, want ScanFailed", got)
	}
	if next.calls != 2 {
		t.Errorf("scanner called %d times, want 2", next.calls)
	}
	if state := g.BreakerStates()[NameScanner]; state != "open" {
		t.Errorf("scanner breaker = %s, want open", state)
	}

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	if len(metrics.changes) != 1 || !metrics.changes[0] {
		t.Errorf("breaker changes = %v, want [true]", metrics.changes)
	}
}

func TestGuard_ScannerPassesSuccess(t *testing.T) {
	t.Parallel()

	g := NewGuard(nil)
	found := []world.Coordinate{world.At(2, 3)}
	scanner := g.Scanner(&stubScanner{outcome: world.ScanOutcome{Status: world.ScanPartial, Found: found}})

	got := scanner.Scan(context.Background(), stubHandle{}, world.ScanRequest{})
	if got.Status != world.ScanPartial || len(got.Found) != 1 {
		t.Errorf("Scan() = %+v, want the partial outcome", got)
	}
	if state := g.BreakerStates()[NameScanner]; state != "closed" {
		t.Errorf("scanner breaker = %s, want closed", state)
	}
}

func TestGuard_CollectorRetries(t *testing.T) {
	t.Parallel()

	g := NewGuard(nil, WithCollectRetryAttempts(3), WithRetryDelay(time.Millisecond))
	next := &stubCollector{fails: 2}

	n, err := g.Collector(next).CollectNearby(context.Background(), stubHandle{}, world.CategoryTree)
	if err != nil {
		t.Fatalf("CollectNearby() error = %v", err)
	}
	if n != 3 {
		t.Errorf("CollectNearby() = %d, want 3", n)
	}
	if next.calls != 3 {
		t.Errorf("collector called %d times, want 3", next.calls)
	}
}

func TestGuard_CollectorSingleAttemptByDefault(t *testing.T) {
	t.Parallel()

	g := NewGuard(nil)
	next := &stubCollector{fails: 1}

	if _, err := g.Collector(next).CollectNearby(context.Background(), stubHandle{}, world.CategoryRock); err == nil {
		t.Fatal("CollectNearby() should surface the failure")
	}
	if next.calls != 1 {
		t.Errorf("collector called %d times, want 1", next.calls)
	}
}

func TestGuard_RendererFailsFastWhenOpen(t *testing.T) {
	t.Parallel()

	g := NewGuard(nil, WithBreakerThreshold(1), WithBreakerTimeout(time.Minute))
	next := &stubRenderer{err: errors.New("canvas torn")}
	renderer := g.Renderer(next)
	ctx := context.Background()

	if _, err := renderer.Advance(ctx, stubHandle{}, world.Artifact{Name: "a.png"}, world.At(0, 0)); err == nil {
		t.Fatal("Advance() should fail")
	}
	if _, err := renderer.Advance(ctx, stubHandle{}, world.Artifact{Name: "a.png"}, world.At(0, 0)); err == nil {
		t.Fatal("Advance() with open breaker should fail")
	}
	if next.calls != 1 {
		t.Errorf("renderer called %d times, want 1", next.calls)
	}
}

func TestGuard_PlannerGuardsActionsOnly(t *testing.T) {
	t.Parallel()

	g := NewGuard(nil, WithBreakerThreshold(1), WithBreakerTimeout(time.Minute))
	crashed := errors.New("planner crashed")
	next := &stubPlanner{err: crashed}
	planner := g.Planner(next)

	if _, err := planner.ActionsTo(world.At(4, 4)); !errors.Is(err, crashed) {
		t.Fatalf("ActionsTo() error = %v, want the planner's error", err)
	}
	if _, err := planner.ActionsTo(world.At(4, 4)); err == nil {
		t.Fatal("ActionsTo() with open breaker should fail")
	}
	if next.calls != 1 {
		t.Errorf("ActionsTo called %d times, want 1", next.calls)
	}

	if err := planner.Plan(nil, world.At(0, 0)); err != nil {
		t.Errorf("Plan() error = %v", err)
	}
	if got := planner.CoordinatesMatching(world.CategoryTree); len(got) != 1 {
		t.Errorf("CoordinatesMatching() = %v", got)
	}
}

func TestGuard_PerRequestErrorsKeepBreakersClosed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("unreachable targets", func(t *testing.T) {
		t.Parallel()

		g := NewGuard(nil, WithBreakerThreshold(2), WithBreakerTimeout(time.Minute))
		next := &stubPlanner{err: world.ErrNoPath}
		planner := g.Planner(next)

		for i := 0; i < 5; i++ {
			if _, err := planner.ActionsTo(world.At(9, i)); !errors.Is(err, world.ErrNoPath) {
				t.Fatalf("ActionsTo() #%d error = %v, want ErrNoPath", i, err)
			}
		}

		next.err = nil
		actions, err := planner.ActionsTo(world.At(1, 1))
		if err != nil || len(actions) != 1 {
			t.Errorf("ActionsTo() reachable = %v, %v; want one action", actions, err)
		}
		if state := g.BreakerStates()[NamePlanner]; state != "closed" {
			t.Errorf("planner breaker = %s, want closed", state)
		}
	})

	t.Run("scanner out of energy", func(t *testing.T) {
		t.Parallel()

		g := NewGuard(nil, WithBreakerThreshold(2), WithBreakerTimeout(time.Minute))
		next := &stubScanner{outcome: world.ScanOutcome{Status: world.ScanFailed, Reason: world.ErrNoEnergy.Error()}}
		scanner := g.Scanner(next)

		for i := 0; i < 5; i++ {
			if got := scanner.Scan(ctx, stubHandle{}, world.ScanRequest{}); got.Reason != world.ErrNoEnergy.Error() {
				t.Fatalf("Scan() #%d = %+v, want the scanner's own failure", i, got)
			}
		}
		if next.calls != 5 {
			t.Errorf("scanner called %d times, want 5", next.calls)
		}
		if state := g.BreakerStates()[NameScanner]; state != "closed" {
			t.Errorf("scanner breaker = %s, want closed", state)
		}
	})

	t.Run("collector out of energy", func(t *testing.T) {
		t.Parallel()

		g := NewGuard(nil, WithBreakerThreshold(1), WithBreakerTimeout(time.Minute))
		collector := g.Collector(energyless{})

		for i := 0; i < 3; i++ {
			if _, err := collector.CollectNearby(ctx, stubHandle{}, world.CategoryTree); !errors.Is(err, world.ErrNoEnergy) {
				t.Fatalf("CollectNearby() #%d error = %v, want ErrNoEnergy", i, err)
			}
		}
		if state := g.BreakerStates()[NameCollector]; state != "closed" {
			t.Errorf("collector breaker = %s, want closed", state)
		}
	})
}

type energyless struct{}

func (energyless) CollectNearby(context.Context, world.Handle, world.Category) (int, error) {
	return 0, world.ErrNoEnergy
}

func TestGuard_Names(t *testing.T) {
	t.Parallel()

	g := NewGuard(nil)
	g.Scanner(&stubScanner{})
	g.Planner(&stubPlanner{})
	g.Collector(&stubCollector{})
	g.Renderer(&stubRenderer{})

	want := []string{NameCollector, NamePlanner, NameRenderer, NameScanner}
	got := g.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
