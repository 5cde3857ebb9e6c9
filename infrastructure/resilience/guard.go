// Package resilience guards world collaborators with fortify circuit breakers
// and retries.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/tileagent/domain/world"
	"github.com/felixgeelhaar/tileagent/infrastructure/telemetry"
)

// ErrScanFailed is counted against the scanner breaker when a scan reports
// ScanFailed.
var ErrScanFailed = errors.New("scan failed")

// Collaborator names used for breakers, logs and metrics.
const (
	NameScanner   = "scanner"
	NamePlanner   = "planner"
	NameCollector = "collector"
	NameRenderer  = "renderer"
)

// Guard builds guarded collaborators, one breaker per collaborator.
type Guard struct {
	config  Config
	metrics telemetry.Metrics

	mu     sync.Mutex
	states map[string]func() circuitbreaker.State
	open   map[string]bool
}

// NewGuard creates a guard. metrics may be nil.
func NewGuard(metrics telemetry.Metrics, opts ...Option) *Guard {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.BreakerThreshold <= 0 {
		config.BreakerThreshold = DefaultConfig().BreakerThreshold
	}
	if config.CollectRetryAttempts <= 0 {
		config.CollectRetryAttempts = 1
	}
	if metrics == nil {
		metrics = telemetry.NoopMetricsProvider{}
	}
	return &Guard{
		config:  config,
		metrics: metrics,
		states:  make(map[string]func() circuitbreaker.State),
		open:    make(map[string]bool),
	}
}

func newBreaker[T any](g *Guard, name string) circuitbreaker.CircuitBreaker[T] {
	threshold := g.config.BreakerThreshold
	cb := circuitbreaker.New[T](circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    g.config.BreakerTimeout,
		Timeout:     g.config.BreakerTimeout,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- threshold is positive
		},
		IsSuccessful: isHealthy,
	})

	g.mu.Lock()
	g.states[name] = cb.State
	g.mu.Unlock()
	return cb
}

// isHealthy reports whether err leaves the collaborator healthy. A missing
// route or a body short on energy is an answer about one request, not a
// broken collaborator.
func isHealthy(err error) bool {
	return err == nil || errors.Is(err, world.ErrNoPath) || errors.Is(err, world.ErrNoEnergy)
}

// observe records breaker transitions between open and not open.
func (g *Guard) observe(ctx context.Context, name string, state circuitbreaker.State) {
	isOpen := state.String() == "open"

	g.mu.Lock()
	changed := g.open[name] != isOpen
	g.open[name] = isOpen
	g.mu.Unlock()

	if changed {
		g.metrics.RecordCircuitBreakerStateChange(ctx, name, isOpen)
	}
}

// BreakerStates returns the current state of every breaker by collaborator.
func (g *Guard) BreakerStates() map[string]string {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make(map[string]string, len(g.states))
	for name, state := range g.states {
		out[name] = state().String()
	}
	return out
}

// Names returns the guarded collaborator names in sorted order.
func (g *Guard) Names() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	names := make([]string, 0, len(g.states))
	for name := range g.states {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Scanner wraps a scanner. A failed scan counts against the breaker unless the
// body only ran out of energy; an open breaker
// yields a ScanFailed outcome without calling next.
func (g *Guard) Scanner(next world.Scanner) world.Scanner {
	return &guardedScanner{next: next, guard: g, breaker: newBreaker[world.ScanOutcome](g, NameScanner)}
}

type guardedScanner struct {
	next    world.Scanner
	guard   *Guard
	breaker circuitbreaker.CircuitBreaker[world.ScanOutcome]
}

func (s *guardedScanner) Scan(ctx context.Context, h world.Handle, req world.ScanRequest) world.ScanOutcome {
	var outcome world.ScanOutcome
	_, err := s.breaker.Execute(ctx, func(ctx context.Context) (world.ScanOutcome, error) {
		outcome = s.next.Scan(ctx, h, req)
		if outcome.Status == world.ScanFailed {
			if outcome.Reason == world.ErrNoEnergy.Error() {
				return outcome, fmt.Errorf("%w: %w", ErrScanFailed, world.ErrNoEnergy)
			}
			return outcome, ErrScanFailed
		}
		return outcome, nil
	})
	s.guard.observe(ctx, NameScanner, s.breaker.State())

	if err != nil && !errors.Is(err, ErrScanFailed) {
		return world.ScanOutcome{Status: world.ScanFailed, Reason: err.Error()}
	}
	return outcome
}

// Planner wraps a planner. Only ActionsTo is guarded; Plan and
// CoordinatesMatching pass straight through.
func (g *Guard) Planner(next world.Planner) world.Planner {
	return &guardedPlanner{Planner: next, guard: g, breaker: newBreaker[[]world.Action](g, NamePlanner)}
}

type guardedPlanner struct {
	world.Planner
	guard   *Guard
	breaker circuitbreaker.CircuitBreaker[[]world.Action]
}

func (p *guardedPlanner) ActionsTo(target world.Coordinate) ([]world.Action, error) {
	ctx := context.Background()
	actions, err := p.breaker.Execute(ctx, func(context.Context) ([]world.Action, error) {
		return p.Planner.ActionsTo(target)
	})
	p.guard.observe(ctx, NamePlanner, p.breaker.State())
	return actions, err
}

// Collector wraps a collector with a breaker around a retry.
func (g *Guard) Collector(next world.Collector) world.Collector {
	return &guardedCollector{
		next:    next,
		guard:   g,
		breaker: newBreaker[int](g, NameCollector),
		retry: retry.New[int](retry.Config{
			MaxAttempts:   g.config.CollectRetryAttempts,
			InitialDelay:  g.config.RetryInitialDelay,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    g.config.RetryBackoffMultiplier,
		}),
	}
}

type guardedCollector struct {
	next    world.Collector
	guard   *Guard
	breaker circuitbreaker.CircuitBreaker[int]
	retry   retry.Retry[int]
}

func (c *guardedCollector) CollectNearby(ctx context.Context, h world.Handle, category world.Category) (int, error) {
	n, err := c.breaker.Execute(ctx, func(ctx context.Context) (int, error) {
		return c.retry.Do(ctx, func(ctx context.Context) (int, error) {
			return c.next.CollectNearby(ctx, h, category)
		})
	})
	c.guard.observe(ctx, NameCollector, c.breaker.State())
	return n, err
}

// Renderer wraps a renderer.
func (g *Guard) Renderer(next world.Renderer) world.Renderer {
	return &guardedRenderer{next: next, guard: g, breaker: newBreaker[world.RenderOutcome](g, NameRenderer)}
}

type guardedRenderer struct {
	next    world.Renderer
	guard   *Guard
	breaker circuitbreaker.CircuitBreaker[world.RenderOutcome]
}

func (r *guardedRenderer) Advance(ctx context.Context, h world.Handle, a world.Artifact, at world.Coordinate) (world.RenderOutcome, error) {
	outcome, err := r.breaker.Execute(ctx, func(ctx context.Context) (world.RenderOutcome, error) {
		return r.next.Advance(ctx, h, a, at)
	})
	r.guard.observe(ctx, NameRenderer, r.breaker.State())
	return outcome, err
}
