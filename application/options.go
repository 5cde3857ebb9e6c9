package application

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/tileagent/domain/agent"
	"github.com/felixgeelhaar/tileagent/domain/event"
	"github.com/felixgeelhaar/tileagent/domain/quota"
	"github.com/felixgeelhaar/tileagent/domain/world"
	"github.com/felixgeelhaar/tileagent/infrastructure/telemetry"
)

// Option configures the controller.
type Option func(*ControllerConfig)

// WithAgentID sets the agent identity.
func WithAgentID(id string) Option {
	return func(c *ControllerConfig) {
		c.AgentID = id
	}
}

// WithScanner sets the area scanner.
func WithScanner(s world.Scanner) Option {
	return func(c *ControllerConfig) {
		c.Scanner = s
	}
}

// WithPlanner sets the path planner.
func WithPlanner(p world.Planner) Option {
	return func(c *ControllerConfig) {
		c.Planner = p
	}
}

// WithCollector sets the resource collector.
func WithCollector(col world.Collector) Option {
	return func(c *ControllerConfig) {
		c.Collector = col
	}
}

// WithRenderer sets the artifact renderer.
func WithRenderer(r world.Renderer) Option {
	return func(c *ControllerConfig) {
		c.Renderer = r
	}
}

// WithView sets the world view.
func WithView(v world.View) Option {
	return func(c *ControllerConfig) {
		c.View = v
	}
}

// WithWorld sets every collaborator from a single implementation.
func WithWorld(w interface {
	world.Scanner
	world.Collector
	world.Renderer
	world.View
}, p world.Planner) Option {
	return func(c *ControllerConfig) {
		c.Scanner = w
		c.Collector = w
		c.Renderer = w
		c.View = w
		c.Planner = p
	}
}

// WithCategories sets the tracked resource categories, in scan order.
func WithCategories(categories ...world.Category) Option {
	return func(c *ControllerConfig) {
		c.Categories = categories
	}
}

// WithScanRadius sets the explore scan radius.
func WithScanRadius(radius int) Option {
	return func(c *ControllerConfig) {
		c.ScanRadius = radius
	}
}

// WithTracker sets the completion tracker.
func WithTracker(t *quota.Tracker) Option {
	return func(c *ControllerConfig) {
		c.Tracker = t
	}
}

// WithArtifacts sets the artifact catalog and the terminal artifact.
func WithArtifacts(terminal world.Artifact, catalog ...world.Artifact) Option {
	return func(c *ControllerConfig) {
		c.Terminal = terminal
		c.Catalog = catalog
	}
}

// WithBudgetRange sets the inclusive range the render budget is drawn from.
func WithBudgetRange(lo, hi int) Option {
	return func(c *ControllerConfig) {
		c.BudgetRange = &BudgetRange{Min: lo, Max: hi}
	}
}

// WithRand sets the random source for the budget draw and artifact choice.
func WithRand(r Rand) Option {
	return func(c *ControllerConfig) {
		c.Rand = r
	}
}

// WithPublisher sets the event sink.
func WithPublisher(p event.Publisher) Option {
	return func(c *ControllerConfig) {
		c.Publisher = p
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m telemetry.Metrics) Option {
	return func(c *ControllerConfig) {
		c.Metrics = m
	}
}

// WithTracer sets the tracer that spans every step.
func WithTracer(t trace.Tracer) Option {
	return func(c *ControllerConfig) {
		c.Tracer = t
	}
}

// WithTransitions sets the transition table.
func WithTransitions(t *agent.Transitions) Option {
	return func(c *ControllerConfig) {
		c.Transitions = t
	}
}

// NewControllerWithOptions creates a controller with functional options.
func NewControllerWithOptions(opts ...Option) (*Controller, error) {
	config := ControllerConfig{}
	for _, opt := range opts {
		opt(&config)
	}
	return NewController(config)
}
