package application_test

import (
	"math/rand/v2"
	"testing"

	"go.opentelemetry.io/otel/trace/noop"

	"github.com/felixgeelhaar/tileagent/application"
	"github.com/felixgeelhaar/tileagent/domain/agent"
	"github.com/felixgeelhaar/tileagent/domain/quota"
	"github.com/felixgeelhaar/tileagent/domain/world"
	infraevent "github.com/felixgeelhaar/tileagent/infrastructure/event"
	"github.com/felixgeelhaar/tileagent/infrastructure/gridworld"
	"github.com/felixgeelhaar/tileagent/infrastructure/storage/memory"
	"github.com/felixgeelhaar/tileagent/infrastructure/telemetry"
)

func newWorld(t *testing.T) *gridworld.World {
	t.Helper()

	w, err := gridworld.NewFromLayout(gridworld.Config{EnergyMax: 10}, "@.", "..")
	if err != nil {
		t.Fatalf("NewFromLayout() error = %v", err)
	}
	return w
}

func TestWithAgentID(t *testing.T) {
	t.Parallel()

	config := &application.ControllerConfig{}
	application.WithAgentID("artemis")(config)

	if config.AgentID != "artemis" {
		t.Errorf("AgentID = %q, want artemis", config.AgentID)
	}
}

func TestWithWorld(t *testing.T) {
	t.Parallel()

	w := newWorld(t)
	config := &application.ControllerConfig{}
	application.WithWorld(w, w.Planner())(config)

	if config.Scanner != w || config.Collector != w || config.Renderer != w || config.View != w {
		t.Error("WithWorld should set scanner, collector, renderer and view")
	}
	if config.Planner != w.Planner() {
		t.Error("WithWorld should set the planner")
	}
}

func TestWithIndividualCollaborators(t *testing.T) {
	t.Parallel()

	w := newWorld(t)
	config := &application.ControllerConfig{}
	for _, opt := range []application.Option{
		application.WithScanner(w),
		application.WithPlanner(w.Planner()),
		application.WithCollector(w),
		application.WithRenderer(w),
		application.WithView(w),
	} {
		opt(config)
	}

	if config.Scanner == nil || config.Planner == nil || config.Collector == nil || config.Renderer == nil || config.View == nil {
		t.Errorf("config = %+v, want every collaborator set", config)
	}
}

func TestWithCategoriesAndRadius(t *testing.T) {
	t.Parallel()

	config := &application.ControllerConfig{}
	application.WithCategories(world.CategoryTree)(config)
	application.WithScanRadius(4)(config)

	if len(config.Categories) != 1 || config.Categories[0] != world.CategoryTree {
		t.Errorf("Categories = %v, want [tree]", config.Categories)
	}
	if config.ScanRadius != 4 {
		t.Errorf("ScanRadius = %d, want 4", config.ScanRadius)
	}
}

func TestWithArtifacts(t *testing.T) {
	t.Parallel()

	config := &application.ControllerConfig{}
	application.WithArtifacts(world.Artifact{Name: "meow.png"}, world.Artifact{Name: "a.png"}, world.Artifact{Name: "b.png"})(config)

	if config.Terminal.Name != "meow.png" {
		t.Errorf("Terminal = %q, want meow.png", config.Terminal.Name)
	}
	if len(config.Catalog) != 2 {
		t.Errorf("Catalog = %v, want two artifacts", config.Catalog)
	}
}

func TestWithBudgetRange(t *testing.T) {
	t.Parallel()

	config := &application.ControllerConfig{}
	application.WithBudgetRange(0, 0)(config)

	if config.BudgetRange == nil || *config.BudgetRange != (application.BudgetRange{}) {
		t.Errorf("BudgetRange = %v, want [0, 0]", config.BudgetRange)
	}
}

func TestWithSupportingServices(t *testing.T) {
	t.Parallel()

	tracker, err := quota.New(quota.ModeAny, quota.Quota{Name: "any", Category: world.CategoryAny, Target: 1})
	if err != nil {
		t.Fatalf("quota.New() error = %v", err)
	}
	publisher := infraevent.NewPublisher(memory.NewEventStore())
	metrics := telemetry.NoopMetricsProvider{}
	source := rand.New(rand.NewPCG(1, 2))
	transitions := agent.DefaultTransitions()
	tracer := noop.NewTracerProvider().Tracer("test")

	config := &application.ControllerConfig{}
	for _, opt := range []application.Option{
		application.WithTracer(tracer),
		application.WithTracker(tracker),
		application.WithPublisher(publisher),
		application.WithMetrics(metrics),
		application.WithRand(source),
		application.WithTransitions(transitions),
	} {
		opt(config)
	}

	if config.Tracker != tracker {
		t.Error("WithTracker should set the tracker")
	}
	if config.Publisher != publisher {
		t.Error("WithPublisher should set the publisher")
	}
	if config.Metrics == nil {
		t.Error("WithMetrics should set the metrics")
	}
	if config.Rand != source {
		t.Error("WithRand should set the random source")
	}
	if config.Tracer == nil {
		t.Error("WithTracer should set the tracer")
	}
	if config.Transitions != transitions {
		t.Error("WithTransitions should set the transition table")
	}
}

func TestNewControllerWithOptions(t *testing.T) {
	t.Parallel()

	w := newWorld(t)
	c, err := application.NewControllerWithOptions(
		application.WithAgentID("artemis"),
		application.WithWorld(w, w.Planner()),
	)
	if err != nil {
		t.Fatalf("NewControllerWithOptions() error = %v", err)
	}
	defer c.Close()

	if c.Agent().ID() != "artemis" {
		t.Errorf("ID() = %q, want artemis", c.Agent().ID())
	}
	if c.State() != agent.StateInit {
		t.Errorf("State() = %s, want init", c.State())
	}
}
