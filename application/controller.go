// Package application provides the decision loop that drives a tile agent.
package application

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/felixgeelhaar/tileagent/domain/agent"
	"github.com/felixgeelhaar/tileagent/domain/config"
	"github.com/felixgeelhaar/tileagent/domain/event"
	"github.com/felixgeelhaar/tileagent/domain/quota"
	"github.com/felixgeelhaar/tileagent/domain/world"
	infraevent "github.com/felixgeelhaar/tileagent/infrastructure/event"
	"github.com/felixgeelhaar/tileagent/infrastructure/logging"
	"github.com/felixgeelhaar/tileagent/infrastructure/statemachine"
	"github.com/felixgeelhaar/tileagent/infrastructure/storage/memory"
	"github.com/felixgeelhaar/tileagent/infrastructure/telemetry"
)

// Collaborator names used in logs, metrics and events.
const (
	CollaboratorScanner   = "scanner"
	CollaboratorPlanner   = "planner"
	CollaboratorCollector = "collector"
	CollaboratorRenderer  = "renderer"
	CollaboratorView      = "view"
	CollaboratorPublisher = "publisher"
)

// Rand is the random source for the budget draw and the artifact choice.
// *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// BudgetRange is the inclusive range the render budget is drawn from.
type BudgetRange struct {
	Min int
	Max int
}

// ControllerConfig contains configuration for the controller.
type ControllerConfig struct {
	AgentID string

	Scanner   world.Scanner
	Planner   world.Planner
	Collector world.Collector
	Renderer  world.Renderer
	View      world.View

	Categories  []world.Category
	ScanRadius  int
	Tracker     *quota.Tracker
	Catalog     []world.Artifact
	Terminal    world.Artifact
	BudgetRange *BudgetRange

	Rand        Rand
	Publisher   event.Publisher
	Metrics     telemetry.Metrics
	Tracer      trace.Tracer
	Transitions *agent.Transitions
}

// Controller is the agent's finite-state decision loop. Each Step runs the
// handler for the current state and commits the state it proposes through
// the state chart. A Controller is not safe for concurrent use.
type Controller struct {
	agent   *agent.Agent
	interp  *statemachine.Interpreter
	haltErr error

	scanner   world.Scanner
	planner   world.Planner
	collector world.Collector
	renderer  world.Renderer
	view      world.View

	categories []world.Category
	radius     int
	catalog    []world.Artifact
	terminal   world.Artifact
	budget     BudgetRange

	rand      Rand
	publisher event.Publisher
	metrics   telemetry.Metrics
	tracer    trace.Tracer
}

// stepFailure is a collaborator failure that leaves the state unchanged.
type stepFailure struct {
	collaborator string
	err          error
}

func (f *stepFailure) Error() string {
	return f.collaborator + ": " + f.err.Error()
}

func (f *stepFailure) Unwrap() error {
	return f.err
}

func failure(collaborator string, err error) error {
	return &stepFailure{collaborator: collaborator, err: err}
}

// NewController creates a controller with the given configuration. Unset
// options take the values of config.Default.
func NewController(cfg ControllerConfig) (*Controller, error) {
	switch {
	case cfg.Scanner == nil:
		return nil, fmt.Errorf("%w: scanner", ErrMissingCollaborator)
	case cfg.Planner == nil:
		return nil, fmt.Errorf("%w: planner", ErrMissingCollaborator)
	case cfg.Collector == nil:
		return nil, fmt.Errorf("%w: collector", ErrMissingCollaborator)
	case cfg.Renderer == nil:
		return nil, fmt.Errorf("%w: renderer", ErrMissingCollaborator)
	case cfg.View == nil:
		return nil, fmt.Errorf("%w: view", ErrMissingCollaborator)
	}

	defaults := config.Default().Agent

	if cfg.AgentID == "" {
		cfg.AgentID = uuid.New().String()
	}
	if len(cfg.Categories) == 0 {
		categories, err := defaults.TrackedCategories()
		if err != nil {
			return nil, err
		}
		cfg.Categories = categories
	}
	if cfg.ScanRadius <= 0 {
		cfg.ScanRadius = defaults.ScanRadius
	}
	if cfg.Tracker == nil {
		tracker, err := defaults.Quota.NewTracker()
		if err != nil {
			return nil, err
		}
		cfg.Tracker = tracker
	}
	if len(cfg.Catalog) == 0 && cfg.Terminal.Name == "" {
		cfg.Catalog = defaults.Artifacts.CatalogArtifacts()
		cfg.Terminal = defaults.Artifacts.TerminalArtifact()
	}
	if len(cfg.Catalog) == 0 {
		return nil, ErrEmptyCatalog
	}
	if cfg.BudgetRange == nil {
		cfg.BudgetRange = &BudgetRange{Min: defaults.RenderBudget.Min, Max: defaults.RenderBudget.Max}
	}
	if cfg.BudgetRange.Max < cfg.BudgetRange.Min {
		return nil, fmt.Errorf("%w: [%d, %d]", ErrInvalidBudgetRange, cfg.BudgetRange.Min, cfg.BudgetRange.Max)
	}
	if cfg.Rand == nil {
		cfg.Rand = globalRand{}
	}
	if cfg.Publisher == nil {
		cfg.Publisher = infraevent.NewPublisher(memory.NewEventStore())
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NoopMetricsProvider{}
	}
	if cfg.Tracer == nil {
		cfg.Tracer = noop.NewTracerProvider().Tracer("")
	}

	a := agent.New(cfg.AgentID, cfg.Tracker)
	machineCtx := statemachine.NewContext(a)
	if cfg.Transitions != nil {
		machineCtx.Transitions = cfg.Transitions
	}

	machine, err := statemachine.NewAgentMachine()
	if err != nil {
		return nil, fmt.Errorf("build state machine: %w", err)
	}
	interp := statemachine.NewInterpreter(machine, machineCtx)
	interp.Start()

	return &Controller{
		agent:      a,
		interp:     interp,
		scanner:    cfg.Scanner,
		planner:    cfg.Planner,
		collector:  cfg.Collector,
		renderer:   cfg.Renderer,
		view:       cfg.View,
		categories: cfg.Categories,
		radius:     cfg.ScanRadius,
		catalog:    cfg.Catalog,
		terminal:   cfg.Terminal,
		budget:     *cfg.BudgetRange,
		rand:       cfg.Rand,
		publisher:  cfg.Publisher,
		metrics:    cfg.Metrics,
		tracer:     cfg.Tracer,
	}, nil
}

// Agent returns the aggregate driven by the controller.
func (c *Controller) Agent() *agent.Agent {
	return c.agent
}

// State returns the current state.
func (c *Controller) State() agent.State {
	return c.agent.State()
}

// IsTerminated returns true once the agent reached the absorbing state.
func (c *Controller) IsTerminated() bool {
	return c.interp.IsTerminal()
}

// IsRetired returns true once the agent terminated and its termination
// notice was published.
func (c *Controller) IsRetired() bool {
	return c.IsTerminated() && c.agent.Notified()
}

// Close stops the state chart. It does not close the publisher.
func (c *Controller) Close() {
	c.interp.Stop()
}

// Step runs one decision for the current state and returns the state after
// it. Collaborator failures are absorbed; a proposal outside the transition
// table halts the controller and panics with *agent.InvalidTransitionError.
func (c *Controller) Step(ctx context.Context, h world.Handle) agent.State {
	if c.agent.IsHalted() {
		panic(c.haltErr)
	}

	start := time.Now()
	from := c.agent.State()
	step := c.agent.CountStep()
	c.agent.Observe(h.Position())

	ctx, span := c.tracer.Start(ctx, "tileagent.step", trace.WithAttributes(
		attribute.String("agent.id", c.agent.ID()),
		attribute.String("agent.state", from.String()),
		attribute.Int64("agent.step", int64(step)), // #nosec G115 -- step counts stay small
	))
	defer span.End()

	logging.Debug().
		Add(logging.AgentID(c.agent.ID())).
		Add(logging.State(from)).
		Add(logging.Int("step", int(step))). // #nosec G115 -- step counts stay small
		Add(logging.Coordinate(c.agent.Position())).
		Add(logging.Int("targets", len(c.agent.Targets()))).
		Add(logging.Int("actions", c.agent.PendingActions())).
		Msg("step")

	next, err := c.dispatch(ctx, h, from)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "collaborator failed")
		var sf *stepFailure
		if errors.As(err, &sf) {
			c.reportFailure(ctx, from, sf.collaborator, sf.err)
		} else {
			c.reportFailure(ctx, from, "unknown", err)
		}
	} else {
		c.commit(ctx, from, next, step)
		span.SetAttributes(attribute.String("agent.next_state", next.String()))
	}

	c.metrics.RecordStep(ctx, c.agent.ID(), from.String(), time.Since(start))
	return c.agent.State()
}

func (c *Controller) dispatch(ctx context.Context, h world.Handle, s agent.State) (agent.State, error) {
	switch s {
	case agent.StateInit:
		return c.handleInit(ctx)
	case agent.StateExplore:
		return c.handleExplore(ctx, h)
	case agent.StateLocate:
		return c.handleLocate(ctx, h)
	case agent.StateGather:
		return c.handleGather(ctx, h)
	case agent.StateRender:
		return c.handleRender(ctx, h)
	case agent.StateTerminate:
		return c.handleTerminate(ctx)
	default:
		c.halt(&agent.InvalidTransitionError{From: s, To: s})
		return s, nil
	}
}

// commit validates and applies a proposed transition.
func (c *Controller) commit(ctx context.Context, from, to agent.State, step uint64) {
	if err := c.interp.Transition(to); err != nil {
		logging.Error().
			Add(logging.AgentID(c.agent.ID())).
			Add(logging.FromState(from)).
			Add(logging.ToState(to)).
			Add(logging.ErrorField(err)).
			Msg("transition outside the table")
		c.halt(err)
	}
	if from == to {
		return
	}

	logging.Info().
		Add(logging.AgentID(c.agent.ID())).
		Add(logging.FromState(from)).
		Add(logging.ToState(to)).
		Msg("state transition")
	c.metrics.RecordStateTransition(ctx, c.agent.ID(), from.String(), to.String())
	c.publish(ctx, event.TypeStateTransitioned, event.StateTransitionedPayload{
		FromState: from.String(),
		ToState:   to.String(),
		Step:      step,
	})
}

// halt stops the controller for good and panics with the cause.
func (c *Controller) halt(err error) {
	var ite *agent.InvalidTransitionError
	if errors.As(err, &ite) {
		err = ite
	}
	c.agent.Halt()
	c.haltErr = err
	panic(err)
}

// reportFailure logs, counts and publishes an absorbed collaborator failure.
func (c *Controller) reportFailure(ctx context.Context, s agent.State, collaborator string, err error) {
	logging.Warn().
		Add(logging.AgentID(c.agent.ID())).
		Add(logging.Collaborator(collaborator)).
		Add(logging.State(s)).
		Add(logging.ErrorField(err)).
		Msg("collaborator failed")
	c.metrics.RecordCollaboratorFailure(ctx, collaborator, s.String())
	c.publish(ctx, event.TypeCollaboratorFailed, event.CollaboratorFailedPayload{
		Collaborator: collaborator,
		State:        s.String(),
		Error:        err.Error(),
	})
}

// publish sends one event. Sink failures are logged and otherwise ignored.
func (c *Controller) publish(ctx context.Context, t event.Type, payload any) {
	e, err := event.NewEvent(c.agent.ID(), t, payload)
	if err == nil {
		err = c.publisher.Publish(ctx, e)
	}
	if err != nil {
		logging.Warn().
			Add(logging.AgentID(c.agent.ID())).
			Add(logging.Collaborator(CollaboratorPublisher)).
			Add(logging.Str("event_type", string(t))).
			Add(logging.ErrorField(err)).
			Msg("event not published")
	}
}

func (c *Controller) handleInit(ctx context.Context) (agent.State, error) {
	budget := c.budget.Min + c.rand.IntN(c.budget.Max-c.budget.Min+1)
	c.agent.SetRenderBudget(budget)

	logging.Info().
		Add(logging.AgentID(c.agent.ID())).
		Add(logging.Budget(budget)).
		Msg("agent started")
	c.metrics.RecordRenderBudget(ctx, c.agent.ID(), budget)
	c.publish(ctx, event.TypeAgentStarted, event.AgentStartedPayload{RenderBudget: budget})
	return agent.StateExplore, nil
}

func (c *Controller) handleExplore(ctx context.Context, h world.Handle) (agent.State, error) {
	pos := h.Position()
	outcome := c.scanner.Scan(ctx, h, world.ScanRequest{
		Origin:       pos,
		Radius:       c.radius,
		WorldSize:    h.Size(),
		EnergyBudget: h.Energy(),
		Match:        world.HoldsAny(c.categories...),
	})
	if outcome.Status == world.ScanFailed {
		return agent.StateExplore, failure(CollaboratorScanner, fmt.Errorf("%w: %s", ErrScanFailed, outcome.Reason))
	}

	if err := c.replan(h, pos); err != nil {
		return agent.StateExplore, err
	}

	var targets []world.Coordinate
	for _, category := range c.categories {
		targets = append(targets, c.planner.CoordinatesMatching(category)...)
	}
	c.agent.ReplaceTargets(targets...)

	if len(targets) == 0 {
		return agent.StateExplore, nil
	}
	logging.Debug().
		Add(logging.AgentID(c.agent.ID())).
		Add(logging.Int("targets", len(targets))).
		Add(logging.Str("scan", outcome.Status.String())).
		Msg("targets found")
	return agent.StateLocate, nil
}

// replan rebuilds the planner's cost model from a fresh snapshot.
func (c *Controller) replan(h world.Handle, pos world.Coordinate) error {
	snapshot, err := c.view.Snapshot(h)
	if err != nil {
		return failure(CollaboratorView, err)
	}
	if err := c.planner.Plan(snapshot, pos); err != nil {
		return failure(CollaboratorPlanner, err)
	}
	return nil
}

func (c *Controller) handleLocate(ctx context.Context, h world.Handle) (agent.State, error) {
	if c.agent.PendingActions() == 0 {
		target, ok := c.agent.NextTarget()
		if !ok {
			return agent.StateExplore, nil
		}

		actions, err := c.planRoute(h, target)
		if err != nil {
			var sf *stepFailure
			if errors.As(err, &sf) {
				c.reportFailure(ctx, agent.StateLocate, sf.collaborator, sf.err)
			}
			return agent.StateLocate, nil
		}
		if len(actions) == 0 {
			logging.Debug().
				Add(logging.AgentID(c.agent.ID())).
				Add(logging.Coordinate(target)).
				Msg("empty route, target skipped")
			return agent.StateLocate, nil
		}
		c.agent.ReplaceActions(actions...)

		logging.Debug().
			Add(logging.AgentID(c.agent.ID())).
			Add(logging.Coordinate(target)).
			Add(logging.Int("actions", len(actions))).
			Msg("route planned")
	} else if c.agent.PendingActions() > 1 {
		action, _ := c.agent.NextAction()
		if err := c.execute(ctx, h, action); err != nil {
			c.reportFailure(ctx, agent.StateLocate, CollaboratorView, err)
		}
		c.agent.Observe(h.Position())
	}

	if c.agent.PendingActions() <= 1 {
		for _, a := range c.agent.DropActions() {
			logging.Debug().
				Add(logging.AgentID(c.agent.ID())).
				Add(logging.Str("action", a.String())).
				Msg("arrival action discarded")
		}
		return agent.StateGather, nil
	}
	return agent.StateLocate, nil
}

// planRoute asks the planner for the actions towards target. A failure drops
// the target.
func (c *Controller) planRoute(h world.Handle, target world.Coordinate) ([]world.Action, error) {
	if err := c.replan(h, h.Position()); err != nil {
		return nil, err
	}
	actions, err := c.planner.ActionsTo(target)
	if err != nil {
		return nil, failure(CollaboratorPlanner, fmt.Errorf("route to %s: %w", target, err))
	}
	return actions, nil
}

func (c *Controller) execute(ctx context.Context, h world.Handle, a world.Action) error {
	if a.Kind == world.ActionTeleport {
		return c.view.Teleport(ctx, h, a.Target)
	}
	return c.view.Move(ctx, h, a.Direction)
}

func (c *Controller) handleGather(ctx context.Context, h world.Handle) (agent.State, error) {
	var errs []error
	for _, category := range c.categories {
		n, err := c.collector.CollectNearby(ctx, h, category)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", category, err))
			continue
		}
		if n <= 0 {
			continue
		}

		c.agent.Report(category, n)
		met := c.agent.Tracker().IsAnyMet()
		logging.Debug().
			Add(logging.AgentID(c.agent.ID())).
			Add(logging.Category(category)).
			Add(logging.Int("amount", n)).
			Msg("resources collected")
		c.metrics.RecordQuotaReport(ctx, string(category), n)
		c.publish(ctx, event.TypeQuotaReported, event.QuotaReportedPayload{
			Category: string(category),
			Amount:   n,
			Met:      met,
		})
	}

	if len(errs) > 0 && len(errs) == len(c.categories) {
		return agent.StateGather, failure(CollaboratorCollector, errors.Join(errs...))
	}
	for _, err := range errs {
		c.reportFailure(ctx, agent.StateGather, CollaboratorCollector, err)
	}

	if c.agent.Tracker().IsAnyMet() {
		return agent.StateRender, nil
	}
	return agent.StateLocate, nil
}

func (c *Controller) handleRender(ctx context.Context, h world.Handle) (agent.State, error) {
	terminal := c.agent.RenderBudget() <= 0
	artifact := c.terminal
	if !terminal {
		artifact = c.catalog[c.rand.IntN(len(c.catalog))]
	}

	outcome, err := c.renderer.Advance(ctx, h, artifact, h.Position())
	if err != nil {
		return agent.StateRender, failure(CollaboratorRenderer, fmt.Errorf("%s: %w", artifact.Name, err))
	}
	c.metrics.RecordRenderCycle(ctx, outcome.String(), terminal)

	logging.Debug().
		Add(logging.AgentID(c.agent.ID())).
		Add(logging.Str("artifact", artifact.Name)).
		Add(logging.Outcome(outcome)).
		Msg("render advanced")

	switch outcome {
	case world.RenderFinished:
		c.agent.CompleteRender(!terminal)
		if !terminal {
			c.metrics.RecordRenderBudget(ctx, c.agent.ID(), -1)
		}
		logging.Info().
			Add(logging.AgentID(c.agent.ID())).
			Add(logging.Str("artifact", artifact.Name)).
			Add(logging.Budget(c.agent.RenderBudget())).
			Msg("render finished")
		c.publish(ctx, event.TypeRenderCompleted, event.RenderCompletedPayload{
			Artifact:     artifact.Name,
			Outcome:      outcome.String(),
			Terminal:     terminal,
			RenderBudget: c.agent.RenderBudget(),
		})
		if terminal {
			return agent.StateTerminate, nil
		}
		return agent.StateExplore, nil
	case world.RenderFinishedUnit, world.RenderWaitingForEnergy:
		return agent.StateExplore, nil
	case world.RenderWaitingForMaterials:
		return agent.StateLocate, nil
	default:
		return agent.StateRender, failure(CollaboratorRenderer, fmt.Errorf("%w: %d", ErrUnknownOutcome, outcome))
	}
}

func (c *Controller) handleTerminate(ctx context.Context) (agent.State, error) {
	if c.agent.MarkNotified() {
		logging.Info().
			Add(logging.AgentID(c.agent.ID())).
			Add(logging.Int("renders", c.agent.Renders())).
			Msg("agent terminated")
		c.publish(ctx, event.TypeAgentTerminated, event.TerminatedPayload{
			Renders: c.agent.Renders(),
			Steps:   c.agent.Steps(),
		})
	}
	return agent.StateTerminate, nil
}
