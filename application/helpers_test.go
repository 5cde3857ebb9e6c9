package application

import (
	"context"
	"fmt"
	"testing"

	"github.com/felixgeelhaar/tileagent/domain/agent"
	"github.com/felixgeelhaar/tileagent/domain/event"
	"github.com/felixgeelhaar/tileagent/domain/quota"
	"github.com/felixgeelhaar/tileagent/domain/world"
	infraevent "github.com/felixgeelhaar/tileagent/infrastructure/event"
	"github.com/felixgeelhaar/tileagent/infrastructure/storage/memory"
)

// fakeHandle is a body the fake world moves around.
type fakeHandle struct {
	pos    world.Coordinate
	energy int
	size   int
}

func (h *fakeHandle) Position() world.Coordinate { return h.pos }
func (h *fakeHandle) Energy() int                { return h.energy }
func (h *fakeHandle) Size() int                  { return h.size }

// fakeWorld implements every collaborator port with scripted answers.
type fakeWorld struct {
	scan     world.ScanOutcome
	scans    []world.ScanRequest
	snapErr  error
	planErr  error
	plans    int
	matches  map[world.Category][]world.Coordinate
	routes   map[world.Coordinate][]world.Action
	routeErr error

	moveErr  error
	executed []world.Action

	collect    map[world.Category]int
	collectErr map[world.Category]error

	outcomes  []world.RenderOutcome
	renderErr error
	rendered  []world.Artifact
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		scan:       world.ScanOutcome{Status: world.ScanComplete},
		matches:    make(map[world.Category][]world.Coordinate),
		routes:     make(map[world.Coordinate][]world.Action),
		collect:    make(map[world.Category]int),
		collectErr: make(map[world.Category]error),
	}
}

func (w *fakeWorld) Scan(_ context.Context, _ world.Handle, req world.ScanRequest) world.ScanOutcome {
	w.scans = append(w.scans, req)
	return w.scan
}

func (w *fakeWorld) Plan(world.Snapshot, world.Coordinate) error {
	w.plans++
	return w.planErr
}

func (w *fakeWorld) ActionsTo(target world.Coordinate) ([]world.Action, error) {
	if w.routeErr != nil {
		return nil, w.routeErr
	}
	route, ok := w.routes[target]
	if !ok {
		return nil, world.ErrNoPath
	}
	return append([]world.Action(nil), route...), nil
}

func (w *fakeWorld) CoordinatesMatching(c world.Category) []world.Coordinate {
	return w.matches[c]
}

func (w *fakeWorld) CollectNearby(_ context.Context, _ world.Handle, c world.Category) (int, error) {
	if err := w.collectErr[c]; err != nil {
		return 0, err
	}
	return w.collect[c], nil
}

func (w *fakeWorld) Advance(_ context.Context, _ world.Handle, a world.Artifact, _ world.Coordinate) (world.RenderOutcome, error) {
	w.rendered = append(w.rendered, a)
	if w.renderErr != nil {
		return 0, w.renderErr
	}
	if len(w.outcomes) == 0 {
		return world.RenderFinished, nil
	}
	o := w.outcomes[0]
	w.outcomes = w.outcomes[1:]
	return o, nil
}

func (w *fakeWorld) Move(_ context.Context, h world.Handle, d world.Direction) error {
	w.executed = append(w.executed, world.Move(d))
	if w.moveErr != nil {
		return w.moveErr
	}
	fh := h.(*fakeHandle)
	fh.pos = fh.pos.Step(d)
	return nil
}

func (w *fakeWorld) Teleport(_ context.Context, h world.Handle, to world.Coordinate) error {
	w.executed = append(w.executed, world.Teleport(to))
	if w.moveErr != nil {
		return w.moveErr
	}
	h.(*fakeHandle).pos = to
	return nil
}

func (w *fakeWorld) Snapshot(world.Handle) (world.Snapshot, error) {
	return nil, w.snapErr
}

// scriptedRand returns queued values and records the bounds it was asked for.
type scriptedRand struct {
	values []int
	bounds []int
}

func (r *scriptedRand) IntN(n int) int {
	r.bounds = append(r.bounds, n)
	if len(r.values) == 0 {
		return 0
	}
	v := r.values[0]
	r.values = r.values[1:]
	if v < 0 || v >= n {
		panic(fmt.Sprintf("scripted value %d outside [0, %d)", v, n))
	}
	return v
}

var (
	terminalArtifact = world.Artifact{Name: "meow.png"}
	catalog          = []world.Artifact{{Name: "a.png"}, {Name: "b.png"}}
)

type harness struct {
	c     *Controller
	w     *fakeWorld
	h     *fakeHandle
	rand  *scriptedRand
	store *memory.EventStore
}

// newHarness builds a controller over a fake world. The quota is three trees
// counted in wildcard mode.
func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	tracker, err := quota.New(quota.ModeAny, quota.Quota{Name: "collect", Category: world.CategoryTree, Target: 3})
	if err != nil {
		t.Fatalf("quota.New() error = %v", err)
	}

	hs := &harness{
		w:     newFakeWorld(),
		h:     &fakeHandle{pos: world.At(5, 5), energy: 100, size: 10},
		rand:  &scriptedRand{},
		store: memory.NewEventStore(),
	}

	base := []Option{
		WithAgentID("artemis"),
		WithWorld(hs.w, hs.w),
		WithCategories(world.CategoryRock, world.CategoryTree),
		WithTracker(tracker),
		WithArtifacts(terminalArtifact, catalog...),
		WithBudgetRange(0, 13),
		WithRand(hs.rand),
		WithPublisher(infraevent.NewPublisher(hs.store)),
	}
	c, err := NewControllerWithOptions(append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewControllerWithOptions() error = %v", err)
	}
	t.Cleanup(c.Close)
	hs.c = c
	return hs
}

func (hs *harness) step(t *testing.T, want agent.State) {
	t.Helper()

	if got := hs.c.Step(context.Background(), hs.h); got != want {
		t.Fatalf("Step() from %s = %s, want %s", hs.c.Agent().State(), got, want)
	}
}

// toRender drives the agent into Render with the given budget draw.
func (hs *harness) toRender(t *testing.T, budget int) {
	t.Helper()

	hs.rand.values = append([]int{budget}, hs.rand.values...)
	target := world.At(5, 7)
	hs.w.matches[world.CategoryTree] = []world.Coordinate{target}
	hs.w.routes[target] = []world.Action{world.Move(world.East)}
	hs.w.collect[world.CategoryTree] = 3

	hs.step(t, agent.StateExplore)
	hs.step(t, agent.StateLocate)
	hs.step(t, agent.StateGather)
	hs.step(t, agent.StateRender)

	hs.w.matches = make(map[world.Category][]world.Coordinate)
	hs.w.collect = make(map[world.Category]int)
}

func (hs *harness) events(t *testing.T) []event.Event {
	t.Helper()

	events, err := hs.store.LoadEvents(context.Background(), hs.c.Agent().ID())
	if err != nil {
		t.Fatalf("LoadEvents() error = %v", err)
	}
	return events
}

func (hs *harness) eventsOf(t *testing.T, typ event.Type) []event.Event {
	t.Helper()

	var out []event.Event
	for _, e := range hs.events(t) {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}
