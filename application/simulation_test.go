package application

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/tileagent/domain/agent"
	"github.com/felixgeelhaar/tileagent/domain/event"
	"github.com/felixgeelhaar/tileagent/domain/quota"
	"github.com/felixgeelhaar/tileagent/domain/world"
	infraevent "github.com/felixgeelhaar/tileagent/infrastructure/event"
	"github.com/felixgeelhaar/tileagent/infrastructure/gridworld"
	"github.com/felixgeelhaar/tileagent/infrastructure/storage/memory"
)

type countingTicker struct{ ticks int }

func (t *countingTicker) Tick() { t.ticks++ }

func TestRunner_RunsAllTicks(t *testing.T) {
	t.Parallel()

	hs := newHarness(t)
	ticker := &countingTicker{}
	var seen []agent.State

	summary, err := NewRunner(hs.c, ticker, hs.h,
		WithTicks(4),
		WithTickHook(func(_ int, s agent.State) { seen = append(seen, s) }),
	).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Ticks != 4 || ticker.ticks != 4 {
		t.Errorf("ticks = %d (world %d), want 4", summary.Ticks, ticker.ticks)
	}
	if len(seen) != 4 || seen[0] != agent.StateExplore {
		t.Errorf("hook saw %v", seen)
	}
	if summary.AgentID != "artemis" || summary.State != "explore" || summary.Terminated {
		t.Errorf("summary = %+v", summary)
	}
}

func TestRunner_Cancelled(t *testing.T) {
	t.Parallel()

	hs := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	ticker := &countingTicker{}

	summary, err := NewRunner(hs.c, ticker, hs.h,
		WithTicks(100),
		WithTickHook(func(tick int, _ agent.State) {
			if tick == 2 {
				cancel()
			}
		}),
	).Run(ctx)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if summary.Ticks != 2 {
		t.Errorf("Ticks = %d, want 2", summary.Ticks)
	}
}

func TestRunner_StopOnTerminate(t *testing.T) {
	t.Parallel()

	hs := newHarness(t)
	hs.toRender(t, 0)

	summary, err := NewRunner(hs.c, &countingTicker{}, hs.h, WithTicks(50), WithStopOnTerminate()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !summary.Terminated || summary.FinalState != agent.StateTerminate {
		t.Errorf("summary = %+v, want terminated", summary)
	}
	if summary.Ticks != 2 {
		t.Errorf("Ticks = %d, want 2", summary.Ticks)
	}
	if got := hs.eventsOf(t, event.TypeAgentTerminated); len(got) != 1 {
		t.Errorf("agent.terminated events = %d, want 1", len(got))
	}
	if summary.Renders != 1 || summary.Completed != 1 {
		t.Errorf("summary = %+v, want one render and one completed quota", summary)
	}
}

func TestSimulation_GridworldEndToEnd(t *testing.T) {
	t.Parallel()

	w, err := gridworld.NewFromLayout(gridworld.Config{
		EnergyMax:      100,
		EnergyRecharge: 10,
		CellsPerTick:   2,
		DefaultCells:   4,
	},
		"T.T.T.T",
		".......",
		"T.T.T.T",
		"...@...",
		"T.T.T.T",
		".......",
		"T.T.T.T",
	)
	if err != nil {
		t.Fatalf("NewFromLayout() error = %v", err)
	}

	tracker, err := quota.New(quota.ModePerCategory, quota.Quota{Name: "wood", Category: world.CategoryTree, Target: 3})
	if err != nil {
		t.Fatalf("quota.New() error = %v", err)
	}
	store := memory.NewEventStore()
	c, err := NewControllerWithOptions(
		WithAgentID("gridworld"),
		WithWorld(w, w.Planner()),
		WithCategories(world.CategoryTree),
		WithTracker(tracker),
		WithArtifacts(world.Artifact{Name: "meow.png"}, world.Artifact{Name: "war.png"}),
		WithBudgetRange(0, 0),
		WithPublisher(infraevent.NewPublisher(store)),
	)
	if err != nil {
		t.Fatalf("NewControllerWithOptions() error = %v", err)
	}
	defer c.Close()

	summary, err := NewRunner(c, w, w.Body(), WithTicks(500), WithStopOnTerminate()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !summary.Terminated {
		t.Fatalf("agent did not terminate: %+v", summary)
	}
	if summary.Renders != 1 {
		t.Errorf("Renders = %d, want 1", summary.Renders)
	}
	if w.Painted() == 0 {
		t.Error("nothing was painted")
	}

	terminated, err := store.Query(context.Background(), "gridworld", event.QueryOptions{
		Types: []event.Type{event.TypeAgentTerminated},
	})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(terminated) != 1 {
		t.Errorf("agent.terminated events = %d, want 1", len(terminated))
	}
}
