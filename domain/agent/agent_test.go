package agent

import (
	"testing"

	"github.com/felixgeelhaar/tileagent/domain/quota"
	"github.com/felixgeelhaar/tileagent/domain/world"
)

func newTestAgent(t *testing.T) *Agent {
	t.Helper()

	tracker, err := quota.New(quota.ModeAny, quota.Quota{Name: "collect", Category: world.CategoryTree, Target: 20})
	if err != nil {
		t.Fatalf("quota.New() error = %v", err)
	}
	return New("agent-1", tracker)
}

func TestNew(t *testing.T) {
	a := newTestAgent(t)

	if a.ID() != "agent-1" {
		t.Errorf("ID() = %q, want agent-1", a.ID())
	}
	if a.State() != StateInit {
		t.Errorf("State() = %s, want init", a.State())
	}
	if len(a.Targets()) != 0 || a.PendingActions() != 0 {
		t.Error("new agent should start with empty queues")
	}
}

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue(1, 2)
	q.Push(3)

	for want := 1; want <= 3; want++ {
		got, ok := q.Pop()
		if !ok || got != want {
			t.Fatalf("Pop() = %d, %v, want %d, true", got, ok, want)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop() on empty queue returned ok")
	}
	if _, ok := q.Peek(); ok {
		t.Error("Peek() on empty queue returned ok")
	}
}

func TestQueue_ReplaceDropsStaleItems(t *testing.T) {
	q := NewQueue("a", "b", "c")
	q.Replace("x")

	if got := q.Items(); len(got) != 1 || got[0] != "x" {
		t.Errorf("Items() = %v, want [x]", got)
	}
}

func TestAgent_TargetsKeepScannerDuplicates(t *testing.T) {
	a := newTestAgent(t)

	a.ReplaceTargets(world.At(1, 1), world.At(1, 1), world.At(2, 3))
	if got := len(a.Targets()); got != 3 {
		t.Errorf("len(Targets()) = %d, want 3", got)
	}

	a.ReplaceTargets(world.At(5, 5))
	first, ok := a.NextTarget()
	if !ok || first != world.At(5, 5) {
		t.Errorf("NextTarget() = %v, %v, want (5,5), true", first, ok)
	}
}

func TestAgent_DropActions(t *testing.T) {
	a := newTestAgent(t)
	a.ReplaceActions(world.Move(world.East), world.Move(world.South))

	dropped := a.DropActions()
	if len(dropped) != 2 {
		t.Errorf("DropActions() returned %d actions, want 2", len(dropped))
	}
	if a.PendingActions() != 0 {
		t.Errorf("PendingActions() = %d after drop", a.PendingActions())
	}
}

func TestAgent_RenderBudget(t *testing.T) {
	a := newTestAgent(t)

	if !a.SetRenderBudget(2) {
		t.Fatal("SetRenderBudget() in init should succeed")
	}
	a.TransitionTo(StateExplore)
	if a.SetRenderBudget(10) {
		t.Error("SetRenderBudget() after init should be refused")
	}

	prev := a.RenderBudget()
	for _, spend := range []bool{true, false, true, true, true} {
		a.CompleteRender(spend)
		if a.RenderBudget() > prev {
			t.Fatalf("render budget increased from %d to %d", prev, a.RenderBudget())
		}
		prev = a.RenderBudget()
	}

	if a.RenderBudget() != 0 {
		t.Errorf("RenderBudget() = %d, want 0", a.RenderBudget())
	}
	if a.Renders() != 5 {
		t.Errorf("Renders() = %d, want 5", a.Renders())
	}
}

func TestAgent_MarkNotifiedOnce(t *testing.T) {
	a := newTestAgent(t)

	if a.Notified() {
		t.Error("Notified() = true before MarkNotified()")
	}
	if !a.MarkNotified() {
		t.Error("first MarkNotified() = false")
	}
	if a.MarkNotified() {
		t.Error("second MarkNotified() = true")
	}
	if !a.Notified() {
		t.Error("Notified() = false after MarkNotified()")
	}
}
