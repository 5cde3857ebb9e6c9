package agent

import (
	"github.com/felixgeelhaar/tileagent/domain/quota"
	"github.com/felixgeelhaar/tileagent/domain/world"
)

// Agent is the aggregate root of the decision loop. It owns the current
// state, both work queues, the render budget and the completion tracker, and
// is the only writer of any of them.
type Agent struct {
	id           string
	state        State
	targets      *Queue[world.Coordinate]
	actions      *Queue[world.Action]
	renderBudget int
	tracker      *quota.Tracker
	position     world.Coordinate
	steps        uint64
	renders      int
	notified     bool
	halted       bool
}

// New creates an agent in the init state.
func New(id string, tracker *quota.Tracker) *Agent {
	return &Agent{
		id:      id,
		state:   StateInit,
		targets: NewQueue[world.Coordinate](),
		actions: NewQueue[world.Action](),
		tracker: tracker,
	}
}

// ID returns the agent's identity.
func (a *Agent) ID() string { return a.id }

// State returns the current state.
func (a *Agent) State() State { return a.state }

// TransitionTo commits a state that has already been validated.
func (a *Agent) TransitionTo(s State) {
	a.state = s
}

// Halt marks the agent as permanently stopped after a fatal defect.
func (a *Agent) Halt() { a.halted = true }

// IsHalted returns true once Halt has been called.
func (a *Agent) IsHalted() bool { return a.halted }

// CountStep increments the step counter and returns the new value.
func (a *Agent) CountStep() uint64 {
	a.steps++
	return a.steps
}

// Steps returns the number of steps dispatched so far.
func (a *Agent) Steps() uint64 { return a.steps }

// Position returns the last position observed through the world handle.
func (a *Agent) Position() world.Coordinate { return a.position }

// Observe records the position reported by the world.
func (a *Agent) Observe(pos world.Coordinate) { a.position = pos }

// Targets returns a copy of the pending target coordinates.
func (a *Agent) Targets() []world.Coordinate { return a.targets.Items() }

// ReplaceTargets drops stale targets and queues the given ones in order.
func (a *Agent) ReplaceTargets(targets ...world.Coordinate) {
	a.targets.Replace(targets...)
}

// NextTarget pops the front target.
func (a *Agent) NextTarget() (world.Coordinate, bool) {
	return a.targets.Pop()
}

// Actions returns a copy of the pending navigation actions.
func (a *Agent) Actions() []world.Action { return a.actions.Items() }

// PendingActions returns the number of pending navigation actions.
func (a *Agent) PendingActions() int { return a.actions.Len() }

// ReplaceActions drops stale actions and queues the given ones in order.
func (a *Agent) ReplaceActions(actions ...world.Action) {
	a.actions.Replace(actions...)
}

// NextAction pops the front action.
func (a *Agent) NextAction() (world.Action, bool) {
	return a.actions.Pop()
}

// DropActions empties the action queue and returns what was discarded.
func (a *Agent) DropActions() []world.Action {
	dropped := a.actions.Items()
	a.actions.Clear()
	return dropped
}

// RenderBudget returns the number of random artifacts still to render.
func (a *Agent) RenderBudget() int { return a.renderBudget }

// SetRenderBudget sets the initial render budget. Only the first call has an
// effect; the budget is never raised afterwards.
func (a *Agent) SetRenderBudget(n int) bool {
	if a.state != StateInit {
		return false
	}
	a.renderBudget = n
	return true
}

// CompleteRender records a finished render cycle. The budget is spent only
// for artifacts chosen while budget remained.
func (a *Agent) CompleteRender(spendBudget bool) {
	a.renders++
	if spendBudget && a.renderBudget > 0 {
		a.renderBudget--
	}
}

// Renders returns the number of finished render cycles.
func (a *Agent) Renders() int { return a.renders }

// Tracker returns the completion tracker.
func (a *Agent) Tracker() *quota.Tracker { return a.tracker }

// Report credits a collected amount to the completion tracker.
func (a *Agent) Report(c world.Category, amount int) int {
	return a.tracker.Report(c, amount)
}

// Notified reports whether the termination notice went out.
func (a *Agent) Notified() bool { return a.notified }

// MarkNotified records that the termination notice went out. It returns
// false if it had already been recorded.
func (a *Agent) MarkNotified() bool {
	if a.notified {
		return false
	}
	a.notified = true
	return true
}
