// Package statemachine provides the statekit integration for the decision loop.
package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/tileagent/domain/agent"
)

// Context carries the agent through the state machine.
type Context struct {
	Agent       *agent.Agent
	Transitions *agent.Transitions
	// OnTransition is called after a committed transition, if set.
	OnTransition func(from, to agent.State)
}

// NewContext creates a machine context using the default transition table.
func NewContext(a *agent.Agent) *Context {
	return &Context{
		Agent:       a,
		Transitions: agent.DefaultTransitions(),
	}
}

// MachineID identifies the decision loop statechart.
const MachineID = "tileagent"

// Events that drive the statechart, one per target state.
const (
	EventExplore   statekit.EventType = "EXPLORE"
	EventLocate    statekit.EventType = "LOCATE"
	EventGather    statekit.EventType = "GATHER"
	EventRender    statekit.EventType = "RENDER"
	EventTerminate statekit.EventType = "TERMINATE"
)

func stateID(s agent.State) statekit.StateID {
	return statekit.StateID(s.String())
}

// NewAgentMachine creates the decision loop statechart. Self-loops are not
// modelled as events; the interpreter validates them against the table.
func NewAgentMachine() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context](MachineID).
		WithInitial(stateID(agent.StateInit)).
		WithContext(&Context{}).
		WithAction("recordTransition", recordTransition).
		WithGuard("canTransition", guardCanTransition).
		State(stateID(agent.StateInit)).
		On(EventExplore).Target(stateID(agent.StateExplore)).Guard("canTransition").Do("recordTransition").
		Done().
		State(stateID(agent.StateExplore)).
		On(EventLocate).Target(stateID(agent.StateLocate)).Guard("canTransition").Do("recordTransition").
		Done().
		State(stateID(agent.StateLocate)).
		On(EventGather).Target(stateID(agent.StateGather)).Guard("canTransition").Do("recordTransition").
		On(EventExplore).Target(stateID(agent.StateExplore)).Guard("canTransition").Do("recordTransition").
		Done().
		State(stateID(agent.StateGather)).
		On(EventLocate).Target(stateID(agent.StateLocate)).Guard("canTransition").Do("recordTransition").
		On(EventRender).Target(stateID(agent.StateRender)).Guard("canTransition").Do("recordTransition").
		Done().
		State(stateID(agent.StateRender)).
		On(EventExplore).Target(stateID(agent.StateExplore)).Guard("canTransition").Do("recordTransition").
		On(EventLocate).Target(stateID(agent.StateLocate)).Guard("canTransition").Do("recordTransition").
		On(EventTerminate).Target(stateID(agent.StateTerminate)).Guard("canTransition").Do("recordTransition").
		Done().
		State(stateID(agent.StateTerminate)).
		Final().
		Done().
		Build()
}

// EventForTransition returns the event type that moves the machine to s.
func EventForTransition(to agent.State) statekit.EventType {
	switch to {
	case agent.StateExplore:
		return EventExplore
	case agent.StateLocate:
		return EventLocate
	case agent.StateGather:
		return EventGather
	case agent.StateRender:
		return EventRender
	case agent.StateTerminate:
		return EventTerminate
	default:
		return statekit.EventType(to.String())
	}
}

// StateFromMachine converts the machine state ID to a domain State.
func StateFromMachine(id statekit.StateID) (agent.State, error) {
	return agent.ParseState(string(id))
}
