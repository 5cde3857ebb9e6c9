package statemachine

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/tileagent/domain/agent"
)

// TransitionPayload carries the target state with a transition event.
type TransitionPayload struct {
	ToState agent.State
}

// Interpreter wraps the statekit interpreter and keeps it in lockstep with
// the agent's own state.
type Interpreter struct {
	interp *statekit.Interpreter[*Context]
	ctx    *Context
}

// NewInterpreter creates a new interpreter for the decision loop machine.
func NewInterpreter(machine *statekit.MachineConfig[*Context], ctx *Context) *Interpreter {
	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **Context) {
		*c = ctx
	})
	return &Interpreter{
		interp: interp,
		ctx:    ctx,
	}
}

// Start enters the initial state.
func (i *Interpreter) Start() {
	i.interp.Start()
}

// Stop stops the interpreter.
func (i *Interpreter) Stop() {
	i.interp.Stop()
}

// State returns the current machine state.
func (i *Interpreter) State() agent.State {
	s, err := StateFromMachine(i.interp.State().Value)
	if err != nil {
		return i.ctx.Agent.State()
	}
	return s
}

// Transition commits a move to the target state. Self-loops are validated
// against the table without an event. Any transition the table rejects
// returns an *agent.InvalidTransitionError and leaves the state unchanged.
func (i *Interpreter) Transition(to agent.State) error {
	from := i.ctx.Agent.State()
	if _, err := i.ctx.Transitions.Validate(from, to); err != nil {
		return err
	}
	if from == to {
		return nil
	}

	i.interp.Send(statekit.Event{
		Type:    EventForTransition(to),
		Payload: TransitionPayload{ToState: to},
	})

	if got := i.State(); got != to || i.ctx.Agent.State() != to {
		return fmt.Errorf("%w: machine in %s after %s -> %s",
			&agent.InvalidTransitionError{From: from, To: to}, got, from, to)
	}
	return nil
}

// CanTransition checks if a transition to the target state is possible.
func (i *Interpreter) CanTransition(to agent.State) bool {
	return i.ctx.Transitions.CanTransition(i.ctx.Agent.State(), to)
}

// IsTerminal returns true if the interpreter is in a final state.
func (i *Interpreter) IsTerminal() bool {
	return i.interp.Done()
}

// Context returns the interpreter context.
func (i *Interpreter) Context() *Context {
	return i.ctx
}

// Matches checks if the current state matches the given state.
func (i *Interpreter) Matches(s agent.State) bool {
	return i.interp.Matches(stateID(s))
}
