package statemachine

import "github.com/felixgeelhaar/statekit"

// guardCanTransition admits an event only when the transition table allows
// the agent's current state to move to the payload's target.
func guardCanTransition(ctx *Context, event statekit.Event) bool {
	if ctx == nil || ctx.Agent == nil || ctx.Transitions == nil {
		return false
	}
	payload, ok := event.Payload.(TransitionPayload)
	if !ok {
		return false
	}
	return ctx.Transitions.CanTransition(ctx.Agent.State(), payload.ToState)
}
