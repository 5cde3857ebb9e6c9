package statemachine

import "github.com/felixgeelhaar/statekit"

// recordTransition commits the payload's target state on the agent.
func recordTransition(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil || (*ctx).Agent == nil {
		return
	}
	payload, ok := event.Payload.(TransitionPayload)
	if !ok {
		return
	}

	c := *ctx
	from := c.Agent.State()
	c.Agent.TransitionTo(payload.ToState)
	if c.OnTransition != nil {
		c.OnTransition(from, payload.ToState)
	}
}
