package agent

import "slices"

// TransitionRules maps states to the states they may hand over to.
//
// Example:
//
//	rules := agent.TransitionRules{
//	    agent.StateInit:    {agent.StateExplore},
//	    agent.StateExplore: {agent.StateExplore, agent.StateLocate},
//	}
//	transitions := agent.NewTransitionsWith(rules)
type TransitionRules map[State][]State

// Transitions is the closed table of allowed (from, to) pairs.
//
// Thread Safety: Transitions is NOT safe for concurrent modification. It
// should be fully configured before being handed to the controller and
// treated as immutable thereafter.
type Transitions struct {
	allowed map[State][]State
}

// NewTransitions creates an empty table. Every pair is rejected until allowed.
func NewTransitions() *Transitions {
	return &Transitions{
		allowed: make(map[State][]State),
	}
}

// NewTransitionsWith creates a table from a rules map.
func NewTransitionsWith(rules TransitionRules) *Transitions {
	t := NewTransitions()
	for from, targets := range rules {
		for _, to := range targets {
			t.Allow(from, to)
		}
	}
	return t
}

// Allow permits a transition from one state to another.
func (t *Transitions) Allow(from, to State) *Transitions {
	if !slices.Contains(t.allowed[from], to) {
		t.allowed[from] = append(t.allowed[from], to)
	}
	return t
}

// CanTransition reports whether the pair is listed in the table.
func (t *Transitions) CanTransition(from, to State) bool {
	return slices.Contains(t.allowed[from], to)
}

// Validate returns the proposed state if the pair is listed, or an
// *InvalidTransitionError naming the pair.
func (t *Transitions) Validate(from, to State) (State, error) {
	if !from.IsValid() || !to.IsValid() || !t.CanTransition(from, to) {
		return from, &InvalidTransitionError{From: from, To: to}
	}
	return to, nil
}

// AllowedTransitions returns all states reachable from the given state.
func (t *Transitions) AllowedTransitions(from State) []State {
	return slices.Clone(t.allowed[from])
}

// DefaultTransitions returns the agent's transition table:
//
//	init → explore
//	explore → explore | locate
//	locate → locate | gather | explore
//	gather → locate | render
//	render → explore | locate | terminate
//	terminate → terminate
func DefaultTransitions() *Transitions {
	return NewTransitionsWith(TransitionRules{
		StateInit:      {StateExplore},
		StateExplore:   {StateExplore, StateLocate},
		StateLocate:    {StateLocate, StateGather, StateExplore},
		StateGather:    {StateLocate, StateRender},
		StateRender:    {StateExplore, StateLocate, StateTerminate},
		StateTerminate: {StateTerminate},
	})
}
