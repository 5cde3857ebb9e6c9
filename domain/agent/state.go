// Package agent provides the core domain model for the tile agent.
package agent

// State identifies the phase the agent is in. The set is closed: only the
// constants below are produced by this package.
type State uint8

// Canonical states of the agent's decision loop.
const (
	StateInit      State = iota // Draw the render budget
	StateExplore                // Scan around and collect targets
	StateLocate                 // Plan and walk towards a target
	StateGather                 // Collect resources in reach
	StateRender                 // Turn materials into an artifact
	StateTerminate              // Absorbing end state
)

var stateNames = [...]string{
	StateInit:      "init",
	StateExplore:   "explore",
	StateLocate:    "locate",
	StateGather:    "gather",
	StateRender:    "render",
	StateTerminate: "terminate",
}

// IsValid returns true if the state is one of the canonical states.
func (s State) IsValid() bool {
	return int(s) < len(stateNames)
}

// IsTerminal returns true if this is the absorbing end state.
func (s State) IsTerminal() bool {
	return s == StateTerminate
}

// String returns the lower-case name of the state.
func (s State) String() string {
	if !s.IsValid() {
		return "invalid"
	}
	return stateNames[s]
}

// ParseState converts a state name back to a State.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return 0, ErrInvalidState
}

// AllStates returns all canonical states in declaration order.
func AllStates() []State {
	return []State{
		StateInit,
		StateExplore,
		StateLocate,
		StateGather,
		StateRender,
		StateTerminate,
	}
}
