package logging

import (
	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/tileagent/domain/agent"
	"github.com/felixgeelhaar/tileagent/domain/world"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// AgentID adds an agent ID field.
func AgentID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("agent_id", id)
	}
}

// State adds a state field.
func State(s agent.State) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("state", s.String())
	}
}

// FromState adds a from_state field for transitions.
func FromState(s agent.State) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("from_state", s.String())
	}
}

// ToState adds a to_state field for transitions.
func ToState(s agent.State) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("to_state", s.String())
	}
}

// Collaborator adds the name of the world collaborator involved.
func Collaborator(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("collaborator", name)
	}
}

// Category adds a resource category field.
func Category(c world.Category) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("category", string(c))
	}
}

// Coordinate adds a tile coordinate as row and col fields.
func Coordinate(c world.Coordinate) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("row", c.Row).Int("col", c.Col)
	}
}

// Budget adds the remaining render budget.
func Budget(remaining int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("render_budget", remaining)
	}
}

// Outcome adds a render outcome field.
func Outcome(o world.RenderOutcome) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("outcome", o.String())
	}
}

// Tick adds the tick counter.
func Tick(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("tick", n)
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Reason adds a reason field.
func Reason(reason string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("reason", reason)
	}
}

// Component adds a component field for categorization.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

// Str adds a string field with custom key.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}

// Int adds an int field with custom key.
func Int(key string, value int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int(key, value)
	}
}

// Bool adds a bool field with custom key.
func Bool(key string, value bool) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Bool(key, value)
	}
}
