// Package event provides domain types and interfaces for the agent's event stream.
package event

import (
	"encoding/json"
	"time"
)

// Event is a single entry in an agent's event stream.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// AgentID is the ID of the agent this event belongs to.
	AgentID string `json:"agent_id"`

	// Type classifies the event.
	Type Type `json:"type"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Payload contains the event-specific data.
	Payload json.RawMessage `json:"payload"`

	// Sequence is the ordering number within the agent's stream.
	Sequence uint64 `json:"sequence"`

	// Version is the event schema version.
	Version int `json:"version,omitempty"`
}

// NewEvent creates a new event with the given type and payload.
func NewEvent(agentID string, eventType Type, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{
		AgentID:   agentID,
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   data,
		Version:   1,
	}, nil
}

// UnmarshalPayload decodes the event payload into the given value.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}
