package event

import "context"

// Store defines the interface for event persistence.
type Store interface {
	// Append persists one or more events atomically.
	// Events are assigned sequence numbers in order of appearance.
	Append(ctx context.Context, events ...Event) error

	// LoadEvents retrieves all events for an agent in sequence order.
	LoadEvents(ctx context.Context, agentID string) ([]Event, error)

	// LoadEventsFrom retrieves events starting from a sequence number.
	LoadEventsFrom(ctx context.Context, agentID string, fromSeq uint64) ([]Event, error)

	// ListAgents returns the IDs of all agents with events in the store.
	ListAgents(ctx context.Context) ([]string, error)
}

// QueryOptions filters an agent's event stream.
type QueryOptions struct {
	// Types restricts results to these event types. Empty matches all.
	Types []Type

	// Limit caps the number of results. Zero means no limit.
	Limit int
}

// Matches reports whether e passes the type filter.
func (o QueryOptions) Matches(e Event) bool {
	if len(o.Types) == 0 {
		return true
	}
	for _, t := range o.Types {
		if e.Type == t {
			return true
		}
	}
	return false
}

// Querier is implemented by stores that can filter events.
type Querier interface {
	Query(ctx context.Context, agentID string, opts QueryOptions) ([]Event, error)
}
