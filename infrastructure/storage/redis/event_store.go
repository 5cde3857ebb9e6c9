package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/tileagent/domain/event"
)

// EventStore is a Redis-backed implementation of event.Store.
//
// Each agent's stream is a list of JSON events under prefix+"events:"+id.
// Sequences come from an INCRBY counter, so a failed append can leave a gap.
type EventStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewEventStore connects to Redis and verifies the connection.
func NewEventStore(ctx context.Context, cfg Config, opts ...ConfigOption) (*EventStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	redisOpts, err := cfg.options()
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	return NewEventStoreFromClient(client, cfg.KeyPrefix), nil
}

// NewEventStoreFromClient creates an event store on an existing client.
func NewEventStoreFromClient(client *redis.Client, keyPrefix string) *EventStore {
	return &EventStore{client: client, keyPrefix: keyPrefix}
}

func (s *EventStore) eventsKey(agentID string) string {
	return s.keyPrefix + "events:" + agentID
}

func (s *EventStore) seqKey(agentID string) string {
	return s.keyPrefix + "seq:" + agentID
}

func (s *EventStore) agentsKey() string {
	return s.keyPrefix + "agents"
}

// Append persists one or more events in a single MULTI/EXEC transaction.
func (s *EventStore) Append(ctx context.Context, events ...event.Event) error {
	if len(events) == 0 {
		return nil
	}
	counts := make(map[string]int64)
	var order []string
	for _, e := range events {
		if e.Type == "" || e.AgentID == "" {
			return event.ErrInvalidEvent
		}
		if counts[e.AgentID] == 0 {
			order = append(order, e.AgentID)
		}
		counts[e.AgentID]++
	}

	// Reserve a block of sequences per agent.
	next := make(map[string]uint64, len(order))
	for _, agentID := range order {
		last, err := s.client.IncrBy(ctx, s.seqKey(agentID), counts[agentID]).Result()
		if err != nil {
			return s.wrapError(err)
		}
		next[agentID] = uint64(last - counts[agentID]) // #nosec G115 -- counters are positive
	}

	encoded := make(map[string][]any, len(order))
	for _, e := range events {
		next[e.AgentID]++
		e.Sequence = next[e.AgentID]
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		encoded[e.AgentID] = append(encoded[e.AgentID], data)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, agentID := range order {
			pipe.RPush(ctx, s.eventsKey(agentID), encoded[agentID]...)
			pipe.SAdd(ctx, s.agentsKey(), agentID)
		}
		return nil
	})
	return s.wrapError(err)
}

// LoadEvents retrieves all events for an agent in sequence order.
func (s *EventStore) LoadEvents(ctx context.Context, agentID string) ([]event.Event, error) {
	return s.LoadEventsFrom(ctx, agentID, 0)
}

// LoadEventsFrom retrieves events starting from a specific sequence number.
func (s *EventStore) LoadEventsFrom(ctx context.Context, agentID string, fromSeq uint64) ([]event.Event, error) {
	return s.filter(ctx, agentID, func(e event.Event) bool { return e.Sequence >= fromSeq }, 0)
}

// Query retrieves events matching the given options.
func (s *EventStore) Query(ctx context.Context, agentID string, opts event.QueryOptions) ([]event.Event, error) {
	return s.filter(ctx, agentID, opts.Matches, opts.Limit)
}

func (s *EventStore) filter(ctx context.Context, agentID string, keep func(event.Event) bool, limit int) ([]event.Event, error) {
	raw, err := s.client.LRange(ctx, s.eventsKey(agentID), 0, -1).Result()
	if err != nil {
		return nil, s.wrapError(err)
	}
	return decodeEvents(raw, keep, limit), nil
}

// decodeEvents parses raw list entries, skipping malformed ones.
func decodeEvents(raw []string, keep func(event.Event) bool, limit int) []event.Event {
	events := []event.Event{}
	for _, item := range raw {
		var e event.Event
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			continue
		}
		if !keep(e) {
			continue
		}
		events = append(events, e)
		if limit > 0 && len(events) >= limit {
			break
		}
	}
	return events
}

// CountEvents returns the number of events for an agent.
func (s *EventStore) CountEvents(ctx context.Context, agentID string) (int64, error) {
	n, err := s.client.LLen(ctx, s.eventsKey(agentID)).Result()
	return n, s.wrapError(err)
}

// ListAgents returns all agent IDs with events in the store.
func (s *EventStore) ListAgents(ctx context.Context) ([]string, error) {
	agents, err := s.client.SMembers(ctx, s.agentsKey()).Result()
	if err != nil {
		return nil, s.wrapError(err)
	}
	sort.Strings(agents)
	return agents, nil
}

// Close closes the client.
func (s *EventStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *EventStore) wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errors.Join(ErrConnectionFailed, err)
}

var (
	_ event.Store   = (*EventStore)(nil)
	_ event.Querier = (*EventStore)(nil)
)
