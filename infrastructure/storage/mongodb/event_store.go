package mongodb

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/felixgeelhaar/tileagent/domain/event"
)

// eventDocument is the MongoDB document representation of an event.
type eventDocument struct {
	ID        string    `bson:"_id"`
	AgentID   string    `bson:"agent_id"`
	Type      string    `bson:"type"`
	Timestamp time.Time `bson:"timestamp"`
	Payload   string    `bson:"payload,omitempty"`
	Sequence  int64     `bson:"sequence"`
	Version   int       `bson:"version"`
}

// counterDocument holds the last assigned sequence of an agent.
type counterDocument struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

// EventStore is a MongoDB-backed implementation of event.Store.
type EventStore struct {
	client       *mongo.Client
	events       *mongo.Collection
	counters     *mongo.Collection
	queryTimeout time.Duration
}

// NewEventStore connects to MongoDB and ensures the sequence index.
func NewEventStore(ctx context.Context, cfg Config, opts ...Option) (*EventStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI).SetTimeout(cfg.QueryTimeout))
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Join(ErrConnectionFailed, err)
	}

	db := client.Database(cfg.Database)
	s := &EventStore{
		client:       client,
		events:       db.Collection(cfg.Collection),
		counters:     db.Collection(cfg.Collection + "_counters"),
		queryTimeout: cfg.QueryTimeout,
	}

	_, err = s.events.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "agent_id", Value: 1}, {Key: "sequence", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, s.wrapError(err)
	}
	return s, nil
}

func (s *EventStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

// reserve allocates n sequences for agentID and returns the first.
func (s *EventStore) reserve(ctx context.Context, agentID string, n int64) (int64, error) {
	var counter counterDocument
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": agentID},
		bson.M{"$inc": bson.M{"seq": n}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Seq - n + 1, nil
}

// Append persists one or more events. Sequences are reserved per agent
// before insertion, so a failed insert can leave a gap.
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

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	next := make(map[string]int64, len(order))
	for _, agentID := range order {
		first, err := s.reserve(ctx, agentID, counts[agentID])
		if err != nil {
			return s.wrapError(err)
		}
		next[agentID] = first
	}

	docs := make([]any, 0, len(events))
	for _, e := range events {
		e.Sequence = uint64(next[e.AgentID]) // #nosec G115 -- counters are positive
		next[e.AgentID]++
		docs = append(docs, toDocument(e))
	}

	if _, err := s.events.InsertMany(ctx, docs); err != nil {
		return s.wrapError(err)
	}
	return nil
}

// LoadEvents retrieves all events for an agent in sequence order.
func (s *EventStore) LoadEvents(ctx context.Context, agentID string) ([]event.Event, error) {
	return s.LoadEventsFrom(ctx, agentID, 0)
}

// LoadEventsFrom retrieves events starting from a specific sequence number.
func (s *EventStore) LoadEventsFrom(ctx context.Context, agentID string, fromSeq uint64) ([]event.Event, error) {
	filter := bson.M{"agent_id": agentID, "sequence": bson.M{"$gte": int64(fromSeq)}} // #nosec G115
	return s.find(ctx, filter, 0)
}

// Query retrieves events matching the given options.
func (s *EventStore) Query(ctx context.Context, agentID string, opts event.QueryOptions) ([]event.Event, error) {
	return s.find(ctx, buildFilter(agentID, opts), opts.Limit)
}

func (s *EventStore) find(ctx context.Context, filter bson.M, limit int) ([]event.Event, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	findOpts := options.Find().SetSort(bson.D{{Key: "sequence", Value: 1}})
	if limit > 0 {
		findOpts.SetLimit(int64(limit))
	}

	cursor, err := s.events.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, s.wrapError(err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []eventDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, s.wrapError(err)
	}

	events := make([]event.Event, 0, len(docs))
	for i := range docs {
		events = append(events, fromDocument(&docs[i]))
	}
	return events, nil
}

// CountEvents returns the number of events for an agent.
func (s *EventStore) CountEvents(ctx context.Context, agentID string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	n, err := s.events.CountDocuments(ctx, bson.M{"agent_id": agentID})
	return n, s.wrapError(err)
}

// ListAgents returns all agent IDs with events in the store.
func (s *EventStore) ListAgents(ctx context.Context) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cursor, err := s.counters.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, s.wrapError(err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var counters []counterDocument
	if err := cursor.All(ctx, &counters); err != nil {
		return nil, s.wrapError(err)
	}
	agents := make([]string, 0, len(counters))
	for _, c := range counters {
		agents = append(agents, c.ID)
	}
	return agents, nil
}

// Close disconnects the client.
func (s *EventStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

func buildFilter(agentID string, opts event.QueryOptions) bson.M {
	filter := bson.M{"agent_id": agentID}
	if len(opts.Types) > 0 {
		types := make([]string, len(opts.Types))
		for i, t := range opts.Types {
			types[i] = string(t)
		}
		filter["type"] = bson.M{"$in": types}
	}
	return filter
}

func toDocument(e event.Event) eventDocument {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Version == 0 {
		e.Version = 1
	}
	return eventDocument{
		ID:        e.ID,
		AgentID:   e.AgentID,
		Type:      string(e.Type),
		Timestamp: e.Timestamp.UTC(),
		Payload:   string(e.Payload),
		Sequence:  int64(e.Sequence), // #nosec G115
		Version:   e.Version,
	}
}

func fromDocument(doc *eventDocument) event.Event {
	e := event.Event{
		ID:        doc.ID,
		AgentID:   doc.AgentID,
		Type:      event.Type(doc.Type),
		Timestamp: doc.Timestamp,
		Sequence:  uint64(doc.Sequence), // #nosec G115
		Version:   doc.Version,
	}
	if doc.Payload != "" {
		e.Payload = json.RawMessage(doc.Payload)
	}
	return e
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
