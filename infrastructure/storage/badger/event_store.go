package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/tileagent/domain/event"
)

// EventStore is a BadgerDB-backed implementation of event.Store.
type EventStore struct {
	db        *badger.DB
	keyPrefix string
	gcStop    chan struct{}
	gcWg      sync.WaitGroup
	closeOnce sync.Once
}

// NewEventStore opens a BadgerDB event store with the given configuration.
func NewEventStore(cfg Config, opts ...Option) (*EventStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := NewEventStoreFromDB(db, cfg.KeyPrefix)
	if cfg.GCInterval > 0 && !cfg.InMemory && cfg.Dir != "" {
		s.startGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return s, nil
}

// NewEventStoreFromDB creates an event store from an open database.
func NewEventStoreFromDB(db *badger.DB, keyPrefix string) *EventStore {
	return &EventStore{
		db:        db,
		keyPrefix: keyPrefix,
		gcStop:    make(chan struct{}),
	}
}

func (s *EventStore) startGC(interval time.Duration, discardRatio float64) {
	s.gcWg.Add(1)
	go func() {
		defer s.gcWg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.gcStop:
				return
			case <-ticker.C:
				// RunValueLogGC returns ErrNoRewrite once nothing is left to collect.
				for {
					if err := s.db.RunValueLogGC(discardRatio); err != nil {
						break
					}
				}
			}
		}
	}()
}

// Key format: prefix events:agentID:sequence (8 bytes, big-endian).
func (s *EventStore) eventKey(agentID string, seq uint64) []byte {
	key := s.eventPrefix(agentID)
	return binary.BigEndian.AppendUint64(key, seq)
}

func (s *EventStore) eventPrefix(agentID string) []byte {
	return []byte(s.keyPrefix + "events:" + agentID + ":")
}

// Key format: prefix seq:agentID, holding the last assigned sequence.
func (s *EventStore) seqKey(agentID string) []byte {
	return []byte(s.keyPrefix + "seq:" + agentID)
}

// Append persists one or more events atomically.
func (s *EventStore) Append(ctx context.Context, events ...event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	for _, e := range events {
		if e.Type == "" || e.AgentID == "" {
			return event.ErrInvalidEvent
		}
	}

	return s.db.Update(func(txn *badger.Txn) error {
		sequences := make(map[string]uint64)
		for _, e := range events {
			seq, ok := sequences[e.AgentID]
			if !ok {
				var err error
				if seq, err = s.lastSequence(txn, e.AgentID); err != nil {
					return err
				}
			}
			seq++
			sequences[e.AgentID] = seq

			if e.ID == "" {
				e.ID = uuid.New().String()
			}
			e.Sequence = seq

			data, err := json.Marshal(e)
			if err != nil {
				return err
			}
			if err := txn.Set(s.eventKey(e.AgentID, seq), data); err != nil {
				return err
			}
		}

		for agentID, seq := range sequences {
			if err := txn.Set(s.seqKey(agentID), binary.BigEndian.AppendUint64(nil, seq)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *EventStore) lastSequence(txn *badger.Txn, agentID string) (uint64, error) {
	item, err := txn.Get(s.seqKey(agentID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var seq uint64
	err = item.Value(func(val []byte) error {
		if len(val) == 8 {
			seq = binary.BigEndian.Uint64(val)
		}
		return nil
	})
	return seq, err
}

// LoadEvents retrieves all events for an agent in sequence order.
func (s *EventStore) LoadEvents(ctx context.Context, agentID string) ([]event.Event, error) {
	return s.LoadEventsFrom(ctx, agentID, 0)
}

// LoadEventsFrom retrieves events starting from a specific sequence number.
func (s *EventStore) LoadEventsFrom(ctx context.Context, agentID string, fromSeq uint64) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	events := []event.Event{}
	err := s.scan(agentID, fromSeq, func(e event.Event) bool {
		events = append(events, e)
		return true
	})
	return events, err
}

// Query retrieves events matching the given options.
func (s *EventStore) Query(ctx context.Context, agentID string, opts event.QueryOptions) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	events := []event.Event{}
	err := s.scan(agentID, 0, func(e event.Event) bool {
		if !opts.Matches(e) {
			return true
		}
		events = append(events, e)
		return opts.Limit <= 0 || len(events) < opts.Limit
	})
	return events, err
}

// scan walks an agent's events from fromSeq until fn returns false.
func (s *EventStore) scan(agentID string, fromSeq uint64, fn func(event.Event) bool) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = s.eventPrefix(agentID)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(s.eventKey(agentID, fromSeq)); it.Valid(); it.Next() {
			var e event.Event
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				continue // skip malformed entries
			}
			if !fn(e) {
				return nil
			}
		}
		return nil
	})
}

// CountEvents returns the number of events for an agent.
func (s *EventStore) CountEvents(ctx context.Context, agentID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var count int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = s.eventPrefix(agentID)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// ListAgents returns all agent IDs with events in the store.
func (s *EventStore) ListAgents(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := []byte(s.keyPrefix + "seq:")
	agents := []string{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			agents = append(agents, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	sort.Strings(agents)
	return agents, err
}

// Close stops garbage collection and closes the database.
func (s *EventStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.gcStop)
		s.gcWg.Wait()
		err = s.db.Close()
	})
	return err
}

var (
	_ event.Store   = (*EventStore)(nil)
	_ event.Querier = (*EventStore)(nil)
)
