package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/tileagent/domain/event"
)

// EventStore is a PostgreSQL-backed implementation of event.Store.
type EventStore struct {
	pool   *pgxpool.Pool
	schema string
	owned  bool
}

// Open connects to the server described by cfg and returns an event store
// that closes the pool on Close.
func Open(ctx context.Context, cfg Config, opts ...Option) (*EventStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := NewEventStore(pool, cfg.Schema)
	s.owned = true
	if cfg.AutoMigrate {
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return s, nil
}

// NewEventStore creates an event store on an existing pool.
func NewEventStore(pool *pgxpool.Pool, schema string) *EventStore {
	if schema == "" {
		schema = "public"
	}
	return &EventStore{pool: pool, schema: schema}
}

func (s *EventStore) tableName() string {
	return pgx.Identifier{s.schema, "events"}.Sanitize()
}

// Migrate creates the events table and its indexes.
func (s *EventStore) Migrate(ctx context.Context) error {
	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL,
			type TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			payload JSONB,
			sequence BIGINT NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			UNIQUE (agent_id, sequence)
		);
		CREATE INDEX IF NOT EXISTS events_agent_type_idx ON %[1]s (agent_id, type);
	`, s.tableName())

	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}

// Append persists one or more events atomically.
func (s *EventStore) Append(ctx context.Context, events ...event.Event) error {
	if len(events) == 0 {
		return nil
	}
	for _, e := range events {
		if e.Type == "" || e.AgentID == "" {
			return event.ErrInvalidEvent
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return s.wrapError(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	insert := fmt.Sprintf(`
		INSERT INTO %s (id, agent_id, type, timestamp, payload, sequence, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.tableName())

	sequences := make(map[string]uint64)
	for _, e := range events {
		seq, ok := sequences[e.AgentID]
		if !ok {
			var maxSeq *int64
			if err := tx.QueryRow(ctx,
				fmt.Sprintf("SELECT MAX(sequence) FROM %s WHERE agent_id = $1", s.tableName()),
				e.AgentID,
			).Scan(&maxSeq); err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return s.wrapError(err)
			}
			if maxSeq != nil {
				seq = uint64(*maxSeq) // #nosec G115 -- sequences are positive
			}
		}
		seq++
		sequences[e.AgentID] = seq

		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		if e.Version == 0 {
			e.Version = 1
		}

		if _, err := tx.Exec(ctx, insert,
			e.ID, e.AgentID, string(e.Type), e.Timestamp, []byte(e.Payload), int64(seq), e.Version, // #nosec G115
		); err != nil {
			return s.wrapError(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
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
	query := fmt.Sprintf(`
		SELECT id, agent_id, type, timestamp, payload, sequence, version
		FROM %s
		WHERE agent_id = $1 AND sequence >= $2
		ORDER BY sequence ASC
	`, s.tableName())

	rows, err := s.pool.Query(ctx, query, agentID, int64(fromSeq)) // #nosec G115
	if err != nil {
		return nil, s.wrapError(err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Query retrieves events matching the given options.
func (s *EventStore) Query(ctx context.Context, agentID string, opts event.QueryOptions) ([]event.Event, error) {
	query, args := s.buildQuerySQL(agentID, opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, s.wrapError(err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// CountEvents returns the number of events for an agent.
func (s *EventStore) CountEvents(ctx context.Context, agentID string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE agent_id = $1", s.tableName()), agentID,
	).Scan(&count)
	if err != nil {
		return 0, s.wrapError(err)
	}
	return count, nil
}

// ListAgents returns all agent IDs with events in the store.
func (s *EventStore) ListAgents(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf("SELECT DISTINCT agent_id FROM %s ORDER BY agent_id", s.tableName()))
	if err != nil {
		return nil, s.wrapError(err)
	}

	agents, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, s.wrapError(err)
	}
	if agents == nil {
		agents = []string{}
	}
	return agents, nil
}

// Close closes the pool when the store opened it.
func (s *EventStore) Close() error {
	if s.owned && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// buildQuerySQL constructs the SELECT statement for Query.
func (s *EventStore) buildQuerySQL(agentID string, opts event.QueryOptions) (string, []any) {
	args := []any{agentID}
	conditions := []string{"agent_id = $1"}

	if len(opts.Types) > 0 {
		types := make([]string, len(opts.Types))
		for i, t := range opts.Types {
			types[i] = string(t)
		}
		args = append(args, types)
		conditions = append(conditions, fmt.Sprintf("type = ANY($%d)", len(args)))
	}

	query := fmt.Sprintf(`
		SELECT id, agent_id, type, timestamp, payload, sequence, version
		FROM %s
		WHERE %s
		ORDER BY sequence ASC`, s.tableName(), strings.Join(conditions, " AND "))

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return query, args
}

func scanEvents(rows pgx.Rows) ([]event.Event, error) {
	events := []event.Event{}
	for rows.Next() {
		var (
			e         event.Event
			eventType string
			payload   []byte
			seq       int64
		)
		if err := rows.Scan(&e.ID, &e.AgentID, &eventType, &e.Timestamp, &payload, &seq, &e.Version); err != nil {
			return nil, err
		}
		e.Type = event.Type(eventType)
		e.Payload = json.RawMessage(payload)
		e.Sequence = uint64(seq) // #nosec G115 -- sequences are positive
		events = append(events, e)
	}
	return events, rows.Err()
}

// wrapError marks database errors as connection failures.
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
