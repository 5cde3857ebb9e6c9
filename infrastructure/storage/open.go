// Package storage opens the configured event log.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/felixgeelhaar/tileagent/domain/config"
	"github.com/felixgeelhaar/tileagent/domain/event"
	"github.com/felixgeelhaar/tileagent/infrastructure/storage/badger"
	"github.com/felixgeelhaar/tileagent/infrastructure/storage/memory"
	"github.com/felixgeelhaar/tileagent/infrastructure/storage/mongodb"
	"github.com/felixgeelhaar/tileagent/infrastructure/storage/postgres"
	"github.com/felixgeelhaar/tileagent/infrastructure/storage/redis"
	"github.com/felixgeelhaar/tileagent/infrastructure/storage/sqlite"
)

// Drivers lists the supported storage drivers.
var Drivers = []string{"memory", "sqlite", "badger", "postgres", "redis", "mongodb"}

// EventLog is an event store that can be queried, counted and closed.
type EventLog interface {
	event.Store
	event.Querier
	CountEvents(ctx context.Context, agentID string) (int64, error)
	io.Closer
}

// Open returns the event log described by cfg.
func Open(ctx context.Context, cfg config.StorageSettings) (EventLog, error) {
	var (
		log EventLog
		err error
	)
	switch cfg.Driver {
	case "", "memory":
		return memoryLog{memory.NewEventStore()}, nil
	case "sqlite":
		log, err = sqlite.NewEventStore(sqlite.DefaultConfig(), sqlite.WithDSN(cfg.DSN), sqlite.WithAutoMigrate())
	case "badger":
		log, err = badger.NewEventStore(badger.DefaultConfig(), badger.WithDir(cfg.DSN))
	case "postgres":
		log, err = postgres.Open(ctx, postgres.DefaultConfig(), postgres.WithDSN(cfg.DSN), postgres.WithAutoMigrate())
	case "redis":
		log, err = redis.NewEventStore(ctx, redis.DefaultConfig(), redis.WithURL(cfg.DSN))
	case "mongodb":
		log, err = mongodb.NewEventStore(ctx, mongodb.DefaultConfig(), mongodb.WithURI(cfg.DSN))
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s event store: %w", cfg.Driver, err)
	}
	return log, nil
}

// memoryLog gives the in-memory store a no-op Close.
type memoryLog struct {
	*memory.EventStore
}

func (memoryLog) Close() error { return nil }
