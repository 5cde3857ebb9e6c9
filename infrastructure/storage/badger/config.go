// Package badger provides a BadgerDB-backed event store.
package badger

import (
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Config configures BadgerDB storage.
type Config struct {
	// Dir is the data directory. Empty means in-memory.
	Dir string

	// InMemory keeps the database in memory only.
	InMemory bool

	// SyncWrites flushes every write to disk.
	SyncWrites bool

	// KeyPrefix is added to all keys.
	KeyPrefix string

	// GCInterval is the interval between value log GC runs. Zero disables GC.
	GCInterval time.Duration

	// GCDiscardRatio is the discard ratio passed to RunValueLogGC.
	GCDiscardRatio float64

	// Logger is the badger logger (nil silences badger).
	Logger badger.Logger
}

// Option configures BadgerDB storage.
type Option func(*Config)

// WithDir sets the data directory.
func WithDir(dir string) Option {
	return func(c *Config) {
		c.Dir = dir
	}
}

// WithInMemory enables in-memory storage.
func WithInMemory() Option {
	return func(c *Config) {
		c.InMemory = true
	}
}

// WithSyncWrites enables synchronous writes.
func WithSyncWrites() Option {
	return func(c *Config) {
		c.SyncWrites = true
	}
}

// WithKeyPrefix sets the key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(c *Config) {
		c.KeyPrefix = prefix
	}
}

// WithGCInterval sets the value log GC interval.
func WithGCInterval(d time.Duration) Option {
	return func(c *Config) {
		c.GCInterval = d
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		KeyPrefix:      "tileagent:",
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// ErrOpenFailed is returned when the database cannot be opened.
var ErrOpenFailed = errors.New("badger: open failed")

func openDB(cfg Config) (*badger.DB, error) {
	opts := badger.DefaultOptions(cfg.Dir).
		WithInMemory(cfg.InMemory || cfg.Dir == "").
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(cfg.Logger)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Join(ErrOpenFailed, err)
	}
	return db, nil
}
