// Package mongodb provides a MongoDB-backed event store.
package mongodb

import (
	"errors"
	"time"
)

// Config holds MongoDB connection configuration.
type Config struct {
	// URI is the mongodb:// connection string.
	URI string

	// Database holds the event collections.
	Database string

	// Collection stores the events.
	Collection string

	// QueryTimeout bounds every operation.
	QueryTimeout time.Duration
}

// Option configures MongoDB storage.
type Option func(*Config)

// WithURI sets the connection string.
func WithURI(uri string) Option {
	return func(c *Config) {
		c.URI = uri
	}
}

// WithDatabase sets the database name.
func WithDatabase(name string) Option {
	return func(c *Config) {
		c.Database = name
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		URI:          "mongodb://localhost:27017",
		Database:     "tileagent",
		Collection:   "events",
		QueryTimeout: 10 * time.Second,
	}
}

// Errors
var (
	ErrConnectionFailed = errors.New("mongodb: connection failed")
)
