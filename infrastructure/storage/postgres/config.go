// Package postgres provides a PostgreSQL-backed event store.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds PostgreSQL connection configuration.
type Config struct {
	// DSN is a connection URL or keyword/value string.
	DSN string

	// Schema holds the events table.
	Schema string

	// MaxConns is the maximum pool size.
	MaxConns int32

	// MinConns is the minimum number of idle connections.
	MinConns int32

	// ConnectTimeout bounds the initial ping.
	ConnectTimeout time.Duration

	// AutoMigrate creates the events table if it does not exist.
	AutoMigrate bool
}

// Option configures PostgreSQL storage.
type Option func(*Config)

// WithDSN sets the connection string.
func WithDSN(dsn string) Option {
	return func(c *Config) {
		c.DSN = dsn
	}
}

// WithSchema sets the schema holding the events table.
func WithSchema(schema string) Option {
	return func(c *Config) {
		c.Schema = schema
	}
}

// WithPoolSize sets the connection pool bounds.
func WithPoolSize(maxConns, minConns int32) Option {
	return func(c *Config) {
		c.MaxConns = maxConns
		c.MinConns = minConns
	}
}

// WithAutoMigrate enables automatic table creation.
func WithAutoMigrate() Option {
	return func(c *Config) {
		c.AutoMigrate = true
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Schema:         "public",
		MaxConns:       10,
		MinConns:       2,
		ConnectTimeout: 10 * time.Second,
	}
}

// Errors
var (
	ErrConnectionFailed = errors.New("postgres: connection failed")
	ErrMigrationFailed  = errors.New("postgres: migration failed")
)

// openPool parses cfg, opens a pool and pings the server.
func openPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	return pool, nil
}
