// Package redis provides a Redis-backed event store.
package redis

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration.
type Config struct {
	// URL is a redis:// or rediss:// connection URL. It overrides Address,
	// Password and DB when set.
	URL string

	// Address is the Redis server address (host:port).
	Address string

	// Password for authentication (optional).
	Password string

	// DB selects the Redis database index.
	DB int

	// DialTimeout is the timeout for establishing new connections.
	DialTimeout time.Duration

	// KeyPrefix is prepended to all keys.
	KeyPrefix string
}

// ConfigOption configures the Redis connection.
type ConfigOption func(*Config)

// WithURL sets the connection URL.
func WithURL(url string) ConfigOption {
	return func(c *Config) {
		c.URL = url
	}
}

// WithAddress sets the Redis server address.
func WithAddress(addr string) ConfigOption {
	return func(c *Config) {
		c.Address = addr
	}
}

// WithKeyPrefix sets the key prefix for namespacing.
func WithKeyPrefix(prefix string) ConfigOption {
	return func(c *Config) {
		c.KeyPrefix = prefix
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Address:     "localhost:6379",
		DialTimeout: 5 * time.Second,
		KeyPrefix:   "tileagent:",
	}
}

// ErrConnectionFailed is returned when Redis cannot be reached.
var ErrConnectionFailed = errors.New("redis: connection failed")

// options translates cfg into client options.
func (c Config) options() (*redis.Options, error) {
	if c.URL != "" {
		opts, err := redis.ParseURL(c.URL)
		if err != nil {
			return nil, errors.Join(ErrConnectionFailed, err)
		}
		if c.DialTimeout > 0 {
			opts.DialTimeout = c.DialTimeout
		}
		return opts, nil
	}
	return &redis.Options{
		Addr:        c.Address,
		Password:    c.Password,
		DB:          c.DB,
		DialTimeout: c.DialTimeout,
	}, nil
}
