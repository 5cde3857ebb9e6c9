package resilience

import "time"

// Config configures the collaborator guards.
type Config struct {
	// BreakerThreshold is the number of consecutive failures that opens a breaker.
	BreakerThreshold int

	// BreakerTimeout is how long an open breaker fails fast.
	BreakerTimeout time.Duration

	// CollectRetryAttempts is the total number of collector attempts per call.
	CollectRetryAttempts int

	// RetryInitialDelay is the delay before the first collector retry.
	RetryInitialDelay time.Duration

	// RetryBackoffMultiplier is the exponential backoff multiplier.
	RetryBackoffMultiplier float64
}

// DefaultConfig returns the guard defaults.
func DefaultConfig() Config {
	return Config{
		BreakerThreshold:       5,
		BreakerTimeout:         30 * time.Second,
		CollectRetryAttempts:   1,
		RetryInitialDelay:      10 * time.Millisecond,
		RetryBackoffMultiplier: 2.0,
	}
}

// Option configures the guard.
type Option func(*Config)

// WithBreakerThreshold sets the failure threshold for every breaker.
func WithBreakerThreshold(n int) Option {
	return func(c *Config) {
		c.BreakerThreshold = n
	}
}

// WithBreakerTimeout sets the open duration for every breaker.
func WithBreakerTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.BreakerTimeout = d
	}
}

// WithCollectRetryAttempts sets the total collector attempts.
func WithCollectRetryAttempts(n int) Option {
	return func(c *Config) {
		c.CollectRetryAttempts = n
	}
}

// WithRetryDelay sets the initial collector retry delay.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Config) {
		c.RetryInitialDelay = d
	}
}
