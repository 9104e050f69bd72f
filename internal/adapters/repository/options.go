package repository

import (
	"time"

	"github.com/okian/questrec/pkg/logger"
)

type breakerConfig struct {
	name             string
	maxRequests      uint32
	interval         time.Duration
	timeout          time.Duration
	failureThreshold uint32
	logger           logger.Logger
}

func defaultBreakerConfig() breakerConfig {
	return breakerConfig{
		name:             "store",
		maxRequests:      1,
		interval:         time.Minute,
		timeout:          30 * time.Second,
		failureThreshold: 5,
	}
}

// BreakerOption applies a configuration option to the BreakerStore.
type BreakerOption func(*breakerConfig)

// WithFailureThreshold trips the breaker after n consecutive failures.
func WithFailureThreshold(n int) BreakerOption {
	return func(c *breakerConfig) {
		if n > 0 {
			c.failureThreshold = uint32(n)
		}
	}
}

// WithOpenTimeout sets how long the breaker stays open before half-opening.
func WithOpenTimeout(d time.Duration) BreakerOption {
	return func(c *breakerConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithBreakerName names the breaker in logs.
func WithBreakerName(name string) BreakerOption {
	return func(c *breakerConfig) {
		if name != "" {
			c.name = name
		}
	}
}

// WithBreakerLogger sets the logger for state changes.
func WithBreakerLogger(l logger.Logger) BreakerOption {
	return func(c *breakerConfig) {
		if l != nil {
			c.logger = l
		}
	}
}
