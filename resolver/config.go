package resolver

import (
	"fmt"
	"time"
)

// ErrInvalidConfig is returned when the orchestrator configuration is invalid
func ErrInvalidConfig(message string) error {
	return fmt.Errorf("invalid resolver config: %s", message)
}

// Config holds the polling and retry knobs of the orchestrator.
type Config struct {
	// PollInterval is how often chain clocks and escrow states are re-read
	// while waiting for a phase.
	PollInterval time.Duration
	// Retries of recoverable errors back off exponentially between
	// RetryInitialInterval and RetryMaxInterval and give up after
	// RetryMaxElapsed.
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMaxElapsed      time.Duration
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		PollInterval:         5 * time.Second,
		RetryInitialInterval: 2 * time.Second,
		RetryMaxInterval:     time.Minute,
		RetryMaxElapsed:      10 * time.Minute,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return ErrInvalidConfig("poll interval must be positive")
	}
	if c.RetryInitialInterval <= 0 {
		return ErrInvalidConfig("retry initial interval must be positive")
	}
	if c.RetryMaxInterval < c.RetryInitialInterval {
		return ErrInvalidConfig("retry max interval must not be below the initial interval")
	}
	if c.RetryMaxElapsed <= 0 {
		return ErrInvalidConfig("retry max elapsed must be positive")
	}

	return nil
}
