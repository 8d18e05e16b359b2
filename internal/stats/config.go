// Package stats compares event-day returns with quiet-day returns and
// correlates trailing post frequency with price level.
package stats

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid stats config")

// Config holds sample-size thresholds and the rolling window width.
type Config struct {
	MinGroupSize        int // per group, for the daily comparison test
	MinCorrelationPairs int // paired observations for the rolling correlation
	WindowDays          int // trailing window, in days, ending the day before
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		MinGroupSize:        5,
		MinCorrelationPairs: 10,
		WindowDays:          7,
	}
}

// Validate checks thresholds. Tests need at least two observations per group
// and three pairs for a correlation p-value.
func (c Config) Validate() error {
	if c.MinGroupSize < 2 {
		return fmt.Errorf("%w: min group size %d < 2", ErrInvalidConfig, c.MinGroupSize)
	}
	if c.MinCorrelationPairs < 3 {
		return fmt.Errorf("%w: min correlation pairs %d < 3", ErrInvalidConfig, c.MinCorrelationPairs)
	}
	if c.WindowDays < 1 {
		return fmt.Errorf("%w: window days %d < 1", ErrInvalidConfig, c.WindowDays)
	}
	return nil
}
