// Package worker provides background refresh processing for the configured stations.
package worker

import (
	"time"
)

// RefreshConfig holds configuration for the station refresh job.
type RefreshConfig struct {
	// Interval is the time between scheduled refreshes.
	// Default: 10 minutes
	Interval time.Duration

	// Concurrency is the number of stations refreshed in parallel.
	// Default: 3
	Concurrency int

	// Timeout is the timeout for each station refresh.
	// Default: 30 seconds
	Timeout time.Duration
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Interval:    10 * time.Minute,
		Concurrency: 3,
		Timeout:     30 * time.Second,
	}
}

// withDefaults fills unset fields from DefaultRefreshConfig.
func (c RefreshConfig) withDefaults() RefreshConfig {
	def := DefaultRefreshConfig()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	return c
}
