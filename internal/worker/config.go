package worker

import (
	"fmt"
	"time"
)

// Config tunes the background job worker.
type Config struct {
	// Concurrency is the number of worker goroutines. Auto-download jobs
	// hit the court archive, which rate-limits per account, so this
	// stays small. Default: 2.
	Concurrency int

	// PollInterval is how often an idle worker checks for new jobs.
	// Default: 5 seconds.
	PollInterval time.Duration

	// JobTimeout bounds a single job run. A job past the timeout has its
	// context canceled and is marked failed. Downloading one filing
	// comfortably fits; default: 5 minutes.
	JobTimeout time.Duration

	// ShutdownTimeout is how long Stop waits for in-flight jobs before
	// giving up on them. Default: 30 seconds.
	ShutdownTimeout time.Duration

	// StaleJobThreshold is the age at which a 'running' job is presumed
	// orphaned by a crashed worker and recovered at startup.
	// Default: 10 minutes.
	StaleJobThreshold time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Concurrency:       2,
		PollInterval:      5 * time.Second,
		JobTimeout:        5 * time.Minute,
		ShutdownTimeout:   30 * time.Second,
		StaleJobThreshold: 10 * time.Minute,
	}
}

// Validate rejects configurations that cannot run safely.
func (c Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Concurrency > 100 {
		return fmt.Errorf("concurrency too high (max 100), got %d", c.Concurrency)
	}

	minimums := []struct {
		name  string
		value time.Duration
		min   time.Duration
	}{
		{"poll interval", c.PollInterval, time.Second},
		{"job timeout", c.JobTimeout, time.Second},
		{"shutdown timeout", c.ShutdownTimeout, time.Second},
		{"stale job threshold", c.StaleJobThreshold, time.Minute},
	}
	for _, m := range minimums {
		if m.value < m.min {
			return fmt.Errorf("%s must be at least %v, got %v", m.name, m.min, m.value)
		}
	}
	return nil
}
