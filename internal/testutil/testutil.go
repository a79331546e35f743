// Package testutil provides shared fixtures for roster tests.
package testutil

import (
	"testing"

	"github.com/rosterdev/roster/internal/config"
)

// TestConfig returns a default configuration rooted at a temp directory,
// with intervals shrunk so timing-sensitive tests finish quickly:
// 20 ms heartbeats, 60 ms staleness, 5 ms lock polling with a 100 ms
// ceiling, and 10 ms watch polling.
func TestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Registry.Dir = t.TempDir()
	cfg.Registry.StaleThresholdMs = 60
	cfg.Heartbeat.IntervalMs = 20
	cfg.Lock.PollIntervalMs = 5
	cfg.Lock.WaitCeilingMs = 100
	cfg.Lock.BackoffMs = 5
	cfg.Watch.Mode = "poll"
	cfg.Watch.PollIntervalMs = 10
	return cfg
}
