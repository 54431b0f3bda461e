package driver

import (
	"context"
	"time"

	"github.com/Tom-Deng/rally/internal/esclient"
	"github.com/Tom-Deng/rally/internal/raceerr"
)

// HealthGate blocks a race's start until the cluster reaches an
// expected health status with no shards relocating (spec.md §4.H). It
// polls on a fixed interval up to a caller-configurable retry budget;
// exhausting the budget without reaching the expected status raises an
// AssertionError rather than looping forever.
type HealthGate struct {
	Client       esclient.Client
	Expected     esclient.HealthStatus
	PollInterval time.Duration
	MaxAttempts  int
}

// NewHealthGate returns a HealthGate polling every interval up to
// maxAttempts times before giving up.
func NewHealthGate(client esclient.Client, expected esclient.HealthStatus, interval time.Duration, maxAttempts int) *HealthGate {
	return &HealthGate{Client: client, Expected: expected, PollInterval: interval, MaxAttempts: maxAttempts}
}

// Wait blocks until the cluster reaches g.Expected with zero relocating
// shards, or returns a *raceerr.AssertionError once g.MaxAttempts polls
// have been exhausted. It also returns early with ctx.Err() if ctx is
// cancelled while waiting between polls. Reaching the expected status
// (or better) while shards are still relocating is terminal and fails
// immediately, on the first observation — it never retries hoping
// relocation finishes, since the original's _do_wait does the same.
func (g *HealthGate) Wait(ctx context.Context) error {
	var last esclient.Health
	for attempt := 0; attempt < g.MaxAttempts; attempt++ {
		health, err := g.Client.ClusterHealth(ctx)
		if err != nil {
			return err
		}
		last = health

		if health.Status.AtLeast(g.Expected) {
			if health.RelocatingShards == 0 {
				return nil
			}
			return raceerr.NewRelocatingShardsError(string(health.Status), string(g.Expected), health.RelocatingShards)
		}

		if attempt == g.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(g.PollInterval):
		}
	}
	return raceerr.NewStatusNotReachedError(string(g.Expected), string(last.Status))
}
