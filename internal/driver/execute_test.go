package driver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tom-Deng/rally/internal/esclient"
)

// fakeClock is a manually-advanced Clock: Sleep jumps the clock forward
// by d immediately rather than blocking, so tests run instantly.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) Sleep(d time.Duration) { c.now = c.now.Add(d) }

// stubEsClient is a minimal in-memory esclient.Client for executor
// tests: every call succeeds trivially.
type stubEsClient struct{}

func (stubEsClient) Info(ctx context.Context) (esclient.Info, error) {
	return esclient.Info{VersionNumber: "test"}, nil
}
func (stubEsClient) ClusterHealth(ctx context.Context) (esclient.Health, error) {
	return esclient.Health{Status: esclient.StatusGreen}, nil
}
func (stubEsClient) IndicesExists(ctx context.Context, index string) (bool, error) {
	return true, nil
}
func (stubEsClient) IndicesCreate(ctx context.Context, index string, body map[string]interface{}) error {
	return nil
}
func (stubEsClient) IndicesDelete(ctx context.Context, index string) error { return nil }
func (stubEsClient) Bulk(ctx context.Context, index string, body []byte) (esclient.BulkResult, error) {
	return esclient.BulkResult{Items: 1}, nil
}
func (stubEsClient) Search(ctx context.Context, index string, body map[string]interface{}) (map[string]interface{}, error) {
	return map[string]interface{}{}, nil
}

var _ esclient.Client = stubEsClient{}

func TestExecutor_Run_DrainsScheduleAndRecordsSamples(t *testing.T) {
	task := iterTask(1, 3, 0, 1)
	sched, err := NewScheduler(task, 0)
	require.NoError(t, err)

	start := time.Unix(1700000000, 0)
	clock := &fakeClock{now: start}
	sampler := NewSampler()
	exec := &Executor{ClientID: 0, Start: start, Clock: clock, Sampler: sampler, EsClient: stubEsClient{}}

	err = exec.Run(context.Background(), sched)
	require.NoError(t, err)

	samples := sampler.Samples()
	require.Len(t, samples, 4)
	assert.Equal(t, Warmup, samples[0].SampleType)
	assert.Equal(t, Normal, samples[3].SampleType)
	for _, s := range samples {
		assert.Equal(t, 0, s.ClientID)
		assert.Equal(t, "search", s.OperationName)
		assert.Equal(t, 1, s.TotalOps)
	}
	assert.Equal(t, 4, samples[3].TotalOpsSoFar)
}

func TestExecutor_Run_StopsOnCancelledContext(t *testing.T) {
	task := iterTask(0, 1000, 0, 1)
	sched, err := NewScheduler(task, 0)
	require.NoError(t, err)

	start := time.Unix(1700000000, 0)
	clock := &fakeClock{now: start}
	sampler := NewSampler()
	exec := &Executor{ClientID: 0, Start: start, Clock: clock, Sampler: sampler, EsClient: stubEsClient{}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = exec.Run(ctx, sched)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sampler.Samples())
}

func TestExecutor_Run_SleepsToPlannedTimeUnderThrottling(t *testing.T) {
	task := iterTask(0, 3, 10, 1) // K/T = 0.1s between invocations
	sched, err := NewScheduler(task, 0)
	require.NoError(t, err)

	start := time.Unix(1700000000, 0)
	clock := &fakeClock{now: start}
	sampler := NewSampler()
	exec := &Executor{ClientID: 0, Start: start, Clock: clock, Sampler: sampler, EsClient: stubEsClient{}}

	require.NoError(t, exec.Run(context.Background(), sched))

	samples := sampler.Samples()
	require.Len(t, samples, 3)
	assert.InDelta(t, 0.2, samples[2].RelativeTime, 1e-6)
}
