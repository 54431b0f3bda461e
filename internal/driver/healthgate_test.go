package driver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tom-Deng/rally/internal/esclient"
)

type scriptedHealthClient struct {
	stubEsClient
	healths    []esclient.Health
	calls      int
	totalCalls int
}

func (c *scriptedHealthClient) ClusterHealth(ctx context.Context) (esclient.Health, error) {
	c.totalCalls++
	h := c.healths[c.calls]
	if c.calls < len(c.healths)-1 {
		c.calls++
	}
	return h, nil
}

func TestHealthGate_Wait_ReturnsOnceGreenWithNoRelocations(t *testing.T) {
	client := &scriptedHealthClient{healths: []esclient.Health{
		{Status: esclient.StatusYellow, RelocatingShards: 0},
		{Status: esclient.StatusGreen, RelocatingShards: 0},
	}}
	gate := NewHealthGate(client, esclient.StatusGreen, time.Millisecond, 5)
	require.NoError(t, gate.Wait(context.Background()))
	assert.Equal(t, 1, client.calls)
}

func TestHealthGate_Wait_FailsImmediatelyOnRelocatingShards(t *testing.T) {
	client := &scriptedHealthClient{healths: []esclient.Health{
		{Status: esclient.StatusGreen, RelocatingShards: 2},
	}}
	// MaxAttempts is large enough that a passing implementation would
	// have plenty of budget left to retry; the point of this test is
	// that it must not use any of it.
	gate := NewHealthGate(client, esclient.StatusGreen, time.Hour, 50)
	err := gate.Wait(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relocating shards")
	assert.Equal(t, 1, client.totalCalls)
}

func TestHealthGate_Wait_FailsWhenStatusNeverReached(t *testing.T) {
	client := &scriptedHealthClient{healths: []esclient.Health{
		{Status: esclient.StatusRed, RelocatingShards: 0},
	}}
	gate := NewHealthGate(client, esclient.StatusGreen, time.Millisecond, 2)
	err := gate.Wait(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not reach status")
}

func TestHealthGate_Wait_StopsOnCancelledContext(t *testing.T) {
	client := &scriptedHealthClient{healths: []esclient.Health{
		{Status: esclient.StatusRed, RelocatingShards: 0},
	}}
	gate := NewHealthGate(client, esclient.StatusGreen, time.Hour, 5)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := gate.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
