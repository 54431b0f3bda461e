package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tom-Deng/rally/internal/params"
	"github.com/Tom-Deng/rally/internal/track"
)

// schedulerTestSource is the Go analogue of driver_test.py's
// DriverTestParamSource: partition is a no-op, size comes from the
// "size" param when present, and Params() hands back the static map.
type schedulerTestSource struct {
	fields map[string]interface{}
	size   int64
	hasSize bool
}

func (s *schedulerTestSource) Partition(i, n int) params.Source { return s }
func (s *schedulerTestSource) Size() int64 {
	if s.hasSize {
		return s.size
	}
	return -1
}
func (s *schedulerTestSource) Params() map[string]interface{} { return s.fields }

func registerSchedulerTestSource(name string) {
	params.Register(name, func(p map[string]interface{}) params.Source {
		src := &schedulerTestSource{fields: map[string]interface{}{"index": "test-index"}}
		if raw, ok := p["size"]; ok {
			if n, ok := raw.(int); ok {
				src.size = int64(n)
				src.hasSize = true
			}
		}
		return src
	})
}

func init() {
	registerSchedulerTestSource("scheduler-test-param-source")
}

func iterTask(warmup, iterations int, throughput float64, clients int) track.Task {
	op := track.Operation{Name: "search", Type: track.OperationSearch, ParamSource: "scheduler-test-param-source"}
	task := track.NewTask(op)
	task.WarmupIterations = warmup
	n := iterations
	task.Iterations = &n
	task.Clients = clients
	task.Params = map[string]interface{}{}
	if throughput > 0 {
		task.Params["target-throughput"] = throughput
		task.Params["clients"] = clients
	}
	return task
}

func drainAll(t *testing.T, s *Scheduler) []ScheduleTuple {
	t.Helper()
	var out []ScheduleTuple
	for {
		tup, ok := s.Next(0)
		if !ok {
			break
		}
		out = append(out, tup)
	}
	return out
}

func TestScheduler_IterationBoundedThrottled(t *testing.T) {
	task := iterTask(3, 5, 10, 1)
	s, err := NewScheduler(task, 0)
	require.NoError(t, err)

	tuples := drainAll(t, s)
	require.Len(t, tuples, 8)

	for i, tup := range tuples {
		assert.InDelta(t, float64(i)*0.1, tup.PlannedTime, 1e-9)
		assert.InDelta(t, float64(i+1)/8.0, tup.Progress, 1e-9)
		if i < 3 {
			assert.Equal(t, Warmup, tup.SampleType)
		} else {
			assert.Equal(t, Normal, tup.SampleType)
		}
		assert.NotNil(t, tup.Runner)
	}
}

func TestScheduler_UnthrottledPlannedTimeIsAlwaysZero(t *testing.T) {
	task := iterTask(0, 4, 0, 1)
	s, err := NewScheduler(task, 0)
	require.NoError(t, err)

	for _, tup := range drainAll(t, s) {
		assert.Equal(t, 0.0, tup.PlannedTime)
	}
}

func TestScheduler_TimeBoundedProgressMonotonicWithinBounds(t *testing.T) {
	op := track.Operation{Name: "search", Type: track.OperationSearch, ParamSource: "scheduler-test-param-source"}
	task := track.NewTask(op)
	warmup := 0.1
	period := 0.1
	task.WarmupTimePeriod = &warmup
	task.TimePeriod = &period
	task.Params = map[string]interface{}{}

	s, err := NewScheduler(task, 0)
	require.NoError(t, err)

	elapsed := []float64{0.0, 0.05, 0.1, 0.15, 0.2}
	var last float64
	for i, e := range elapsed {
		tup, ok := s.Next(e)
		if e > 0.2 {
			assert.False(t, ok)
			continue
		}
		require.True(t, ok, "elapsed %v should still be in bounds", e)
		assert.GreaterOrEqual(t, tup.Progress, last)
		assert.LessOrEqual(t, tup.Progress, 1.0)
		if e < 0.1 {
			assert.Equal(t, Warmup, tup.SampleType)
		} else {
			assert.Equal(t, Normal, tup.SampleType)
		}
		last = tup.Progress
		_ = i
	}

	_, ok := s.Next(0.21)
	assert.False(t, ok, "elapsed past warmup+period must stop the schedule")
}

func TestScheduler_PartitionsParamSourceAcrossClients(t *testing.T) {
	op := track.Operation{Name: "search", Type: track.OperationSearch, ParamSource: "scheduler-test-param-source"}
	task := track.NewTask(op)
	task.Clients = 2
	iterations := 2
	task.Iterations = &iterations
	task.Params = map[string]interface{}{}

	s0, err := NewScheduler(task, 0)
	require.NoError(t, err)
	s1, err := NewScheduler(task, 1)
	require.NoError(t, err)

	assert.NotNil(t, s0)
	assert.NotNil(t, s1)
}
