package driver

import (
	"fmt"
	"math"

	"github.com/Tom-Deng/rally/internal/params"
	"github.com/Tom-Deng/rally/internal/runner"
	"github.com/Tom-Deng/rally/internal/track"
)

// SampleType classifies one invocation as warmup (discarded by
// reporting) or normal (spec.md §3 "Sample type").
type SampleType int

const (
	Warmup SampleType = iota
	Normal
)

func (s SampleType) String() string {
	if s == Warmup {
		return "warmup"
	}
	return "normal"
}

// ScheduleTuple is one planned invocation (spec.md §3 "Schedule Tuple").
type ScheduleTuple struct {
	PlannedTime   float64 // seconds from task start
	SampleType    SampleType
	Progress      float64 // in (0, 1]
	Runner        runner.Runner
	Params        map[string]interface{}
	OperationName string
}

// boundMode selects how a Scheduler decides when to stop (spec.md §4.C).
type boundMode int

const (
	iterationBounded boundMode = iota
	timeBounded
)

// Scheduler produces the lazy sequence of Schedule Tuples for one
// (task, client-within-task) pair (spec.md §4.C). It is stateful and
// non-restartable: each call to Next consumes the task's param source.
type Scheduler struct {
	mode boundMode

	warmup int64
	n      int64 // iteration-bounded: total measured iterations (N)
	denom  int64 // W + N, for progress

	warmupPeriod float64
	timePeriod   float64 // math.Inf(1) when unbounded

	source   params.Source
	run      runner.Runner
	opName   string

	throttled     bool
	perClientRate float64 // K/T seconds between invocations

	invocation int64 // 1-based count of invocations produced so far
}

// NewScheduler builds a Scheduler for clientIndexWithinTask's shard of
// task's param source, partitioned across task.ClientCount() shards.
func NewScheduler(task track.Task, clientIndexWithinTask int) (*Scheduler, error) {
	merged := mergeParams(task.Operation.Params, task.Params)
	src, err := params.New(task.Operation.ParamSource, merged)
	if err != nil {
		return nil, fmt.Errorf("building param source for task %q: %w", task.Operation.Name, err)
	}
	partitioned := src.Partition(clientIndexWithinTask, task.ClientCount())

	s := &Scheduler{
		source: partitioned,
		run:    runner.For(task.Operation.Type),
		opName: task.Operation.Name,
		warmup: int64(task.WarmupIterations),
	}

	if task.WarmupTimePeriod != nil {
		s.warmupPeriod = *task.WarmupTimePeriod
	}
	if task.TimePeriod != nil {
		s.timePeriod = *task.TimePeriod
	} else {
		s.timePeriod = math.Inf(1)
	}

	switch {
	case task.Iterations != nil:
		s.mode = iterationBounded
		s.n = int64(*task.Iterations)
		s.denom = s.warmup + s.n
	case task.TimePeriod != nil || task.WarmupTimePeriod != nil:
		// An explicit time period always wins over a param source that
		// merely happens to report a finite size (original_source's
		// test_schedule_for_time_based).
		s.mode = timeBounded
	case partitioned.Size() >= 0:
		s.mode = iterationBounded
		s.n = partitioned.Size()
		s.denom = s.warmup + s.n
	default:
		s.mode = timeBounded
	}

	if t, k, ok := task.TargetThroughput(); ok {
		s.throttled = true
		s.perClientRate = float64(k) / t
	}

	return s, nil
}

// plannedTimeFor returns the planned invocation time for the
// `invocation`-th (1-based) tuple: 0 when unthrottled, else
// (invocation-1) * K/T seconds from task start (spec.md §4.C, §8
// "Under throttling T,K, consecutive planned times differ by K/T").
func (s *Scheduler) plannedTimeFor(invocation int64) float64 {
	if !s.throttled {
		return 0
	}
	return float64(invocation-1) * s.perClientRate
}

// Next produces the next Schedule Tuple, or (ScheduleTuple{}, false) if
// the schedule is exhausted. elapsed is the caller's current relative
// time (seconds since this client started this task); it is used only
// in time-bounded mode, where the stopping condition and sample
// classification depend on real wall-clock progress rather than an
// iteration count. Iteration-bounded schedules ignore it.
func (s *Scheduler) Next(elapsed float64) (ScheduleTuple, bool) {
	switch s.mode {
	case iterationBounded:
		return s.nextIterationBounded()
	default:
		return s.nextTimeBounded(elapsed)
	}
}

func (s *Scheduler) nextIterationBounded() (ScheduleTuple, bool) {
	if s.invocation >= s.denom {
		return ScheduleTuple{}, false
	}
	s.invocation++
	sampleType := Normal
	if s.invocation <= s.warmup {
		sampleType = Warmup
	}
	progress := 1.0
	if s.denom > 0 {
		progress = float64(s.invocation) / float64(s.denom)
	}
	return ScheduleTuple{
		PlannedTime:   s.plannedTimeFor(s.invocation),
		SampleType:    sampleType,
		Progress:      progress,
		Runner:        s.run,
		Params:        s.source.Params(),
		OperationName: s.opName,
	}, true
}

func (s *Scheduler) nextTimeBounded(elapsed float64) (ScheduleTuple, bool) {
	total := s.warmupPeriod + s.timePeriod
	if elapsed > total {
		return ScheduleTuple{}, false
	}
	s.invocation++
	sampleType := Normal
	if elapsed < s.warmupPeriod {
		sampleType = Warmup
	}
	progress := s.timeBoundedProgress(elapsed, total)
	return ScheduleTuple{
		PlannedTime:   s.plannedTimeFor(s.invocation),
		SampleType:    sampleType,
		Progress:      progress,
		Runner:        s.run,
		Params:        s.source.Params(),
		OperationName: s.opName,
	}, true
}

// timeBoundedProgress resolves spec.md §9's open question: with a
// finite total duration, progress is elapsed/total clamped to (0,1].
// With an unbounded time_period (total == +Inf), there is no
// denominator; we use the partitioned param source's Size() as a
// nominal one when it reports a finite value, else fall back to a
// strictly increasing sentinel in (0,1) so progress is still monotone
// per (client, task) as required by spec.md §5, without ever claiming
// completion (it never reaches 1 — there is no finite total).
func (s *Scheduler) timeBoundedProgress(elapsed, total float64) float64 {
	if !math.IsInf(total, 1) && total > 0 {
		p := elapsed / total
		if p <= 0 {
			// Progress must stay in (0, 1]; a zero-elapsed first
			// invocation gets a floor rather than 0.
			p = 1e-9
		}
		if p > 1 {
			p = 1
		}
		return p
	}
	if size := s.source.Size(); size > 0 {
		p := float64(s.invocation) / float64(size)
		if p > 1 {
			p = 1
		}
		return p
	}
	return 1 - 1/float64(1+s.invocation)
}

func mergeParams(base, overlay map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}
