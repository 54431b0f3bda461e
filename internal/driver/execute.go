package driver

import (
	"context"
	"time"

	"github.com/Tom-Deng/rally/internal/esclient"
	"github.com/Tom-Deng/rally/internal/runner"
)

// Clock abstracts wall-clock and monotonic time so tests can supply a
// fake one. NewExecutor installs realClock (time.Now/time.Sleep); an
// Executor built by hand must set Clock itself.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time    { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// Executor drives one client's Scheduler to completion (spec.md §4.F):
// for each Schedule Tuple it cooperatively sleeps until the planned
// time, acquires and runs the tuple's Runner, times the call, and
// appends a Sample. It checks for cancellation before every iteration
// and while sleeping, in small slices, so a coordinator-triggered
// cancel is observed promptly rather than after a long throttled wait.
type Executor struct {
	ClientID int
	Start    time.Time
	Clock    Clock
	Sampler  *Sampler
	EsClient esclient.Client
}

// NewExecutor returns an Executor for clientID starting at start, using
// the real wall clock.
func NewExecutor(clientID int, start time.Time, sampler *Sampler, client esclient.Client) *Executor {
	return &Executor{ClientID: clientID, Start: start, Clock: realClock{}, Sampler: sampler, EsClient: client}
}

const sleepSlice = 50 * time.Millisecond

// Run drains sched, appending one Sample per produced tuple to e.Sampler.
// It stops early, returning ctx.Err(), if ctx is cancelled either while
// sleeping to a planned time or before starting an invocation. A fatal
// error returned by ExecuteSingle (anything other than the two
// recovered esclient error types) halts the loop and is returned
// unwrapped, per spec.md §4.F "unexpected errors propagate and halt the
// client".
func (e *Executor) Run(ctx context.Context, sched *Scheduler) error {
	totalOpsSoFar := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		elapsed := e.Clock.Now().Sub(e.Start).Seconds()
		tuple, ok := sched.Next(elapsed)
		if !ok {
			return nil
		}

		if err := e.sleepUntil(ctx, tuple.PlannedTime); err != nil {
			return err
		}

		started := e.Clock.Now()
		inv, acqErr := tuple.Runner.Acquire(ctx)
		var raw interface{}
		var execErr error
		if acqErr != nil {
			execErr = acqErr
		} else {
			raw, execErr = inv.Execute(ctx, e.EsClient, tuple.Params)
			inv.Release()
		}
		finished := e.Clock.Now()

		result, err := runner.ExecuteSingle(tuple.OperationName, raw, execErr)
		if err != nil {
			return err
		}

		serviceTimeMs := float64(finished.Sub(started).Microseconds()) / 1000.0
		latencyMs := serviceTimeMs
		if tuple.PlannedTime > 0 {
			// Under throttling, latency is measured from the planned
			// time, not from when the invocation actually started —
			// a late-running client accrues visible latency even if
			// its own service time was fast (spec.md §4.F).
			plannedAt := e.Start.Add(time.Duration(tuple.PlannedTime * float64(time.Second)))
			latencyMs = float64(finished.Sub(plannedAt).Microseconds()) / 1000.0
		}

		totalOpsSoFar += result.TotalOps
		e.Sampler.Add(Sample{
			ClientID:      e.ClientID,
			AbsoluteTime:  float64(finished.Unix()) + float64(finished.Nanosecond())/1e9,
			RelativeTime:  finished.Sub(e.Start).Seconds(),
			OperationName: tuple.OperationName,
			SampleType:    tuple.SampleType,
			RequestMeta:   result.Meta,
			LatencyMs:     latencyMs,
			ServiceTimeMs: serviceTimeMs,
			TotalOps:      result.TotalOps,
			TotalOpsUnit:  result.Unit,
			TotalOpsSoFar: totalOpsSoFar,
			Progress:      tuple.Progress,
		})
	}
}

// sleepUntil cooperatively sleeps until plannedTime (seconds from
// e.Start) or until ctx is cancelled, whichever comes first. It sleeps
// in slices rather than one long duration so cancellation lands within
// sleepSlice of being requested.
func (e *Executor) sleepUntil(ctx context.Context, plannedTime float64) error {
	for {
		remaining := plannedTime - e.Clock.Now().Sub(e.Start).Seconds()
		if remaining <= 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		d := time.Duration(remaining * float64(time.Second))
		if d > sleepSlice {
			d = sleepSlice
		}
		e.Clock.Sleep(d)
	}
}
