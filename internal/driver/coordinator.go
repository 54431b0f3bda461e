package driver

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Tom-Deng/rally/internal/esclient"
)

// Barrier is a single-use rendezvous point for a fixed number of clients
// (spec.md §5 "join point"): every client calls Arrive and blocks until
// all width clients have arrived, then all are released together. A
// Barrier is used once per join point and discarded.
type Barrier struct {
	width   int
	mu      sync.Mutex
	arrived int
	release chan struct{}
}

// NewBarrier returns a Barrier that releases once width clients arrive.
func NewBarrier(width int) *Barrier {
	return &Barrier{width: width, release: make(chan struct{})}
}

// Arrive blocks the caller until every client has arrived at this
// barrier, or ctx is cancelled. The last arrival closes the release
// channel, waking every other waiter (spec.md §5 "the join point
// establishes happens-before across all clients that passed through
// it").
func (b *Barrier) Arrive(ctx context.Context) error {
	b.mu.Lock()
	b.arrived++
	last := b.arrived == b.width
	b.mu.Unlock()

	if last {
		close(b.release)
		return nil
	}
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Coordinator drives a race's Allocator timeline to completion: one
// goroutine per client row, synchronised at each join point by a
// Barrier, with first-error cancellation across the whole group
// (spec.md §5 "a client's unexpected error halts the whole race"). It
// uses errgroup the way a pool of independent workers sharing one
// cancellation signal is conventionally wired in Go.
type Coordinator struct {
	Allocator *Allocator
	EsClient  esclient.Client
	Samplers  []*Sampler
}

// NewCoordinator returns a Coordinator over alloc's timeline, one
// Sampler per client row.
func NewCoordinator(alloc *Allocator, client esclient.Client) *Coordinator {
	samplers := make([]*Sampler, alloc.Clients)
	for i := range samplers {
		samplers[i] = NewSampler()
	}
	return &Coordinator{Allocator: alloc, EsClient: client, Samplers: samplers}
}

// Run executes every client's row concurrently. Each row is a sequence
// of task slots separated by join points: a client runs its task slot
// to completion (draining that task's Scheduler through an Executor),
// then arrives at the row's next join point and waits for its peers
// before continuing to the next slot. The first client error cancels
// every other client's context (errgroup's standard first-error
// semantics) and is returned from Run.
func (c *Coordinator) Run(ctx context.Context) error {
	if len(c.Allocator.Allocations) == 0 {
		return nil
	}
	rowLen := len(c.Allocator.Allocations[0])
	barriers := make([]*Barrier, rowLen)
	for i, slot := range c.Allocator.Allocations[0] {
		if slot.Kind == SlotJoinPoint {
			barriers[i] = NewBarrier(c.Allocator.Clients)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for clientIndex, row := range c.Allocator.Allocations {
		clientIndex, row := clientIndex, row
		g.Go(func() error {
			return c.runClient(gctx, clientIndex, row, barriers)
		})
	}
	return g.Wait()
}

func (c *Coordinator) runClient(ctx context.Context, clientIndex int, row []Slot, barriers []*Barrier) error {
	sampler := c.Samplers[clientIndex]
	for i, slot := range row {
		switch slot.Kind {
		case SlotJoinPoint:
			if err := barriers[i].Arrive(ctx); err != nil {
				return err
			}
		case SlotIdle:
			// nothing to do; this client has no work in this item.
		case SlotTask:
			sched, err := NewScheduler(slot.Task, slot.TaskClientIndex)
			if err != nil {
				return err
			}
			// PlannedTime/RelativeTime are defined as seconds since
			// this task started (spec.md §3/§4.C), so each task slot
			// gets its own Executor anchored to the moment the client
			// reaches it, not the race-wide start.
			exec := NewExecutor(clientIndex, time.Now(), sampler, c.EsClient)
			if err := exec.Run(ctx, sched); err != nil {
				return err
			}
		}
	}
	return nil
}
