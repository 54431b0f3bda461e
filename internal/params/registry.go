// Package params implements the process-wide Param Source Registry
// (spec.md §4.A): a name maps to a factory producing parameterised,
// partitionable iterators of per-invocation parameter bundles.
//
// Registration is init-on-first-use, global, and has no teardown during
// a run — mirroring the teacher's PartitionedRNG subsystem cache
// (sim/rng.go: ForSubsystem caches one *rand.Rand per subsystem name
// for the process's lifetime).
package params

import (
	"fmt"
	"sync"
)

// Source produces per-invocation parameter bundles for one client shard
// of a task (spec.md §4.A).
type Source interface {
	// Partition returns an independent view of this source for shard i
	// of n total shards. Concurrent partitions never share state.
	Partition(i, n int) Source

	// Size returns the total number of invocations this source will
	// produce across its partition, or -1 if unbounded (infinite /
	// time-bounded source).
	Size() int64

	// Params returns the next invocation's parameter bundle. It is a
	// side-effecting iterator: each call advances the source.
	Params() map[string]interface{}
}

// Factory builds a Source from a task's inline parameters. track is
// left generic (map[string]interface{}) since the track/workload file
// format itself is out of scope for this module (spec.md §1).
type Factory func(params map[string]interface{}) Source

var (
	mu        sync.Mutex
	factories = map[string]Factory{}
)

// Register associates name with factory. Re-registering the same name
// is idempotent only when the factory is functionally the same; this
// package cannot compare function values for equality, so it treats
// any re-registration under a known name as idempotent and keeps the
// first-registered factory, matching spec.md §4.A ("re-registration
// under the same name is idempotent") without requiring callers to
// guard registration with a sync.Once of their own.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[name]; exists {
		return
	}
	factories[name] = factory
}

// MustRegister is like Register but panics if name is already bound —
// use it for names that must be registered exactly once by construction
// (built-in param sources), where a silent collision would hide a bug.
func MustRegister(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("params: %q already registered", name))
	}
	factories[name] = factory
}

// New looks up name's factory and builds a Source from params. Returns
// an error if name was never registered.
func New(name string, taskParams map[string]interface{}) (Source, error) {
	mu.Lock()
	factory, ok := factories[name]
	mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("params: no param source registered for name %q", name)
	}
	return factory(taskParams), nil
}

func init() {
	MustRegister("bounded", newBoundedSource)
}

// boundedSource is the built-in finite counting source used by the
// demo race and by tests: each bundle is the task's static params plus
// a 1-based "invocation" counter. Size() reports the shard's share of
// the "size" param; Params() does not check it and keeps counting if
// called more often (the scheduler does so when a task's explicit
// iteration count exceeds Size()).
type boundedSource struct {
	base      map[string]interface{}
	size      int64
	partition int
	total     int
	next      int64
}

func newBoundedSource(p map[string]interface{}) Source {
	size := int64(1)
	if raw, ok := p["size"]; ok {
		if n, ok := toInt64(raw); ok && n > 0 {
			size = n
		}
	}
	return &boundedSource{base: p, size: size, partition: 0, total: 1}
}

func (b *boundedSource) Partition(i, n int) Source {
	return &boundedSource{base: b.base, size: b.size, partition: i, total: n}
}

func (b *boundedSource) Size() int64 {
	// Integer division distributes the remainder to the earliest
	// partitions, matching how the Scheduler partitions the source
	// before counting iterations.
	share := b.size / int64(b.total)
	if int64(b.partition) < b.size%int64(b.total) {
		share++
	}
	return share
}

func (b *boundedSource) Params() map[string]interface{} {
	b.next++
	out := make(map[string]interface{}, len(b.base)+1)
	for k, v := range b.base {
		out[k] = v
	}
	out["invocation"] = b.next
	return out
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
