// Package track defines the immutable description of a benchmark workload:
// operations, tasks, parallel task groups, and the join points that
// separate one phase of a race from the next.
//
// Nothing in this package executes anything; it is pure data, produced
// once by the caller (typically a loaded YAML config) and never mutated
// afterwards. internal/driver consumes it to build per-client
// allocations and schedules.
package track

import "fmt"

// OperationType enumerates the kinds of operation a Task can run.
// The zero value is not a valid operation type.
type OperationType string

const (
	OperationIndex        OperationType = "index"
	OperationBulk         OperationType = "bulk"
	OperationSearch       OperationType = "search"
	OperationIndicesStats OperationType = "indices-stats"
	OperationClusterHealth OperationType = "cluster-health"
)

// Operation is an immutable descriptor of a named operation against the
// target cluster. Name is unique within a track; ParamSource is the
// registry key (internal/params) used to produce per-invocation
// parameter bundles; Params carries inline parameters merged into
// whatever the param source produces.
type Operation struct {
	Name        string
	Type        OperationType
	ParamSource string
	Params      map[string]interface{}
}

func (o Operation) String() string {
	return fmt.Sprintf("Operation[name=%s,type=%s]", o.Name, o.Type)
}

// Task describes how to run one Operation: how many clients run it
// concurrently, and whether it is bounded by iteration count or by wall
// clock time.
//
// Exactly one of the iteration-bounded or time-bounded modes is active.
// If WarmupIterations/Iterations and WarmupTimePeriod/TimePeriod are all
// unset, the task is iteration-bounded when its param source reports a
// finite size, and otherwise time-bounded with an unbounded TimePeriod
// (the scheduler makes this choice; NewTask leaves all four unset).
type Task struct {
	Operation Operation

	WarmupIterations int  // default 0
	Iterations       *int // nil => not iteration-bounded (unless param source reports finite size)

	WarmupTimePeriod *float64 // seconds; nil => 0
	TimePeriod       *float64 // seconds; nil => unbounded

	Clients int // >= 1, default 1

	// Params may additionally carry "target-throughput" (ops/s) and
	// "clients" (throttling client count, defaults to Clients) used by
	// the scheduler (§4.C). Task.Params is independent of
	// Operation.Params: the scheduler merges both when building the
	// per-invocation bundle.
	Params map[string]interface{}
}

// NewTask builds a Task with spec.md §3 defaults applied: Clients
// defaults to 1, WarmupIterations to 0, and — if none of the four
// bounding fields are set — TimePeriod is left nil meaning "unbounded".
func NewTask(op Operation) Task {
	return Task{
		Operation: op,
		Clients:   1,
		Params:    map[string]interface{}{},
	}
}

// ClientCount returns the number of clients this task runs on,
// defaulting to 1 as per spec.md §3.
func (t Task) ClientCount() int {
	if t.Clients <= 0 {
		return 1
	}
	return t.Clients
}

// TargetThroughput returns the configured ops/s target and the number
// of clients it is divided across, or (0, 0, false) if the task is
// unthrottled. Mirrors spec.md §4.C: `target-throughput` and `clients`
// live in Task.Params, not in the Operation's own params.
func (t Task) TargetThroughput() (throughput float64, clients int, throttled bool) {
	raw, ok := t.Params["target-throughput"]
	if !ok {
		return 0, 0, false
	}
	v, ok := toFloat64(raw)
	if !ok || v <= 0 {
		return 0, 0, false
	}
	k := t.ClientCount()
	if rawK, ok := t.Params["clients"]; ok {
		if kv, ok := toFloat64(rawK); ok && kv > 0 {
			k = int(kv)
		}
	}
	return v, k, true
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Parallel groups sub-tasks that run concurrently within one phase. If
// Clients is zero, it defaults to the sum of the sub-tasks' client
// counts; an explicit Clients smaller than that sum is legal and
// oversubscribes the Allocator's client rows (see Width).
type Parallel struct {
	Tasks   []Task
	Clients int // outer client count; 0 => default to sum of sub-task clients
}

// Width returns the number of client rows this Parallel group occupies:
// the outer Clients count if set, else the sum of sub-task client
// counts (each defaulting to 1). An explicit outer count smaller than
// the sum of sub-task clients is legal — it oversubscribes clients via
// the Allocator's round-robin assignment (see internal/driver).
func (p Parallel) Width() int {
	if p.Clients > 0 {
		return p.Clients
	}
	return p.SumSubClients()
}

// SumSubClients returns the sum of sub-task client counts, each
// defaulting to 1 — used by Width when no outer Clients count is set.
func (p Parallel) SumSubClients() int {
	sum := 0
	for _, t := range p.Tasks {
		sum += t.ClientCount()
	}
	return sum
}

// Item is either a Task or a Parallel group in a track's ordered task
// list. It is a closed interface implemented only by the two types in
// this package.
type Item interface {
	item()
}

func (Task) item()     {}
func (Parallel) item() {}

// Operations returns the set of Operations this item will run, used by
// the Allocator to tag each join point with the phase it closes.
func (t Task) Operations() []Operation {
	return []Operation{t.Operation}
}

func (p Parallel) Operations() []Operation {
	ops := make([]Operation, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		ops = append(ops, t.Operation)
	}
	return ops
}
