package driver

import "github.com/Tom-Deng/rally/internal/track"

// SlotKind discriminates what one client does during one allocation
// slot: run a task, idle, or park at a join point.
type SlotKind int

const (
	SlotTask SlotKind = iota
	SlotIdle
	SlotJoinPoint
)

// Slot is one entry in a client's allocation timeline (spec.md §3,
// "Allocation Slot"). Exactly one of Task/JoinPoint is meaningful,
// selected by Kind.
type Slot struct {
	Kind SlotKind

	// Task and TaskClientIndex are set when Kind == SlotTask.
	// TaskClientIndex is this shard's index within the task's own
	// client count (0-based), used to partition the task's param
	// source — not the row index it happens to land on.
	Task            track.Task
	TaskClientIndex int

	// JoinPoint is set when Kind == SlotJoinPoint.
	JoinPoint JoinPoint
}

// JoinPoint is the synthetic barrier separating two phases. Operations
// is the set of Operations run in the phase that precedes this join
// point (empty for the leading join point).
type JoinPoint struct {
	Index      int
	Operations []track.Operation
}

// Allocator expands an ordered task list into per-client allocation
// timelines, following spec.md §4.B. It holds no behaviour beyond that
// expansion — the Allocator is built once and read many times.
type Allocator struct {
	Clients                int
	Allocations            [][]Slot
	JoinPoints             []JoinPoint
	OperationsPerJoinPoint [][]track.Operation
}

// NewAllocator runs the allocation algorithm over items in order and
// returns the resulting per-client timelines.
//
// Assignment within one item is round-robin modulo the allocator's
// overall client count, not a contiguous-range split: a sub-task
// claiming k client shards occupies virtual slots
// [cursor, cursor+k), and virtual slot v lands on physical row
// v % Clients. This lets one item oversubscribe the client rows (a
// sub-task's own client count, or a Parallel group's combined
// sub-task clients, may exceed Clients) — a row can receive more than
// one shard of a sub-task, or shards of several different sub-tasks,
// within a single item. This is the behaviour exercised by the
// original driver's test suite (Allocator round-robins across
// `self.clients`, it does not carve contiguous ranges); see
// DESIGN.md for the resolution of the discrepancy with spec.md's
// simplified prose description of §4.B.
func NewAllocator(items []track.Item) *Allocator {
	width := 1
	for _, it := range items {
		if w := itemWidth(it); w > width {
			width = w
		}
	}

	rows := make([][]Slot, width)
	var joinPoints []JoinPoint
	var opsPerJP [][]track.Operation

	emitJoinPoint := func(ops []track.Operation) {
		jp := JoinPoint{Index: len(joinPoints), Operations: ops}
		joinPoints = append(joinPoints, jp)
		// OperationsPerJoinPoint has one entry per phase: the leading
		// join point closes no phase and gets no entry.
		if jp.Index > 0 {
			opsPerJP = append(opsPerJP, ops)
		}
		for c := 0; c < width; c++ {
			rows[c] = append(rows[c], Slot{Kind: SlotJoinPoint, JoinPoint: jp})
		}
	}

	// 1. Leading join point carries no operations.
	emitJoinPoint(nil)

	// 2. Expand each item in round-robin order, then pad every row to
	// this item's max row length so all rows stay aligned before the
	// item's trailing join point.
	for _, it := range items {
		cursor := 0
		for _, sub := range expand(it) {
			k := sub.ClientCount()
			for shard := 0; shard < k; shard++ {
				row := (cursor + shard) % width
				rows[row] = append(rows[row], Slot{Kind: SlotTask, Task: sub, TaskClientIndex: shard})
			}
			cursor += k
		}

		maxLen := 0
		for c := 0; c < width; c++ {
			if len(rows[c]) > maxLen {
				maxLen = len(rows[c])
			}
		}
		for c := 0; c < width; c++ {
			for len(rows[c]) < maxLen {
				rows[c] = append(rows[c], Slot{Kind: SlotIdle})
			}
		}

		emitJoinPoint(operationsOf(it))
	}

	return &Allocator{
		Clients:                width,
		Allocations:            rows,
		JoinPoints:             joinPoints,
		OperationsPerJoinPoint: opsPerJP,
	}
}

func itemWidth(it track.Item) int {
	switch v := it.(type) {
	case track.Task:
		return v.ClientCount()
	case track.Parallel:
		return v.Width()
	default:
		return 1
	}
}

// expand returns the ordered sub-tasks of an item: a bare Task expands
// to a single-element list, a Parallel group expands to its Tasks in
// list order.
func expand(it track.Item) []track.Task {
	switch v := it.(type) {
	case track.Task:
		return []track.Task{v}
	case track.Parallel:
		return v.Tasks
	default:
		panic("driver: unknown track.Item implementation")
	}
}

func operationsOf(it track.Item) []track.Operation {
	switch v := it.(type) {
	case track.Task:
		return v.Operations()
	case track.Parallel:
		return v.Operations()
	default:
		panic("driver: unknown track.Item implementation")
	}
}
