// ============================================================================
// Task - Opaque Unit Of Work
// ============================================================================
//
// Package: pkg/task
// Purpose: Narrow task contract the executor core depends on
//
// Design Principles:
//   The executor must stay generic over what it runs. Task exposes only
//   identity, a type tag for metrics/traces, an execute contract and a
//   cheap progress snapshot. Error surfacing is the task's own business:
//   different call sites (RPC handler, retry driver, scan cleaner) encode
//   completion in whatever idiom they need.
//
// Lifecycle:
//   created by the caller -> handed to a Worker (ownership transferred to
//   the queue) -> Run() exactly once -> dropped. A Task must not be
//   resubmitted once Run has returned.
//
// ============================================================================

package task

import "sync/atomic"

// Task is the unit of work an ExecutionQueue drains.
//
// Run must not panic; any failure is reported through the task's own
// state so the executor core never needs to understand it. Trace may be
// called concurrently with Run and must be cheap.
type Task interface {
	// ID returns the task's process-unique identifier, stable after
	// construction.
	ID() uint64

	// Type returns a short human string identifying the task's
	// subclass/category, used for metrics and traces. Pure, constant
	// per instance.
	Type() string

	// Run executes the work. Must not panic.
	Run()

	// Trace returns a short, cheap snapshot of current progress. May be
	// called concurrently with Run. Default is the empty string.
	Trace() string
}

var nextID uint64

// NextID allocates the next value from the process-wide monotonic task id
// counter. Wrap-around after 2^64 is a non-concern.
func NextID() uint64 {
	return atomic.AddUint64(&nextID, 1)
}

// Base can be embedded by concrete task types to get ID/Type/Trace for
// free, leaving only Run to implement.
type Base struct {
	id      uint64
	taskTyp string
}

// NewBase allocates a fresh id and records the type tag. Call from a
// concrete task's constructor.
func NewBase(typ string) Base {
	return Base{id: NextID(), taskTyp: typ}
}

func (b *Base) ID() uint64    { return b.id }
func (b *Base) Type() string  { return b.taskTyp }
func (b *Base) Trace() string { return "" }
