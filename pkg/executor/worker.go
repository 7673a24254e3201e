// ============================================================================
// Worker - One ExecutionQueue Plus Bookkeeping
// ============================================================================
//
// Package: pkg/executor
// File: worker.go
// Purpose: Owns a single ExecutionQueue, its accept/pending counters, its
//          pending-task trace map and an optional event notifier.
//
// Submit path (Execute):
//   load available; if false, reject. Otherwise record the trace (if
//   enabled) and enqueue; if the queue rejects (stopped), back the trace
//   out. On success, bump total and pending, fire EventAddTask. The trace
//   is recorded before the enqueue so the consumer's delete can never
//   run ahead of it.
//
// Consume path (inside the queue's consumer goroutine):
//   Run the task; then drop its trace, decrement pending, fire
//   EventFinishTask. A panic from Run is recovered and logged -- it must
//   not tear down the consumer goroutine.
//
// ============================================================================

package executor

import (
	"log/slog"
	"sync/atomic"

	"github.com/dingodb/dingo-taskqueue/internal/tracker"
	"github.com/dingodb/dingo-taskqueue/pkg/task"
)

// EventType is the notifier event fired around a task's lifetime on a
// Worker.
type EventType int

const (
	EventAddTask EventType = iota
	EventFinishTask
)

func (e EventType) String() string {
	if e == EventAddTask {
		return "AddTask"
	}
	return "FinishTask"
}

// Notifier is invoked outside all of the Worker's internal locks, so it
// may safely re-enter the executor package (e.g. a WorkerSet aggregating
// pending counts across workers).
type Notifier func(EventType)

var log = slog.Default()

// Worker owns exactly one ExecutionQueue.
type Worker struct {
	q *queue

	available atomic.Bool
	total     atomic.Uint64
	pending   atomic.Int64

	traces   *tracker.Tracker
	useTrace bool

	notify Notifier
}

// NewWorker constructs a Worker. queueCapacity bounds the worker's own
// queue (0 = a generous default, see newQueue); admission control above
// that is the WorkerSet's concern (max_pending).
func NewWorker(queueCapacity int, useTrace bool, notify Notifier) *Worker {
	w := &Worker{
		traces:   tracker.New(),
		useTrace: useTrace,
		notify:   notify,
	}
	w.q = newQueue(queueCapacity, w.consume)
	return w
}

// Init allocates the queue's consumer goroutine. Idempotent
// failure-return on a second call.
func (w *Worker) Init() bool {
	if !w.q.start() {
		return false
	}
	w.available.Store(true)
	return true
}

// Destroy triggers queue stop+join. Safe to call on an uninitialized
// Worker.
func (w *Worker) Destroy() {
	w.available.Store(false)
	w.q.stop()
}

// Execute is an atomic accept-or-reject: returns false if the worker is
// not available or the underlying queue rejects the enqueue. Returns true
// iff the task will eventually run.
func (w *Worker) Execute(t task.Task) bool {
	if !w.available.Load() {
		return false
	}

	if w.useTrace {
		w.traces.Put(t.ID(), t.Trace())
	}
	if err := w.q.submit(t); err != nil {
		w.traces.Delete(t.ID())
		return false
	}

	w.total.Add(1)
	w.pending.Add(1)
	w.fire(EventAddTask)
	return true
}

// consume is invoked by the queue's consumer goroutine, never while the
// trace mutex is held.
func (w *Worker) consume(t task.Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("task run panicked", "worker_task_id", t.ID(), "task_type", t.Type(), "recover", r)
		}
		w.traces.Delete(t.ID())
		w.pending.Add(-1)
		w.fire(EventFinishTask)
	}()
	t.Run()
}

func (w *Worker) fire(evt EventType) {
	if w.notify != nil {
		w.notify(evt)
	}
}

// PendingCount is a lock-free observability read.
func (w *Worker) PendingCount() int64 { return w.pending.Load() }

// TotalCount is a lock-free observability read.
func (w *Worker) TotalCount() uint64 { return w.total.Load() }

// Available reports whether the worker currently accepts submissions.
func (w *Worker) Available() bool { return w.available.Load() }

// PendingTraces snapshots the traces of currently enqueued or running
// tasks, taken under the tracker's mutex.
func (w *Worker) PendingTraces() []string { return w.traces.Snapshot() }
