// ============================================================================
// WorkerSet - Fan-Out Over N Workers
// ============================================================================
//
// Package: pkg/executor
// File: workerset.go
// Purpose: Own N Workers plus a rotating cursor; apply the admission
//          policy (max_pending); route submissions by round-robin or
//          key affinity; aggregate metrics across workers.
//
// Routing rationale:
//   Round-robin maximizes throughput for stateless tasks. Hash-by-key
//   serializes every operation touching the same region/partition/row
//   onto one queue, so per-key ordering holds without any extra locking.
//
// Admission:
//   The only check is aggregate pending >= max_pending (skipped when
//   max_pending == 0, meaning unbounded). A rejected submission bumps no
//   counter. Per-worker queue capacity does not reject: a submit to a
//   full worker queue blocks until space frees (see queue.go). A worker
//   that rejects (unavailable or queue closed) is NOT retried on another
//   worker for affinity submissions; round-robin ones advance the cursor
//   and try the next worker.
//
// ============================================================================

package executor

import (
	"errors"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/dingodb/dingo-taskqueue/pkg/task"
)

// MetricAdder is the narrow "abstract monotonic counter" collaborator
// from spec §6. Implementations may be push- or pull-based.
type MetricAdder interface {
	Add(delta int64)
	Set(value int64)
}

// MetricRegistry mints a MetricAdder for a metric name. WorkerSet
// registers "<name>_total_task_count" and "<name>_pending_task_count".
// A nil registry is valid: WorkerSet falls back to no-op adders.
type MetricRegistry interface {
	Counter(name string) MetricAdder
	Gauge(name string) MetricAdder
}

type noopAdder struct{}

func (noopAdder) Add(int64)  {}
func (noopAdder) Set(int64)  {}

// ErrNoAvailableWorker names the case where every worker in the set
// rejected a round-robin submission. ExecuteRR itself reports that case
// as a false return, not as this error.
var ErrNoAvailableWorker = errors.New("executor: no available worker")

// WorkerSet fans a stream of tasks out over N Workers under a single
// admission policy.
type WorkerSet struct {
	name       string
	maxPending int64
	useTrace   bool
	registry   MetricRegistry

	workers []*Worker
	cursor  atomic.Uint64

	pending     atomic.Int64
	totalAdder  MetricAdder
	pendingAdder MetricAdder

	initOnce sync.Once
	mu       sync.Mutex
	started  bool
}

// NewWorkerSet constructs a WorkerSet. workerNum must be > 0. maxPending
// of 0 means unbounded. registry may be nil.
func NewWorkerSet(name string, workerNum uint32, maxPending int64, useTrace bool, registry MetricRegistry) *WorkerSet {
	if workerNum == 0 {
		workerNum = 1
	}
	ws := &WorkerSet{
		name:       name,
		maxPending: maxPending,
		useTrace:   useTrace,
		registry:   registry,
		workers:    make([]*Worker, workerNum),
	}
	if registry != nil {
		ws.totalAdder = registry.Counter(name + "_total_task_count")
		ws.pendingAdder = registry.Gauge(name + "_pending_task_count")
	} else {
		ws.totalAdder = noopAdder{}
		ws.pendingAdder = noopAdder{}
	}
	return ws
}

// Init brings up all N Workers. On partial failure, tears down the ones
// that came up and returns false.
func (ws *WorkerSet) Init() bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.started {
		return false
	}

	for i := range ws.workers {
		w := NewWorker(0, ws.useTrace, ws.watchWorker)
		if !w.Init() {
			for j := 0; j < i; j++ {
				ws.workers[j].Destroy()
			}
			return false
		}
		ws.workers[i] = w
	}
	ws.started = true
	return true
}

// Destroy tears down all Workers in reverse order.
func (ws *WorkerSet) Destroy() {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if !ws.started {
		return
	}
	for i := len(ws.workers) - 1; i >= 0; i-- {
		ws.workers[i].Destroy()
	}
	ws.started = false
}

// watchWorker is the aggregate event handler registered on every Worker;
// it keeps WorkerSet.pending in sync with per-worker completions.
// Notifiers fire outside the Worker's internal locks, so re-entering the
// WorkerSet here is safe.
func (ws *WorkerSet) watchWorker(evt EventType) {
	if evt == EventFinishTask {
		ws.pending.Add(-1)
		ws.pendingAdder.Set(ws.pending.Load())
	}
}

// admit applies the aggregate pending admission check. Returns false
// without touching any counter if the set is saturated.
func (ws *WorkerSet) admit() bool {
	if ws.maxPending <= 0 {
		return true
	}
	return ws.pending.Load() < ws.maxPending
}

// ExecuteRR admits and round-robins a task across the set. On a
// rejecting worker it advances the cursor and retries up to N-1 more
// times before giving up.
func (ws *WorkerSet) ExecuteRR(t task.Task) bool {
	if !ws.admit() {
		return false
	}

	n := uint64(len(ws.workers))
	for attempt := uint64(0); attempt < n; attempt++ {
		idx := ws.cursor.Add(1) - 1
		w := ws.workers[idx%n]
		if w.Execute(t) {
			ws.onAccept()
			return true
		}
	}
	return false
}

// ExecuteHashBy routes deterministically by key: worker = workers[hash(key) % N].
// Affinity is honored strictly -- if the chosen worker rejects, the
// submission fails rather than falling over to another worker.
func (ws *WorkerSet) ExecuteHashBy(key string, t task.Task) bool {
	if !ws.admit() {
		return false
	}

	n := uint64(len(ws.workers))
	idx := hashKey(key) % n
	if ws.workers[idx].Execute(t) {
		ws.onAccept()
		return true
	}
	return false
}

func (ws *WorkerSet) onAccept() {
	ws.pending.Add(1)
	ws.totalAdder.Add(1)
	ws.pendingAdder.Set(ws.pending.Load())
}

func hashKey(key string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return h.Sum64()
}

// TotalCount sums accepted submissions across all workers.
func (ws *WorkerSet) TotalCount() uint64 {
	var total uint64
	for _, w := range ws.workers {
		total += w.TotalCount()
	}
	return total
}

// PendingCount returns the aggregate pending count.
func (ws *WorkerSet) PendingCount() int64 { return ws.pending.Load() }

// WorkerCount returns N.
func (ws *WorkerSet) WorkerCount() int { return len(ws.workers) }

// PendingTraces returns a per-worker snapshot of pending task traces.
func (ws *WorkerSet) PendingTraces() [][]string {
	out := make([][]string, len(ws.workers))
	for i, w := range ws.workers {
		out[i] = w.PendingTraces()
	}
	return out
}
