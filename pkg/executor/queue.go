// ============================================================================
// ExecutionQueue - Single-Consumer FIFO
// ============================================================================
//
// Package: pkg/executor
// File: queue.go
// Purpose: Bind a buffered channel to exactly one consumer goroutine so
//          that FIFO order and mutual exclusion within a queue hold by
//          construction, without an explicit queue-internal lock.
//
// States:
//   fresh -> initialized -> draining -> stopped
//   Submit fails while not initialized (ErrNotInitialized) and after
//   stopped (ErrQueueClosed).
//
// Stop semantics:
//   Stop()+Join() (Join is folded into Stop here, mirroring the teacher's
//   Pool.Stop: close the channel, let the consumer goroutine drain
//   whatever was already accepted, then wait for it to exit) drains all
//   tasks already accepted -- nothing is dropped -- and only then releases
//   the consumer goroutine.
//
// ============================================================================

package executor

import (
	"errors"
	"sync"

	"github.com/dingodb/dingo-taskqueue/pkg/task"
)

type queueState int32

const (
	stateFresh queueState = iota
	stateInitialized
	stateDraining
	stateStopped
)

var (
	// ErrNotInitialized is returned by Submit before Start.
	ErrNotInitialized = errors.New("executor: queue not initialized")
	// ErrQueueClosed is returned by Submit once Stop has been called.
	ErrQueueClosed = errors.New("executor: queue closed")
)

// queue is a FIFO buffer bound to one consumer goroutine. At most one
// task drawn from a given queue executes at any instant.
type queue struct {
	mu      sync.Mutex
	state   queueState
	tasks   chan task.Task
	stopCh  chan struct{}
	consume func(task.Task)
	wg      sync.WaitGroup
}

// newQueue creates a queue with the given buffer capacity. A capacity of
// 0 (or less) selects a default buffer of 4096. A submit to a full buffer
// blocks until the consumer frees a slot; it is not rejected (admission
// control, if any, lives above the queue -- see WorkerSet.maxPending).
func newQueue(capacity int, consume func(task.Task)) *queue {
	if capacity <= 0 {
		capacity = 4096
	}
	return &queue{
		tasks:   make(chan task.Task, capacity),
		stopCh:  make(chan struct{}),
		consume: consume,
	}
}

// start allocates the consumer goroutine. Idempotent failure-return on a
// second call.
func (q *queue) start() bool {
	q.mu.Lock()
	if q.state != stateFresh {
		q.mu.Unlock()
		return false
	}
	q.state = stateInitialized
	q.mu.Unlock()

	q.wg.Add(1)
	go q.run()
	return true
}

// run is the dedicated consumer loop: dequeue one task at a time, invoke
// Run in enqueue order, never start the next task until the current Run
// returns.
func (q *queue) run() {
	defer q.wg.Done()
	for t := range q.tasks {
		q.consume(t)
	}
}

// submit pushes a task onto the queue. Returns ErrNotInitialized /
// ErrQueueClosed without bumping any external counters -- submission
// fails closed.
//
// The mutex is held across the send so that stop cannot close the task
// channel while a send is in flight.
func (q *queue) submit(t task.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	state := q.state
	tasks := q.tasks
	stopCh := q.stopCh

	if state == stateFresh {
		return ErrNotInitialized
	}
	if state == stateDraining || state == stateStopped {
		return ErrQueueClosed
	}

	select {
	case tasks <- t:
		return nil
	case <-stopCh:
		return ErrQueueClosed
	}
}

// stop transitions to draining, closes the input channel so the
// consumer's range loop drains whatever was already accepted and then
// exits, and blocks until it has. After stop returns, the queue is
// stopped and further submits fail with ErrQueueClosed.
func (q *queue) stop() {
	q.mu.Lock()
	if q.state == stateFresh || q.state == stateDraining || q.state == stateStopped {
		if q.state == stateFresh {
			q.state = stateStopped
			q.mu.Unlock()
			return
		}
		q.mu.Unlock()
		return
	}
	q.state = stateDraining
	q.mu.Unlock()

	close(q.stopCh)
	close(q.tasks)
	q.wg.Wait()

	q.mu.Lock()
	q.state = stateStopped
	q.mu.Unlock()
}
