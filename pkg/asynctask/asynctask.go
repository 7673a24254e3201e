// ============================================================================
// AsyncTask - Retry Driver For Multi-Step Async Operations
// ============================================================================
//
// Package: pkg/asynctask
// File: asynctask.go
// Purpose: Wrap init -> dispatch -> complete-or-retry so call sites doing
//          region-RPC style work get bounded, backed-off retry on a
//          well-known set of transient errors for free.
//
// Grounded on original_source/src/sdk/vector/vector_task.cc
// (Init/DoAsync/DoAsyncDone/FailOrRetry/NeedRetry/BackoffAndRetry/
// FireCallback/PostProcess) and the teacher's controller.go handleResult
// (attempt counting, dead-letter-on-exhaustion, structured log fields).
//
// State machine (spec §4.5):
//
//   created -- AsyncRun(cb) --> init()
//     init fails ----------------------------> finalize -> done
//     init ok --> dispatch --> waiting for DoAsyncDone(status)
//       status ok ------------------------------------------> finalize -> done
//       status retryable, attempts left --> backoff --> dispatch (loop)
//       status fatal or attempts exhausted ------------------> finalize -> done
//
// Self-keep-alive:
//   The spec calls for the task to outlive its outstanding async
//   operation via a single-direction strong reference that drops at
//   callback fire. In Go this falls out naturally: the closures passed to
//   Operation.DoAsync and to the Actuator close over the *Driver, which
//   keeps it reachable for as long as either is pending -- no explicit
//   refcounting needed, and no reference cycle is created.
//
// ============================================================================

package asynctask

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dingodb/dingo-taskqueue/internal/actuator"
	"github.com/dingodb/dingo-taskqueue/pkg/status"
)

var log = slog.Default()

const (
	// DefaultMaxRetry bounds retry attempts the way kRawkvMaxRetry does
	// in the original SDK.
	DefaultMaxRetry = 5
	// DefaultBackoff is the fixed inter-retry delay (kRawkvBackoffMs).
	DefaultBackoff = 100 * time.Millisecond
)

// Callback is the one-shot completion signal an AsyncTask fires exactly
// once, regardless of success, fatal failure, or exhausted retries.
type Callback func(status.Status)

// Operation is the subclass-defined contract a Driver wraps: Init runs
// synchronously before the first dispatch, DoAsync launches the actual
// I/O and must eventually call done exactly once, PostProcess runs
// before the callback under every exit path, and Name identifies the
// operation in logs and the exhausted-retry diagnostic message.
type Operation interface {
	Name() string
	Init() status.Status
	DoAsync(done func(status.Status))
	PostProcess()
}

// Driver runs an Operation through the init/dispatch/retry state machine.
// A Driver is single-use: construct one per logical attempt.
type Driver struct {
	op       Operation
	act      actuator.Actuator
	maxRetry int
	backoff  time.Duration

	mu         sync.Mutex
	retryCount int
	st         status.Status
	cb         Callback
	once       sync.Once
}

// NewDriver wires an Operation to an Actuator. maxRetry <= 0 defaults to
// DefaultMaxRetry; backoff <= 0 defaults to DefaultBackoff.
func NewDriver(op Operation, act actuator.Actuator, maxRetry int, backoff time.Duration) *Driver {
	if maxRetry <= 0 {
		maxRetry = DefaultMaxRetry
	}
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	return &Driver{op: op, act: act, maxRetry: maxRetry, backoff: backoff}
}

// AsyncRun takes ownership of cb (one-shot) and starts the state
// machine. Init runs synchronously on the calling goroutine; dispatch and
// everything after it may complete on arbitrary goroutines driven by the
// Operation's own I/O and the Actuator.
func (d *Driver) AsyncRun(cb Callback) {
	d.cb = cb
	st := d.op.Init()

	d.mu.Lock()
	d.st = st
	d.mu.Unlock()

	if st.Ok() {
		d.dispatch()
	} else {
		d.finalize()
	}
}

// Run is the blocking convenience form built on Synchronizer, for call
// sites that want a synchronous result instead of a callback.
func (d *Driver) Run() status.Status {
	sy := NewSynchronizer()
	d.AsyncRun(sy.AsCallback())
	st, _ := sy.Wait()
	return st
}

func (d *Driver) dispatch() {
	d.op.DoAsync(d.doAsyncDone)
}

func (d *Driver) doAsyncDone(st status.Status) {
	d.mu.Lock()
	d.st = st
	d.mu.Unlock()

	if st.Ok() {
		d.finalize()
		return
	}
	d.failOrRetry(st)
}

// failOrRetry implements NeedRetry from vector_task.cc: retryable status
// and attempts remaining reschedules; otherwise the status is final (and
// rewritten to Aborted if retries were the reason it gave up).
func (d *Driver) failOrRetry(st status.Status) {
	if status.Retryable(st) {
		d.mu.Lock()
		d.retryCount++
		retryCount := d.retryCount
		d.mu.Unlock()

		if retryCount < d.maxRetry {
			d.backoffAndRetry()
			return
		}

		msg := fmt.Sprintf("Fail task:%s retry too times:%d, last err:%s", d.op.Name(), retryCount, st)
		d.mu.Lock()
		d.st = status.Aborted(st.Code, msg)
		d.mu.Unlock()
	}
	d.finalize()
}

func (d *Driver) backoffAndRetry() {
	d.act.Schedule(d.dispatch, d.backoff)
}

// finalize runs PostProcess under every exit path, logs a warning on a
// non-OK terminal status, and fires the callback exactly once.
func (d *Driver) finalize() {
	d.once.Do(func() {
		d.op.PostProcess()

		d.mu.Lock()
		st := d.st
		d.mu.Unlock()

		if !st.Ok() {
			log.Warn("async task failed", "task", d.op.Name(), "status", st.String())
		}
		d.cb(st)
	})
}

// RetryCount reports the number of retryable failures counted so far.
// Each one schedules a retry, except the one that reaches the retry limit
// and aborts the task. Intended for tests and diagnostics.
func (d *Driver) RetryCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.retryCount
}
