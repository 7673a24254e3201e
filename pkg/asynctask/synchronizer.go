// ============================================================================
// Synchronizer - Blocking Adaptor Over A One-Shot Callback
// ============================================================================
//
// Package: pkg/asynctask
// File: synchronizer.go
// Purpose: Let a call site that wants a synchronous Run() reuse the async
//          pipeline uniformly, the way VectorTask::Run composes Init ->
//          AsyncRun(sync.AsStatusCallBack) -> sync.Wait in
//          vector_task.cc.
//
// Single-use: Wait may be called at most once per Synchronizer; a second
// call returns ErrAlreadyWaited rather than blocking or panicking (the
// core never panics, per spec §7).
//
// ============================================================================

package asynctask

import (
	"errors"
	"sync/atomic"

	"github.com/dingodb/dingo-taskqueue/pkg/status"
)

// ErrAlreadyWaited is returned by a second call to Wait on the same
// Synchronizer.
var ErrAlreadyWaited = errors.New("asynctask: synchronizer already waited")

// Synchronizer turns a one-shot Callback into a blocking wait primitive.
type Synchronizer struct {
	done   chan struct{}
	st     status.Status
	fired  atomic.Bool
	waited atomic.Bool
}

// NewSynchronizer creates a ready-to-use, single-use Synchronizer.
func NewSynchronizer() *Synchronizer {
	return &Synchronizer{done: make(chan struct{})}
}

// AsCallback returns a callback that, when invoked, stores the status and
// signals any blocked Wait. Only the first invocation has an effect.
func (s *Synchronizer) AsCallback() Callback {
	return func(st status.Status) {
		if s.fired.Swap(true) {
			return
		}
		s.st = st
		close(s.done)
	}
}

// Wait blocks until the callback fires and returns the status it carried.
// Calling Wait more than once returns ErrAlreadyWaited immediately.
func (s *Synchronizer) Wait() (status.Status, error) {
	if s.waited.Swap(true) {
		return status.Status{}, ErrAlreadyWaited
	}
	<-s.done
	return s.st, nil
}
