package executor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dingodb/dingo-taskqueue/pkg/task"
)

type traceTask struct {
	task.Base
	trace   string
	release chan struct{}
}

func newTraceTask(trace string) *traceTask {
	t := &traceTask{trace: trace, release: make(chan struct{})}
	t.Base = task.NewBase("trace")
	return t
}

func (t *traceTask) Run()         { <-t.release }
func (t *traceTask) Trace() string { return t.trace }

type panicTask struct {
	task.Base
	done chan struct{}
}

func newPanicTask() *panicTask {
	t := &panicTask{done: make(chan struct{})}
	t.Base = task.NewBase("panic")
	return t
}

func (t *panicTask) Run() {
	defer close(t.done)
	panic("boom")
}

func TestWorkerExecuteRejectsBeforeInit(t *testing.T) {
	w := NewWorker(4, true, nil)
	ok := w.Execute(newTraceTask("x"))
	assert.False(t, ok)
}

func TestWorkerExecuteAcceptsAfterInit(t *testing.T) {
	w := NewWorker(4, true, nil)
	require.True(t, w.Init())
	defer w.Destroy()

	tk := newTraceTask("hello")
	ok := w.Execute(tk)
	assert.True(t, ok)
	assert.EqualValues(t, 1, w.TotalCount())
	assert.EqualValues(t, 1, w.PendingCount())
	assert.Contains(t, w.PendingTraces(), "hello")

	close(tk.release)
	require.Eventually(t, func() bool { return w.PendingCount() == 0 }, time.Second, time.Millisecond)
	assert.Empty(t, w.PendingTraces())
}

func TestWorkerExecuteRejectsAfterDestroy(t *testing.T) {
	w := NewWorker(4, true, nil)
	require.True(t, w.Init())
	w.Destroy()

	ok := w.Execute(newTraceTask("late"))
	assert.False(t, ok)
}

func TestWorkerRecoversFromPanickingTask(t *testing.T) {
	w := NewWorker(4, true, nil)
	require.True(t, w.Init())
	defer w.Destroy()

	tk := newPanicTask()
	require.True(t, w.Execute(tk))
	<-tk.done

	require.Eventually(t, func() bool { return w.PendingCount() == 0 }, time.Second, time.Millisecond)

	// The consumer goroutine must still be alive after a panic.
	tk2 := newTraceTask("after-panic")
	require.True(t, w.Execute(tk2))
	close(tk2.release)
}

func TestWorkerFiresNotifierEvents(t *testing.T) {
	var mu sync.Mutex
	var events []EventType

	notify := func(evt EventType) {
		mu.Lock()
		events = append(events, evt)
		mu.Unlock()
	}

	w := NewWorker(4, false, notify)
	require.True(t, w.Init())
	defer w.Destroy()

	tk := newTraceTask("evt")
	require.True(t, w.Execute(tk))
	close(tk.release)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 2
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, EventAddTask, events[0])
	assert.Equal(t, EventFinishTask, events[1])
}

func TestWorkerPendingTracesDisabledWithoutTrace(t *testing.T) {
	w := NewWorker(4, false, nil)
	require.True(t, w.Init())
	defer w.Destroy()

	tk := newTraceTask("no-trace")
	require.True(t, w.Execute(tk))
	assert.Empty(t, w.PendingTraces())
	close(tk.release)
}
