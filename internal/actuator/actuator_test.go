package actuator

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerSchedulesAfterDelay(t *testing.T) {
	timer := NewTimer()
	defer timer.Stop()

	done := make(chan time.Time, 1)
	start := time.Now()
	timer.Schedule(func() { done <- time.Now() }, 20*time.Millisecond)

	select {
	case fired := <-done:
		assert.GreaterOrEqual(t, fired.Sub(start), 20*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("callback never fired")
	}
}

func TestTimerFiresInDueOrder(t *testing.T) {
	timer := NewTimer()
	defer timer.Stop()

	var mu sync.Mutex
	var order []int

	var wg sync.WaitGroup
	wg.Add(3)
	record := func(idx int) {
		defer wg.Done()
		mu.Lock()
		order = append(order, idx)
		mu.Unlock()
	}

	timer.Schedule(func() { record(2) }, 30*time.Millisecond)
	timer.Schedule(func() { record(0) }, 5*time.Millisecond)
	timer.Schedule(func() { record(1) }, 15*time.Millisecond)

	wg.Wait()
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{0, 1, 2}, order)
}

func TestTimerScheduleManyConcurrently(t *testing.T) {
	timer := NewTimer()
	defer timer.Stop()

	var fired int32
	var wg sync.WaitGroup
	const n = 100
	wg.Add(n)
	for i := 0; i < n; i++ {
		timer.Schedule(func() {
			atomic.AddInt32(&fired, 1)
			wg.Done()
		}, time.Millisecond)
	}
	wg.Wait()
	assert.EqualValues(t, n, atomic.LoadInt32(&fired))
}

func TestTimerStopDropsPendingCallbacks(t *testing.T) {
	timer := NewTimer()

	var fired int32
	timer.Schedule(func() { atomic.AddInt32(&fired, 1) }, time.Hour)
	timer.Stop()

	assert.EqualValues(t, 0, atomic.LoadInt32(&fired))
	assert.NotPanics(t, func() { timer.Schedule(func() {}, time.Millisecond) })
}

func TestTimerStopIsIdempotent(t *testing.T) {
	timer := NewTimer()
	timer.Stop()
	assert.NotPanics(t, func() { timer.Stop() })
}
