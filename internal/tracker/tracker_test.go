package tracker

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackerPutAndSnapshot(t *testing.T) {
	tr := New()
	tr.Put(1, "a")
	tr.Put(2, "b")

	assert.Equal(t, 2, tr.Len())
	assert.ElementsMatch(t, []string{"a", "b"}, tr.Snapshot())
}

func TestTrackerDeleteRemovesEntry(t *testing.T) {
	tr := New()
	tr.Put(1, "a")
	tr.Delete(1)

	assert.Equal(t, 0, tr.Len())
	assert.Empty(t, tr.Snapshot())
}

func TestTrackerUpdateOverwritesExistingOnly(t *testing.T) {
	tr := New()
	tr.Put(1, "a")
	tr.Update(1, "a-progress")
	tr.Update(2, "ignored")

	assert.Equal(t, 1, tr.Len())
	assert.Equal(t, []string{"a-progress"}, tr.Snapshot())
}

func TestTrackerConcurrentAccess(t *testing.T) {
	tr := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			tr.Put(id, "x")
			tr.Snapshot()
			tr.Delete(id)
		}(uint64(i))
	}
	wg.Wait()
	assert.Equal(t, 0, tr.Len())
}
