package timer

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestManager_OneShotFires(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	fired := make(chan struct{}, 1)
	m.Schedule(50*time.Millisecond, 0, func() {
		fired <- struct{}{}
	})

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("one-shot task did not fire")
	}
}

func TestManager_RecurringFiresRepeatedly(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	var count int64
	m.Schedule(50*time.Millisecond, 100*time.Millisecond, func() {
		atomic.AddInt64(&count, 1)
	})

	deadline := time.After(3 * time.Second)
	for atomic.LoadInt64(&count) < 2 {
		select {
		case <-deadline:
			t.Fatalf("recurring task fired %d times, want at least 2", atomic.LoadInt64(&count))
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestManager_RemoveCancelsTask(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	var fired int64
	id := m.Schedule(300*time.Millisecond, 0, func() {
		atomic.AddInt64(&fired, 1)
	})
	m.Remove(id)

	time.Sleep(600 * time.Millisecond)
	if atomic.LoadInt64(&fired) != 0 {
		t.Fatal("removed task should not fire")
	}
}
