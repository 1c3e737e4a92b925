package workerutil

import "testing"

func TestSemaphoreBoundsConcurrency(t *testing.T) {
	s := NewSemaphore(2)

	s.Acquire()
	s.Acquire()

	select {
	case <-s.Chan():
		t.Fatal("acquired a third permit from a semaphore with 2 slots, both held")
	default:
	}

	s.Release()
	select {
	case <-s.Chan():
	default:
		t.Fatal("expected a permit to be available after Release")
	}
}

func TestNewSemaphoreClampsToAtLeastOne(t *testing.T) {
	s := NewSemaphore(0)
	select {
	case <-s.Chan():
	default:
		t.Fatal("NewSemaphore(0) should still grant at least one permit")
	}
}
