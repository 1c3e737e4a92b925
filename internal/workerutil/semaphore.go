// Package workerutil provides small concurrency primitives shared by the
// Credential Pool and the Parallel Chunk Scheduler.
package workerutil

// Semaphore is a counting semaphore built on a buffered channel. A goroutine
// receives a permit from Chan() before doing bounded-concurrency work, then
// calls Release when done.
type Semaphore struct {
	slots chan struct{}
}

// NewSemaphore creates a semaphore with the given number of permits.
// permits is clamped to at least 1.
func NewSemaphore(permits int) *Semaphore {
	if permits < 1 {
		permits = 1
	}
	s := &Semaphore{slots: make(chan struct{}, permits)}
	for i := 0; i < permits; i++ {
		s.slots <- struct{}{}
	}
	return s
}

// Chan returns the channel a caller selects on to acquire a permit.
// Receiving from it acquires a permit; the caller must call Release
// exactly once per successful receive.
func (s *Semaphore) Chan() <-chan struct{} {
	return s.slots
}

// Acquire blocks until a permit is available.
func (s *Semaphore) Acquire() {
	<-s.slots
}

// Release returns a permit to the pool.
func (s *Semaphore) Release() {
	s.slots <- struct{}{}
}
