package core

import (
	"sync/atomic"
	"time"
	"unsafe"
)

// Clock supplies the current time to components that make time-based
// decisions (flush intervals, event timestamps). Injecting it keeps
// interval behavior testable without sleeping.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now directly.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// CoarseClock caches time.Now on a background ticker and serves reads
// from an atomic pointer. It trades up to one tick of timestamp
// resolution for a read path with no syscall, which is worthwhile for
// the elapsed-interval check batching sinks perform on every Write.
type CoarseClock struct {
	now  unsafe.Pointer // *time.Time
	stop chan struct{}
}

// NewCoarseClock starts a CoarseClock with the given resolution.
// The background goroutine runs until Stop is called.
func NewCoarseClock(resolution time.Duration) *CoarseClock {
	if resolution <= 0 {
		resolution = 500 * time.Microsecond
	}
	c := &CoarseClock{stop: make(chan struct{})}
	t := time.Now().UTC()
	atomic.StorePointer(&c.now, unsafe.Pointer(&t))
	go func() {
		ticker := time.NewTicker(resolution)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t := time.Now().UTC()
				atomic.StorePointer(&c.now, unsafe.Pointer(&t))
			case <-c.stop:
				return
			}
		}
	}()
	return c
}

// Now returns the most recently cached time.
func (c *CoarseClock) Now() time.Time {
	return *(*time.Time)(atomic.LoadPointer(&c.now))
}

// Stop terminates the background ticker. Safe to call once.
func (c *CoarseClock) Stop() {
	close(c.stop)
}
