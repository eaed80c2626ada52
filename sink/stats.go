package sink

import "sync/atomic"

// Stats tracks per-sink counters. All methods are safe for concurrent use.
type Stats struct {
	written          uint64
	filtered         uint64
	dropped          uint64
	deliveredBatches uint64
	deliveredEvents  uint64
	failedBatches    uint64
}

// NewStats creates a new Stats instance
func NewStats() *Stats {
	return &Stats{}
}

// IncrementWritten counts an event accepted into the buffer.
func (s *Stats) IncrementWritten() {
	atomic.AddUint64(&s.written, 1)
}

// IncrementFiltered counts an event rejected by the sink's own
// minimum-level filter.
func (s *Stats) IncrementFiltered() {
	atomic.AddUint64(&s.filtered, 1)
}

// AddDropped counts events lost to a failed delivery or a write after
// close.
func (s *Stats) AddDropped(n int) {
	atomic.AddUint64(&s.dropped, uint64(n))
}

// AddDelivered counts one successfully delivered batch of n events.
func (s *Stats) AddDelivered(n int) {
	atomic.AddUint64(&s.deliveredBatches, 1)
	atomic.AddUint64(&s.deliveredEvents, uint64(n))
}

// IncrementFailed counts a failed delivery attempt.
func (s *Stats) IncrementFailed() {
	atomic.AddUint64(&s.failedBatches, 1)
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Written          uint64
	Filtered         uint64
	Dropped          uint64
	DeliveredBatches uint64
	DeliveredEvents  uint64
	FailedBatches    uint64
}

// GetSnapshot returns a snapshot of current statistics
func (s *Stats) GetSnapshot() Snapshot {
	return Snapshot{
		Written:          atomic.LoadUint64(&s.written),
		Filtered:         atomic.LoadUint64(&s.filtered),
		Dropped:          atomic.LoadUint64(&s.dropped),
		DeliveredBatches: atomic.LoadUint64(&s.deliveredBatches),
		DeliveredEvents:  atomic.LoadUint64(&s.deliveredEvents),
		FailedBatches:    atomic.LoadUint64(&s.failedBatches),
	}
}
