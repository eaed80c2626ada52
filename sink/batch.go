package sink

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/loggate/loggate/core"
)

// DeliverFunc serializes and sends one batch snapshot. It runs on a
// delivery goroutine, never on the caller's, and owns the slice it is
// given. An error drops the batch: delivery is at-most-once, and callers
// wanting stronger guarantees must layer a persistent outbox on top.
type DeliverFunc func(events []*core.Event) error

// BatcherConfig configures the shared accumulation state machine.
type BatcherConfig struct {
	// Name identifies the owning sink in diagnostics.
	Name string

	// BatchSize triggers a flush when the buffer reaches it. Must be > 0.
	BatchSize int

	// FlushInterval triggers a flush when this much time has passed
	// since the last one. Checked opportunistically on every Write and,
	// unless DisableTicker is set, by a background ticker so low-traffic
	// sinks still flush. Must be > 0.
	FlushInterval time.Duration

	// MinLevel is the sink's own filter stage, applied inside Write
	// after the router's category filter has already passed.
	MinLevel core.Level

	// Clock defaults to core.SystemClock.
	Clock core.Clock

	// Diagnostics receives delivery failures. Defaults to a no-op logger.
	Diagnostics *zap.Logger

	// DisableTicker turns off the background interval check. The
	// elapsed-time check on Write still applies.
	DisableTicker bool
}

// Batcher is the accumulation/flush state machine shared by all batching
// network sinks. Concrete sinks compose one and supply a DeliverFunc for
// their wire format.
//
// Writes append under a mutex scoped to the append-and-check operation;
// when a size or time threshold trips, the buffer is swapped out into a
// private snapshot and delivery of that snapshot runs on its own
// goroutine. The mutex is never held across network I/O, so producers
// are never blocked by a slow backend.
//
// Flushes from one Batcher may be in flight concurrently: each owns its
// snapshot, so attempt N+1 can start before attempt N completes and
// batches may arrive out of order at the backend.
type Batcher struct {
	name     string
	size     int
	interval time.Duration
	minLevel core.Level
	clock    core.Clock
	diag     *zap.Logger
	deliver  DeliverFunc
	stats    *Stats

	mu        sync.Mutex
	buf       []*core.Event
	lastFlush time.Time
	closed    bool

	wg         sync.WaitGroup // in-flight deliveries
	tickerDone chan struct{}
	tickerWG   sync.WaitGroup
}

// NewBatcher validates the configuration and starts the interval ticker.
// Invalid batch parameters fail here with core.ErrInvalidArgument rather
// than deferring to first use.
func NewBatcher(cfg BatcherConfig, deliver DeliverFunc) (*Batcher, error) {
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size %d", core.ErrInvalidArgument, cfg.BatchSize)
	}
	if cfg.FlushInterval <= 0 {
		return nil, fmt.Errorf("%w: flush interval %v", core.ErrInvalidArgument, cfg.FlushInterval)
	}
	if deliver == nil {
		return nil, fmt.Errorf("%w: nil deliver func", core.ErrInvalidArgument)
	}
	if cfg.Clock == nil {
		cfg.Clock = core.SystemClock{}
	}
	if cfg.Diagnostics == nil {
		cfg.Diagnostics = zap.NewNop()
	}

	b := &Batcher{
		name:       cfg.Name,
		size:       cfg.BatchSize,
		interval:   cfg.FlushInterval,
		minLevel:   cfg.MinLevel,
		clock:      cfg.Clock,
		diag:       cfg.Diagnostics,
		deliver:    deliver,
		stats:      NewStats(),
		buf:        make([]*core.Event, 0, cfg.BatchSize),
		lastFlush:  cfg.Clock.Now(),
		tickerDone: make(chan struct{}),
	}

	if !cfg.DisableTicker {
		b.tickerWG.Add(1)
		go b.runTicker()
	}
	return b, nil
}

// Write appends an event and flushes if the size or interval threshold
// has been reached. It returns in bounded time regardless of backend
// latency. Writes after Close are dropped.
func (b *Batcher) Write(ev *core.Event) error {
	if ev.Level < b.minLevel {
		b.stats.IncrementFiltered()
		return nil
	}

	var snapshot []*core.Event

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.stats.AddDropped(1)
		return nil
	}
	b.buf = append(b.buf, ev)
	b.stats.IncrementWritten()
	now := b.clock.Now()
	if len(b.buf) >= b.size || now.Sub(b.lastFlush) >= b.interval {
		snapshot = b.swapLocked(now)
	}
	b.mu.Unlock()

	b.submit(snapshot)
	return nil
}

// Flush forces a flush regardless of thresholds. It returns once the
// delivery attempt has been submitted.
func (b *Batcher) Flush() error {
	b.mu.Lock()
	snapshot := b.swapLocked(b.clock.Now())
	b.mu.Unlock()

	b.submit(snapshot)
	return nil
}

// Close performs a final flush, stops the ticker, and waits for in-flight
// deliveries. Only the first call does work.
func (b *Batcher) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	snapshot := b.swapLocked(b.clock.Now())
	b.mu.Unlock()

	close(b.tickerDone)
	b.tickerWG.Wait()

	b.submit(snapshot)
	b.wg.Wait()
	return nil
}

// Pending returns the number of buffered, not yet flushed events.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

// Stats exposes the sink's counters.
func (b *Batcher) Stats() Snapshot {
	return b.stats.GetSnapshot()
}

// swapLocked moves the buffer into a snapshot and resets it. Caller
// holds b.mu. Returns nil when there is nothing to flush.
func (b *Batcher) swapLocked(now time.Time) []*core.Event {
	b.lastFlush = now
	if len(b.buf) == 0 {
		return nil
	}
	snapshot := b.buf
	b.buf = make([]*core.Event, 0, b.size)
	return snapshot
}

// submit hands a snapshot to a delivery goroutine. Failures go to the
// diagnostics channel and the snapshot is dropped; there is no retry.
func (b *Batcher) submit(snapshot []*core.Event) {
	if len(snapshot) == 0 {
		return
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := b.deliver(snapshot); err != nil {
			b.stats.IncrementFailed()
			b.stats.AddDropped(len(snapshot))
			b.diag.Warn("batch delivery failed",
				zap.String("sink", b.name),
				zap.Int("events", len(snapshot)),
				zap.String("reason", TruncateReason(err)),
			)
			return
		}
		b.stats.AddDelivered(len(snapshot))
	}()
}

// runTicker performs the periodic interval check for sinks too quiet to
// trip it from Write.
func (b *Batcher) runTicker() {
	defer b.tickerWG.Done()
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			b.tick()
		case <-b.tickerDone:
			return
		}
	}
}

// tick flushes when the interval has elapsed since the last flush.
func (b *Batcher) tick() {
	var snapshot []*core.Event

	b.mu.Lock()
	if !b.closed {
		now := b.clock.Now()
		if now.Sub(b.lastFlush) >= b.interval {
			snapshot = b.swapLocked(now)
		}
	}
	b.mu.Unlock()

	b.submit(snapshot)
}
