package sink

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/loggate/loggate/core"
)

// fakeClock lets tests move time without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func event(level core.Level, msg string) *core.Event {
	return &core.Event{
		Time:     time.Now().UTC(),
		Level:    level,
		Category: "Test",
		Message:  msg,
	}
}

// captureDeliver returns a DeliverFunc that forwards each batch to a
// channel, optionally failing every call.
func captureDeliver(fail error) (DeliverFunc, chan []*core.Event) {
	ch := make(chan []*core.Event, 16)
	return func(events []*core.Event) error {
		ch <- events
		return fail
	}, ch
}

func waitBatch(t *testing.T, ch chan []*core.Event) []*core.Event {
	t.Helper()
	select {
	case batch := <-ch:
		return batch
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a batch delivery")
		return nil
	}
}

func assertNoBatch(t *testing.T, ch chan []*core.Event) {
	t.Helper()
	select {
	case batch := <-ch:
		t.Fatalf("unexpected delivery of %d events", len(batch))
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNewBatcherValidation(t *testing.T) {
	deliver, _ := captureDeliver(nil)

	cases := []struct {
		name string
		cfg  BatcherConfig
		fn   DeliverFunc
	}{
		{"zero batch size", BatcherConfig{BatchSize: 0, FlushInterval: time.Second}, deliver},
		{"negative batch size", BatcherConfig{BatchSize: -1, FlushInterval: time.Second}, deliver},
		{"zero interval", BatcherConfig{BatchSize: 10, FlushInterval: 0}, deliver},
		{"nil deliver", BatcherConfig{BatchSize: 10, FlushInterval: time.Second}, nil},
	}
	for _, tc := range cases {
		if _, err := NewBatcher(tc.cfg, tc.fn); !errors.Is(err, core.ErrInvalidArgument) {
			t.Errorf("%s: err = %v, want ErrInvalidArgument", tc.name, err)
		}
	}
}

func TestBatchSizeThreshold(t *testing.T) {
	deliver, ch := captureDeliver(nil)
	b, err := NewBatcher(BatcherConfig{
		Name:          "test",
		BatchSize:     3,
		FlushInterval: 100 * time.Second,
		Clock:         newFakeClock(),
		DisableTicker: true,
	}, deliver)
	if err != nil {
		t.Fatalf("NewBatcher: %v", err)
	}
	defer b.Close()

	_ = b.Write(event(core.InfoLevel, "one"))
	_ = b.Write(event(core.InfoLevel, "two"))
	assertNoBatch(t, ch)

	_ = b.Write(event(core.InfoLevel, "three"))
	batch := waitBatch(t, ch)
	if len(batch) != 3 {
		t.Fatalf("batch size = %d, want 3", len(batch))
	}
	for i, want := range []string{"one", "two", "three"} {
		if batch[i].Message != want {
			t.Errorf("batch[%d] = %q, want %q", i, batch[i].Message, want)
		}
	}

	// A fourth write starts a fresh buffer.
	_ = b.Write(event(core.InfoLevel, "four"))
	if got := b.Pending(); got != 1 {
		t.Errorf("Pending after 4th write = %d, want 1", got)
	}
	assertNoBatch(t, ch)
}

func TestFlushIntervalThreshold(t *testing.T) {
	clock := newFakeClock()
	deliver, ch := captureDeliver(nil)
	b, err := NewBatcher(BatcherConfig{
		Name:          "test",
		BatchSize:     1000,
		FlushInterval: time.Second,
		Clock:         clock,
		DisableTicker: true,
	}, deliver)
	if err != nil {
		t.Fatalf("NewBatcher: %v", err)
	}
	defer b.Close()

	_ = b.Write(event(core.InfoLevel, "lonely"))
	assertNoBatch(t, ch)

	clock.Advance(1100 * time.Millisecond)
	b.tick()

	batch := waitBatch(t, ch)
	if len(batch) != 1 {
		t.Fatalf("batch size = %d, want 1", len(batch))
	}
	if batch[0].Message != "lonely" {
		t.Errorf("batch[0] = %q", batch[0].Message)
	}
}

func TestIntervalCheckedOnWrite(t *testing.T) {
	clock := newFakeClock()
	deliver, ch := captureDeliver(nil)
	b, _ := NewBatcher(BatcherConfig{
		Name:          "test",
		BatchSize:     1000,
		FlushInterval: time.Second,
		Clock:         clock,
		DisableTicker: true,
	}, deliver)
	defer b.Close()

	_ = b.Write(event(core.InfoLevel, "first"))
	clock.Advance(1100 * time.Millisecond)
	_ = b.Write(event(core.InfoLevel, "second"))

	batch := waitBatch(t, ch)
	if len(batch) != 2 {
		t.Fatalf("batch size = %d, want 2", len(batch))
	}
}

func TestFlushBypassesThresholds(t *testing.T) {
	deliver, ch := captureDeliver(nil)
	b, _ := NewBatcher(BatcherConfig{
		Name:          "test",
		BatchSize:     1000,
		FlushInterval: 100 * time.Second,
		Clock:         newFakeClock(),
		DisableTicker: true,
	}, deliver)
	defer b.Close()

	_ = b.Write(event(core.InfoLevel, "a"))
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(waitBatch(t, ch)) != 1 {
		t.Error("Flush did not deliver the buffered event")
	}

	// Empty buffer: Flush submits nothing.
	_ = b.Flush()
	assertNoBatch(t, ch)
}

func TestMinLevelSecondStageFilter(t *testing.T) {
	deliver, ch := captureDeliver(nil)
	b, _ := NewBatcher(BatcherConfig{
		Name:          "test",
		BatchSize:     2,
		FlushInterval: 100 * time.Second,
		MinLevel:      core.ErrorLevel,
		Clock:         newFakeClock(),
		DisableTicker: true,
	}, deliver)
	defer b.Close()

	_ = b.Write(event(core.InfoLevel, "filtered"))
	_ = b.Write(event(core.WarnLevel, "filtered too"))
	if got := b.Pending(); got != 0 {
		t.Errorf("Pending = %d, below-minimum events were buffered", got)
	}

	_ = b.Write(event(core.ErrorLevel, "kept"))
	_ = b.Write(event(core.CriticalLevel, "kept too"))
	batch := waitBatch(t, ch)
	if len(batch) != 2 {
		t.Fatalf("batch size = %d, want 2", len(batch))
	}

	stats := b.Stats()
	if stats.Filtered != 2 {
		t.Errorf("Filtered = %d, want 2", stats.Filtered)
	}
}

func TestCloseFlushesAndIsIdempotent(t *testing.T) {
	deliver, ch := captureDeliver(nil)
	b, _ := NewBatcher(BatcherConfig{
		Name:          "test",
		BatchSize:     1000,
		FlushInterval: 100 * time.Second,
		Clock:         newFakeClock(),
	}, deliver)

	_ = b.Write(event(core.InfoLevel, "buffered"))
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(waitBatch(t, ch)) != 1 {
		t.Error("Close did not flush the buffer")
	}

	if err := b.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	assertNoBatch(t, ch)

	// Writes after close are dropped, not buffered.
	_ = b.Write(event(core.InfoLevel, "late"))
	if got := b.Pending(); got != 0 {
		t.Errorf("Pending after closed write = %d", got)
	}
	if got := b.Stats().Dropped; got != 1 {
		t.Errorf("Dropped = %d, want 1", got)
	}
}

func TestDeliveryFailureDropsBatch(t *testing.T) {
	deliver, ch := captureDeliver(errors.New("connection refused"))
	b, _ := NewBatcher(BatcherConfig{
		Name:          "flaky",
		BatchSize:     1,
		FlushInterval: 100 * time.Second,
		Clock:         newFakeClock(),
		DisableTicker: true,
	}, deliver)

	_ = b.Write(event(core.ErrorLevel, "lost"))
	waitBatch(t, ch)

	// No retry: the only delivery attempt is the one above.
	assertNoBatch(t, ch)

	_ = b.Close()
	stats := b.Stats()
	if stats.FailedBatches != 1 {
		t.Errorf("FailedBatches = %d, want 1", stats.FailedBatches)
	}
	if stats.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", stats.Dropped)
	}
}

func TestTickerFlushesLowTraffic(t *testing.T) {
	deliver, ch := captureDeliver(nil)
	b, _ := NewBatcher(BatcherConfig{
		Name:          "quiet",
		BatchSize:     1000,
		FlushInterval: 20 * time.Millisecond,
	}, deliver)
	defer b.Close()

	_ = b.Write(event(core.InfoLevel, "eventually"))
	batch := waitBatch(t, ch)
	if len(batch) != 1 {
		t.Fatalf("ticker batch size = %d, want 1", len(batch))
	}
}

func TestConcurrentWriters(t *testing.T) {
	var mu sync.Mutex
	total := 0
	deliver := func(events []*core.Event) error {
		mu.Lock()
		total += len(events)
		mu.Unlock()
		return nil
	}

	b, _ := NewBatcher(BatcherConfig{
		Name:          "hot",
		BatchSize:     16,
		FlushInterval: time.Second,
	}, deliver)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = b.Write(event(core.InfoLevel, "n"))
			}
		}()
	}
	wg.Wait()
	_ = b.Close()

	mu.Lock()
	defer mu.Unlock()
	if total != 800 {
		t.Errorf("delivered %d events, want 800", total)
	}
}

func TestTruncateReason(t *testing.T) {
	long := errors.New(string(make([]byte, 1000)))
	if got := TruncateReason(long); len(got) != maxReasonLen+3 {
		t.Errorf("truncated length = %d", len(got))
	}
	if TruncateReason(nil) != "" {
		t.Error("nil error should produce empty reason")
	}
}
