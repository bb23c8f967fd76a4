// Package debounce provides trailing-edge debouncing and interval/size
// bounded batching for coalescing high-frequency security signals.
package debounce

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of Trigger calls into a single invocation of
// fn, fired after the configured quiet interval elapses (trailing edge).
type Debouncer struct {
	interval time.Duration
	fn       func()

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer creates a Debouncer that runs fn once per burst.
func NewDebouncer(interval time.Duration, fn func()) *Debouncer {
	return &Debouncer{
		interval: interval,
		fn:       fn,
	}
}

// Trigger schedules fn after the quiet interval, resetting any pending run.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.fn)
}

// Cancel drops any pending invocation.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Flush cancels the pending timer and runs fn immediately if a run was
// pending. Returns true if fn executed.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	pending := d.timer != nil && d.timer.Stop()
	d.timer = nil
	d.mu.Unlock()

	if pending {
		d.fn()
	}
	return pending
}

// Batcher queues items and flushes them together when either the flush
// interval elapses or the queue reaches maxSize, bounding the rate of
// security-relevant side effects.
type Batcher[T any] struct {
	interval time.Duration
	maxSize  int
	flush    func([]T)

	mu    sync.Mutex
	queue []T
	timer *time.Timer
	done  bool
}

// NewBatcher creates a Batcher delivering queued items to flush.
func NewBatcher[T any](interval time.Duration, maxSize int, flush func([]T)) *Batcher[T] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Batcher[T]{
		interval: interval,
		maxSize:  maxSize,
		flush:    flush,
	}
}

// Add queues an item. The batch flushes immediately when maxSize is
// reached, otherwise on the next interval tick.
func (b *Batcher[T]) Add(item T) {
	b.mu.Lock()
	if b.done {
		b.mu.Unlock()
		return
	}

	b.queue = append(b.queue, item)

	if len(b.queue) >= b.maxSize {
		batch := b.drainLocked()
		b.mu.Unlock()
		b.flush(batch)
		return
	}

	if b.timer == nil {
		b.timer = time.AfterFunc(b.interval, b.flushTimer)
	}
	b.mu.Unlock()
}

// Stop flushes any queued items and releases the timer. The Batcher
// accepts no further items afterwards.
func (b *Batcher[T]) Stop() {
	b.mu.Lock()
	b.done = true
	batch := b.drainLocked()
	b.mu.Unlock()

	if len(batch) > 0 {
		b.flush(batch)
	}
}

func (b *Batcher[T]) flushTimer() {
	b.mu.Lock()
	batch := b.drainLocked()
	b.mu.Unlock()

	if len(batch) > 0 {
		b.flush(batch)
	}
}

// drainLocked returns the queued items and resets the queue and timer.
// Caller must hold b.mu.
func (b *Batcher[T]) drainLocked() []T {
	batch := b.queue
	b.queue = nil
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	return batch
}
