package debounce_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/securedbank/sentinel/pkg/debounce"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncerCoalescesBurst(t *testing.T) {
	var calls atomic.Int32
	d := debounce.NewDebouncer(20*time.Millisecond, func() {
		calls.Add(1)
	})

	for i := 0; i < 10; i++ {
		d.Trigger()
		time.Sleep(2 * time.Millisecond)
	}

	assert.Eventually(t, func() bool {
		return calls.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestDebouncerCancel(t *testing.T) {
	var calls atomic.Int32
	d := debounce.NewDebouncer(20*time.Millisecond, func() {
		calls.Add(1)
	})

	d.Trigger()
	d.Cancel()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestDebouncerFlush(t *testing.T) {
	var calls atomic.Int32
	d := debounce.NewDebouncer(time.Hour, func() {
		calls.Add(1)
	})

	assert.False(t, d.Flush(), "flush with nothing pending should be a no-op")

	d.Trigger()
	require.True(t, d.Flush())
	assert.Equal(t, int32(1), calls.Load())
}

func TestBatcherFlushesOnSizeThreshold(t *testing.T) {
	var mu sync.Mutex
	var batches [][]string

	b := debounce.NewBatcher[string](time.Hour, 3, func(items []string) {
		mu.Lock()
		batches = append(batches, items)
		mu.Unlock()
	})

	b.Add("a")
	b.Add("b")
	b.Add("c")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"a", "b", "c"}, batches[0])
}

func TestBatcherFlushesOnInterval(t *testing.T) {
	var mu sync.Mutex
	var batches [][]int

	b := debounce.NewBatcher[int](15*time.Millisecond, 100, func(items []int) {
		mu.Lock()
		batches = append(batches, items)
		mu.Unlock()
	})

	b.Add(1)
	b.Add(2)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(batches) == 1 && len(batches[0]) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestBatcherStopFlushesRemainder(t *testing.T) {
	var mu sync.Mutex
	var flushed []int

	b := debounce.NewBatcher[int](time.Hour, 100, func(items []int) {
		mu.Lock()
		flushed = append(flushed, items...)
		mu.Unlock()
	})

	b.Add(7)
	b.Stop()

	mu.Lock()
	assert.Equal(t, []int{7}, flushed)
	mu.Unlock()

	// Items after Stop are dropped.
	b.Add(8)
	mu.Lock()
	assert.Equal(t, []int{7}, flushed)
	mu.Unlock()
}
