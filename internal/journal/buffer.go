package journal

import "sync"

// Buffer is a thread-safe FIFO that doubles its capacity when it reaches
// 70% full, up to a fixed ceiling. Pushes beyond the ceiling are rejected.
type Buffer[T any] struct {
	mu          sync.Mutex
	buf         []T
	head        int // read position
	tail        int // write position
	count       int
	capacity    int
	maxCapacity int
	closed      bool
	ready       chan struct{}

	// Stats
	totalReceived int64
	totalDrained  int64
	totalRejected int64
	resizeCount   int
}

// BufferStats contains buffer statistics.
type BufferStats struct {
	Count         int
	Capacity      int
	TotalReceived int64
	TotalDrained  int64
	TotalRejected int64
	ResizeCount   int
}

// NewBuffer creates a buffer with the given initial capacity that never
// holds more than maxItems entries. maxItems below the initial capacity is
// raised to it.
func NewBuffer[T any](initialCapacity, maxItems int) *Buffer[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	if maxItems < initialCapacity {
		maxItems = initialCapacity
	}
	return &Buffer[T]{
		buf:         make([]T, initialCapacity),
		capacity:    initialCapacity,
		maxCapacity: maxItems,
		ready:       make(chan struct{}, 1),
	}
}

// Push adds an item. It returns false if the buffer is closed or already
// holds maxItems entries.
func (b *Buffer[T]) Push(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || b.count >= b.maxCapacity {
		b.totalRejected++
		return false
	}

	threshold := max((b.capacity*70)/100, 1)
	if b.count+1 >= threshold && b.capacity < b.maxCapacity {
		b.grow()
	}

	b.buf[b.tail] = item
	b.tail = (b.tail + 1) % b.capacity
	b.count++
	b.totalReceived++

	select {
	case b.ready <- struct{}{}:
	default:
	}
	return true
}

// Ready is signalled after a push. One signal may cover several pushes.
func (b *Buffer[T]) Ready() <-chan struct{} {
	return b.ready
}

// Drain removes up to limit items in FIFO order. A limit <= 0 drains
// everything. It returns nil when the buffer is empty.
func (b *Buffer[T]) Drain(limit int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil
	}

	n := b.count
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]T, n)
	var zero T
	for i := range n {
		out[i] = b.buf[b.head]
		b.buf[b.head] = zero // Clear reference for GC
		b.head = (b.head + 1) % b.capacity
	}
	b.count -= n
	b.totalDrained += int64(n)

	return out
}

// Close rejects further pushes. Buffered items remain drainable.
func (b *Buffer[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

// Len returns the current number of items in the buffer.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Stats returns buffer statistics.
func (b *Buffer[T]) Stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BufferStats{
		Count:         b.count,
		Capacity:      b.capacity,
		TotalReceived: b.totalReceived,
		TotalDrained:  b.totalDrained,
		TotalRejected: b.totalRejected,
		ResizeCount:   b.resizeCount,
	}
}

// grow doubles the capacity, clamped to maxCapacity. Must be called with lock held.
func (b *Buffer[T]) grow() {
	newCapacity := min(b.capacity*2, b.maxCapacity)
	newBuf := make([]T, newCapacity)

	if b.count > 0 {
		if b.head < b.tail {
			copy(newBuf, b.buf[b.head:b.tail])
		} else {
			// Wrapped: [head...end) + [0...tail)
			n := copy(newBuf, b.buf[b.head:])
			copy(newBuf[n:], b.buf[:b.tail])
		}
	}

	b.buf = newBuf
	b.head = 0
	b.tail = b.count
	b.capacity = newCapacity
	b.resizeCount++
}
