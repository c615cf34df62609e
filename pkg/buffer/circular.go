package buffer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/c360/ringkit/errors"
	"github.com/c360/ringkit/pkg/ringbuffer"
)

// circularBuffer guards a ringbuffer.RingBuffer with a mutex and applies the
// configured overflow policy.
type circularBuffer[T any] struct {
	mu      sync.Mutex
	ring    *ringbuffer.RingBuffer[T]
	stats   *Statistics
	metrics *bufferMetrics // nil unless WithMetrics was given
	opts    *settings[T]

	// Block policy
	notFull *sync.Cond
	closed  bool
}

func newCircularBuffer[T any](capacity int, opts *settings[T]) (*circularBuffer[T], error) {
	if !opts.policy.valid() {
		return nil, errors.WrapInvalid(errors.ErrInvalidArgument, "Buffer", "NewCircularBuffer",
			fmt.Sprintf("unknown overflow policy %d", int(opts.policy)))
	}

	ring, err := ringbuffer.New[T](capacity)
	if err != nil {
		return nil, err
	}

	var metrics *bufferMetrics
	if opts.registry != nil && opts.label != "" {
		metrics, err = newBufferMetrics(opts.registry, opts.label)
		if err != nil {
			return nil, errors.WrapTransient(err, "buffer", "newCircularBuffer", "metrics registration")
		}
	}

	cb := &circularBuffer[T]{
		ring:    ring,
		stats:   NewStatistics(),
		metrics: metrics,
		opts:    opts,
	}
	cb.notFull = sync.NewCond(&cb.mu)

	return cb, nil
}

// Write adds an item to the buffer according to the overflow policy.
func (cb *circularBuffer[T]) Write(item T) error {
	cb.mu.Lock()

	if cb.closed {
		cb.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyStopped, "Buffer", "Write", "buffer closed")
	}

	switch cb.opts.policy {
	case DropNewest:
		if !cb.ring.TryPush(item) {
			cb.stats.Reject()
			cb.recordDropLocked()
			cb.mu.Unlock()
			cb.dropped(item)
			return nil
		}
		cb.recordWriteLocked()
		cb.mu.Unlock()
		return nil

	case Block:
		for cb.ring.Full() && !cb.closed {
			cb.notFull.Wait()
		}
		if cb.closed {
			cb.mu.Unlock()
			return errors.WrapInvalid(errors.ErrAlreadyStopped, "Buffer", "Write",
				"buffer closed during blocking wait")
		}
		cb.ring.Push(item)
		cb.recordWriteLocked()
		cb.mu.Unlock()
		return nil

	default:
		evicted, overwrote := cb.ring.PushEvict(item)
		if overwrote {
			cb.recordDropLocked()
		}
		cb.recordWriteLocked()
		cb.mu.Unlock()
		if overwrote {
			cb.dropped(evicted)
		}
		return nil
	}
}

// recordWriteLocked must be called with mu held.
func (cb *circularBuffer[T]) recordWriteLocked() {
	size := cb.ring.Len()
	cb.stats.Write()
	cb.stats.UpdateSize(int64(size))
	if cb.metrics != nil {
		cb.metrics.recordWrite(size, cb.ring.Cap())
	}
}

// recordDropLocked must be called with mu held.
func (cb *circularBuffer[T]) recordDropLocked() {
	cb.stats.Overflow()
	cb.stats.Drop()
	if cb.metrics != nil {
		cb.metrics.recordOverflow()
		cb.metrics.recordDrop()
	}
}

// dropped runs the drop callback. Never call it with mu held.
func (cb *circularBuffer[T]) dropped(item T) {
	if cb.opts.onDrop != nil {
		cb.opts.onDrop(item)
	}
}

// Read retrieves and removes one item from the buffer.
func (cb *circularBuffer[T]) Read() (T, bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	item, ok := cb.ring.TryPop()
	if !ok {
		return item, false
	}

	size := cb.ring.Len()
	cb.stats.Read()
	cb.stats.UpdateSize(int64(size))
	if cb.metrics != nil {
		cb.metrics.recordRead(size, cb.ring.Cap())
	}

	cb.notFull.Signal()
	return item, true
}

// ReadBatch retrieves and removes up to max items from the buffer.
func (cb *circularBuffer[T]) ReadBatch(max int) []T {
	if max <= 0 {
		return nil
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	n := min(max, cb.ring.Len())
	if n == 0 {
		return nil
	}

	result := make([]T, 0, n)
	for i := 0; i < n; i++ {
		item, _ := cb.ring.TryPop()
		result = append(result, item)
		cb.stats.Read()
	}

	size := cb.ring.Len()
	cb.stats.UpdateSize(int64(size))
	if cb.metrics != nil {
		cb.metrics.recordReads(n, size, cb.ring.Cap())
	}

	cb.notFull.Broadcast()
	return result
}

// Peek retrieves one item without removing it from the buffer.
func (cb *circularBuffer[T]) Peek() (T, bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	item, ok := cb.ring.TryFront()
	if !ok {
		return item, false
	}

	cb.stats.Peek()
	if cb.metrics != nil {
		cb.metrics.recordPeek()
	}
	return item, true
}

// Snapshot returns a copy of the buffered items, oldest first.
func (cb *circularBuffer[T]) Snapshot() []T {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.ring.Slice()
}

// Size returns the current number of items in the buffer.
func (cb *circularBuffer[T]) Size() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.ring.Len()
}

// Capacity returns the maximum number of items the buffer can hold.
func (cb *circularBuffer[T]) Capacity() int {
	return cb.ring.Cap() // immutable
}

// IsFull returns true if the buffer is at maximum capacity.
func (cb *circularBuffer[T]) IsFull() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.ring.Full()
}

// IsEmpty returns true if the buffer contains no items.
func (cb *circularBuffer[T]) IsEmpty() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.ring.Empty()
}

// Clear removes all items from the buffer. The drop callback, if any, sees
// every discarded item in order after the lock is released.
func (cb *circularBuffer[T]) Clear() {
	cb.mu.Lock()

	var discarded []T
	if cb.opts.onDrop != nil {
		discarded = cb.ring.Slice()
	}

	cb.ring.Clear()
	cb.stats.UpdateSize(0)
	if cb.metrics != nil {
		cb.metrics.updateSize(0, cb.ring.Cap())
	}
	cb.notFull.Broadcast()
	cb.mu.Unlock()

	for _, item := range discarded {
		cb.dropped(item)
	}
}

// Stats returns buffer statistics.
func (cb *circularBuffer[T]) Stats() *Statistics {
	return cb.stats
}

// Close shuts down the buffer. Items already buffered can still be read.
func (cb *circularBuffer[T]) Close() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.closed {
		return nil
	}

	cb.closed = true
	cb.notFull.Broadcast()
	return nil
}

// WriteWithTimeout attempts to write an item with a timeout when using Block policy.
func (cb *circularBuffer[T]) WriteWithTimeout(item T, timeout time.Duration) error {
	if cb.opts.policy != Block {
		return cb.Write(item)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return cb.WriteWithContext(ctx, item)
}

// WriteWithContext attempts to write an item, giving up when ctx is done while
// waiting for space under the Block policy.
func (cb *circularBuffer[T]) WriteWithContext(ctx context.Context, item T) error {
	if cb.opts.policy != Block {
		return cb.Write(item)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	// Wake waiters when ctx ends so the loop below can observe it.
	stop := context.AfterFunc(ctx, func() {
		cb.mu.Lock()
		cb.notFull.Broadcast()
		cb.mu.Unlock()
	})
	defer stop()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	for cb.ring.Full() && !cb.closed {
		if err := ctx.Err(); err != nil {
			return err
		}
		cb.notFull.Wait()
	}

	if cb.closed {
		return errors.WrapInvalid(errors.ErrAlreadyStopped, "Buffer", "WriteWithContext", "buffer closed during wait")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cb.ring.Push(item)
	cb.recordWriteLocked()
	return nil
}

// ContextWriter is implemented by buffers that support cancellable writes.
type ContextWriter[T any] interface {
	WriteWithContext(ctx context.Context, item T) error
	WriteWithTimeout(item T, timeout time.Duration) error
}

var _ ContextWriter[int] = (*circularBuffer[int])(nil)
