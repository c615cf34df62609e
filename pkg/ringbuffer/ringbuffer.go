package ringbuffer

import (
	"fmt"
	"iter"

	"github.com/c360/ringkit/errors"
)

// RingBuffer is a fixed-capacity circular buffer.
//
// Push overwrites the oldest element when the buffer is full; TryPush refuses instead.
// A RingBuffer is not safe for concurrent use. Zero value is not ready; use New.
type RingBuffer[T any] struct {
	items    []T
	capacity int
	head     int // index of the logical front
	tail     int // index of the next write
	size     int
}

// New creates a ring buffer holding at most capacity elements.
// Returns ErrInvalidArgument when capacity is not positive.
func New[T any](capacity int) (*RingBuffer[T], error) {
	if capacity <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidArgument, "RingBuffer", "New",
			fmt.Sprintf("capacity must be greater than 0, got %d", capacity))
	}

	return &RingBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}, nil
}

// MustNew is like New but panics when capacity is not positive.
func MustNew[T any](capacity int) *RingBuffer[T] {
	rb, err := New[T](capacity)
	if err != nil {
		panic(err)
	}
	return rb
}

// Push appends item at the back, discarding the oldest element when full.
func (rb *RingBuffer[T]) Push(item T) {
	rb.PushEvict(item)
}

// PushEvict appends item at the back. When the buffer was full the displaced
// oldest element is returned with ok set to true.
func (rb *RingBuffer[T]) PushEvict(item T) (evicted T, ok bool) {
	if rb.size == rb.capacity {
		evicted, ok = rb.items[rb.head], true
	}
	rb.items[rb.tail] = item
	rb.advance()
	return evicted, ok
}

// Emplace constructs the next element in place. The slot is reset to the zero
// value and handed to init before the element becomes visible. A nil init
// stores the zero value. Like Push, it overwrites the oldest element when full.
func (rb *RingBuffer[T]) Emplace(init func(*T)) {
	var zero T
	rb.items[rb.tail] = zero
	if init != nil {
		init(&rb.items[rb.tail])
	}
	rb.advance()
}

// TryPush appends item unless the buffer is full. It reports whether the item
// was stored; a full buffer is left untouched.
func (rb *RingBuffer[T]) TryPush(item T) bool {
	if rb.Full() {
		return false
	}
	rb.Push(item)
	return true
}

// TryEmplace is the non-overwriting form of Emplace. init is not called when
// the buffer is full.
func (rb *RingBuffer[T]) TryEmplace(init func(*T)) bool {
	if rb.Full() {
		return false
	}
	rb.Emplace(init)
	return true
}

// advance moves tail past a freshly written slot, dropping the front if the
// write landed on it.
func (rb *RingBuffer[T]) advance() {
	rb.tail = (rb.tail + 1) % rb.capacity
	if rb.size < rb.capacity {
		rb.size++
	} else {
		rb.head = (rb.head + 1) % rb.capacity
	}
}

// Pop removes and returns the front element.
// Returns ErrEmptyBuffer when there is nothing to remove.
func (rb *RingBuffer[T]) Pop() (T, error) {
	item, ok := rb.TryPop()
	if !ok {
		return item, errors.WrapInvalid(errors.ErrEmptyBuffer, "RingBuffer", "Pop", "remove front element")
	}
	return item, nil
}

// TryPop removes and returns the front element, or reports false when empty.
func (rb *RingBuffer[T]) TryPop() (T, bool) {
	var zero T
	if rb.size == 0 {
		return zero, false
	}

	item := rb.items[rb.head]
	rb.items[rb.head] = zero // release for GC
	rb.head = (rb.head + 1) % rb.capacity
	rb.size--
	return item, true
}

// TryPopInto removes the front element into out. out is left unchanged when
// the buffer is empty.
func (rb *RingBuffer[T]) TryPopInto(out *T) bool {
	item, ok := rb.TryPop()
	if ok {
		*out = item
	}
	return ok
}

// Front returns the oldest element without removing it.
// Returns ErrEmptyBuffer when the buffer is empty.
func (rb *RingBuffer[T]) Front() (T, error) {
	item, ok := rb.TryFront()
	if !ok {
		return item, errors.WrapInvalid(errors.ErrEmptyBuffer, "RingBuffer", "Front", "read front element")
	}
	return item, nil
}

// TryFront returns the oldest element without removing it, or reports false when empty.
func (rb *RingBuffer[T]) TryFront() (T, bool) {
	if rb.size == 0 {
		var zero T
		return zero, false
	}
	return rb.items[rb.head], true
}

// At returns the element at logical index, where 0 is the front.
// Returns ErrIndexOutOfBounds unless 0 <= index < Len().
func (rb *RingBuffer[T]) At(index int) (T, error) {
	if err := rb.checkIndex(index, "At"); err != nil {
		var zero T
		return zero, err
	}
	return rb.items[rb.slot(index)], nil
}

// Ref returns a pointer to the element at logical index so it can be modified
// in place. The pointer is only meaningful until the next mutating call.
func (rb *RingBuffer[T]) Ref(index int) (*T, error) {
	if err := rb.checkIndex(index, "Ref"); err != nil {
		return nil, err
	}
	return &rb.items[rb.slot(index)], nil
}

func (rb *RingBuffer[T]) checkIndex(index int, method string) error {
	if index < 0 || index >= rb.size {
		return errors.WrapInvalid(errors.ErrIndexOutOfBounds, "RingBuffer", method,
			fmt.Sprintf("access index %d of %d", index, rb.size))
	}
	return nil
}

// slot maps a logical index to its storage position.
func (rb *RingBuffer[T]) slot(index int) int {
	return (rb.head + index) % rb.capacity
}

// Empty reports whether the buffer holds no elements.
func (rb *RingBuffer[T]) Empty() bool { return rb.size == 0 }

// Full reports whether the buffer holds Cap() elements.
func (rb *RingBuffer[T]) Full() bool { return rb.size == rb.capacity }

// Len returns the number of elements held.
func (rb *RingBuffer[T]) Len() int { return rb.size }

// Cap returns the fixed capacity.
func (rb *RingBuffer[T]) Cap() int { return rb.capacity }

// Clear discards all elements. Capacity and storage are kept.
func (rb *RingBuffer[T]) Clear() {
	clear(rb.items)
	rb.head = 0
	rb.tail = 0
	rb.size = 0
}

// All returns a sequence of logical index and value pairs from front to back.
//
// The sequence captures the buffer's position and length when All is called.
// Mutating the buffer while ranging yields stale values; it is the caller's job
// not to do that.
func (rb *RingBuffer[T]) All() iter.Seq2[int, T] {
	items, head, size := rb.items, rb.head, rb.size
	return func(yield func(int, T) bool) {
		for i := 0; i < size; i++ {
			if !yield(i, items[(head+i)%len(items)]) {
				return
			}
		}
	}
}

// Values returns a sequence of the elements from front to back.
// It has the same snapshot semantics as All.
func (rb *RingBuffer[T]) Values() iter.Seq[T] {
	items, head, size := rb.items, rb.head, rb.size
	return func(yield func(T) bool) {
		for i := 0; i < size; i++ {
			if !yield(items[(head+i)%len(items)]) {
				return
			}
		}
	}
}

// Backward returns a sequence of logical index and value pairs from back to front.
func (rb *RingBuffer[T]) Backward() iter.Seq2[int, T] {
	items, head, size := rb.items, rb.head, rb.size
	return func(yield func(int, T) bool) {
		for i := size - 1; i >= 0; i-- {
			if !yield(i, items[(head+i)%len(items)]) {
				return
			}
		}
	}
}

// AppendTo appends the elements in logical order to dst and returns the result.
func (rb *RingBuffer[T]) AppendTo(dst []T) []T {
	if rb.size == 0 {
		return dst
	}
	end := rb.head + rb.size
	if end <= rb.capacity {
		return append(dst, rb.items[rb.head:end]...)
	}
	dst = append(dst, rb.items[rb.head:]...)
	return append(dst, rb.items[:end-rb.capacity]...)
}

// Slice returns a copy of the elements in logical order.
func (rb *RingBuffer[T]) Slice() []T {
	return rb.AppendTo(make([]T, 0, rb.size))
}

// String implements fmt.Stringer.
func (rb *RingBuffer[T]) String() string {
	return fmt.Sprintf("RingBuffer[%d/%d]", rb.size, rb.capacity)
}
