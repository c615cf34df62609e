// Package ringbuffer provides a generic fixed-capacity circular buffer.
//
// # Overview
//
// A RingBuffer holds up to Cap() elements in a pre-allocated slice addressed modulo
// capacity. It keeps three integers: head (the logical front), tail (the next write
// slot) and size. Logical index i always lives at storage slot (head+i) % capacity.
//
//	rb, err := ringbuffer.New[int](3)
//	if err != nil {
//		return err
//	}
//	rb.Push(1)
//	rb.Push(2)
//	rb.Push(3)
//	rb.Push(4) // overwrites 1
//
//	for i, v := range rb.All() {
//		fmt.Println(i, v) // 0 2, 1 3, 2 4
//	}
//
// # Insertion Policies
//
// The two policies are separate methods so the choice is visible at the call site:
//
//   - Push, PushEvict, Emplace: overwrite the oldest element when full. Never fail.
//   - TryPush, TryEmplace: refuse and change nothing when full.
//
// # Failure Reporting
//
// The Try variants return a boolean and are the primary contract. Pop, Front, At and
// Ref return classified errors from the errors package instead:
//
//   - ErrInvalidArgument: New with capacity <= 0
//   - ErrEmptyBuffer: Pop or Front on an empty buffer
//   - ErrIndexOutOfBounds: At or Ref outside [0, Len())
//
// A failing call never modifies the buffer.
//
// # Traversal
//
// All, Values and Backward return range-over-func sequences. Each sequence records the
// head position and length at creation; it is a snapshot of indices, not of values.
// Do not mutate the buffer while ranging over it.
//
// # Thread Safety
//
// None. A RingBuffer has a single owner. Wrap it in external synchronization, as
// pkg/buffer does, when it is shared between goroutines.
package ringbuffer
