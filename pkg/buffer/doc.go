// Package buffer provides goroutine-safe bounded buffers with configurable overflow
// policies, built-in statistics tracking, and optional Prometheus metrics integration.
//
// # Overview
//
// A ringbuffer.RingBuffer has a single owner and no locking. This package is the
// external synchronization layer around it: every operation takes a mutex, the
// overflow policy picks which ring buffer insertion variant is used, and the Block
// policy parks writers on a condition variable until a reader frees a slot.
//
// # Quick Start
//
//	buf, err := buffer.NewCircularBuffer[int](1000)
//	if err != nil {
//		return err
//	}
//
//	err = buf.Write(42)
//	value, ok := buf.Read()
//
// With overflow policy and metrics:
//
//	buf, err := buffer.NewCircularBuffer[[]byte](5000,
//		buffer.WithOverflowPolicy[[]byte](buffer.DropNewest),
//		buffer.WithMetrics[[]byte](registry, "network_input"),
//	)
//
// # Overflow Policies
//
//   - DropOldest: overwrite the oldest item (RingBuffer.PushEvict). Default.
//   - DropNewest: refuse the new item (RingBuffer.TryPush). Write still returns nil.
//   - Block: wait for space. Use WriteWithContext to bound the wait.
//
// The drop callback receives the evicted item under DropOldest and the refused item
// under DropNewest. It also sees every item discarded by Clear. It always runs outside
// the buffer's lock.
//
// # Observability
//
// Statistics are always collected with atomic counters and are available through
// Stats(). WithMetrics additionally mirrors them into Prometheus under the
// ringkit_buffer_* names with a "component" label. The two are kept separately so
// Statistics keep working without a registry.
//
// # Configuration
//
// Config carries capacity and policy with json and toml tags. OverflowPolicy
// implements encoding.TextUnmarshaler, so "drop_oldest", "drop_newest" and "block"
// decode from either format.
//
//	buf, err := buffer.NewFromConfig[string](buffer.Config{
//		Capacity:       100,
//		OverflowPolicy: buffer.Block,
//	})
package buffer
