// Package ringkit is a toolkit built around a generic fixed-capacity ring buffer.
//
// # Layout
//
// The core is a single-owner container with no locking and no I/O:
//   - pkg/ringbuffer: RingBuffer[T], a circular FIFO with overwrite and reject
//     insertion, indexed access, in-place construction and snapshot iteration
//
// Collaborators build on it:
//   - pkg/buffer: goroutine-safe Buffer[T] with DropOldest, DropNewest and Block
//     overflow policies, statistics and Prometheus metrics
//   - pkg/tail: the last N lines of a reader, and a file follower feeding a Buffer
//   - pkg/retry: exponential backoff that stops on invalid or fatal errors
//
// Infrastructure shared by the above:
//   - errors: classified errors (transient, invalid, fatal) and sentinels
//   - metric: Prometheus registry and HTTP server
//   - health: component status aggregation served by the metrics server
//   - config: TOML configuration with environment overrides and hot reload
//
// cmd/ringtail ties these together into a tail(1) work-alike.
//
// # Ownership
//
// A RingBuffer must not be shared between goroutines without external locking.
// pkg/buffer is that locking layer; use it whenever producers and consumers run
// concurrently.
package ringkit
