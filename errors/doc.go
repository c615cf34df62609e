// Package errors provides standardized error handling patterns for ringkit components.
//
// # Overview
//
// Errors fall into three classes: Transient (temporary, retryable), Invalid (bad input
// or misuse of an API, not retryable) and Fatal (unrecoverable, stop processing).
// The ring buffer reports every failure as Invalid: a zero capacity, a read from an
// empty buffer and an out-of-range index are all caller mistakes.
//
// # Standard Error Variables
//
//   - Ring buffer: ErrInvalidArgument, ErrEmptyBuffer, ErrIndexOutOfBounds, ErrBufferFull
//   - Lifecycle: ErrAlreadyStopped
//   - Data: ErrInvalidData, ErrDataCorrupted
//   - Configuration: ErrInvalidConfig, ErrMissingConfig
//   - I/O: ErrSourceUnavailable
//
// Match them with errors.Is through any amount of wrapping:
//
//	v, err := rb.Pop()
//	if errors.Is(err, errors.ErrEmptyBuffer) {
//	    // nothing buffered yet
//	}
//
// # Error Wrapping Pattern
//
// All wrapping follows the format:
//
//	"component.method: action failed: %w"
//
// Three wrappers attach a class while preserving the chain:
//
//	errors.WrapTransient(err, "Follower", "Run", "read appended lines")
//	errors.WrapInvalid(errors.ErrEmptyBuffer, "RingBuffer", "Pop", "remove front element")
//	errors.WrapFatal(err, "Server", "Start", "listen")
//
// Plain Wrap adds context without a class; Classify then falls back to the sentinel
// checks and message patterns.
package errors
