package buffer

import (
	"github.com/c360/ringkit/metric"
)

// Option configures a Buffer.
type Option[T any] func(*settings[T])

// settings is the resolved option set of one buffer. Statistics are always
// collected; Prometheus export happens only when registry is set.
type settings[T any] struct {
	policy   OverflowPolicy
	onDrop   DropCallback[T]
	registry *metric.MetricsRegistry
	label    string // component label on exported metrics
}

// WithOverflowPolicy sets what Write does when the buffer is full.
// Defaults to DropOldest.
func WithOverflowPolicy[T any](policy OverflowPolicy) Option[T] {
	return func(s *settings[T]) {
		s.policy = policy
	}
}

// WithMetrics exports the buffer's statistics to registry under the component
// label. It is ignored when registry is nil or label is empty.
func WithMetrics[T any](registry *metric.MetricsRegistry, label string) Option[T] {
	return func(s *settings[T]) {
		if registry != nil && label != "" {
			s.registry = registry
			s.label = label
		}
	}
}

// WithDropCallback is called with every item the buffer discards, whether
// evicted, rejected or cleared. It runs outside the buffer's lock, so it may
// call back into the buffer.
func WithDropCallback[T any](callback DropCallback[T]) Option[T] {
	return func(s *settings[T]) {
		s.onDrop = callback
	}
}

func resolve[T any](options ...Option[T]) *settings[T] {
	s := &settings[T]{policy: DropOldest}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}
