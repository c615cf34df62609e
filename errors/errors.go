// Package errors provides standardized error handling for ringkit components.
// It includes error classification, the standard error variables returned by the
// ring buffer and its collaborators, and helpers for consistent wrapping.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorTransient represents temporary errors that may be retried
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents errors due to invalid input or caller misuse
	ErrorInvalid
	// ErrorFatal represents unrecoverable errors that should stop processing
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Ring buffer errors
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrEmptyBuffer      = errors.New("buffer is empty")
	ErrIndexOutOfBounds = errors.New("index out of bounds")
	ErrBufferFull       = errors.New("buffer is full")

	// Lifecycle errors
	ErrAlreadyStopped = errors.New("component already stopped")

	// Data errors
	ErrInvalidData   = errors.New("invalid data format")
	ErrDataCorrupted = errors.New("data corrupted")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")

	// I/O errors
	ErrSourceUnavailable = errors.New("source unavailable")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// rule recognizes unclassified errors of one class, by sentinel or by a
// lowercase substring of the message.
type rule struct {
	sentinels []error
	patterns  []string
}

var rules = map[ErrorClass]rule{
	ErrorTransient: {
		sentinels: []error{ErrSourceUnavailable, context.DeadlineExceeded, context.Canceled},
		patterns:  []string{"timeout", "temporary", "unavailable", "busy", "retry"},
	},
	ErrorFatal: {
		sentinels: []error{ErrInvalidConfig, ErrMissingConfig, ErrDataCorrupted},
		patterns:  []string{"fatal", "panic", "corrupted", "out of memory"},
	},
	ErrorInvalid: {
		sentinels: []error{
			ErrInvalidArgument, ErrEmptyBuffer, ErrIndexOutOfBounds,
			ErrBufferFull, ErrAlreadyStopped, ErrInvalidData,
		},
	},
}

// is reports whether err belongs to class. A ClassifiedError anywhere in the
// chain decides on its own; otherwise the class rule is consulted.
func is(err error, class ErrorClass) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == class
	}

	r := rules[class]
	for _, sentinel := range r.sentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	if len(r.patterns) == 0 {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range r.patterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// IsTransient checks if an error is transient and should be retried
func IsTransient(err error) bool { return is(err, ErrorTransient) }

// IsFatal checks if an error is fatal and should stop processing
func IsFatal(err error) bool { return is(err, ErrorFatal) }

// IsInvalid checks if an error is due to invalid input or misuse of a buffer
func IsInvalid(err error) bool { return is(err, ErrorInvalid) }

// Classify returns the class of err. Transient is checked first, then fatal,
// then invalid; nil and unrecognized errors are transient so that callers
// retry them.
func Classify(err error) ErrorClass {
	for _, class := range []ErrorClass{ErrorTransient, ErrorFatal, ErrorInvalid} {
		if is(err, class) {
			return class
		}
	}
	return ErrorTransient
}

// Is reports whether any error in err's chain matches target.
// It is re-exported so callers importing this package need not alias the standard one.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

func wrapAs(class ErrorClass, err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, method, action)
	return &ClassifiedError{
		Class:     class,
		Err:       wrapped,
		Message:   wrapped.Error(),
		Component: component,
		Operation: method,
	}
}

// WrapTransient wraps an error as transient with context
func WrapTransient(err error, component, method, action string) error {
	return wrapAs(ErrorTransient, err, component, method, action)
}

// WrapFatal wraps an error as fatal with context
func WrapFatal(err error, component, method, action string) error {
	return wrapAs(ErrorFatal, err, component, method, action)
}

// WrapInvalid wraps an error as invalid with context
func WrapInvalid(err error, component, method, action string) error {
	return wrapAs(ErrorInvalid, err, component, method, action)
}
