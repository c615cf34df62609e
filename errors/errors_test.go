package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			result := test.class.String()
			if result != test.expected {
				t.Errorf("expected %s, got %s", test.expected, result)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"source unavailable", ErrSourceUnavailable, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"context canceled", context.Canceled, true},
		{"empty buffer", ErrEmptyBuffer, false},
		{"invalid config", ErrInvalidConfig, false},
		{"timeout in message", fmt.Errorf("operation timeout occurred"), true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsTransient(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"invalid config", ErrInvalidConfig, true},
		{"missing config", ErrMissingConfig, true},
		{"data corrupted", ErrDataCorrupted, true},
		{"empty buffer", ErrEmptyBuffer, false},
		{"fatal in message", fmt.Errorf("fatal system error occurred"), true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, true},
		{"classified invalid", &ClassifiedError{Class: ErrorInvalid, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsFatal(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"invalid argument", ErrInvalidArgument, true},
		{"empty buffer", ErrEmptyBuffer, true},
		{"index out of bounds", ErrIndexOutOfBounds, true},
		{"buffer full", ErrBufferFull, true},
		{"already stopped", ErrAlreadyStopped, true},
		{"source unavailable", ErrSourceUnavailable, false},
		{"classified invalid", &ClassifiedError{Class: ErrorInvalid, Err: fmt.Errorf("test")}, true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsInvalid(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"nil", nil, ErrorTransient},
		{"empty buffer", ErrEmptyBuffer, ErrorInvalid},
		{"missing config", ErrMissingConfig, ErrorFatal},
		{"unknown", fmt.Errorf("something odd"), ErrorTransient},
		{"wrapped invalid", WrapInvalid(ErrIndexOutOfBounds, "RingBuffer", "At", "lookup"), ErrorInvalid},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Classify(test.err); got != test.expected {
				t.Errorf("expected %v, got %v", test.expected, got)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "c", "m", "a") != nil {
		t.Fatal("wrapping nil should return nil")
	}

	err := Wrap(ErrEmptyBuffer, "RingBuffer", "Pop", "remove front element")
	expected := "RingBuffer.Pop: remove front element failed: buffer is empty"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
	if !errors.Is(err, ErrEmptyBuffer) {
		t.Error("wrapped error should match its sentinel")
	}
}

func TestWrapClassified(t *testing.T) {
	tests := []struct {
		name  string
		wrap  func(error, string, string, string) error
		class ErrorClass
	}{
		{"transient", WrapTransient, ErrorTransient},
		{"invalid", WrapInvalid, ErrorInvalid},
		{"fatal", WrapFatal, ErrorFatal},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if test.wrap(nil, "c", "m", "a") != nil {
				t.Fatal("wrapping nil should return nil")
			}

			err := test.wrap(ErrIndexOutOfBounds, "RingBuffer", "At", "index 4 of 3")

			var ce *ClassifiedError
			if !As(err, &ce) {
				t.Fatalf("expected ClassifiedError, got %T", err)
			}
			if ce.Class != test.class {
				t.Errorf("expected class %v, got %v", test.class, ce.Class)
			}
			if ce.Component != "RingBuffer" || ce.Operation != "At" {
				t.Errorf("unexpected context %s.%s", ce.Component, ce.Operation)
			}
			if !Is(err, ErrIndexOutOfBounds) {
				t.Error("classified error should unwrap to its sentinel")
			}
			if !strings.HasPrefix(err.Error(), "RingBuffer.At: index 4 of 3 failed") {
				t.Errorf("unexpected message %q", err.Error())
			}
		})
	}
}

func TestClassifiedErrorWithoutMessage(t *testing.T) {
	ce := &ClassifiedError{Class: ErrorInvalid, Err: ErrBufferFull}
	if ce.Error() != ErrBufferFull.Error() {
		t.Errorf("expected underlying message, got %q", ce.Error())
	}
}
