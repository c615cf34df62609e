package retry

import (
	"context"
	stderrors "errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/c360/ringkit/errors"
)

// Unlimited as MaxAttempts retries until the operation succeeds, returns a
// non-retryable error, or the context is done.
const Unlimited = -1

// NonRetryableError wraps errors that should not be retried
type NonRetryableError struct {
	Err error
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("non-retryable: %v", e.Err)
}

func (e *NonRetryableError) Unwrap() error {
	return e.Err
}

// NonRetryable wraps an error to indicate it should not be retried
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetryableError{Err: err}
}

// IsNonRetryable checks if an error is marked as non-retryable
func IsNonRetryable(err error) bool {
	var nre *NonRetryableError
	return stderrors.As(err, &nre)
}

// Retryable is the default retry predicate. Errors marked with NonRetryable,
// and errors classified as invalid or fatal, are not retried. Everything else,
// including unclassified errors, is.
func Retryable(err error) bool {
	if IsNonRetryable(err) {
		return false
	}
	return errors.Classify(err) == errors.ErrorTransient
}

// Config provides retry configuration
type Config struct {
	MaxAttempts  int           // Attempts including the first; 0 runs once, Unlimited never gives up
	InitialDelay time.Duration // Delay before the second attempt
	MaxDelay     time.Duration // Upper bound on any delay
	Multiplier   float64       // Backoff multiplier (typically 2.0)
	AddJitter    bool          // Add up to 25% to each delay

	// ShouldRetry decides whether err is worth another attempt. Defaults to
	// Retryable.
	ShouldRetry func(err error) bool

	// OnRetry, if set, is called before sleeping with the attempt that failed,
	// its error, and the delay before the next attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig returns sensible defaults for retry operations
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		AddJitter:    true,
	}
}

// Quick returns a config for fast retries, such as a file expected to appear
// shortly.
func Quick() Config {
	return Config{
		MaxAttempts:  10,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   1.5,
		AddJitter:    true,
	}
}

// Persistent returns a config for long-running work that should keep going
// through transient failures, such as following a file.
func Persistent() Config {
	return Config{
		MaxAttempts:  Unlimited,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		AddJitter:    true,
	}
}

func (c *Config) normalize() error {
	if c.InitialDelay < 0 {
		return errors.WrapInvalid(errors.ErrInvalidArgument, "retry", "Do", "negative InitialDelay")
	}
	if c.MaxDelay < 0 {
		return errors.WrapInvalid(errors.ErrInvalidArgument, "retry", "Do", "negative MaxDelay")
	}
	if c.Multiplier < 0 {
		return errors.WrapInvalid(errors.ErrInvalidArgument, "retry", "Do", "negative Multiplier")
	}

	c.Multiplier = min(c.Multiplier, 1000)
	if c.MaxAttempts == 0 || c.MaxAttempts < Unlimited {
		c.MaxAttempts = 1
	}
	if c.InitialDelay == 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = 5 * time.Second
	}
	if c.Multiplier == 0 {
		c.Multiplier = 2.0
	}
	if c.ShouldRetry == nil {
		c.ShouldRetry = Retryable
	}

	if c.MaxDelay < c.InitialDelay {
		return errors.WrapInvalid(errors.ErrInvalidArgument, "retry", "Do", "MaxDelay below InitialDelay")
	}
	return nil
}

func (c *Config) next(delay time.Duration) time.Duration {
	next := float64(delay) * c.Multiplier
	if next > float64(c.MaxDelay) {
		return c.MaxDelay
	}
	return time.Duration(next)
}

func (c *Config) sleepFor(delay time.Duration) time.Duration {
	if !c.AddJitter || delay < 4 {
		return delay
	}
	return delay + rand.N(delay/4)
}

// Do calls fn until it succeeds, returns an error ShouldRetry rejects, the
// attempts run out, or ctx is done. Rejected errors are returned as is.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if err := cfg.normalize(); err != nil {
		return err
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; cfg.MaxAttempts == Unlimited || attempt <= cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !cfg.ShouldRetry(err) {
			return err
		}
		if ctx.Err() != nil {
			return fmt.Errorf("retry cancelled after attempt %d: %w: %w", attempt, ctx.Err(), err)
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		sleep := cfg.sleepFor(delay)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, sleep)
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled during backoff after attempt %d: %w: %w", attempt, ctx.Err(), err)
		case <-timer.C:
		}

		delay = cfg.next(delay)
	}

	return fmt.Errorf("retry failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

// DoWithResult executes fn with retry and returns both result and error
func DoWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func() error {
		var innerErr error
		result, innerErr = fn()
		return innerErr
	})
	return result, err
}
