// Package retry runs an operation with exponential backoff until it succeeds
// or fails in a way that retrying cannot fix.
//
// Which errors are retried is decided by Config.ShouldRetry. The default,
// Retryable, follows the error classes of the errors package: transient and
// unclassified errors are retried, while invalid and fatal errors, and errors
// wrapped with NonRetryable, end the loop at once and are returned unchanged.
//
// Presets:
//
//   - DefaultConfig: 3 attempts, 100ms to 5s
//   - Quick: 10 attempts, 50ms to 1s
//   - Persistent: unlimited attempts, 200ms to 10s
//
// Following a file through transient watcher failures:
//
//	cfg := retry.Persistent()
//	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
//	    logger.Warn("Follower failed, restarting", "attempt", attempt, "error", err, "delay", delay)
//	}
//	err := retry.Do(ctx, cfg, func() error {
//	    return follower.Run(ctx)
//	})
package retry
