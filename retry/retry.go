package retry

import (
	"context"
	"time"

	"github.com/spetersoncode/concierge"
)

// Do executes fn until it succeeds, fails with a non-transient error, or
// the attempts run out. A server-suggested Retry-After delay replaces the
// computed backoff, capped at MaxDelay. Backoff waits end early when ctx is
// done. Returns the last error if all attempts fail.
func Do[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	attempts := max(cfg.MaxAttempts, 1)
	for attempt := 0; attempt < attempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsTransient(err) || attempt == attempts-1 {
			break
		}

		delay := cfg.Delay(attempt)
		if ra := concierge.RetryAfterOf(err); ra > 0 {
			delay = ra
			if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, ctx.Err()
		case <-t.C:
		}
	}

	return zero, lastErr
}
