// Package retry runs an operation with exponential backoff.
//
// The watcher uses it to reload a binary that a linker or compiler may still
// be writing: a half-written object file fails to parse, and the next
// attempt usually sees the finished file.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Policy defines the backoff between attempts.
type Policy struct {
	// Attempts is the maximum number of calls. Values below 1 mean 1.
	Attempts int

	// Initial is the wait before the second attempt. Each later wait
	// doubles, up to Max when Max is non-zero.
	Initial time.Duration
	Max     time.Duration

	// Jitter adds up to Jitter*wait, growing linearly with the attempt
	// number (0.0 to 1.0).
	Jitter float64
}

// RetryableFunc reports whether err is worth another attempt. A nil
// RetryableFunc retries every error.
type RetryableFunc func(error) bool

// Do calls fn until it succeeds, returns a non-retryable error, or the
// attempts run out. Cancelling ctx stops the wait between attempts and
// returns the context error.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error, retryable RetryableFunc) error {
	attempts := max(p.Attempts, 1)

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(p.Backoff(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		lastErr = err
	}

	if attempts == 1 {
		return lastErr
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

// Backoff returns the wait before the given attempt (1 for the first retry).
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}

	wait := time.Duration(math.Pow(2, float64(attempt-1)) * float64(p.Initial))
	if p.Max > 0 && wait > p.Max {
		wait = p.Max
	}

	if p.Jitter > 0 && p.Attempts > 0 {
		wait += time.Duration(float64(wait) * p.Jitter * float64(attempt) / float64(p.Attempts))
	}
	return wait
}
