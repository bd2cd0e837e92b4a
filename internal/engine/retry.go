package engine

import (
	"context"
	"time"
)

// maxBackoff caps the exponential growth so a generous retry budget
// cannot stall a run for hours.
const maxBackoff = 5 * time.Minute

// ComputeBackoff calculates the delay before the next retry attempt:
// the policy's base delay doubled for each completed attempt. attempt
// is 1-based (the attempt that just failed).
func ComputeBackoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// WaitForBackoff sleeps for the computed backoff duration or returns early
// if the context is cancelled. Returns the context error on cancellation.
func WaitForBackoff(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
