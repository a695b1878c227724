package llm

import (
	"context"
	"time"
)

// Policy is a reusable retry policy: bounded attempts, a backoff schedule
// and a predicate deciding which errors are worth retrying. Each call site
// (tutor gateway, diagram gateway) parameterizes its own instance instead
// of duplicating the loop inline.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// Backoff returns the wait before attempt n+1, given that attempt n
	// (1-based) just failed.
	Backoff func(attempt int) time.Duration
	// Retryable decides whether an error is transient.
	Retryable func(error) bool
	// Sleep waits for d or until ctx is done. Nil means real time; tests
	// inject a recorder.
	Sleep func(ctx context.Context, d time.Duration) error
}

// ExponentialBackoff returns base * 2^(attempt-1): with a 3s base the
// schedule is 3s, 6s, 12s.
func ExponentialBackoff(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return base << (attempt - 1)
	}
}

// Do runs fn until it succeeds, the attempt budget is exhausted, or a
// non-retryable error occurs. The last error is returned on failure.
func (p Policy) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}
		var wait time.Duration
		if p.Backoff != nil {
			wait = p.Backoff(attempt)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
	return lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
