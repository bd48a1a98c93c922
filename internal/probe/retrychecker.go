package probe

import (
	"context"
	"time"
)

// RetryChecker re-runs Inner until it succeeds or Attempts is exhausted.
type RetryChecker struct {
	Inner    Checker
	Attempts int
	Backoff  time.Duration
}

func (r *RetryChecker) Check(ctx context.Context, target string) Result {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var last Result
	for i := 0; i < attempts; i++ {
		last = r.Inner.Check(ctx, target)
		if last.Success() {
			return last
		}
		if i < attempts-1 {
			if err := sleep(ctx, r.Backoff); err != nil {
				break
			}
		}
	}
	// annotate so the history shows it was a retry series
	if attempts > 1 && last.Error != "" {
		last.Error += " (after retries)"
	}
	return last
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
