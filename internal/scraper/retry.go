package scraper

import (
	"context"
	"math"
	"time"
)

// Retrier re-runs transient operations with exponential backoff. Validation
// errors are surfaced immediately; they indicate unparsable content, not
// transient failure.
type Retrier struct {
	maxAttempts int
	initial     time.Duration
	multiplier  float64
	stats       *Stats
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewRetrier(maxAttempts int, initial time.Duration, multiplier float64, stats *Stats) *Retrier {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if initial <= 0 {
		initial = time.Second
	}
	if multiplier < 1 {
		multiplier = 2
	}
	return &Retrier{
		maxAttempts: maxAttempts,
		initial:     initial,
		multiplier:  multiplier,
		stats:       stats,
		sleep:       sleepCtx,
	}
}

// Do invokes fn up to maxAttempts times. The k-th retry waits
// initial × multiplier^(k-1). After exhausting attempts the last error is
// wrapped in a RetryError carrying the attempt count, operation and target.
func (r *Retrier) Do(ctx context.Context, operation, target string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if r.stats != nil {
			r.stats.Request()
		}
		err := fn(ctx)
		if err == nil {
			if r.stats != nil {
				r.stats.Success()
			}
			return nil
		}
		if r.stats != nil {
			r.stats.Failure()
		}
		if IsValidationError(err) {
			return err
		}
		lastErr = err

		if attempt < r.maxAttempts {
			delay := time.Duration(float64(r.initial) * math.Pow(r.multiplier, float64(attempt-1)))
			if err := r.sleep(ctx, delay); err != nil {
				return err
			}
		}
	}
	return &RetryError{Operation: operation, Target: target, Attempts: r.maxAttempts, Last: lastErr}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
