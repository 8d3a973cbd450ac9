package ai

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy is an exponential backoff with jitter and a delay cap.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 500 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 4 * time.Second
	}
	return p
}

// Do runs fn until it succeeds, returns a non-retryable error, the attempts
// run out or ctx is done.
func (p RetryPolicy) Do(ctx context.Context, logger *zap.Logger, fn func(context.Context) error) error {
	p = p.withDefaults()
	backoff := p.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) || attempt == p.MaxAttempts || ctx.Err() != nil {
			return lastErr
		}
		sleep := withJitter(backoff)
		if sleep > p.MaxDelay {
			sleep = p.MaxDelay
		}
		logger.Debug("retrying model call",
			zap.Int("attempt", attempt),
			zap.Duration("sleep", sleep),
			zap.Error(lastErr))
		t := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			t.Stop()
			return lastErr
		case <-t.C:
		}
		backoff *= 2
	}
	return lastErr
}

func isRetryable(err error) bool {
	var rl *RateLimitError
	var se *ServerError
	var ue *UnreachableError
	return errors.As(err, &rl) || errors.As(err, &se) || errors.As(err, &ue)
}

// withJitter returns a backoff duration with +/- 20% jitter applied.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 500 * time.Millisecond
	}
	// jitter factor in [0.8, 1.2)
	f := 0.8 + rand.Float64()*0.4
	out := time.Duration(float64(d) * f)
	if out <= 0 {
		return d
	}
	return out
}
