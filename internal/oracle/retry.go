package oracle

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy retries an oracle call with exponential backoff
// (base * 2^attempt). Transient failures are always retried; format
// failures are retried only when RetryFormatErrors is set, since a judge
// that emits one malformed verdict usually emits a good one next time.
// After the budget is spent the last error is returned unchanged.
type RetryPolicy struct {
	MaxAttempts       int
	BaseDelay         time.Duration
	RetryFormatErrors bool
}

func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error

	// A zero-value policy still makes one attempt; returning nil without
	// calling fn would hand callers a nil result with no error.
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := p.BaseDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !p.retryable(lastErr) {
			return lastErr
		}
	}

	return lastErr
}

func (p RetryPolicy) retryable(err error) bool {
	var transient *TransientError
	if errors.As(err, &transient) {
		return true
	}
	var format *FormatError
	if errors.As(err, &format) {
		return p.RetryFormatErrors
	}
	return false
}
