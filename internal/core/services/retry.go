package services

import (
	"context"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/vigil/internal/core/domain"
	"github.com/custodia-labs/vigil/internal/logger"
)

// Backoff defaults.
const (
	defaultBaseDelay = 500 * time.Millisecond
	defaultMaxDelay  = 10 * time.Second
)

// retryPolicy bounds the attempts of one capability call and throttles
// every attempt through a shared limiter.
type retryPolicy struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	limiter    *rate.Limiter
}

func newRetryPolicy(maxRetries int, limiter *rate.Limiter) retryPolicy {
	return retryPolicy{
		maxRetries: max(maxRetries, 0),
		baseDelay:  defaultBaseDelay,
		maxDelay:   defaultMaxDelay,
		limiter:    limiter,
	}
}

// newLimiter builds the limiter shared by all capability calls.
// A non-positive rate disables throttling.
func newLimiter(requestsPerSecond float64) *rate.Limiter {
	if requestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), max(1, int(requestsPerSecond)))
}

// backoff returns the delay before retry n (0-indexed) with jitter.
func (p retryPolicy) backoff(attempt int) time.Duration {
	if p.baseDelay <= 0 {
		return 0
	}
	base := p.baseDelay << uint(attempt)
	if base > p.maxDelay || base <= 0 {
		base = p.maxDelay
	}
	return base + time.Duration(rand.Int64N(int64(base)/2+1))
}

// do calls fn until it succeeds, fails permanently, or 1+maxRetries
// attempts are used. It returns the number of attempts made.
func (p retryPolicy) do(ctx context.Context, op string, fn func(context.Context) error) (int, error) {
	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				if lastErr == nil {
					lastErr = err
				}
				return attempts, lastErr
			}
		}

		attempts++
		lastErr = fn(ctx)
		if lastErr == nil {
			return attempts, nil
		}
		if ctx.Err() != nil || !domain.IsTransient(lastErr) {
			return attempts, lastErr
		}

		if attempt < p.maxRetries {
			delay := p.backoff(attempt)
			logger.Debug("%s attempt %d failed, retrying in %s: %v", op, attempts, delay, lastErr)
			select {
			case <-ctx.Done():
				return attempts, lastErr
			case <-time.After(delay):
			}
		}
	}
	return attempts, lastErr
}
