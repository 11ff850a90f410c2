package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/logger"
)

// RetryPolicy bounds retries of transient failures on external calls.
// Every attempt runs under its own timeout; an attempt that exceeds it
// fails with domain.ErrTimeout and is retried like any transient error.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the wait before the second attempt.
	BaseDelay time.Duration

	// MaxDelay caps the wait between attempts.
	MaxDelay time.Duration

	// Multiplier grows the delay after every attempt.
	Multiplier float64

	// Timeout bounds each attempt. Zero disables the per-attempt timeout.
	Timeout time.Duration

	// sleep and jitter are replaced in tests.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(d time.Duration) time.Duration
}

// DefaultRetryPolicy returns the policy used for provider calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: domain.DefaultMaxAttempts,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Multiplier:  2,
		Timeout:     domain.DefaultCallTimeout,
	}
}

// Do runs fn until it succeeds, fails with a non-transient error, or the
// attempts are exhausted. It returns the number of attempts made.
// Cancellation of ctx stops retrying immediately.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) (int, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = p.attempt(ctx, fn)
		if err == nil {
			return attempt, nil
		}
		if ctx.Err() != nil {
			return attempt, ctx.Err()
		}
		if !domain.IsTransient(err) || attempt == attempts {
			return attempt, err
		}

		delay := p.delay(attempt)
		logger.Warn("%s failed, retrying in %s: %v", op, delay, err)
		if serr := p.doSleep(ctx, delay); serr != nil {
			return attempt, serr
		}
	}
	return attempts, err
}

// attempt runs fn once under the per-attempt timeout.
func (p RetryPolicy) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	callCtx := ctx
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	err := fn(callCtx)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %w", domain.ErrTimeout, p.Timeout, err)
	}
	return err
}

// delay returns the wait after the given attempt (1-based).
func (p RetryPolicy) delay(attempt int) time.Duration {
	d := float64(p.BaseDelay)
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	for i := 1; i < attempt; i++ {
		d *= mult
		if p.MaxDelay > 0 && time.Duration(d) >= p.MaxDelay {
			d = float64(p.MaxDelay)
			break
		}
	}
	out := time.Duration(d)
	if p.jitter != nil {
		return p.jitter(out)
	}
	if out <= 0 {
		return 0
	}
	// Full jitter: uniform in [0, out].
	return time.Duration(rand.Int64N(int64(out) + 1))
}

func (p RetryPolicy) doSleep(ctx context.Context, d time.Duration) error {
	if p.sleep != nil {
		return p.sleep(ctx, d)
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
