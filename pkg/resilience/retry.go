// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/unifai-network/unifai-sdk-go/pkg/errors"
)

// RetryConfig controls retry behavior with exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts. Zero or negative means
	// a single attempt; use Forever for unbounded retries.
	MaxAttempts int

	// InitialDelay is the initial backoff delay.
	InitialDelay time.Duration

	// MaxDelay caps the exponential backoff delay.
	MaxDelay time.Duration

	// Multiplier for exponential backoff (default 2.0).
	Multiplier float64

	// IsRecoverable determines if an error should be retried.
	// If nil, errors.IsRecoverable decides, with plain errors treated as recoverable.
	IsRecoverable func(error) bool

	// Jitter adds randomness to backoff to prevent thundering herd.
	// Value between 0 and 1; 0.1 means ±10% jitter.
	Jitter float64

	// OnRetry, when set, is called before each backoff sleep.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Forever is a MaxAttempts value that retries until the context ends.
const Forever = math.MaxInt

// DefaultRetryConfig returns a sensible default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		Multiplier:    2.0,
		Jitter:        0.1,
		IsRecoverable: isRecoverableDefault,
	}
}

// WithMaxAttempts returns a new config with MaxAttempts set.
func (rc RetryConfig) WithMaxAttempts(max int) RetryConfig {
	rc.MaxAttempts = max
	return rc
}

// WithInitialDelay returns a new config with InitialDelay set.
func (rc RetryConfig) WithInitialDelay(d time.Duration) RetryConfig {
	rc.InitialDelay = d
	return rc
}

// WithMaxDelay returns a new config with MaxDelay set.
func (rc RetryConfig) WithMaxDelay(d time.Duration) RetryConfig {
	rc.MaxDelay = d
	return rc
}

// WithIsRecoverable returns a new config with IsRecoverable set.
func (rc RetryConfig) WithIsRecoverable(fn func(error) bool) RetryConfig {
	rc.IsRecoverable = fn
	return rc
}

// WithOnRetry returns a new config with OnRetry set.
func (rc RetryConfig) WithOnRetry(fn func(attempt int, delay time.Duration, err error)) RetryConfig {
	rc.OnRetry = fn
	return rc
}

// Do executes fn with retry logic, returning the last error if all attempts fail.
func (rc RetryConfig) Do(ctx context.Context, fn func() error) error {
	if rc.MaxAttempts < 1 {
		rc.MaxAttempts = 1
	}
	if rc.IsRecoverable == nil {
		rc.IsRecoverable = isRecoverableDefault
	}

	var lastErr error
	for attempt := 0; attempt < rc.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := calculateBackoff(attempt, rc)
			if rc.OnRetry != nil {
				rc.OnRetry(attempt, delay, lastErr)
			}
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return errors.New(errors.CodeContextLost, "context canceled during retry", ctx.Err()).
					WithContext("attempt", attempt).
					WithContext("last_error", errString(lastErr))
			case <-timer.C:
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !rc.IsRecoverable(err) {
			return err
		}
	}

	return lastErr
}

// DoWithResult executes fn with retry logic, returning both result and error.
func DoWithResult[T any](ctx context.Context, rc RetryConfig, fn func() (T, error)) (T, error) {
	var result T
	err := rc.Do(ctx, func() error {
		var fnErr error
		result, fnErr = fn()
		return fnErr
	})
	return result, err
}

// calculateBackoff computes exponential backoff delay with jitter.
func calculateBackoff(attempt int, rc RetryConfig) time.Duration {
	if rc.Multiplier == 0 {
		rc.Multiplier = 2.0
	}

	// initialDelay * multiplier^(attempt-1), so the first retry waits InitialDelay.
	exponential := float64(rc.InitialDelay) * math.Pow(rc.Multiplier, float64(attempt-1))
	delay := time.Duration(exponential)
	if rc.MaxDelay > 0 && (delay > rc.MaxDelay || exponential > float64(math.MaxInt64)) {
		delay = rc.MaxDelay
	}

	if rc.Jitter > 0 {
		jitterRange := float64(delay) * rc.Jitter * 2 * (rand.Float64() - 0.5)
		delay = time.Duration(float64(delay) + jitterRange)
		if delay < 0 {
			delay = 0
		}
	}

	return delay
}

// isRecoverableDefault considers errors recoverable based on type.
func isRecoverableDefault(err error) bool {
	if err == nil {
		return false
	}
	if errors.CodeOf(err) != "" {
		return errors.IsRecoverable(err)
	}
	// Plain errors (network failures and the like) are retried.
	return true
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
