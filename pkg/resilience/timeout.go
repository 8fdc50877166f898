// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

// Package resilience provides timeout, retry and circuit breaker patterns
// used by the toolkit runtime and the platform client.
package resilience

import (
	"context"
	"time"

	"github.com/unifai-network/unifai-sdk-go/pkg/errors"
)

// TimeoutConfig controls timeout behavior.
type TimeoutConfig struct {
	// Duration is the maximum time allowed for the operation. Zero disables
	// the boundary and runs fn inline.
	Duration time.Duration
}

// WithTimeout executes fn with a timeout boundary.
// Returns errors.CodeTimeout if the deadline is exceeded.
func WithTimeout(ctx context.Context, config TimeoutConfig, fn func(context.Context) error) error {
	_, err := WithTimeoutResult(ctx, config, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// WithTimeoutResult executes fn with a timeout boundary, returning both result
// and error. fn receives a context that is cancelled when the boundary fires;
// fn is not waited for after that point, its result is discarded.
func WithTimeoutResult[T any](ctx context.Context, config TimeoutConfig, fn func(context.Context) (T, error)) (T, error) {
	if config.Duration <= 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, config.Duration)
	defer cancel()

	type result struct {
		value T
		err   error
	}

	done := make(chan result, 1)
	go func() {
		value, err := fn(ctx)
		done <- result{value, err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, boundaryError(ctx, config)
	case res := <-done:
		// fn gave up because the boundary fired.
		if res.err != nil && ctx.Err() != nil {
			var zero T
			return zero, boundaryError(ctx, config)
		}
		return res.value, res.err
	}
}

func boundaryError(ctx context.Context, config TimeoutConfig) error {
	if ctx.Err() == context.DeadlineExceeded {
		return errors.New(errors.CodeTimeout, "operation exceeded timeout", ctx.Err()).
			WithContext("timeout", config.Duration.String()).
			WithRecoverable(true)
	}
	return errors.New(errors.CodeContextLost, "operation cancelled", ctx.Err())
}
