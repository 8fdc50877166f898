// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/unifai-network/unifai-sdk-go/pkg/errors"
)

// CircuitBreakerState represents the state of a circuit breaker.
type CircuitBreakerState string

const (
	// StateClosed means the circuit breaker is working normally.
	StateClosed CircuitBreakerState = "closed"

	// StateOpen means the circuit breaker is blocking calls.
	StateOpen CircuitBreakerState = "open"

	// StateHalfOpen means the circuit breaker is testing if service recovered.
	StateHalfOpen CircuitBreakerState = "half-open"
)

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before opening the circuit.
	FailureThreshold int

	// SuccessThreshold is the number of successes in half-open before closing.
	SuccessThreshold int

	// Timeout is how long to wait before trying half-open state.
	Timeout time.Duration

	// Name is the circuit breaker identifier for logging/metrics.
	Name string

	// IsFailure decides which errors count against the breaker.
	// If nil, every non-nil error counts.
	IsFailure func(error) bool
}

// CircuitBreaker prevents cascading failures using the circuit breaker pattern.
// fn runs outside the breaker lock, so concurrent calls are not serialized.
type CircuitBreaker struct {
	config       CircuitBreakerConfig
	state        CircuitBreakerState
	failures     int
	successes    int
	lastFailTime time.Time
	mu           sync.Mutex
}

// NewCircuitBreaker creates a new circuit breaker with the given config.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold < 1 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold < 1 {
		config.SuccessThreshold = 2
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Name == "" {
		config.Name = "circuit_breaker"
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// Call executes fn if the circuit breaker allows, tracking success/failure.
// Returns errors.CodeTransport, marked recoverable, if the circuit is open.
func (cb *CircuitBreaker) Call(ctx context.Context, fn func() error) error {
	if err := cb.allow(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && time.Since(cb.lastFailTime) > cb.config.Timeout {
		cb.state = StateHalfOpen
		cb.successes = 0
		cb.failures = 0
	}
	if cb.state == StateOpen {
		return errors.New(errors.CodeTransport, "circuit breaker open", nil).
			WithContext("breaker", cb.config.Name).
			WithRecoverable(true)
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil && cb.config.IsFailure(err) {
		cb.failures++
		cb.lastFailTime = time.Now()
		switch cb.state {
		case StateHalfOpen:
			cb.state = StateOpen
			cb.failures = 0
			cb.successes = 0
		case StateClosed:
			if cb.failures >= cb.config.FailureThreshold {
				cb.state = StateOpen
				cb.failures = 0
				cb.successes = 0
			}
		}
		return
	}

	switch cb.state {
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.state = StateClosed
			cb.failures = 0
			cb.successes = 0
		}
	case StateClosed:
		cb.failures = 0
	}
}

// State returns the current circuit breaker state.
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset manually resets the circuit breaker to closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
}
