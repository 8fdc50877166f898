// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package toolkit

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/unifai-network/unifai-sdk-go/pkg/api"
	"github.com/unifai-network/unifai-sdk-go/pkg/journal"
	"github.com/unifai-network/unifai-sdk-go/pkg/resilience"
	"github.com/unifai-network/unifai-sdk-go/pkg/telemetry"
)

// DefaultCallTimeout bounds each action call unless overridden.
const DefaultCallTimeout = 60 * time.Second

// DefaultPingInterval is how often the service pings the platform.
const DefaultPingInterval = 30 * time.Second

// Option configures a Dispatcher or a Service. Options that only apply to
// the service are ignored by NewDispatcher.
type Option func(*settings)

type settings struct {
	callTimeout    time.Duration
	maxConcurrency int64
	logger         *slog.Logger
	metrics        *telemetry.DispatchMetrics
	journal        journal.Store
	tx             TransactionCreator

	endpoints    *api.Endpoints
	httpClient   *http.Client
	apiOptions   []api.Option
	dialer       Dialer
	pingInterval time.Duration
	reconnect    resilience.RetryConfig
}

func defaultSettings() settings {
	return settings{
		callTimeout:  DefaultCallTimeout,
		logger:       slog.Default(),
		pingInterval: DefaultPingInterval,
		reconnect:    DefaultReconnect(),
	}
}

// DefaultReconnect is the reconnect policy used unless WithReconnect is
// given: retry forever with jittered backoff from 1s up to 30s.
func DefaultReconnect() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:  resilience.Forever,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2,
		Jitter:       0.2,
	}
}

func applyOptions(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

// WithCallTimeout bounds each call. Zero disables the bound.
func WithCallTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d >= 0 {
			s.callTimeout = d
		}
	}
}

// WithMaxConcurrency caps in-flight calls. Zero means unbounded.
func WithMaxConcurrency(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.maxConcurrency = int64(n)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records dispatch metrics on m.
func WithMetrics(m *telemetry.DispatchMetrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

// WithJournal records every dispatched call in store.
func WithJournal(store journal.Store) Option {
	return func(s *settings) {
		s.journal = store
	}
}

// WithTransactionClient sets what Context.CreateTransaction uses. A Service
// defaults to its own platform client.
func WithTransactionClient(tx TransactionCreator) Option {
	return func(s *settings) {
		s.tx = tx
	}
}

// WithEndpoints overrides the platform endpoints used by a Service.
func WithEndpoints(ep api.Endpoints) Option {
	return func(s *settings) {
		s.endpoints = &ep
	}
}

// WithHTTPClient sets the HTTP client used for platform requests and the
// websocket handshake.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) {
		s.httpClient = c
	}
}

// WithAPIOptions passes extra options to the Service's platform client.
func WithAPIOptions(opts ...api.Option) Option {
	return func(s *settings) {
		s.apiOptions = append(s.apiOptions, opts...)
	}
}

// WithDialer replaces the websocket dialer.
func WithDialer(d Dialer) Option {
	return func(s *settings) {
		s.dialer = d
	}
}

// WithPingInterval sets the keepalive interval. Zero disables pings.
func WithPingInterval(d time.Duration) Option {
	return func(s *settings) {
		if d >= 0 {
			s.pingInterval = d
		}
	}
}

// WithReconnect sets the reconnect policy. MaxAttempts of 1 disables
// reconnecting.
func WithReconnect(cfg resilience.RetryConfig) Option {
	return func(s *settings) {
		s.reconnect = cfg
	}
}
