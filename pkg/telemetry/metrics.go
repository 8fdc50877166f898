// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/unifai-network/unifai-sdk-go/pkg/errors"
)

// DispatchMetrics tracks action calls handled by a toolkit.
// A nil *DispatchMetrics is valid and records nothing.
type DispatchMetrics struct {
	// calls counts finished calls by action and result kind
	calls metric.Int64Counter

	// duration records handler latency in milliseconds
	duration metric.Float64Histogram

	// inFlight tracks calls currently running
	inFlight metric.Int64UpDownCounter

	// apiErrors counts platform API failures by error code
	apiErrors metric.Int64Counter
}

// NewDispatchMetrics creates dispatch instruments on the global meter provider.
func NewDispatchMetrics() (*DispatchMetrics, error) {
	return NewDispatchMetricsWithMeter(otel.Meter("unifai/toolkit"))
}

// NewDispatchMetricsWithMeter creates dispatch instruments on meter.
func NewDispatchMetricsWithMeter(meter metric.Meter) (*DispatchMetrics, error) {
	calls, err := meter.Int64Counter(
		"unifai.toolkit.calls",
		metric.WithDescription("Action calls by action and result kind"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"unifai.toolkit.call.duration",
		metric.WithDescription("Action call duration"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	inFlight, err := meter.Int64UpDownCounter(
		"unifai.toolkit.calls.in_flight",
		metric.WithDescription("Action calls currently running"),
	)
	if err != nil {
		return nil, err
	}

	apiErrors, err := meter.Int64Counter(
		"unifai.api.errors",
		metric.WithDescription("Platform API errors by code"),
	)
	if err != nil {
		return nil, err
	}

	return &DispatchMetrics{
		calls:     calls,
		duration:  duration,
		inFlight:  inFlight,
		apiErrors: apiErrors,
	}, nil
}

// CallStarted marks a call as in flight.
func (m *DispatchMetrics) CallStarted(ctx context.Context, action string) {
	if m == nil {
		return
	}
	m.inFlight.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrActionName, action)))
}

// CallFinished records the outcome of a call. An empty kind means success.
func (m *DispatchMetrics) CallFinished(ctx context.Context, action, kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	name := attribute.String(AttrActionName, action)
	m.inFlight.Add(ctx, -1, metric.WithAttributes(name))
	m.calls.Add(ctx, 1, metric.WithAttributes(name, attribute.String(AttrActionKind, resultKind(kind))))
	m.duration.Record(ctx, float64(elapsed.Microseconds())/1000, metric.WithAttributes(name))
}

// RecordAPIError counts a failed platform request.
func (m *DispatchMetrics) RecordAPIError(ctx context.Context, err error, path string) {
	if m == nil || err == nil {
		return
	}
	code := string(errors.CodeOf(err))
	if code == "" {
		code = "UNKNOWN"
	}
	m.apiErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("error.code", code),
		attribute.String(AttrAPIPath, path),
		attribute.Bool("recoverable", errors.IsRecoverable(err)),
	))
}
