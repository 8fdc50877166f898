// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package toolkit

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/unifai-network/unifai-sdk-go/pkg/errors"
	"github.com/unifai-network/unifai-sdk-go/pkg/journal"
	"github.com/unifai-network/unifai-sdk-go/pkg/resilience"
	"github.com/unifai-network/unifai-sdk-go/pkg/telemetry"
)

// Dispatcher routes call requests to registered actions. Every request
// produces exactly one CallResult; failures never escape as panics or errors.
// It is safe for concurrent use.
type Dispatcher struct {
	registry *Registry
	timeout  time.Duration
	sem      *semaphore.Weighted
	logger   *slog.Logger
	metrics  *telemetry.DispatchMetrics
	journal  journal.Store
	tx       TransactionCreator
	tracer   trace.Tracer
}

// NewDispatcher creates a dispatcher over registry.
func NewDispatcher(registry *Registry, opts ...Option) *Dispatcher {
	return newDispatcher(registry, applyOptions(opts))
}

func newDispatcher(registry *Registry, s settings) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		timeout:  s.callTimeout,
		logger:   s.logger,
		metrics:  s.metrics,
		journal:  s.journal,
		tx:       s.tx,
		tracer:   otel.Tracer("unifai/toolkit"),
	}
	if s.maxConcurrency > 0 {
		d.sem = semaphore.NewWeighted(s.maxConcurrency)
	}
	return d
}

// Registry returns the registry the dispatcher reads from.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch runs one call and returns its result.
func (d *Dispatcher) Dispatch(ctx context.Context, req CallRequest) CallResult {
	started := time.Now()
	requestID := uuid.NewString()
	result := CallResult{Action: req.Action, ActionID: req.ActionID, AgentID: req.AgentID}

	ctx, span := d.tracer.Start(ctx, "toolkit.dispatch",
		trace.WithAttributes(telemetry.ActionAttributes(req.Action, req.ActionID.String(), req.AgentID.String(), requestID)...))
	defer span.End()
	// Handlers logging with ctx through the default logger get the call fields.
	ctx = telemetry.WithCallFields(ctx, req.Action, req.ActionID.String(), req.AgentID.String(), requestID)

	logger := d.logger.With(
		"action", req.Action,
		"action_id", req.ActionID.String(),
		"agent_id", req.AgentID.String(),
		"request_id", requestID,
	)
	logger.DebugContext(ctx, "action call received")

	d.metrics.CallStarted(ctx, req.Action)
	result = d.run(ctx, logger, req, requestID, result)
	elapsed := time.Since(started)

	kind := ""
	if result.Error != nil {
		kind = string(result.Error.Kind)
		span.SetStatus(codes.Error, result.Error.Message)
	}
	span.SetAttributes(telemetry.ActionResultAttributes(kind, float64(elapsed.Microseconds())/1000)...)
	if span.IsRecording() {
		span.SetAttributes(telemetry.ActionPayloadAttributes(string(req.Payload), string(result.Output), 0)...)
	}
	d.metrics.CallFinished(ctx, req.Action, kind, elapsed)

	switch {
	case result.Error == nil:
		logger.InfoContext(ctx, "action call succeeded", "duration", elapsed)
	case result.Error.Kind != KindInternalError:
		logger.WarnContext(ctx, "action call failed",
			"kind", result.Error.Kind, "error", result.Error.Message, "duration", elapsed)
	}

	d.record(ctx, logger, requestID, result, started, time.Now())
	return result
}

func (d *Dispatcher) run(ctx context.Context, logger *slog.Logger, req CallRequest, requestID string, result CallResult) CallResult {
	action, ok := d.registry.Lookup(req.Action)
	if !ok {
		return failed(result, KindUnknownAction, fmt.Sprintf("action %q is not registered", req.Action))
	}

	if d.sem != nil {
		if err := d.sem.Acquire(ctx, 1); err != nil {
			return failed(result, KindInternalError, "call cancelled before it started")
		}
		defer d.sem.Release(1)
	}

	actx := &Context{
		Action:    req.Action,
		ActionID:  req.ActionID,
		AgentID:   req.AgentID,
		RequestID: requestID,
		Payment:   req.Payment,
		Logger:    logger,
		tx:        d.tx,
	}

	res, err := resilience.WithTimeoutResult(ctx, resilience.TimeoutConfig{Duration: d.timeout},
		func(ctx context.Context) (*Result, error) {
			return invokeSafely(ctx, logger, action, actx, req.Payload)
		})
	if err != nil {
		kind, msg := classify(err, req.Action, d.timeout)
		return failed(result, kind, msg)
	}
	if res == nil {
		res = &Result{}
	}

	output, err := json.Marshal(res.Output)
	if err != nil {
		logger.ErrorContext(ctx, "action output is not serializable", "error", err)
		return failed(result, KindInternalError, "action output could not be serialized")
	}
	result.Output = output
	result.Payment = res.Payment
	return result
}

// actionError marks an error returned by Action.Invoke, as opposed to one
// raised by the dispatch boundary itself.
type actionError struct {
	err error
}

func (e *actionError) Error() string { return e.err.Error() }

func (e *actionError) Unwrap() error { return e.err }

// invokeSafely turns a panicking action into an internal error.
func invokeSafely(ctx context.Context, logger *slog.Logger, action Action, actx *Context, payload json.RawMessage) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "action panicked", "panic", r, "stack", string(debug.Stack()))
			res, err = nil, errors.Newf(errors.CodeInternal, "action panicked: %v", r)
		}
	}()
	res, err = action.Invoke(ctx, actx, payload)
	if err != nil {
		return nil, &actionError{err: err}
	}
	return res, nil
}

// classify maps a failed call onto a result kind. Only errors raised by the
// dispatcher become Timeout or InternalError; whatever the action returns is
// a HandlerError unless it is coded as invalid arguments.
func classify(err error, action string, timeout time.Duration) (ErrorKind, string) {
	var ae *actionError
	if stderrors.As(err, &ae) {
		if errors.CodeOf(ae.err) == "" {
			return KindHandlerError, ae.err.Error()
		}
		ue := errors.AsUnifaiError(ae.err)
		if ue.Code == errors.CodeInvalidArguments {
			return KindInvalidArguments, ue.Message
		}
		return KindHandlerError, ue.Message
	}

	switch errors.CodeOf(err) {
	case errors.CodeTimeout:
		return KindTimeout, fmt.Sprintf("action %q did not finish within %s", action, timeout)
	case errors.CodeContextLost:
		return KindInternalError, "call cancelled"
	case "":
		return KindInternalError, err.Error()
	default:
		return KindInternalError, errors.AsUnifaiError(err).Message
	}
}

func failed(result CallResult, kind ErrorKind, message string) CallResult {
	result.Output = nil
	result.Payment = nil
	result.Error = &ResultError{Kind: kind, Message: message}
	return result
}

func (d *Dispatcher) record(ctx context.Context, logger *slog.Logger, requestID string, result CallResult, started, finished time.Time) {
	if d.journal == nil {
		return
	}
	entry := journal.Entry{
		RequestID:  requestID,
		Action:     result.Action,
		ActionID:   result.ActionID.String(),
		AgentID:    result.AgentID.String(),
		Output:     result.Output,
		StartedAt:  started,
		FinishedAt: finished,
	}
	if result.Error != nil {
		entry.Kind = string(result.Error.Kind)
		entry.Message = result.Error.Message
	}
	if err := d.journal.Record(context.WithoutCancel(ctx), entry); err != nil {
		logger.WarnContext(ctx, "failed to record action call", "error", err)
	}
}
