// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// ConfigureSlog installs a logger writing to output as the slog default and
// returns it. Records logged with a context get the trace and span IDs of the
// active span and the call fields attached by WithCallFields.
func ConfigureSlog(output io.Writer, level, format string) *slog.Logger {
	logger := slog.New(NewHandler(output, level, format))
	slog.SetDefault(logger)
	return logger
}

// NewHandler builds the handler ConfigureSlog installs, for callers that
// want the same output without replacing the default logger.
func NewHandler(output io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}
	var base slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		base = slog.NewJSONHandler(output, opts)
	default:
		base = slog.NewTextHandler(output, opts)
	}
	return &callHandler{next: base}
}

type callFieldsKey struct{}

// WithCallFields returns a context whose log records carry the fields of the
// action call being served. Empty values are left out.
func WithCallFields(ctx context.Context, action, actionID, agentID, requestID string) context.Context {
	fields := make([]slog.Attr, 0, 4)
	for _, f := range []struct{ key, value string }{
		{"action", action},
		{"action_id", actionID},
		{"agent_id", agentID},
		{"request_id", requestID},
	} {
		if f.value != "" {
			fields = append(fields, slog.String(f.key, f.value))
		}
	}
	return context.WithValue(ctx, callFieldsKey{}, fields)
}

func callFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(callFieldsKey{}).([]slog.Attr)
	return fields
}

// callHandler adds trace IDs and call fields from the record's context. Keys
// already bound with Logger.With or present on the record win.
type callHandler struct {
	next  slog.Handler
	bound map[string]bool
}

func (h *callHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *callHandler) Handle(ctx context.Context, record slog.Record) error {
	add := func(attr slog.Attr) {
		if !h.bound[attr.Key] && !recordHasAttr(record, attr.Key) {
			record.AddAttrs(attr)
		}
	}
	for _, attr := range callFields(ctx) {
		add(attr)
	}
	if traceID, spanID := spanIDsFromContext(ctx); traceID != "" {
		add(slog.String("trace_id", traceID))
		add(slog.String("span_id", spanID))
	}
	return h.next.Handle(ctx, record)
}

func (h *callHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := make(map[string]bool, len(h.bound)+len(attrs))
	for key := range h.bound {
		bound[key] = true
	}
	for _, attr := range attrs {
		bound[attr.Key] = true
	}
	return &callHandler{next: h.next.WithAttrs(attrs), bound: bound}
}

// WithGroup nests later attributes, context fields included.
func (h *callHandler) WithGroup(name string) slog.Handler {
	return &callHandler{next: h.next.WithGroup(name), bound: h.bound}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func spanIDsFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", ""
	}
	return sc.TraceID().String(), sc.SpanID().String()
}

func recordHasAttr(record slog.Record, key string) bool {
	found := false
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == key {
			found = true
			return false
		}
		return true
	})
	return found
}
