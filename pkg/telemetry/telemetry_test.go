// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInit(t *testing.T) {
	shutdown, err := Init("test-service", "v0.0.1")
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if shutdown == nil {
		t.Fatal("Shutdown function should not be nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestInitNoneExporter(t *testing.T) {
	for _, exporter := range []string{"", "none"} {
		shutdown, err := InitWithConfig("test-service", "v0.0.1", Config{Exporter: exporter})
		if err != nil {
			t.Fatalf("InitWithConfig(%q) failed: %v", exporter, err)
		}
		if err := shutdown(context.Background()); err != nil {
			t.Errorf("Shutdown failed: %v", err)
		}
	}
}

func TestInitRejectsBadConfig(t *testing.T) {
	if _, err := InitWithConfig("svc", "v", Config{Exporter: "otlp"}); err == nil {
		t.Fatalf("expected error for missing otlp endpoint")
	}
	if _, err := InitWithConfig("svc", "v", Config{Exporter: "zipkin"}); err == nil {
		t.Fatalf("expected error for unknown exporter")
	}
}

func TestOTLPHeadersBasicAuth(t *testing.T) {
	headers := otlpHeaders(Config{
		OTLPHeaders: map[string]string{"x-org-id": "org-1"},
		OTLPUser:    "admin",
		OTLPToken:   "secret",
	})
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("admin:secret"))
	if headers["authorization"] != want {
		t.Fatalf("unexpected authorization header: %q", headers["authorization"])
	}
	if headers["x-org-id"] != "org-1" {
		t.Fatalf("expected custom header to be kept")
	}

	explicit := otlpHeaders(Config{
		OTLPHeaders: map[string]string{"authorization": "Bearer t"},
		OTLPUser:    "admin",
		OTLPToken:   "secret",
	})
	if explicit["authorization"] != "Bearer t" {
		t.Fatalf("expected explicit authorization to win, got %q", explicit["authorization"])
	}
}

func TestConfigureSlogAddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	prev := otel.GetTracerProvider()
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	defer func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	}()

	logger := ConfigureSlog(&buf, "debug", "json")
	ctx, span := otel.Tracer("test").Start(context.Background(), "op")
	logger.DebugContext(ctx, "dispatching", "action", "echo")
	span.End()

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json log line, got %q: %v", buf.String(), err)
	}
	if entry["trace_id"] != span.SpanContext().TraceID().String() {
		t.Fatalf("expected trace_id in log entry, got %v", entry["trace_id"])
	}
	if entry["action"] != "echo" {
		t.Fatalf("expected action attribute, got %v", entry["action"])
	}
}

func TestHandlerAddsCallFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, "info", "json"))
	ctx := WithCallFields(context.Background(), "echo", "5", "42", "")

	logger.InfoContext(ctx, "handled")
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json log line, got %q: %v", buf.String(), err)
	}
	if entry["action"] != "echo" || entry["action_id"] != "5" || entry["agent_id"] != "42" {
		t.Fatalf("expected call fields, got %v", entry)
	}
	if _, ok := entry["request_id"]; ok {
		t.Fatalf("empty fields must be left out, got %v", entry["request_id"])
	}

	// Fields bound with With are not repeated from the context.
	buf.Reset()
	logger.With("action", "echo").InfoContext(ctx, "bound")
	if n := strings.Count(buf.String(), `"action":`); n != 1 {
		t.Fatalf("expected one action key, got %d in %q", n, buf.String())
	}

	buf.Reset()
	logger.Info("no context")
	if strings.Contains(buf.String(), "agent_id") {
		t.Fatalf("unexpected call fields without context: %q", buf.String())
	}
}

func TestConfigureSlogLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := ConfigureSlog(&buf, "warn", "text")
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected log output: %q", buf.String())
	}
}

func TestOTLPSmoke(t *testing.T) {
	if os.Getenv("UNIFAI_OTLP_SMOKE_TEST") != "1" {
		t.Skip("set UNIFAI_OTLP_SMOKE_TEST=1 to run")
	}
	endpoint := os.Getenv("UNIFAI_TELEMETRY_OTLP_ENDPOINT")
	if endpoint == "" {
		t.Skip("set UNIFAI_TELEMETRY_OTLP_ENDPOINT for OTLP smoke test")
	}

	shutdown, err := InitWithConfig("telemetry-smoke-test", "v0.1.0", Config{
		Exporter:     "otlp",
		OTLPEndpoint: endpoint,
		OTLPInsecure: os.Getenv("UNIFAI_TELEMETRY_OTLP_INSECURE") == "true",
	})
	if err != nil {
		t.Fatalf("failed to init telemetry: %v", err)
	}

	_, span := otel.Tracer("unifai/telemetry-smoke").Start(context.Background(), "smoke.span")
	span.SetAttributes(attribute.String("smoke.test", "otlp"))
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("telemetry shutdown failed: %v", err)
	}
}
