package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

func TestClassifyDBErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unique", &pgconn.PgError{Code: "23505"}, "unique_violation"},
		{"wrapped_deadlock", fmt.Errorf("update: %w", &pgconn.PgError{Code: "40P01"}), "deadlock"},
		{"foreign_key", &pgconn.PgError{Code: "23503"}, "foreign_key_violation"},
		{"other_pg", &pgconn.PgError{Code: "42P01"}, "pg_42P01"},
		{"timeout", context.DeadlineExceeded, "timeout"},
		{"connection", errors.New("failed to connect: connection refused"), "connection"},
		{"unknown", errors.New("boom"), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyDBErr(tt.err); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestObserveDB_ReturnsInnerError(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())
	want := errors.New("boom")

	if err := p.ObserveDB("todos.list", func() error { return want }); err != want {
		t.Fatalf("got %v, want %v", err, want)
	}
	if err := p.ObserveDB("todos.list", func() error { return nil }); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestObserveMutation_NilSafe(t *testing.T) {
	var p *Prom
	p.ObserveMutation("create", "ok")
}

func TestLogger_AddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger("dev", &buf)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	log.InfoContext(ctx, "hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}

	if line["trace_id"] != traceID.String() || line["span_id"] != spanID.String() {
		t.Fatalf("missing trace ids in %v", line)
	}
	if line["service"] != "todohub" {
		t.Fatalf("missing service attr in %v", line)
	}
}

func TestLogger_AddsRequestFields(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger("dev", &buf)

	ctx := WithUserID(WithRequestID(context.Background(), "req-42"), "user-7")
	log.WarnContext(ctx, "list cache write failed")
	log.Info("no context")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}

	var tagged, plain map[string]any
	if err := json.Unmarshal(lines[0], &tagged); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if err := json.Unmarshal(lines[1], &plain); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}

	if tagged["request_id"] != "req-42" || tagged["user_id"] != "user-7" {
		t.Fatalf("missing request fields in %v", tagged)
	}
	if _, ok := plain["request_id"]; ok {
		t.Fatalf("untagged record should not carry request_id: %v", plain)
	}
}
