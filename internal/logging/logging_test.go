package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestEnsureRequestIDGeneratesUUID(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background())
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("request id %q is not a uuid: %v", id, err)
	}
	if got := RequestIDFromContext(ctx); got != id {
		t.Fatalf("RequestIDFromContext = %q, want %q", got, id)
	}

	again, same := EnsureRequestID(ctx)
	if same != id || RequestIDFromContext(again) != id {
		t.Fatalf("existing request id was replaced")
	}
}

func TestWithRequestLoggerAnnotates(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(Config{Level: "debug", Format: "json"}, &buf)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx, log := WithRequestLogger(ctx, base)
	log.Info(ctx, "frame rendered", Int("groups", 3), Err(errors.New("boom")))

	out := buf.String()
	for _, want := range []string{`"request_id":"req-1"`, `"groups":3`, `"error":"boom"`, `"msg":"frame rendered"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output %q missing %s", out, want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Level: "warn"}, &buf)
	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")

	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestLoggerFromContext(t *testing.T) {
	if LoggerFromContext(context.Background()) != nil {
		t.Fatalf("expected nil logger on bare context")
	}
	ctx, stored := WithRequestLogger(context.Background(), Noop())
	if LoggerFromContext(ctx) != stored {
		t.Fatalf("expected stored logger")
	}
	if RequestIDFromContext(ctx) == "" {
		t.Fatalf("expected generated request id")
	}
}

func TestSessionIDIsLogged(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Format: "json"}, &buf).With(String("component", "api"))

	ctx := ContextWithSessionID(context.Background(), "analyst-2")
	log.Info(ctx, "filters replaced", Timestamp(1714564800), Bool("tied", true))

	out := buf.String()
	for _, want := range []string{`"session_id":"analyst-2"`, `"component":"api"`, `"timestamp":1714564800`, `"tied":true`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output %q missing %s", out, want)
		}
	}
	if strings.Contains(out, "request_id") {
		t.Fatalf("unexpected request id in %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]string{"": "INFO", "DEBUG": "DEBUG", " warning ": "WARN", "error": "ERROR", "loud": "INFO"}
	for in, want := range cases {
		if got := ParseLevel(in).String(); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestSlogSharesHandler(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Format: "json"}, &buf).With(String("component", "supervisor"))

	ctx := ContextWithRequestID(context.Background(), "req-9")
	Slog(log).InfoContext(ctx, "service started")
	if out := buf.String(); !strings.Contains(out, `"component":"supervisor"`) || !strings.Contains(out, `"request_id":"req-9"`) {
		t.Fatalf("unexpected output %q", out)
	}

	Slog(Noop()).Info("dropped")
}
