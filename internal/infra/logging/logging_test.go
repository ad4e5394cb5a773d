//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestWith(t *testing.T) {
	t.Run("should attach context ids to log lines", func(t *testing.T) {
		var buf bytes.Buffer
		base := zerolog.New(&buf)
		ctx := WithOrderID(WithUserID(WithTraceID(context.Background(), "tr-1"), "u1"), "ord_1")

		l := With(ctx, &base)
		l.Info().Msg("hello")

		var line map[string]any
		if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
			t.Fatalf("invalid json log line: %v", err)
		}
		for k, want := range map[string]string{"trace_id": "tr-1", "user_id": "u1", "order_id": "ord_1"} {
			if line[k] != want {
				t.Errorf("expected %s=%q, got %v", k, want, line[k])
			}
		}
	})
}

func TestDetach(t *testing.T) {
	t.Run("should keep fields and drop cancellation", func(t *testing.T) {
		parent, cancel := context.WithTimeout(WithTraceID(context.Background(), "tr-9"), time.Millisecond)
		cancel()

		ctx := Detach(parent)

		if ctx.Err() != nil {
			t.Fatalf("expected detached ctx to be live, got %v", ctx.Err())
		}
		if TraceID(ctx) != "tr-9" {
			t.Errorf("expected trace id tr-9, got %q", TraceID(ctx))
		}
	})
}

func TestRedact(t *testing.T) {
	if got := Redact("someone@example.com", false); got != "some...om" {
		t.Errorf("unexpected redaction %q", got)
	}
	if got := Redact("short", false); got != "***" {
		t.Errorf("expected short values fully hidden, got %q", got)
	}
	if got := Redact("someone@example.com", true); got != "someone@example.com" {
		t.Errorf("expected no redaction in dev, got %q", got)
	}
}
