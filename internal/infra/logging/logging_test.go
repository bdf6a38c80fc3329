//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestWith_AddsContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := WithTraceID(context.Background(), "trace-1")
	ctx = WithSessID(ctx, "sess-9")
	ctx = WithAccountID(ctx, 42)
	ctx = WithContact(ctx, "2376@s.whatsapp.net")

	With(ctx, &base).Info().Msg("hello")

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json log line: %v", err)
	}
	if got["trace_id"] != "trace-1" || got["session_id"] != "sess-9" || got["contact"] != "2376@s.whatsapp.net" {
		t.Errorf("missing string fields: %v", got)
	}
	if got["account_id"] != float64(42) {
		t.Errorf("expected account_id 42, got %v", got["account_id"])
	}
	if TraceID(ctx) != "trace-1" {
		t.Errorf("unexpected trace id %q", TraceID(ctx))
	}
}

func TestRedact(t *testing.T) {
	if Redact("237650000000", true) != "237650000000" {
		t.Error("dev mode must not redact")
	}
	if got := Redact("237650000000", false); got != "2376...00" {
		t.Errorf("unexpected redaction %q", got)
	}
	if Redact("short", false) != "***" {
		t.Error("short values must be fully hidden")
	}
}
