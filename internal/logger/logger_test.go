package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSONAddsServiceField(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("debug", "json", &buf)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	l.WithField("op", "save").Info("hello")
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode entry %q: %v", buf.String(), err)
	}
	if entry["service"] != "staffline" {
		t.Fatalf("expected service field, got %v", entry["service"])
	}
	if entry["op"] != "save" {
		t.Fatalf("expected op field, got %v", entry["op"])
	}
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	if _, err := New("info", "xml", &bytes.Buffer{}); err == nil {
		t.Fatalf("expected format error")
	}
	if _, err := New("chatty", "text", &bytes.Buffer{}); err == nil {
		t.Fatalf("expected level error")
	}
}

func TestFromContextAttachesRequestID(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("info", "text", &buf)
	if err != nil {
		t.Fatal(err)
	}
	ctx := WithRequestID(context.Background(), "req-42")
	if got := RequestIDFromContext(ctx); got != "req-42" {
		t.Fatalf("RequestIDFromContext() = %q", got)
	}
	FromContext(ctx, l).Info("tagged")
	if !strings.Contains(buf.String(), "request_id=req-42") {
		t.Fatalf("missing request id in %q", buf.String())
	}
	if FromContext(context.Background(), nil) == nil {
		t.Fatalf("expected discard logger for nil base")
	}
}
