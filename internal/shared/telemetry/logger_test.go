package telemetry

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInfoWritesFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := SetLogger(zap.New(core))
	defer restore()

	Info("analysis.status", map[string]any{
		"resume_id": "r-1",
		"error":     errors.New("boom"),
	})

	entries := logs.FilterMessage("analysis.status").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["resume_id"] != "r-1" {
		t.Fatalf("unexpected resume_id: %v", ctx["resume_id"])
	}
	if ctx["error"] != "boom" {
		t.Fatalf("expected error rendered as string, got %v", ctx["error"])
	}
}

func TestConfigureRejectsUnknownLevel(t *testing.T) {
	if err := Configure(Options{Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestDefaultLoggerFallsBackToInfo(t *testing.T) {
	l := buildDefault("loud", "json")
	if l.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected debug to stay disabled")
	}
	if !l.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("expected info level logger after invalid LOG_LEVEL")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{in: "short", limit: 10, want: "short"},
		{in: "  padded  ", limit: 10, want: "padded"},
		{in: "résumé text", limit: 6, want: "résumé..."},
		{in: "anything", limit: 0, want: ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.limit); got != tt.want {
			t.Fatalf("Truncate(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
		}
	}
}
