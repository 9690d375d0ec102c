package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestRedactSensitive_KeyPattern(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l.Info("override applied", "api_token", "abc123", "setting", "worker_processes")

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}

	if got := logEntry["api_token"]; got != redactedValue {
		t.Errorf("api_token = %v, want %q", got, redactedValue)
	}
	if got := logEntry["setting"]; got != "worker_processes" {
		t.Errorf("setting = %v, want worker_processes", got)
	}
}

func TestRedactSensitive_EmptyValueKept(t *testing.T) {
	a := redactSensitive(slog.String("password", ""))
	if a.Value.String() != "" {
		t.Errorf("empty sensitive value should stay empty, got %q", a.Value.String())
	}
}

func TestRedactSensitive_Group(t *testing.T) {
	a := redactSensitive(slog.Group("auth", slog.String("secret", "s3cr3t"), slog.Int("port", 8080)))

	attrs := a.Value.Group()
	if len(attrs) != 2 {
		t.Fatalf("group len = %d, want 2", len(attrs))
	}
	if attrs[0].Value.String() != redactedValue {
		t.Errorf("nested secret = %q, want redacted", attrs[0].Value.String())
	}
	if attrs[1].Value.Int64() != 8080 {
		t.Errorf("nested port = %d, want 8080", attrs[1].Value.Int64())
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"password", true},
		{"DB_PASSWORD", true},
		{"client_secret", true},
		{"auth_header", true},
		{"credentials", true},
		{"timeout", false},
		{"worker_processes", false},
		{"backlog", false},
	}

	for _, tt := range tests {
		if got := IsSensitiveKey(tt.key); got != tt.want {
			t.Errorf("IsSensitiveKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}
